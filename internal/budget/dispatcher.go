package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"fintrack/internal/log"
)

const (
	// Level delivers every active warning on every evaluation.
	Level TriggerMode = "level"
	// Edge delivers a warning only when its condition becomes true. Once it
	// clears, the warning is armed again.
	Edge TriggerMode = "edge"
)

type TriggerMode string

func ParseTriggerMode(s string) (TriggerMode, error) {
	switch m := TriggerMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return Level, nil
	case Level, Edge:
		return m, nil
	default:
		return "", fmt.Errorf("unknown alert mode %q (want level or edge)", s)
	}
}

// Notifier delivers one warning.
type Notifier interface {
	Notify(ctx context.Context, w Warning) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, w Warning) error

func (f NotifierFunc) Notify(ctx context.Context, w Warning) error { return f(ctx, w) }

// Dispatcher applies the trigger mode and forwards warnings to a Notifier.
// It is safe for concurrent use.
type Dispatcher struct {
	mode     TriggerMode
	notifier Notifier
	logger   *log.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

func NewDispatcher(mode TriggerMode, n Notifier, logger *log.Logger) *Dispatcher {
	if mode == "" {
		mode = Level
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Dispatcher{
		mode:     mode,
		notifier: n,
		logger:   logger.WithComponent(log.ComponentBudget),
		active:   make(map[string]struct{}),
	}
}

func (d *Dispatcher) Mode() TriggerMode { return d.mode }

// Dispatch delivers the warnings of ev allowed by the trigger mode and
// returns those that were delivered. In edge mode a warning whose delivery
// failed stays armed.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Evaluation) ([]Warning, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	current := make(map[string]struct{}, len(ev.Warnings))
	var delivered []Warning
	var errs []error
	for _, w := range ev.Warnings {
		key := w.Key()
		_, wasActive := d.active[key]
		if d.mode == Edge && wasActive {
			current[key] = struct{}{}
			continue
		}
		if d.notifier != nil {
			if err := d.notifier.Notify(ctx, w); err != nil {
				errs = append(errs, fmt.Errorf("notify %s: %w", key, err))
				continue
			}
		}
		current[key] = struct{}{}
		delivered = append(delivered, w)
	}
	d.active = current
	if len(errs) > 0 {
		err := errors.Join(errs...)
		d.logger.WarnContext(ctx, "Budget warning delivery failed", log.FieldError, err.Error())
		return delivered, err
	}
	return delivered, nil
}
