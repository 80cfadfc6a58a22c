package budget

import (
	"context"
	"errors"
	"sync"
	"time"

	"fintrack/internal/log"
)

// LogNotifier writes each warning as a structured log record.
type LogNotifier struct {
	logger *log.Logger
}

func NewLogNotifier(logger *log.Logger) *LogNotifier {
	return &LogNotifier{logger: logger.WithComponent(log.ComponentBudget)}
}

func (n *LogNotifier) Notify(ctx context.Context, w Warning) error {
	n.logger.WarnContext(ctx, w.Message,
		log.FieldWarning, w.Kind,
		log.FieldCategory, w.Category,
		log.FieldAmountCents, w.Spent.Cents,
		log.FieldGoalCents, w.Goal.Cents,
		log.FieldRatio, w.Ratio,
	)
	return nil
}

// MultiNotifier fans a warning out to every notifier. All are tried even
// when one fails.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, w Warning) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, w); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Notification is a delivered warning with its delivery time.
type Notification struct {
	Warning
	At time.Time `json:"at"`
}

// Feed keeps the most recent notifications in memory for the dashboard.
type Feed struct {
	mu    sync.Mutex
	max   int
	items []Notification
	now   func() time.Time
}

func NewFeed(max int) *Feed {
	if max <= 0 {
		max = 20
	}
	return &Feed{max: max, now: time.Now}
}

func (f *Feed) Notify(_ context.Context, w Warning) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, Notification{Warning: w, At: f.now()})
	if len(f.items) > f.max {
		f.items = f.items[len(f.items)-f.max:]
	}
	return nil
}

// Recent returns notifications newest first.
func (f *Feed) Recent() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.items))
	for i, n := range f.items {
		out[len(f.items)-1-i] = n
	}
	return out
}
