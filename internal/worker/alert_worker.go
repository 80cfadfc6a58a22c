// Package worker consumes tracker events published on AMQP.
package worker

import (
	"context"
	"errors"
	"fmt"

	"fintrack/internal/amqp"
	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
)

// Lister is the read side of a transaction source.
type Lister interface {
	List(ctx context.Context) ([]core.Transaction, error)
}

// Exporter mirrors the full collection somewhere else.
type Exporter interface {
	Export(ctx context.Context, ts []core.Transaction) (string, error)
}

// AlertWorker delivers budget warnings and keeps an optional export mirror
// in step with the source.
type AlertWorker struct {
	notifier budget.Notifier
	source   Lister
	exporter Exporter
	logger   *log.Logger
	events   *log.StructuredLogger
}

// NewAlertWorker builds a worker. source and exporter may both be nil, in
// which case change messages are only logged.
func NewAlertWorker(notifier budget.Notifier, source Lister, exporter Exporter, logger *log.Logger) *AlertWorker {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentWorker)
	if notifier == nil {
		notifier = budget.NewLogNotifier(logger)
	}
	return &AlertWorker{
		notifier: notifier,
		source:   source,
		exporter: exporter,
		logger:   logger,
		events:   log.NewStructuredLogger(logger),
	}
}

// Handle processes one message. A returned error requeues it.
func (w *AlertWorker) Handle(ctx context.Context, msg *amqp.Message) error {
	switch msg.Kind {
	case amqp.KindBudgetWarning:
		return w.HandleWarning(ctx, *msg.Warning)
	case amqp.KindTransactionChanged:
		return w.HandleChange(ctx, msg)
	default:
		return fmt.Errorf("unknown message kind %q", msg.Kind)
	}
}

func (w *AlertWorker) HandleWarning(ctx context.Context, warning budget.Warning) error {
	if err := w.notifier.Notify(ctx, warning); err != nil {
		return fmt.Errorf("deliver budget warning: %w", err)
	}
	return nil
}

func (w *AlertWorker) HandleChange(ctx context.Context, msg *amqp.Message) error {
	c := msg.Change
	op := string(c.Kind)
	if len(op) > 1 && op[len(op)-1] == 'd' {
		op = op[:len(op)-1]
	}
	if c.Transaction != nil {
		w.events.LogTransactionChanged(ctx, op, c.ID, string(c.Transaction.Type), c.Transaction.Category, c.Transaction.Amount.Cents)
	} else {
		w.events.LogTransactionChanged(ctx, op, c.ID, "", "", 0)
	}
	return w.Sync(ctx)
}

// Sync exports the current collection. It does nothing without an exporter.
func (w *AlertWorker) Sync(ctx context.Context) error {
	if w.exporter == nil || w.source == nil {
		return nil
	}
	ts, err := w.source.List(ctx)
	if err != nil {
		return fmt.Errorf("list transactions: %w", err)
	}
	if _, err := w.exporter.Export(ctx, ts); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			w.logger.InfoContext(ctx, "Source is empty, nothing to export")
			return nil
		}
		return fmt.Errorf("export transactions: %w", err)
	}
	return nil
}

// StartupSync mirrors the collection once before consuming, to recover from
// changes missed while the worker was down. Failures are logged only.
func (w *AlertWorker) StartupSync(ctx context.Context) {
	if err := w.Sync(ctx); err != nil {
		w.events.LogError(ctx, "Startup export failed", err, log.ComponentWorker, log.OpExport, nil)
		return
	}
	if w.exporter != nil {
		w.logger.InfoContext(ctx, "Startup export completed")
	}
}
