package source

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// Notifying wraps a Store and publishes a Change after each successful
// mutation. Publish failures are logged and never fail the mutation.
type Notifying struct {
	Store
	pub    ChangePublisher
	logger *log.Logger
}

func NewNotifying(s Store, pub ChangePublisher, logger *log.Logger) *Notifying {
	if logger == nil {
		logger = log.Discard()
	}
	return &Notifying{Store: s, pub: pub, logger: logger.WithComponent(log.ComponentSource)}
}

func (n *Notifying) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	created, err := n.Store.Create(ctx, t)
	if err != nil {
		return created, err
	}
	n.publish(ctx, Change{Kind: Created, ID: created.ID, Transaction: &created})
	return created, nil
}

func (n *Notifying) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	updated, err := n.Store.Update(ctx, id, t)
	if err != nil {
		return updated, err
	}
	n.publish(ctx, Change{Kind: Updated, ID: updated.ID, Transaction: &updated})
	return updated, nil
}

func (n *Notifying) Delete(ctx context.Context, id string) error {
	if err := n.Store.Delete(ctx, id); err != nil {
		return err
	}
	n.publish(ctx, Change{Kind: Deleted, ID: id})
	return nil
}

func (n *Notifying) publish(ctx context.Context, c Change) {
	if n.pub == nil {
		return
	}
	if err := n.pub.PublishChange(ctx, c); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish transaction change",
			log.FieldTransactionID, c.ID, log.FieldOperation, string(c.Kind), log.FieldError, err.Error())
	}
}
