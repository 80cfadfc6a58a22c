// Package source defines the Transaction Source boundary: the store behind
// the REST contract and the client the tracker uses to reach it.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"fintrack/internal/core"
)

var ErrNotFound = errors.New("transaction not found")

// Store owns the ordered transaction collection. Implementations assign ids
// on Create and keep insertion order in List.
type Store interface {
	List(ctx context.Context) ([]core.Transaction, error)
	Get(ctx context.Context, id string) (core.Transaction, error)
	Create(ctx context.Context, t core.Transaction) (core.Transaction, error)
	// Update replaces every field of the transaction with the given id.
	Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// ChangeKind names a mutation of the collection.
type ChangeKind string

const (
	Created ChangeKind = "created"
	Updated ChangeKind = "updated"
	Deleted ChangeKind = "deleted"
)

// Change describes one successful mutation.
type Change struct {
	Kind        ChangeKind        `json:"kind"`
	ID          string            `json:"id"`
	Transaction *core.Transaction `json:"transaction,omitempty"`
}

// ChangePublisher is told about every mutation a Store accepted.
type ChangePublisher interface {
	PublishChange(ctx context.Context, c Change) error
}

// RequestError is a failed call to a remote source: either the transport
// failed (StatusCode is 0) or the server answered with a non-2xx status.
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: status %d: %v", e.Op, e.StatusCode, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is reports 404 responses as ErrNotFound.
func (e *RequestError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
