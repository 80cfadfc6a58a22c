// Package backend builds the transaction store behind the source API from
// configuration.
package backend

import (
	"context"

	"fintrack/internal/source"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store and a cleanup function that is never nil.
type Result struct {
	Store   source.Store
	Cleanup CleanupFunc
}

// Factory creates stores based on configuration
type Factory interface {
	Create(ctx context.Context, cfg Config) (*Result, error)
}

// Config holds configuration for store creation
type Config struct {
	Type Type

	// SQLite specific
	SQLiteDBPath string

	// Memory specific
	SeedFile string

	// Change events, optional for both types
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// Type represents the kind of store
type Type string

const (
	SQLite Type = "sqlite"
	Memory Type = "memory"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the store type is known
func (t Type) IsValid() bool {
	switch t {
	case SQLite, Memory:
		return true
	default:
		return false
	}
}
