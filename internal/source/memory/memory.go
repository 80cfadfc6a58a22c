// Package memory is an in-process transaction store, optionally seeded from
// a json-server style db.json file.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/source"
)

type Store struct {
	mu    sync.RWMutex
	items []core.Transaction
	newID func() string
}

func New(seed ...core.Transaction) *Store {
	s := &Store{newID: uuid.NewString}
	for _, t := range seed {
		if t.ID == "" {
			t.ID = s.newID()
		}
		s.items = append(s.items, t)
	}
	return s
}

// seedFile mirrors the db.json layout: {"transactions": [...]}.
type seedFile struct {
	Transactions []core.Transaction `json:"transactions"`
}

// NewFromFile seeds the store from path. A missing file gives an empty store.
func NewFromFile(path string) (*Store, error) {
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f seedFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return New(f.Transactions...), nil
}

func (s *Store) List(_ context.Context) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.items...), nil
}

func (s *Store) Get(_ context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(id); i >= 0 {
		return s.items[i], nil
	}
	return core.Transaction{}, source.ErrNotFound
}

// Create assigns a fresh id, ignoring any id in t.
func (s *Store) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = s.newID()
	s.items = append(s.items, t)
	return t, nil
}

func (s *Store) Update(_ context.Context, id string, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return core.Transaction{}, source.ErrNotFound
	}
	t.ID = id
	s.items[i] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.index(id)
	if i < 0 {
		return source.ErrNotFound
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

// index must be called with s.mu held.
func (s *Store) index(id string) int {
	for i, t := range s.items {
		if t.ID == id {
			return i
		}
	}
	return -1
}
