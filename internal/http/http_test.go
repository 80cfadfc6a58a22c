package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/source"
	"fintrack/internal/source/memory"
)

func seedTransactions() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Description: "Salary", Amount: core.Money{Cents: 10000}, Type: core.Income, Category: "Salary", Date: core.NewDate(2024, 1, 1)},
		{ID: "2", Description: "Groceries", Amount: core.Money{Cents: 4000}, Type: core.Expense, Category: "Food", Date: core.NewDate(2024, 1, 2)},
		{ID: "3", Description: "Snacks", Amount: core.Money{Cents: 1000}, Type: core.Expense, Category: "Food", Date: core.NewDate(2024, 1, 3)},
	}
}

// flakyStore fails List on demand.
type flakyStore struct {
	*memory.Store
	failing atomic.Bool
}

func (f *flakyStore) List(ctx context.Context) ([]core.Transaction, error) {
	if f.failing.Load() {
		return nil, &source.RequestError{Op: "list transactions", Err: errors.New("connection refused")}
	}
	return f.Store.List(ctx)
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
