package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/source"
)

func newRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "fintrack.db")
	repo, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sample(desc string, cents int64, typ core.TransactionType) core.Transaction {
	return core.Transaction{
		Description: desc,
		Amount:      core.Money{Cents: cents},
		Type:        typ,
		Category:    "Food",
		Date:        core.NewDate(2024, 1, 2),
	}
}

func TestRepositoryCRUD(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	a, err := repo.Create(ctx, sample("Lunch", 1250, core.Expense))
	if err != nil || a.ID != "1" {
		t.Fatalf("create: %+v err=%v", a, err)
	}
	b, err := repo.Create(ctx, sample("Salary", 100000, core.Income))
	if err != nil || b.ID != "2" {
		t.Fatalf("create: %+v err=%v", b, err)
	}

	list, err := repo.List(ctx)
	if err != nil || len(list) != 2 || list[0].Description != "Lunch" || list[1].Type != core.Income {
		t.Fatalf("list: %+v err=%v", list, err)
	}
	if list[0].Date.String() != "2024-01-02" || list[0].Amount.Cents != 1250 {
		t.Fatalf("round trip lost data: %+v", list[0])
	}

	upd := sample("Dinner", 3000, core.Expense)
	got, err := repo.Update(ctx, a.ID, upd)
	if err != nil || got.Description != "Dinner" || got.ID != a.ID {
		t.Fatalf("update: %+v err=%v", got, err)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Fatalf("expected 1 row, got %d", n)
	}
}

func TestRepositoryNotFound(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()
	for _, id := range []string{"99", "abc", "0", "-3"} {
		if err := repo.Delete(ctx, id); !errors.Is(err, source.ErrNotFound) {
			t.Fatalf("delete %q: expected ErrNotFound, got %v", id, err)
		}
		if _, err := repo.Update(ctx, id, sample("x", 1, core.Expense)); !errors.Is(err, source.ErrNotFound) {
			t.Fatalf("update %q: expected ErrNotFound, got %v", id, err)
		}
		if _, err := repo.Get(ctx, id); !errors.Is(err, source.ErrNotFound) {
			t.Fatalf("get %q: expected ErrNotFound, got %v", id, err)
		}
	}
}

func TestRepositoryReopen(t *testing.T) {
	repo, path := newRepo(t)
	ctx := context.Background()
	if _, err := repo.Create(ctx, sample("Bus", 200, core.Expense)); err != nil {
		t.Fatalf("create: %v", err)
	}
	repo.Close()

	again, err := NewSQLiteRepository(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	list, err := again.List(ctx)
	if err != nil || len(list) != 1 || list[0].Description != "Bus" {
		t.Fatalf("data not persisted: %+v err=%v", list, err)
	}
}
