package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/source"

	_ "modernc.org/sqlite"
)

var _ source.Store = (*SQLiteRepository)(nil)

// SQLiteRepository is the durable Store behind the REST source. Ids are the
// decimal form of the row id, so List order is insertion order.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	logger  *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Discard()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps SQLITE_BUSY away.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		logger:  logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	rowID, ok := parseID(id)
	if !ok {
		return core.Transaction{}, source.ErrNotFound
	}
	row, err := r.queries.GetTransaction(ctx, rowID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, source.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction %s: %w", id, err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		Date:        t.Date.String(),
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	r.logger.DebugContext(ctx, "Transaction saved to SQLite",
		log.FieldTransactionID, row.ID, log.FieldAmountCents, row.AmountCents, log.FieldCategory, row.Category)
	return toTransaction(row)
}

func (r *SQLiteRepository) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	rowID, ok := parseID(id)
	if !ok {
		return core.Transaction{}, source.ErrNotFound
	}
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		ID:          rowID,
		Description: t.Description,
		AmountCents: t.Amount.Cents,
		Type:        string(t.Type),
		Category:    t.Category,
		Date:        t.Date.String(),
	})
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, source.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	return toTransaction(row)
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	rowID, ok := parseID(id)
	if !ok {
		return source.ErrNotFound
	}
	n, err := r.queries.DeleteTransaction(ctx, rowID)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	if n == 0 {
		return source.ErrNotFound
	}
	return nil
}

// Count returns the number of stored transactions.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	return r.queries.CountTransactions(ctx)
}

func parseID(id string) (int64, bool) {
	n, err := strconv.ParseInt(id, 10, 64)
	return n, err == nil && n > 0
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          strconv.FormatInt(row.ID, 10),
		Description: row.Description,
		Amount:      core.Money{Cents: row.AmountCents},
		Type:        core.TransactionType(row.Type),
		Category:    row.Category,
		Date:        d,
	}, nil
}
