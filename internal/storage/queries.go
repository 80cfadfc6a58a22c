package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

type TransactionRow struct {
	ID          int64
	Description string
	AmountCents int64
	Type        string
	Category    string
	Date        string
}

const listTransactions = `
SELECT id, description, amount_cents, type, category, date
FROM transactions
ORDER BY id
`

func (q *Queries) ListTransactions(ctx context.Context) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		var i TransactionRow
		if err := rows.Scan(&i.ID, &i.Description, &i.AmountCents, &i.Type, &i.Category, &i.Date); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = `
SELECT id, description, amount_cents, type, category, date
FROM transactions
WHERE id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.Description, &i.AmountCents, &i.Type, &i.Category, &i.Date)
	return i, err
}

type CreateTransactionParams struct {
	Description string
	AmountCents int64
	Type        string
	Category    string
	Date        string
}

const createTransaction = `
INSERT INTO transactions (description, amount_cents, type, category, date)
VALUES (?, ?, ?, ?, ?)
RETURNING id, description, amount_cents, type, category, date
`

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, createTransaction, arg.Description, arg.AmountCents, arg.Type, arg.Category, arg.Date)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.Description, &i.AmountCents, &i.Type, &i.Category, &i.Date)
	return i, err
}

type UpdateTransactionParams struct {
	ID          int64
	Description string
	AmountCents int64
	Type        string
	Category    string
	Date        string
}

const updateTransaction = `
UPDATE transactions
SET description = ?, amount_cents = ?, type = ?, category = ?, date = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
RETURNING id, description, amount_cents, type, category, date
`

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, updateTransaction, arg.Description, arg.AmountCents, arg.Type, arg.Category, arg.Date, arg.ID)
	var i TransactionRow
	err := row.Scan(&i.ID, &i.Description, &i.AmountCents, &i.Type, &i.Category, &i.Date)
	return i, err
}

const deleteTransaction = `
DELETE FROM transactions WHERE id = ?
`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const countTransactions = `
SELECT COUNT(*) FROM transactions
`

func (q *Queries) CountTransactions(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countTransactions)
	var count int64
	err := row.Scan(&count)
	return count, err
}
