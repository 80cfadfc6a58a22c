package core

import (
	"fmt"
	"slices"
	"strings"
)

const (
	SelectAll     TypeSelector = "all"
	SelectIncome  TypeSelector = "income"
	SelectExpense TypeSelector = "expense"
)

const (
	SortByDate   SortKey = "date"
	SortByAmount SortKey = "amount"
)

type (
	// TypeSelector narrows a collection to one transaction type, or none.
	TypeSelector string

	SortKey string

	// Query describes a filtered, sorted view of a collection.
	Query struct {
		Type     TypeSelector
		Text     string
		Category string
		Sort     SortKey
	}
)

// ParseTypeSelector accepts all, income or expense. Empty means all.
func ParseTypeSelector(s string) (TypeSelector, error) {
	switch sel := TypeSelector(strings.ToLower(strings.TrimSpace(s))); sel {
	case "":
		return SelectAll, nil
	case SelectAll, SelectIncome, SelectExpense:
		return sel, nil
	default:
		return "", fmt.Errorf("unknown type selector %q", s)
	}
}

// ParseSortKey accepts date or amount. Empty means date.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortByDate, nil
	case SortByDate, SortByAmount:
		return k, nil
	default:
		return "", fmt.Errorf("unknown sort key %q", s)
	}
}

// FilterByType keeps the transactions matching sel. SelectAll is identity.
func FilterByType(ts []Transaction, sel TypeSelector) []Transaction {
	if sel == SelectAll || sel == "" {
		return slices.Clone(ts)
	}
	out := make([]Transaction, 0, len(ts))
	for _, tx := range ts {
		if string(tx.Type) == string(sel) {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByText keeps transactions whose description or category contains
// query, ignoring case. An empty query is identity.
func FilterByText(ts []Transaction, query string) []Transaction {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return slices.Clone(ts)
	}
	out := make([]Transaction, 0, len(ts))
	for _, tx := range ts {
		if strings.Contains(strings.ToLower(tx.Description), q) ||
			strings.Contains(strings.ToLower(tx.Category), q) {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByCategory keeps transactions of exactly category, ignoring case.
// An empty category is identity.
func FilterByCategory(ts []Transaction, category string) []Transaction {
	c := strings.TrimSpace(category)
	if c == "" {
		return slices.Clone(ts)
	}
	out := make([]Transaction, 0, len(ts))
	for _, tx := range ts {
		if strings.EqualFold(tx.Category, c) {
			out = append(out, tx)
		}
	}
	return out
}

// SortTransactions returns a copy of ts ordered by key, most recent or
// largest first. Equal keys keep their relative order.
func SortTransactions(ts []Transaction, key SortKey) []Transaction {
	out := slices.Clone(ts)
	switch key {
	case SortByAmount:
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return cmpDesc(a.Amount.Cents, b.Amount.Cents)
		})
	default:
		slices.SortStableFunc(out, func(a, b Transaction) int {
			return b.Date.Compare(a.Date.Time)
		})
	}
	return out
}

func cmpDesc(a, b int64) int {
	switch {
	case a > b:
		return -1
	case a < b:
		return 1
	default:
		return 0
	}
}

// Apply runs the filter stages in order type, category, text and then sorts
// what is left.
func Apply(ts []Transaction, q Query) []Transaction {
	out := FilterByType(ts, q.Type)
	out = FilterByCategory(out, q.Category)
	out = FilterByText(out, q.Text)
	return SortTransactions(out, q.Sort)
}
