package core

import (
	"reflect"
	"testing"
)

func TestFilterByTypeAllIsIdentity(t *testing.T) {
	ts := scenario()
	if got := FilterByType(ts, SelectAll); !reflect.DeepEqual(got, ts) {
		t.Fatalf("expected identity, got %v", got)
	}
	if got := FilterByType(ts, SelectIncome); len(got) != 1 || got[0].Category != "Salary" {
		t.Fatalf("unexpected income filter: %v", got)
	}
}

func TestParseSelectors(t *testing.T) {
	if sel, err := ParseTypeSelector(""); err != nil || sel != SelectAll {
		t.Fatalf("empty selector: %v %v", sel, err)
	}
	if _, err := ParseTypeSelector("transfers"); err == nil {
		t.Fatalf("expected error for unknown selector")
	}
	if key, err := ParseSortKey("Amount"); err != nil || key != SortByAmount {
		t.Fatalf("sort key: %v %v", key, err)
	}
	if _, err := ParseSortKey("name"); err == nil {
		t.Fatalf("expected error for unknown sort key")
	}
}

func TestFilterByText(t *testing.T) {
	ts := []Transaction{
		{Description: "Weekly groceries", Category: "Food"},
		{Description: "Train ticket", Category: "Travel"},
		{Description: "Pizza", Category: "FOOD"},
	}
	got := FilterByText(ts, "food")
	if len(got) != 2 || got[0].Description != "Weekly groceries" || got[1].Description != "Pizza" {
		t.Fatalf("category match: %v", got)
	}
	if got := FilterByText(ts, "TICKET"); len(got) != 1 {
		t.Fatalf("description match: %v", got)
	}
	if got := FilterByText(ts, "   "); !reflect.DeepEqual(got, ts) {
		t.Fatalf("blank query should be identity")
	}
	if got := FilterByCategory(ts, "food"); len(got) != 2 {
		t.Fatalf("category filter: %v", got)
	}
}

func TestSortTransactions(t *testing.T) {
	ts := []Transaction{
		tx(300, Expense, "a", "2024-01-02"),
		tx(100, Expense, "b", "2024-01-05"),
		tx(300, Expense, "c", "2024-01-01"),
		tx(200, Expense, "d", "2024-01-05"),
	}
	orig := append([]Transaction(nil), ts...)

	byDate := SortTransactions(ts, SortByDate)
	if names(byDate) != "bdac" {
		t.Fatalf("date order: %s", names(byDate))
	}
	byAmount := SortTransactions(ts, SortByAmount)
	if names(byAmount) != "acdb" {
		t.Fatalf("amount order: %s", names(byAmount))
	}
	if !reflect.DeepEqual(ts, orig) {
		t.Fatalf("input was mutated")
	}
	if again := SortTransactions(byDate, SortByDate); !reflect.DeepEqual(again, byDate) {
		t.Fatalf("sorting sorted input changed it")
	}
}

func TestScenarioExpenseByAmount(t *testing.T) {
	got := SortTransactions(FilterByType(scenario(), SelectExpense), SortByAmount)
	if len(got) != 2 || got[0].Amount.Cents != 4000 || got[1].Amount.Cents != 1000 {
		t.Fatalf("unexpected view: %v", got)
	}
	for _, g := range got {
		if g.Category != "Food" {
			t.Fatalf("unexpected category %s", g.Category)
		}
	}
}

func TestApply(t *testing.T) {
	ts := []Transaction{
		tx(100, Expense, "Food", "2024-01-01"),
		tx(900, Income, "Food", "2024-01-02"),
		tx(400, Expense, "Food", "2024-01-03"),
		tx(800, Expense, "Rent", "2024-01-04"),
	}
	got := Apply(ts, Query{Type: SelectExpense, Category: "food", Sort: SortByAmount})
	if len(got) != 2 || got[0].Amount.Cents != 400 || got[1].Amount.Cents != 100 {
		t.Fatalf("unexpected view: %v", got)
	}
	if got := Apply(ts, Query{}); len(got) != 4 || got[0].Category != "Rent" {
		t.Fatalf("default query should sort by date: %v", got)
	}
}

func names(ts []Transaction) string {
	s := ""
	for _, t := range ts {
		s += t.Category
	}
	return s
}
