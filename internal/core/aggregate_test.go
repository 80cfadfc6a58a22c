package core

import (
	"reflect"
	"testing"
)

func tx(amount int64, typ TransactionType, category, date string) Transaction {
	d, err := ParseDate(date)
	if err != nil {
		panic(err)
	}
	return Transaction{Description: category, Amount: Money{Cents: amount}, Type: typ, Category: category, Date: d}
}

func scenario() []Transaction {
	return []Transaction{
		tx(10000, Income, "Salary", "2024-01-01"),
		tx(4000, Expense, "Food", "2024-01-02"),
		tx(1000, Expense, "Food", "2024-01-03"),
	}
}

func TestScenarioAggregates(t *testing.T) {
	ts := scenario()
	if got := SumByType(ts, Income); got.Cents != 10000 {
		t.Fatalf("income: expected 10000, got %d", got.Cents)
	}
	if got := SumByType(ts, Expense); got.Cents != 5000 {
		t.Fatalf("expense: expected 5000, got %d", got.Cents)
	}
	if got := NetBalance(ts); got.Cents != 5000 {
		t.Fatalf("net: expected 5000, got %d", got.Cents)
	}
	if got := GroupByCategory(ts); !reflect.DeepEqual(got, map[string]Money{"Food": {Cents: 5000}}) {
		t.Fatalf("groupByCategory: %v", got)
	}
	want := []DailyTotals{
		{Date: NewDate(2024, 1, 1), Income: Money{Cents: 10000}},
		{Date: NewDate(2024, 1, 2), Expense: Money{Cents: 4000}},
		{Date: NewDate(2024, 1, 3), Expense: Money{Cents: 1000}},
	}
	if got := GroupByDate(ts); !reflect.DeepEqual(got, want) {
		t.Fatalf("groupByDate: expected %v, got %v", want, got)
	}
}

func TestEmptyAggregates(t *testing.T) {
	if got := SumByType(nil, Income); got.Cents != 0 {
		t.Fatalf("expected 0, got %d", got.Cents)
	}
	if got := GroupByCategory(nil); len(got) != 0 {
		t.Fatalf("expected empty map, got %v", got)
	}
	if got := GroupByDate(nil); len(got) != 0 {
		t.Fatalf("expected empty series, got %v", got)
	}
	s := Summarize(nil)
	if s.Count != 0 || s.NetBalance.Cents != 0 {
		t.Fatalf("unexpected summary %+v", s)
	}
}

func TestGroupByDateMergesAndOrders(t *testing.T) {
	ts := []Transaction{
		tx(500, Expense, "Food", "2024-02-10"),
		tx(2000, Income, "Gift", "2024-02-01"),
		tx(300, Expense, "Bus", "2024-02-10"),
		tx(100, Income, "Refund", "2024-02-10"),
	}
	got := GroupByDate(ts)
	if len(got) != 2 {
		t.Fatalf("expected 2 days, got %d", len(got))
	}
	if got[0].Date.String() != "2024-02-01" || got[1].Date.String() != "2024-02-10" {
		t.Fatalf("unexpected order: %v", got)
	}
	if got[1].Expense.Cents != 800 || got[1].Income.Cents != 100 {
		t.Fatalf("unexpected merge: %+v", got[1])
	}
}

func TestAggregateProperties(t *testing.T) {
	sets := [][]Transaction{
		nil,
		scenario(),
		{tx(700, Expense, "Rent", "2024-03-01"), tx(200, Expense, "Fun", "2024-03-01")},
		{tx(100, Income, "A", "2024-01-01"), tx(900, Expense, "B", "2024-01-05"), tx(1, Expense, "B", "2023-12-31")},
	}
	for i, ts := range sets {
		net := SumByType(ts, Income).Sub(SumByType(ts, Expense))
		if net != NetBalance(ts) {
			t.Fatalf("set %d: net balance mismatch", i)
		}
		var sum Money
		for _, v := range GroupByCategory(ts) {
			sum = sum.Add(v)
		}
		if sum != SumByType(ts, Expense) {
			t.Fatalf("set %d: category sum %d != expenses %d", i, sum.Cents, SumByType(ts, Expense).Cents)
		}
	}
}

func TestGoalProgress(t *testing.T) {
	cases := []struct {
		spent, goal int64
		want        float64
	}{
		{5000, 0, 0},
		{0, 0, 0},
		{5000, -100, 0},
		{5000, 10000, 50},
		{15000, 10000, 100},
		{10000, 10000, 100},
	}
	for _, tc := range cases {
		if got := GoalProgress(Money{Cents: tc.spent}, Money{Cents: tc.goal}); got != tc.want {
			t.Fatalf("GoalProgress(%d, %d) = %v, want %v", tc.spent, tc.goal, got, tc.want)
		}
	}
	if got := GoalRatio(Money{Cents: 15000}, Money{Cents: 10000}); got != 1.5 {
		t.Fatalf("GoalRatio expected 1.5, got %v", got)
	}
	if got := GoalRatio(Money{Cents: 15000}, Money{}); got != 0 {
		t.Fatalf("GoalRatio with zero goal expected 0, got %v", got)
	}
}

func TestCategoryBreakdownOrder(t *testing.T) {
	ts := []Transaction{
		tx(100, Expense, "Travel", "2024-01-01"),
		tx(500, Income, "Salary", "2024-01-01"),
		tx(200, Expense, "Food", "2024-01-02"),
		tx(50, Expense, "Travel", "2024-01-03"),
	}
	want := []CategoryAmount{{Name: "Travel", Amount: Money{Cents: 150}}, {Name: "Food", Amount: Money{Cents: 200}}}
	if got := CategoryBreakdown(ts); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := Summarize(ts).Spent("Food"); got.Cents != 200 {
		t.Fatalf("expected 200, got %d", got.Cents)
	}
}
