package core

import (
	"math"
	"sort"
)

// SumByType adds up the amounts of every transaction of type t.
func SumByType(ts []Transaction, t TransactionType) Money {
	var total Money
	for _, tx := range ts {
		if tx.Type == t {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// NetBalance is total income minus total expenses. It may be negative.
func NetBalance(ts []Transaction) Money {
	return SumByType(ts, Income).Sub(SumByType(ts, Expense))
}

// GroupByCategory sums expenses per category. Income is ignored.
func GroupByCategory(ts []Transaction) map[string]Money {
	out := make(map[string]Money)
	for _, tx := range ts {
		if tx.Type != Expense {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}

// CategoryBreakdown is GroupByCategory as a slice, in the order each
// category first appears in ts.
func CategoryBreakdown(ts []Transaction) []CategoryAmount {
	idx := make(map[string]int)
	var out []CategoryAmount
	for _, tx := range ts {
		if tx.Type != Expense {
			continue
		}
		i, ok := idx[tx.Category]
		if !ok {
			i = len(out)
			idx[tx.Category] = i
			out = append(out, CategoryAmount{Name: tx.Category})
		}
		out[i].Amount = out[i].Amount.Add(tx.Amount)
	}
	return out
}

// GroupByDate merges transactions of the same day into one entry with
// separate income and expense sums, ordered by ascending date.
func GroupByDate(ts []Transaction) []DailyTotals {
	byDay := make(map[string]*DailyTotals)
	for _, tx := range ts {
		key := tx.Date.String()
		d, ok := byDay[key]
		if !ok {
			d = &DailyTotals{Date: tx.Date}
			byDay[key] = d
		}
		switch tx.Type {
		case Income:
			d.Income = d.Income.Add(tx.Amount)
		case Expense:
			d.Expense = d.Expense.Add(tx.Amount)
		}
	}
	out := make([]DailyTotals, 0, len(byDay))
	for _, d := range byDay {
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out
}

// GoalProgress returns spent as a percentage of goal, capped at 100.
// A goal of zero or less yields 0.
func GoalProgress(spent, goal Money) float64 {
	if goal.Cents <= 0 {
		return 0
	}
	return math.Min(float64(spent.Cents)/float64(goal.Cents)*100, 100)
}

// GoalRatio is the uncapped spent/goal ratio. A goal of zero or less yields 0.
func GoalRatio(spent, goal Money) float64 {
	if goal.Cents <= 0 {
		return 0
	}
	return float64(spent.Cents) / float64(goal.Cents)
}

// Summarize computes every aggregate shown on the dashboard in one call.
func Summarize(ts []Transaction) Summary {
	income := SumByType(ts, Income)
	expense := SumByType(ts, Expense)
	return Summary{
		TotalIncome:   income,
		TotalExpenses: expense,
		NetBalance:    income.Sub(expense),
		ByCategory:    CategoryBreakdown(ts),
		Daily:         GroupByDate(ts),
		Count:         len(ts),
	}
}
