package core

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// DefaultInsightThreshold is the share of total expenses, in percent, above
// which the top category is called out.
const DefaultInsightThreshold = 30

// CategoryShare is an expense category with its share of total expenses.
type CategoryShare struct {
	Category   string  `json:"category"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
	Previous   Money   `json:"previous"`
}

// Insight is one piece of spending advice. Category is empty for
// collection-wide insights.
type Insight struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// TopCategories returns the n largest expense categories, largest first.
// Equal amounts are ordered by name. n <= 0 returns all of them.
func TopCategories(ts []Transaction, n int) []CategoryShare {
	total := SumByType(ts, Expense)
	groups := GroupByCategory(ts)
	out := make([]CategoryShare, 0, len(groups))
	for name, amount := range groups {
		share := CategoryShare{Category: name, Amount: amount}
		if total.Cents > 0 {
			share.Percentage = float64(amount.Cents) / float64(total.Cents) * 100
		}
		out = append(out, share)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SpendingInsights compares the current period with the previous one and
// returns advice. format renders amounts; nil uses Money.String.
func SpendingInsights(current, previous []Transaction, threshold float64, format func(Money) string) []Insight {
	if format == nil {
		format = Money.String
	}
	top := TopCategories(current, 2)
	prevGroups := GroupByCategory(previous)
	for i := range top {
		top[i].Previous = prevGroups[top[i].Category]
	}
	curTotal := SumByType(current, Expense)
	prevTotal := SumByType(previous, Expense)

	var out []Insight
	if len(top) > 0 && top[0].Percentage > threshold {
		out = append(out, Insight{
			Text: fmt.Sprintf("You've spent %.1f%% (%s) on %s. Consider reducing by 10%% to save %s!",
				top[0].Percentage, format(top[0].Amount), top[0].Category, format(top[0].Amount.Scale(0.1))),
			Category: top[0].Category,
		})
	}
	if len(top) > 1 && top[1].Percentage > threshold/2 {
		out = append(out, Insight{
			Text: fmt.Sprintf("Your second-highest category, %s, accounts for %.1f%% (%s). Consider optimizing this area.",
				top[1].Category, top[1].Percentage, format(top[1].Amount)),
			Category: top[1].Category,
		})
	}
	if len(top) > 0 && top[0].Previous.Cents > 0 {
		prev := top[0].Previous
		change := float64(top[0].Amount.Cents-prev.Cents) / float64(prev.Cents) * 100
		var text string
		switch {
		case change > 0:
			text = fmt.Sprintf("Spending in %s has increased by %.1f%% since last period (previously %s).",
				top[0].Category, change, format(prev))
		case change < 0:
			text = fmt.Sprintf("Spending in %s has decreased by %.1f%% since last period (previously %s).",
				top[0].Category, math.Abs(change), format(prev))
		default:
			text = fmt.Sprintf("Spending in %s has not changed since last period (previously %s).",
				top[0].Category, format(prev))
		}
		out = append(out, Insight{Text: text, Category: top[0].Category})
	}
	switch {
	case curTotal.Cents > prevTotal.Cents:
		savings := format(curTotal.Sub(prevTotal).Scale(0.5))
		if prevTotal.Cents == 0 {
			out = append(out, Insight{Text: fmt.Sprintf("Overall spending is up from last period. Aim to save %s!", savings)})
		} else {
			increase := float64(curTotal.Cents-prevTotal.Cents) / float64(prevTotal.Cents) * 100
			out = append(out, Insight{Text: fmt.Sprintf("Overall spending is up %.1f%% from last period. Aim to save %s!", increase, savings)})
		}
	case curTotal.Cents < prevTotal.Cents:
		out = append(out, Insight{Text: "Great job! Your overall spending is down from last period."})
	}
	if len(out) == 0 {
		out = append(out, Insight{Text: "Your spending is well-balanced. Keep it up!"})
	}
	return out
}

// InMonth keeps the transactions dated in the given year and month.
func InMonth(ts []Transaction, year int, month time.Month) []Transaction {
	out := make([]Transaction, 0)
	for _, tx := range ts {
		if tx.Date.Year() == year && tx.Date.Month() == month {
			out = append(out, tx)
		}
	}
	return out
}

// PreviousMonth keeps the transactions dated in the calendar month before now.
func PreviousMonth(ts []Transaction, now time.Time) []Transaction {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
	return InMonth(ts, first.Year(), first.Month())
}
