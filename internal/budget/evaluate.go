package budget

import (
	"fmt"
	"sort"

	"fintrack/internal/core"
)

// Overall is the category of warnings about the income and expense totals.
const Overall = "overall"

const (
	KindIncome   = "income"
	KindExpense  = "expense"
	KindCategory = "category"
)

// Warning is an exceeded goal. Key identifies the condition across
// evaluations.
type Warning struct {
	Kind     string     `json:"kind"`
	Category string     `json:"category"`
	Message  string     `json:"message"`
	Spent    core.Money `json:"spent"`
	Goal     core.Money `json:"goal"`
	Ratio    float64    `json:"ratio"`
}

func (w Warning) Key() string {
	return w.Kind + ":" + w.Category
}

// CategoryProgress is one row of the budget planner.
type CategoryProgress struct {
	Category string     `json:"category"`
	Spent    core.Money `json:"spent"`
	Goal     core.Money `json:"goal"`
	Progress float64    `json:"progress"`
	Exceeded bool       `json:"exceeded"`
}

// Evaluation is the result of comparing a summary with the goals.
type Evaluation struct {
	Goals           Goals              `json:"goals"`
	IncomeProgress  float64            `json:"incomeProgress"`
	ExpenseProgress float64            `json:"expenseProgress"`
	Categories      []CategoryProgress `json:"categories"`
	Warnings        []Warning          `json:"warnings"`
}

// Evaluate computes goal progress and the active warnings. Warnings are
// ordered income, expense, then categories by name. Progress rows cover
// every category with spend or a goal, sorted by name.
func Evaluate(s core.Summary, g Goals) Evaluation {
	ev := Evaluation{
		Goals:           g,
		IncomeProgress:  core.GoalProgress(s.TotalIncome, g.Income),
		ExpenseProgress: core.GoalProgress(s.TotalExpenses, g.Expense),
		Categories:      []CategoryProgress{},
		Warnings:        []Warning{},
	}
	if g.Income.Cents > 0 && s.TotalIncome.Cents > g.Income.Cents {
		ev.Warnings = append(ev.Warnings, Warning{
			Kind: KindIncome, Category: Overall, Message: "income goal exceeded",
			Spent: s.TotalIncome, Goal: g.Income, Ratio: core.GoalRatio(s.TotalIncome, g.Income),
		})
	}
	if g.Expense.Cents > 0 && s.TotalExpenses.Cents > g.Expense.Cents {
		ev.Warnings = append(ev.Warnings, Warning{
			Kind: KindExpense, Category: Overall, Message: "expense goal exceeded",
			Spent: s.TotalExpenses, Goal: g.Expense, Ratio: core.GoalRatio(s.TotalExpenses, g.Expense),
		})
	}

	names := make(map[string]struct{})
	for _, c := range s.ByCategory {
		names[c.Name] = struct{}{}
	}
	for name := range g.Categories {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	for _, name := range sorted {
		spent := s.Spent(name)
		goal := g.Categories[name]
		ratio := core.GoalRatio(spent, goal)
		row := CategoryProgress{
			Category: name,
			Spent:    spent,
			Goal:     goal,
			Progress: core.GoalProgress(spent, goal),
			Exceeded: ratio > 1,
		}
		ev.Categories = append(ev.Categories, row)
		if row.Exceeded {
			ev.Warnings = append(ev.Warnings, Warning{
				Kind: KindCategory, Category: name, Message: fmt.Sprintf("%s budget exceeded", name),
				Spent: spent, Goal: goal, Ratio: ratio,
			})
		}
	}
	return ev
}
