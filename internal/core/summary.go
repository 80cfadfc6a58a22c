package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// DailyTotals is the income and expense of a single calendar day.
type DailyTotals struct {
	Date    Date  `json:"date"`
	Income  Money `json:"income"`
	Expense Money `json:"expense"`
}

// Summary is the compact overview rendered by the summary widgets.
type Summary struct {
	TotalIncome   Money            `json:"totalIncome"`
	TotalExpenses Money            `json:"totalExpenses"`
	NetBalance    Money            `json:"netBalance"`
	ByCategory    []CategoryAmount `json:"byCategory"`
	Daily         []DailyTotals    `json:"daily"`
	Count         int              `json:"count"`
}

// Spent returns the expense total recorded for category, or zero.
func (s Summary) Spent(category string) Money {
	for _, c := range s.ByCategory {
		if c.Name == category {
			return c.Amount
		}
	}
	return Money{}
}
