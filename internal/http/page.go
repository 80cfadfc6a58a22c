package http

import (
	"net/http"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/prefs"
	"fintrack/internal/services"
)

type (
	amountRow struct {
		Label  string
		Amount string
	}

	txRow struct {
		ID          string
		Date        string
		Description string
		Category    string
		Type        string
		Amount      string
	}

	goalRow struct {
		Category string
		Spent    string
		Goal     string
		Progress float64
		Exceeded bool
	}

	pageData struct {
		Prefs         prefs.Preferences
		Currencies    []prefs.Currency
		Stale         bool
		Query         core.Query
		Income        string
		Expenses      string
		Net           string
		Negative      bool
		Count         int
		ByCategory    []amountRow
		Daily         []core.DailyTotals
		Transactions  []txRow
		Budget        budget.Evaluation
		Goals         []goalRow
		IncomeGoal    string
		ExpenseGoal   string
		Warnings      []budget.Warning
		Insights      []core.Insight
		Notifications []budget.Notification
	}
)

// handleIndex renders the dashboard. Filters come from the query string so
// the page works without scripts.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		q = core.Query{Type: core.SelectAll, Sort: core.SortByDate}
	}

	p := s.tracker.Preferences(ctx)
	format := p.Currency.Format

	all, fetchErr := s.tracker.Transactions(ctx)
	s.logStale(r, fetchErr)
	sum := core.Summarize(all)

	data := pageData{
		Prefs:      p,
		Currencies: []prefs.Currency{prefs.INR, prefs.USD, prefs.EUR},
		Stale:      fetchErr != nil,
		Query:      q,
		Income:     format(sum.TotalIncome),
		Expenses:   format(sum.TotalExpenses),
		Net:        format(sum.NetBalance),
		Negative:   sum.NetBalance.Cents < 0,
		Count:      sum.Count,
		Daily:      sum.Daily,
	}
	for _, c := range sum.ByCategory {
		data.ByCategory = append(data.ByCategory, amountRow{Label: c.Name, Amount: format(c.Amount)})
	}
	for _, t := range core.Apply(all, q) {
		data.Transactions = append(data.Transactions, txRow{
			ID:          t.ID,
			Date:        t.Date.String(),
			Description: t.Description,
			Category:    t.Category,
			Type:        string(t.Type),
			Amount:      format(t.Amount),
		})
	}

	if ev, err := s.tracker.Budget(ctx); err == nil || services.IsStale(err) {
		data.Budget = ev
		data.IncomeGoal = format(ev.Goals.Income)
		data.ExpenseGoal = format(ev.Goals.Expense)
		data.Warnings = ev.Warnings
		for _, c := range ev.Categories {
			data.Goals = append(data.Goals, goalRow{
				Category: c.Category,
				Spent:    format(c.Spent),
				Goal:     format(c.Goal),
				Progress: c.Progress,
				Exceeded: c.Exceeded,
			})
		}
	} else {
		log.FromContext(ctx).WarnContext(ctx, "Budget evaluation failed", log.FieldError, err.Error())
	}

	if in, err := s.tracker.Insights(ctx, core.DefaultInsightThreshold, services.RangePrevious); err == nil || services.IsStale(err) {
		data.Insights = in.Insights
	}
	if s.feed != nil {
		data.Notifications = s.feed.Recent()
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.FromContext(ctx).ErrorContext(ctx, "Index template execution failed",
			log.FieldOperation, log.OpRender, log.FieldError, err.Error(), "template", "index.html")
		http.Error(w, "template error", http.StatusInternalServerError)
	}
}
