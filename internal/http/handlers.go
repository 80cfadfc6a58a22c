package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/prefs"
	"fintrack/internal/services"
)

var templateFuncs = template.FuncMap{
	"pct": func(f float64) string { return fmt.Sprintf("%.1f%%", f) },
}

// fail logs server-side problems and answers with the mapped status.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldOperation, op, log.FieldError, err.Error(), log.FieldStatusCode, status)
	}
	writeError(w, status, err.Error())
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.tracker.Summary(r.Context())
	s.logStale(r, err)
	NewJSONResponse().Stale(err).Body(sum).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q, err := ParseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ts, err := s.tracker.View(r.Context(), q)
	s.logStale(r, err)
	NewJSONResponse().Stale(err).Body(ts).Write(w)
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	created, err := s.tracker.Create(r.Context(), sanitizeTransaction(t))
	if err != nil {
		s.fail(w, r, log.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var t core.Transaction
	if err := decodeJSON(w, r, &t); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	updated, err := s.tracker.Update(r.Context(), r.PathValue("id"), sanitizeTransaction(t))
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.Delete(r.Context(), r.PathValue("id")); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	ev, err := s.tracker.Budget(r.Context())
	if err != nil && !services.IsStale(err) {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	s.logStale(r, err)
	NewJSONResponse().Stale(err).Body(ev).Write(w)
}

func (s *Server) handleSaveBudget(w http.ResponseWriter, r *http.Request) {
	var g budget.Goals
	if err := decodeJSON(w, r, &g); err != nil {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	if g.Categories == nil {
		g.Categories = map[string]core.Money{}
	}
	ev, err := s.tracker.SaveGoals(r.Context(), g)
	if err != nil && !services.IsStale(err) {
		s.fail(w, r, log.OpEvaluate, err)
		return
	}
	s.logStale(r, err)
	NewJSONResponse().Stale(err).Body(ev).Write(w)
}

func (s *Server) handleResetBudget(w http.ResponseWriter, r *http.Request) {
	if err := s.tracker.ResetGoals(r.Context()); err != nil {
		s.fail(w, r, log.OpDelete, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetPreferences(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.tracker.Preferences(r.Context()))
}

// handleSavePreferences merges the posted fields into the stored
// preferences, so either field may be omitted.
func (s *Server) handleSavePreferences(w http.ResponseWriter, r *http.Request) {
	p := s.tracker.Preferences(r.Context())
	if err := decodeJSON(w, r, &p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if c, err := prefs.ParseCurrency(string(p.Currency)); err == nil {
		p.Currency = c
	}
	if t, err := prefs.ParseTheme(string(p.Theme)); err == nil {
		p.Theme = t
	}
	if err := s.tracker.SavePreferences(r.Context(), p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	p := s.tracker.Preferences(r.Context())
	p.Theme = p.Theme.Toggle()
	if err := s.tracker.SavePreferences(r.Context(), p); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	threshold, rng, err := ParseInsightParams(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	in, err := s.tracker.Insights(r.Context(), threshold, rng)
	s.logStale(r, err)
	NewJSONResponse().Stale(err).Body(in).Write(w)
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	items := []budget.Notification{}
	if s.feed != nil {
		items = s.feed.Recent()
	}
	writeJSON(w, http.StatusOK, items)
}

// handleExportCSV downloads the collection in source order.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	ts, err := s.tracker.Transactions(r.Context())
	s.logStale(r, err)
	var buf bytes.Buffer
	if werr := export.WriteCSV(&buf, ts); werr != nil {
		s.fail(w, r, log.OpExport, werr)
		return
	}
	if err != nil {
		w.Header().Set(StaleHeader, "true")
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="transactions.csv"`)
	_, _ = w.Write(buf.Bytes())
}

// logStale records that a read fell back to the last good snapshot.
func (s *Server) logStale(r *http.Request, err error) {
	if err == nil {
		return
	}
	log.FromContext(r.Context()).WarnContext(r.Context(), "Serving last good snapshot", log.FieldError, err.Error())
}
