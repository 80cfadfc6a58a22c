package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"fintrack/internal/budget"
	"fintrack/internal/core"
	"fintrack/internal/kv"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/prefs"
	"fintrack/internal/services"
	"fintrack/internal/source/memory"
)

type testServer struct {
	*Server
	store   *flakyStore
	tracker *services.TrackerService
	feed    *budget.Feed
}

func newTestServer(t *testing.T, rl ratelimit.Config, seed ...core.Transaction) *testServer {
	t.Helper()
	store := &flakyStore{Store: memory.New(seed...)}
	state := kv.NewMemory()
	feed := budget.NewFeed(10)
	tracker := services.NewTrackerService(store, services.Options{
		CacheTTL:   time.Minute,
		Goals:      budget.NewGoalStore(state, nil),
		Prefs:      prefs.NewStore(state),
		Dispatcher: budget.NewDispatcher(budget.Level, feed, nil),
		Now:        func() time.Time { return time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC) },
	})
	srv, err := NewServer(":0", tracker, Options{Feed: feed, RateLimit: rl})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	t.Cleanup(func() { srv.limiter.Stop() })
	return &testServer{Server: srv, store: store, tracker: tracker, feed: feed}
}

func TestIndexPage(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("index status=%d body=%s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	for _, want := range []string{"Finance Tracker", "Groceries", "theme-light", "₹100.00"} {
		if !strings.Contains(body, want) {
			t.Fatalf("index missing %q", want)
		}
	}

	rr = do(t, srv.Handler, http.MethodGet, "/?type=income", "")
	if strings.Contains(rr.Body.String(), "Groceries") {
		t.Fatalf("income filter should hide expenses")
	}

	rr = do(t, srv.Handler, http.MethodGet, "/static/app.css", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("static status=%d", rr.Code)
	}
	rr = do(t, srv.Handler, http.MethodGet, "/nope", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("unknown path expected 404, got %d", rr.Code)
	}
}

func TestSummaryAndList(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("summary status=%d", rr.Code)
	}
	var sum core.Summary
	if err := json.Unmarshal(rr.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if sum.TotalIncome.Cents != 10000 || sum.TotalExpenses.Cents != 5000 || sum.NetBalance.Cents != 5000 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"", []string{"3", "2", "1"}},
		{"?type=expense", []string{"3", "2"}},
		{"?sort=amount", []string{"1", "2", "3"}},
		{"?q=snack", []string{"3"}},
		{"?category=food&sort=amount", []string{"2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rr := do(t, srv.Handler, http.MethodGet, "/api/transactions"+tt.query, "")
			if rr.Code != http.StatusOK {
				t.Fatalf("status=%d", rr.Code)
			}
			var ts []core.Transaction
			if err := json.Unmarshal(rr.Body.Bytes(), &ts); err != nil {
				t.Fatalf("decode: %v", err)
			}
			var ids []string
			for _, tx := range ts {
				ids = append(ids, tx.ID)
			}
			if strings.Join(ids, ",") != strings.Join(tt.want, ",") {
				t.Fatalf("got %v want %v", ids, tt.want)
			}
		})
	}

	rr = do(t, srv.Handler, http.MethodGet, "/api/transactions?type=transfer", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown selector expected 400, got %d", rr.Code)
	}
}

func TestTransactionMutations(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodPost, "/api/transactions",
		`{"description":"Bus","amount":"2.50","type":"expense","category":"Travel","date":"2024-01-04"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create status=%d body=%s", rr.Code, rr.Body.String())
	}
	var created core.Transaction
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil || created.ID == "" {
		t.Fatalf("decode created: %+v err=%v", created, err)
	}

	rr = do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if !strings.Contains(rr.Body.String(), `"count":4`) {
		t.Fatalf("summary should reflect the new transaction: %s", rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodPut, "/api/transactions/"+created.ID,
		`{"description":"Bus","amount":3,"type":"expense","category":"Travel","date":"2024-01-04"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("update status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete status=%d", rr.Code)
	}
	rr = do(t, srv.Handler, http.MethodDelete, "/api/transactions/"+created.ID, "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete of unknown id expected 404, got %d", rr.Code)
	}
}

func TestTransactionValidation(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"empty description", `{"description":" ","amount":1,"type":"expense","category":"Food","date":"2024-01-04"}`, http.StatusUnprocessableEntity},
		{"empty category", `{"description":"x","amount":1,"type":"expense","category":"","date":"2024-01-04"}`, http.StatusUnprocessableEntity},
		{"negative amount", `{"description":"x","amount":-1,"type":"expense","category":"Food","date":"2024-01-04"}`, http.StatusUnprocessableEntity},
		{"missing date", `{"description":"x","amount":1,"type":"expense","category":"Food"}`, http.StatusUnprocessableEntity},
		{"malformed json", `{"description":`, http.StatusBadRequest},
		{"empty body", ``, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv.Handler, http.MethodPost, "/api/transactions", tt.body)
			if rr.Code != tt.want {
				t.Fatalf("expected %d, got %d body=%s", tt.want, rr.Code, rr.Body.String())
			}
		})
	}
	rr := do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if !strings.Contains(rr.Body.String(), `"count":3`) {
		t.Fatalf("rejected input must not change the collection: %s", rr.Body.String())
	}
}

func TestBudgetEndpoints(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)
	do(t, srv.Handler, http.MethodGet, "/api/summary", "")

	rr := do(t, srv.Handler, http.MethodPut, "/api/budget",
		`{"incomeGoal":0,"expenseGoal":30,"categoryGoals":{"Food":100}}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	var ev budget.Evaluation
	if err := json.Unmarshal(rr.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if len(ev.Warnings) != 1 || ev.Warnings[0].Kind != budget.KindExpense {
		t.Fatalf("unexpected warnings %+v", ev.Warnings)
	}
	if len(srv.feed.Recent()) != 1 {
		t.Fatalf("warning should reach the notification feed")
	}

	rr = do(t, srv.Handler, http.MethodGet, "/api/notifications", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "expense goal exceeded") {
		t.Fatalf("notifications status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodPut, "/api/budget", `{"incomeGoal":-5}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("negative goal expected 422, got %d", rr.Code)
	}

	rr = do(t, srv.Handler, http.MethodDelete, "/api/budget", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("reset status=%d", rr.Code)
	}
	rr = do(t, srv.Handler, http.MethodGet, "/api/budget", "")
	if err := json.Unmarshal(rr.Body.Bytes(), &ev); err != nil {
		t.Fatalf("decode evaluation: %v", err)
	}
	if ev.Goals.Expense.Cents != 0 || len(ev.Warnings) != 0 {
		t.Fatalf("reset should clear goals: %+v", ev)
	}
}

func TestPreferencesEndpoints(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/api/preferences", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"currency":"INR"`) {
		t.Fatalf("defaults status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodPut, "/api/preferences", `{"currency":"usd"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("save status=%d body=%s", rr.Code, rr.Body.String())
	}
	var p prefs.Preferences
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode prefs: %v", err)
	}
	if p.Currency != prefs.USD || p.Theme != prefs.Light {
		t.Fatalf("partial update should keep the theme: %+v", p)
	}

	rr = do(t, srv.Handler, http.MethodPut, "/api/preferences", `{"currency":"XYZ"}`)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown currency expected 422, got %d", rr.Code)
	}

	rr = do(t, srv.Handler, http.MethodPost, "/api/preferences/toggle-theme", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"theme":"dark"`) {
		t.Fatalf("toggle status=%d body=%s", rr.Code, rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodGet, "/", "")
	if !strings.Contains(rr.Body.String(), "theme-dark") || !strings.Contains(rr.Body.String(), "$100.00") {
		t.Fatalf("dashboard should use the stored preferences")
	}
}

func TestInsightsEndpoint(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/api/insights?threshold=50", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("insights status=%d body=%s", rr.Code, rr.Body.String())
	}
	var in services.Insights
	if err := json.Unmarshal(rr.Body.Bytes(), &in); err != nil {
		t.Fatalf("decode insights: %v", err)
	}
	if in.Threshold != 50 || len(in.TopCategories) == 0 || in.TopCategories[0].Category != "Food" {
		t.Fatalf("unexpected insights %+v", in)
	}

	for _, q := range []string{"?threshold=abc", "?threshold=150", "?range=decade"} {
		rr := do(t, srv.Handler, http.MethodGet, "/api/insights"+q, "")
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("%s expected 400, got %d", q, rr.Code)
		}
	}
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/api/export.csv", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export status=%d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rr.Body.String()), "\n")
	if len(lines) != 4 || lines[0] != "id,description,amount,type,category,date" {
		t.Fatalf("unexpected csv %q", rr.Body.String())
	}

	empty := newTestServer(t, ratelimit.Config{})
	rr = do(t, empty.Handler, http.MethodGet, "/api/export.csv", "")
	if rr.Code != http.StatusNotFound {
		t.Fatalf("empty export expected 404, got %d", rr.Code)
	}
}

func TestStaleReads(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{}, seedTransactions()...)

	rr := do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if rr.Header().Get(StaleHeader) != "" {
		t.Fatalf("fresh read must not be marked stale")
	}

	srv.store.failing.Store(true)
	_, _ = srv.tracker.Refresh(context.Background())

	rr = do(t, srv.Handler, http.MethodGet, "/api/summary", "")
	if rr.Code != http.StatusOK || rr.Header().Get(StaleHeader) != "true" {
		t.Fatalf("expected stale summary, status=%d header=%q", rr.Code, rr.Header().Get(StaleHeader))
	}
	if !strings.Contains(rr.Body.String(), `"count":3`) {
		t.Fatalf("stale read should serve the last good snapshot: %s", rr.Body.String())
	}

	rr = do(t, srv.Handler, http.MethodGet, "/api/budget", "")
	if rr.Code != http.StatusOK || rr.Header().Get(StaleHeader) != "true" {
		t.Fatalf("budget status=%d header=%q", rr.Code, rr.Header().Get(StaleHeader))
	}

	rr = do(t, srv.Handler, http.MethodGet, "/", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "unreachable") {
		t.Fatalf("dashboard should show the stale banner")
	}

	rr = do(t, srv.Handler, http.MethodGet, "/readyz", "")
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz expected 503, got %d", rr.Code)
	}
}

func TestWriteRateLimit(t *testing.T) {
	srv := newTestServer(t, ratelimit.Config{RequestsPerMinute: 2}, seedTransactions()...)

	for i := 0; i < 2; i++ {
		rr := do(t, srv.Handler, http.MethodPost, "/api/transactions", `{`)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("request %d expected 400, got %d", i, rr.Code)
		}
	}
	rr := do(t, srv.Handler, http.MethodPost, "/api/transactions", `{`)
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", rr.Code)
	}

	for i := 0; i < 5; i++ {
		if rr := do(t, srv.Handler, http.MethodGet, "/api/summary", ""); rr.Code != http.StatusOK {
			t.Fatalf("reads must not be limited, got %d", rr.Code)
		}
	}
}
