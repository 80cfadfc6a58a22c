package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"fintrack/internal/budget"
	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/log"
	"fintrack/internal/prefs"
	"fintrack/internal/source"
)

const snapshotKey = "transactions"

// ValidationError is input rejected before any request was sent.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return "validation failed: " + e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// StaleError is a failed fetch. Reads that return it also return the last
// good collection.
type StaleError struct {
	Err error
}

func (e *StaleError) Error() string { return "serving last good snapshot: " + e.Err.Error() }
func (e *StaleError) Unwrap() error { return e.Err }

// IsStale reports whether err only means the data may be out of date.
func IsStale(err error) bool {
	var se *StaleError
	return errors.As(err, &se)
}

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}

// Options configures a TrackerService. Nil collaborators disable the
// matching feature.
type Options struct {
	CacheTTL time.Duration
	// FetchTimeout bounds one shared fetch of the collection. Zero means 10s.
	FetchTimeout time.Duration
	Goals        *budget.GoalStore
	Prefs        *prefs.Store
	Dispatcher   *budget.Dispatcher
	Logger       *log.Logger
	Now          func() time.Time
}

// TrackerService is the tracker's view of a Transaction Source. Reads go
// through a cached snapshot; every successful mutation invalidates it and
// refetches the full collection.
type TrackerService struct {
	src          source.Store
	snapshot     *cache.LRUCache[[]core.Transaction]
	group        singleflight.Group
	goals        *budget.GoalStore
	prefs        *prefs.Store
	dispatcher   *budget.Dispatcher
	logger       *log.Logger
	events       *log.StructuredLogger
	now          func() time.Time
	fetchTimeout time.Duration

	mu       sync.RWMutex
	gen      uint64
	lastGood []core.Transaction
}

func NewTrackerService(src source.Store, opts Options) *TrackerService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentTracker)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	return &TrackerService{
		src:          src,
		snapshot:     cache.NewLRUCache[[]core.Transaction](1, opts.CacheTTL),
		goals:        opts.Goals,
		prefs:        opts.Prefs,
		dispatcher:   opts.Dispatcher,
		logger:       logger,
		events:       log.NewStructuredLogger(logger),
		now:          now,
		fetchTimeout: fetchTimeout,
		lastGood:     []core.Transaction{},
	}
}

// Cache exposes the snapshot cache so it can be registered for cleanup.
func (s *TrackerService) Cache() cache.Cleaner { return s.snapshot }

// Transactions returns the current collection. When the source cannot be
// reached the last successfully fetched collection is returned together
// with the error.
func (s *TrackerService) Transactions(ctx context.Context) ([]core.Transaction, error) {
	if ts, ok := s.snapshot.Get(snapshotKey); ok {
		return slices.Clone(ts), nil
	}
	return s.refetch(ctx)
}

// Refresh drops the snapshot and fetches the collection again.
func (s *TrackerService) Refresh(ctx context.Context) ([]core.Transaction, error) {
	s.invalidate()
	return s.refetch(ctx)
}

func (s *TrackerService) refetch(ctx context.Context) ([]core.Transaction, error) {
	v, err, _ := s.group.Do(snapshotKey, func() (any, error) {
		// Waiters share this fetch; it outlives the first caller's cancellation.
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		gen := s.generation()
		ts, err := s.src.List(fetchCtx)
		if err != nil {
			return nil, err
		}
		s.store(gen, ts)
		s.dispatch(fetchCtx, ts)
		return ts, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "Fetching transactions failed, serving last good snapshot",
			log.FieldOperation, log.OpRefetch, log.FieldError, err.Error())
		return s.LastGood(), &StaleError{Err: err}
	}
	return slices.Clone(v.([]core.Transaction)), nil
}

func (s *TrackerService) generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// store keeps ts unless the snapshot was invalidated while it was fetched.
func (s *TrackerService) store(gen uint64, ts []core.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastGood = slices.Clone(ts)
	if gen == s.gen {
		s.snapshot.Set(snapshotKey, slices.Clone(ts))
	}
}

func (s *TrackerService) invalidate() {
	s.mu.Lock()
	s.gen++
	s.mu.Unlock()
	s.snapshot.Delete(snapshotKey)
	s.group.Forget(snapshotKey)
}

// LastGood is the most recent collection fetched without error.
func (s *TrackerService) LastGood() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.lastGood)
}

// Create validates t, sends it to the source and refetches.
func (s *TrackerService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	created, err := s.src.Create(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.events.LogTransactionChanged(ctx, log.OpCreate, created.ID, string(created.Type), created.Category, created.Amount.Cents)
	s.afterMutation(ctx)
	return created, nil
}

// Update validates t, replaces the transaction with the given id and
// refetches.
func (s *TrackerService) Update(ctx context.Context, id string, t core.Transaction) (core.Transaction, error) {
	if id == "" {
		return core.Transaction{}, invalid(errors.New("missing transaction id"))
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, invalid(err)
	}
	updated, err := s.src.Update(ctx, id, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", id, err)
	}
	s.events.LogTransactionChanged(ctx, log.OpUpdate, updated.ID, string(updated.Type), updated.Category, updated.Amount.Cents)
	s.afterMutation(ctx)
	return updated, nil
}

// Delete removes a transaction. On failure the snapshot is left alone.
func (s *TrackerService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return invalid(errors.New("missing transaction id"))
	}
	if err := s.src.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.events.LogTransactionChanged(ctx, log.OpDelete, id, "", "", 0)
	s.afterMutation(ctx)
	return nil
}

// afterMutation invalidates and refetches. A failed refetch is logged;
// the mutation itself already succeeded.
func (s *TrackerService) afterMutation(ctx context.Context) {
	s.invalidate()
	if _, err := s.refetch(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Refetch after mutation failed", log.FieldError, err.Error())
	}
}

// View applies q to the current collection.
func (s *TrackerService) View(ctx context.Context, q core.Query) ([]core.Transaction, error) {
	ts, err := s.Transactions(ctx)
	return core.Apply(ts, q), err
}

func (s *TrackerService) Summary(ctx context.Context) (core.Summary, error) {
	ts, err := s.Transactions(ctx)
	return core.Summarize(ts), err
}

// Budget evaluates the stored goals against the current collection without
// delivering warnings.
func (s *TrackerService) Budget(ctx context.Context) (budget.Evaluation, error) {
	ts, fetchErr := s.Transactions(ctx)
	goals, err := s.loadGoals(ctx)
	if err != nil {
		return budget.Evaluation{}, err
	}
	return budget.Evaluate(core.Summarize(ts), goals), fetchErr
}

// SaveGoals validates and stores g, then re-evaluates the collection.
func (s *TrackerService) SaveGoals(ctx context.Context, g budget.Goals) (budget.Evaluation, error) {
	if s.goals == nil {
		return budget.Evaluation{}, errors.New("goal storage not configured")
	}
	if err := g.Validate(); err != nil {
		return budget.Evaluation{}, invalid(err)
	}
	if err := s.goals.Save(ctx, g); err != nil {
		return budget.Evaluation{}, fmt.Errorf("save goals: %w", err)
	}
	ts, fetchErr := s.Transactions(ctx)
	s.dispatch(ctx, ts)
	return budget.Evaluate(core.Summarize(ts), g), fetchErr
}

func (s *TrackerService) ResetGoals(ctx context.Context) error {
	if s.goals == nil {
		return errors.New("goal storage not configured")
	}
	return s.goals.Reset(ctx)
}

func (s *TrackerService) loadGoals(ctx context.Context) (budget.Goals, error) {
	if s.goals == nil {
		return budget.Goals{Categories: map[string]core.Money{}}, nil
	}
	g, err := s.goals.Load(ctx)
	if err != nil {
		return budget.Goals{}, fmt.Errorf("load goals: %w", err)
	}
	return g, nil
}

// dispatch evaluates goals against ts and hands warnings to the dispatcher.
func (s *TrackerService) dispatch(ctx context.Context, ts []core.Transaction) {
	if s.dispatcher == nil || s.goals == nil {
		return
	}
	goals, err := s.loadGoals(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Skipping budget evaluation", log.FieldError, err.Error())
		return
	}
	ev := budget.Evaluate(core.Summarize(ts), goals)
	delivered, err := s.dispatcher.Dispatch(ctx, ev)
	if err != nil {
		s.logger.WarnContext(ctx, "Some budget warnings were not delivered", log.FieldError, err.Error())
	}
	if len(delivered) > 0 {
		s.logger.DebugContext(ctx, "Budget warnings delivered", log.FieldOperation, log.OpEvaluate, log.FieldCount, len(delivered))
	}
}

// Preferences returns the stored display preferences, or the defaults.
func (s *TrackerService) Preferences(ctx context.Context) prefs.Preferences {
	if s.prefs == nil {
		return prefs.Defaults()
	}
	p, err := s.prefs.Load(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Loading preferences failed, using defaults", log.FieldError, err.Error())
		return prefs.Defaults()
	}
	return p
}

func (s *TrackerService) SavePreferences(ctx context.Context, p prefs.Preferences) error {
	if s.prefs == nil {
		return errors.New("preference storage not configured")
	}
	if err := p.Validate(); err != nil {
		return invalid(err)
	}
	return s.prefs.Save(ctx, p)
}

// InsightRange picks what the current collection is compared with.
type InsightRange string

const (
	RangeCurrent  InsightRange = "current"
	RangePrevious InsightRange = "previous"
)

func ParseInsightRange(s string) (InsightRange, error) {
	switch r := InsightRange(s); r {
	case "":
		return RangeCurrent, nil
	case RangeCurrent, RangePrevious:
		return r, nil
	default:
		return "", fmt.Errorf("unknown insight range %q", s)
	}
}

// Insights is the spending-insights panel.
type Insights struct {
	Threshold     float64              `json:"threshold"`
	Range         InsightRange         `json:"range"`
	TopCategories []core.CategoryShare `json:"topCategories"`
	Insights      []core.Insight       `json:"insights"`
}

// Insights compares the whole collection with itself (RangeCurrent) or with
// the calendar month before now (RangePrevious).
func (s *TrackerService) Insights(ctx context.Context, threshold float64, r InsightRange) (Insights, error) {
	ts, err := s.Transactions(ctx)
	previous := ts
	if r == RangePrevious {
		previous = core.PreviousMonth(ts, s.now())
	}
	p := s.Preferences(ctx)
	top := core.TopCategories(ts, 2)
	prevGroups := core.GroupByCategory(previous)
	for i := range top {
		top[i].Previous = prevGroups[top[i].Category]
	}
	return Insights{
		Threshold:     threshold,
		Range:         r,
		TopCategories: top,
		Insights:      core.SpendingInsights(ts, previous, threshold, p.Currency.Format),
	}, err
}

// Ping reports whether the source is reachable when it supports it.
func (s *TrackerService) Ping(ctx context.Context) error {
	if p, ok := s.src.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	_, err := s.src.List(ctx)
	return err
}
