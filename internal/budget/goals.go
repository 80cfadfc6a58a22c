// Package budget evaluates user budget goals against the transaction
// collection and delivers warnings when they are exceeded.
package budget

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/kv"
	"fintrack/internal/log"
)

// Storage keys, shared with the browser build of the tracker.
const (
	KeyIncomeGoal    = "incomeGoal"
	KeyExpenseGoal   = "expenseGoal"
	KeyCategoryGoals = "categoryGoals"
)

var ErrNegativeGoal = errors.New("goal must not be negative")

// Goals are the user's limits. A zero goal is treated as unset.
type Goals struct {
	Income     core.Money            `json:"incomeGoal"`
	Expense    core.Money            `json:"expenseGoal"`
	Categories map[string]core.Money `json:"categoryGoals"`
}

func (g Goals) Validate() error {
	if g.Income.Cents < 0 {
		return fmt.Errorf("%w: income", ErrNegativeGoal)
	}
	if g.Expense.Cents < 0 {
		return fmt.Errorf("%w: expense", ErrNegativeGoal)
	}
	for name, v := range g.Categories {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("%w: empty category name", core.ErrEmptyCategory)
		}
		if v.Cents < 0 {
			return fmt.Errorf("%w: %s", ErrNegativeGoal, name)
		}
	}
	return nil
}

type (
	goalWrite struct {
		key, value string
	}

	storedValue struct {
		value string
		ok    bool
	}
)

// GoalStore persists Goals in a kv.Store. Amounts are written as plain
// decimal numbers.
type GoalStore struct {
	kv     kv.Store
	logger *log.Logger
}

func NewGoalStore(s kv.Store, logger *log.Logger) *GoalStore {
	if logger == nil {
		logger = log.Discard()
	}
	return &GoalStore{kv: s, logger: logger.WithComponent(log.ComponentBudget)}
}

// Load reads the stored goals. Missing keys are zero goals. Values that do
// not parse are logged and treated as unset.
func (s *GoalStore) Load(ctx context.Context) (Goals, error) {
	g := Goals{Categories: map[string]core.Money{}}
	var err error
	if g.Income, err = s.loadAmount(ctx, KeyIncomeGoal); err != nil {
		return g, err
	}
	if g.Expense, err = s.loadAmount(ctx, KeyExpenseGoal); err != nil {
		return g, err
	}
	raw, ok, err := s.kv.Get(ctx, KeyCategoryGoals)
	if err != nil {
		return g, fmt.Errorf("load %s: %w", KeyCategoryGoals, err)
	}
	if ok && raw != "" {
		var cats map[string]core.Money
		if err := json.Unmarshal([]byte(raw), &cats); err != nil {
			s.logger.WarnContext(ctx, "Ignoring unreadable category goals", log.FieldError, err.Error())
		} else {
			g.Categories = cats
		}
	}
	return g, nil
}

func (s *GoalStore) loadAmount(ctx context.Context, key string) (core.Money, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return core.Money{}, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || raw == "" {
		return core.Money{}, nil
	}
	m, err := core.ParseAmount(raw)
	if err != nil {
		s.logger.WarnContext(ctx, "Ignoring unreadable goal", "key", key, log.FieldError, err.Error())
		return core.Money{}, nil
	}
	return m, nil
}

// Save validates g and writes all three keys. Nothing is written when
// validation fails. When a write fails the keys already written get their
// previous values back.
func (s *GoalStore) Save(ctx context.Context, g Goals) error {
	if err := g.Validate(); err != nil {
		return err
	}
	cats := g.Categories
	if cats == nil {
		cats = map[string]core.Money{}
	}
	b, err := json.Marshal(cats)
	if err != nil {
		return fmt.Errorf("encode category goals: %w", err)
	}
	writes := []goalWrite{
		{KeyIncomeGoal, g.Income.Decimal().String()},
		{KeyExpenseGoal, g.Expense.Decimal().String()},
		{KeyCategoryGoals, string(b)},
	}

	prev := make([]storedValue, len(writes))
	for i, w := range writes {
		v, ok, err := s.kv.Get(ctx, w.key)
		if err != nil {
			return fmt.Errorf("load %s: %w", w.key, err)
		}
		prev[i] = storedValue{value: v, ok: ok}
	}

	for i, w := range writes {
		if err := s.kv.Set(ctx, w.key, w.value); err != nil {
			err = fmt.Errorf("save %s: %w", w.key, err)
			return errors.Join(err, s.restore(ctx, writes[:i], prev[:i]))
		}
	}
	return nil
}

// restore puts back the values saved before a failed Save, removing keys
// that did not exist.
func (s *GoalStore) restore(ctx context.Context, writes []goalWrite, prev []storedValue) error {
	var errs []error
	for i, w := range writes {
		var err error
		if prev[i].ok {
			err = s.kv.Set(ctx, w.key, prev[i].value)
		} else {
			err = s.kv.Delete(ctx, w.key)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", w.key, err))
		}
	}
	if len(errs) > 0 {
		s.logger.ErrorContext(ctx, "Goals left partially saved", log.FieldError, errors.Join(errs...).Error())
	}
	return errors.Join(errs...)
}

// Reset removes every stored goal.
func (s *GoalStore) Reset(ctx context.Context) error {
	for _, key := range []string{KeyIncomeGoal, KeyExpenseGoal, KeyCategoryGoals} {
		if err := s.kv.Delete(ctx, key); err != nil {
			return fmt.Errorf("reset %s: %w", key, err)
		}
	}
	return nil
}
