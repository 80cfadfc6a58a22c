// Package prefs holds the display preferences every view receives
// explicitly: currency and theme.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/kv"
)

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
)

const (
	Light Theme = "light"
	Dark  Theme = "dark"
	Ocean Theme = "ocean"
)

const (
	KeyCurrency = "currency"
	KeyTheme    = "theme"
)

var (
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidTheme    = errors.New("invalid theme")
)

type (
	Currency string
	Theme    string

	Preferences struct {
		Currency Currency `json:"currency"`
		Theme    Theme    `json:"theme"`
	}
)

var symbols = map[Currency]string{INR: "₹", USD: "$", EUR: "€"}

// Defaults are used when nothing valid is stored.
func Defaults() Preferences {
	return Preferences{Currency: INR, Theme: Light}
}

func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := symbols[c]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidCurrency, s)
	}
	return c, nil
}

func ParseTheme(s string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(s))); t {
	case Light, Dark, Ocean:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTheme, s)
	}
}

// Symbol returns the currency sign, or the code itself when unknown.
func (c Currency) Symbol() string {
	if s, ok := symbols[c]; ok {
		return s
	}
	return string(c)
}

// Format renders m with the currency sign, e.g. ₹12.50. Negative amounts
// put the minus before the sign.
func (c Currency) Format(m core.Money) string {
	if m.Cents < 0 {
		return "-" + c.Symbol() + core.Money{Cents: -m.Cents}.String()
	}
	return c.Symbol() + m.String()
}

// Toggle switches dark to light and anything else to dark.
func (t Theme) Toggle() Theme {
	if t == Dark {
		return Light
	}
	return Dark
}

func (p Preferences) Validate() error {
	if _, err := ParseCurrency(string(p.Currency)); err != nil {
		return err
	}
	if _, err := ParseTheme(string(p.Theme)); err != nil {
		return err
	}
	return nil
}

// Store reads and writes preferences through a kv.Store.
type Store struct {
	kv kv.Store
}

func NewStore(s kv.Store) *Store {
	return &Store{kv: s}
}

// Load returns the stored preferences. Missing or invalid values fall back
// to the defaults.
func (s *Store) Load(ctx context.Context) (Preferences, error) {
	p := Defaults()
	if v, ok, err := s.kv.Get(ctx, KeyCurrency); err != nil {
		return p, fmt.Errorf("load currency: %w", err)
	} else if ok {
		if c, err := ParseCurrency(v); err == nil {
			p.Currency = c
		}
	}
	if v, ok, err := s.kv.Get(ctx, KeyTheme); err != nil {
		return p, fmt.Errorf("load theme: %w", err)
	} else if ok {
		if t, err := ParseTheme(v); err == nil {
			p.Theme = t
		}
	}
	return p, nil
}

// Save validates p and writes both keys.
func (s *Store) Save(ctx context.Context, p Preferences) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := s.kv.Set(ctx, KeyCurrency, string(p.Currency)); err != nil {
		return fmt.Errorf("save currency: %w", err)
	}
	if err := s.kv.Set(ctx, KeyTheme, string(p.Theme)); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	return nil
}
