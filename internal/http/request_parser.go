package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

// maxBodyBytes caps every JSON request body.
const maxBodyBytes = 1 << 20

// decodeError is a request body that could not be decoded.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// decodeJSON reads one JSON value from the body into v. Trailing data is an
// error.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return &decodeError{err: errors.New("empty body")}
		}
		return &decodeError{err: err}
	}
	if dec.More() {
		return &decodeError{err: errors.New("unexpected data after JSON value")}
	}
	return nil
}

// checkStorable rejects records the store could not hand back in a
// readable form: every stored transaction needs a type and a date.
func checkStorable(t core.Transaction) error {
	if !t.Type.Valid() {
		return &decodeError{err: fmt.Errorf("%w: %q", core.ErrInvalidType, string(t.Type))}
	}
	if err := t.Date.Validate(); err != nil {
		return &decodeError{err: err}
	}
	return nil
}

// ParseQuery reads type, q, category and sort from the query string. Unknown
// selectors are rejected.
func ParseQuery(values url.Values) (core.Query, error) {
	sel, err := core.ParseTypeSelector(values.Get("type"))
	if err != nil {
		return core.Query{}, err
	}
	sortKey, err := core.ParseSortKey(values.Get("sort"))
	if err != nil {
		return core.Query{}, err
	}
	return core.Query{
		Type:     sel,
		Text:     sanitizeInput(values.Get("q")),
		Category: sanitizeInput(values.Get("category")),
		Sort:     sortKey,
	}, nil
}

// ParseInsightParams reads threshold (percent, default 30) and range.
func ParseInsightParams(values url.Values) (float64, services.InsightRange, error) {
	threshold := float64(core.DefaultInsightThreshold)
	if v := strings.TrimSpace(values.Get("threshold")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 100 {
			return 0, "", fmt.Errorf("invalid threshold %q: must be a number between 0 and 100", v)
		}
		threshold = f
	}
	r, err := services.ParseInsightRange(strings.TrimSpace(values.Get("range")))
	if err != nil {
		return 0, "", err
	}
	return threshold, r, nil
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeTransaction(t core.Transaction) core.Transaction {
	t.Description = sanitizeInput(t.Description)
	t.Category = sanitizeInput(t.Category)
	return t
}
