// Package export writes the transaction collection out as CSV or into a
// Google Sheets range.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"fintrack/internal/core"
)

var ErrNothingToExport = errors.New("no transactions to export")

// Header is the first row of every export.
var Header = []string{"id", "description", "amount", "type", "category", "date"}

// Records turns ts into string rows in collection order, header first.
func Records(ts []core.Transaction) [][]string {
	out := make([][]string, 0, len(ts)+1)
	out = append(out, append([]string(nil), Header...))
	for _, t := range ts {
		out = append(out, []string{
			t.ID,
			t.Description,
			t.Amount.Decimal().String(),
			string(t.Type),
			t.Category,
			t.Date.String(),
		})
	}
	return out
}

// WriteCSV writes ts to w. An empty collection is ErrNothingToExport and
// nothing is written.
func WriteCSV(w io.Writer, ts []core.Transaction) error {
	if len(ts) == 0 {
		return ErrNothingToExport
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(ts)); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}
