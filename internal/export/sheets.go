package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

// SheetsConfig selects the target spreadsheet and credentials. Inline JSON
// wins over the file.
type SheetsConfig struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

// valuesAPI is the part of the Sheets values service the exporter uses.
type valuesAPI interface {
	Clear(ctx context.Context, spreadsheetID, rng string) error
	Update(ctx context.Context, spreadsheetID, rng string, rows [][]any) error
}

// SheetsExporter replaces the contents of one sheet with the collection.
type SheetsExporter struct {
	values        valuesAPI
	spreadsheetID string
	sheetName     string
	logger        *log.Logger
}

func NewSheetsExporter(ctx context.Context, cfg SheetsConfig, logger *log.Logger) (*SheetsExporter, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return newSheetsExporter(&serviceValues{svc: svc}, cfg, logger), nil
}

func newSheetsExporter(v valuesAPI, cfg SheetsConfig, logger *log.Logger) *SheetsExporter {
	if logger == nil {
		logger = log.Discard()
	}
	name := strings.TrimSpace(cfg.SheetName)
	if name == "" {
		name = "Transactions"
	}
	return &SheetsExporter{
		values:        v,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     name,
		logger:        logger.WithComponent(log.ComponentExport),
	}
}

func credentials(cfg SheetsConfig) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Export clears the sheet and writes the header plus one row per
// transaction starting at A1. It returns the written range.
func (e *SheetsExporter) Export(ctx context.Context, ts []core.Transaction) (string, error) {
	if len(ts) == 0 {
		return "", ErrNothingToExport
	}
	if err := e.values.Clear(ctx, e.spreadsheetID, e.sheetName+"!A:F"); err != nil {
		return "", fmt.Errorf("clear sheet %s: %w", e.sheetName, err)
	}
	rows := Rows(ts)
	rng := fmt.Sprintf("%s!A1:F%d", e.sheetName, len(rows))
	if err := e.values.Update(ctx, e.spreadsheetID, rng, rows); err != nil {
		return "", fmt.Errorf("write sheet %s: %w", e.sheetName, err)
	}
	e.logger.InfoContext(ctx, "Exported transactions to Google Sheets",
		log.FieldOperation, log.OpExport, log.FieldCount, len(ts), "range", rng)
	return rng, nil
}

// Rows is Records typed for the Sheets API.
func Rows(ts []core.Transaction) [][]any {
	recs := Records(ts)
	out := make([][]any, len(recs))
	for i, r := range recs {
		row := make([]any, len(r))
		for j, v := range r {
			row[j] = v
		}
		out[i] = row
	}
	return out
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s *serviceValues) Clear(ctx context.Context, id, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(id, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (s *serviceValues) Update(ctx context.Context, id, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(id, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}
