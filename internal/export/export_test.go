package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
)

func sample() []core.Transaction {
	return []core.Transaction{
		{ID: "1", Description: "Salary", Amount: core.Money{Cents: 150000}, Type: core.Income, Category: "Job", Date: core.NewDate(2024, 1, 1)},
		{ID: "2", Description: "Lunch, with team", Amount: core.Money{Cents: 1250}, Type: core.Expense, Category: "Food", Date: core.NewDate(2024, 1, 2)},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, sample()); err != nil {
		t.Fatalf("write: %v", err)
	}
	want := "id,description,amount,type,category,date\n" +
		"1,Salary,1500,income,Job,2024-01-01\n" +
		"2,\"Lunch, with team\",12.5,expense,Food,2024-01-02\n"
	if buf.String() != want {
		t.Fatalf("unexpected csv:\n%s", buf.String())
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("nothing should be written")
	}
}

type fakeValues struct {
	cleared string
	rng     string
	rows    [][]any
	err     error
}

func (f *fakeValues) Clear(_ context.Context, _, rng string) error {
	f.cleared = rng
	return f.err
}

func (f *fakeValues) Update(_ context.Context, _, rng string, rows [][]any) error {
	f.rng, f.rows = rng, rows
	return nil
}

func TestSheetsExport(t *testing.T) {
	fv := &fakeValues{}
	e := newSheetsExporter(fv, SheetsConfig{SpreadsheetID: "sheet-id"}, nil)
	rng, err := e.Export(context.Background(), sample())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if fv.cleared != "Transactions!A:F" || rng != "Transactions!A1:F3" || fv.rng != rng {
		t.Fatalf("unexpected ranges cleared=%q written=%q", fv.cleared, rng)
	}
	if len(fv.rows) != 3 || fv.rows[0][0] != "id" || fv.rows[2][2] != "12.5" {
		t.Fatalf("unexpected rows %v", fv.rows)
	}

	if _, err := e.Export(context.Background(), nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}

	fv.err = errors.New("permission denied")
	if _, err := e.Export(context.Background(), sample()); err == nil {
		t.Fatalf("expected clear error")
	}
}

func TestCredentials(t *testing.T) {
	if b, err := credentials(SheetsConfig{ServiceAccountJSON: `{"type":"service_account"}`}); err != nil || len(b) == 0 {
		t.Fatalf("inline json: %v", err)
	}
	path := filepath.Join(t.TempDir(), "sa.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if b, err := credentials(SheetsConfig{ServiceAccountFile: path}); err != nil || string(b) != "{}" {
		t.Fatalf("file: %q %v", b, err)
	}
	if _, err := credentials(SheetsConfig{}); err == nil {
		t.Fatalf("expected missing credentials error")
	}
	if _, err := NewSheetsExporter(context.Background(), SheetsConfig{}, nil); err == nil {
		t.Fatalf("expected missing spreadsheet id error")
	}
}
