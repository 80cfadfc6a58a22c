// Command fintrack-export writes the full transaction collection to a CSV
// file or mirrors it into a Google Sheet.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/config"
	"fintrack/internal/core"
	"fintrack/internal/export"
	"fintrack/internal/log"
	"fintrack/internal/source/rest"
)

func main() {
	format := flag.String("format", "csv", "output format: csv or sheets")
	out := flag.String("out", "-", "CSV output file, - for stdout")
	from := flag.String("from", "source", "read from the REST source or the local backend: source or backend")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentExport)
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	if err := run(ctx, cfg, logger, *format, *out, *from); err != nil {
		if errors.Is(err, export.ErrNothingToExport) {
			logger.Warn("Nothing exported", log.FieldError, err)
			os.Exit(2)
		}
		logger.Error("Export failed", log.FieldError, err, "format", *format)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *log.Logger, format, out, from string) error {
	ts, err := load(ctx, cfg, logger, from)
	if err != nil {
		return err
	}

	switch format {
	case "csv":
		return writeCSV(out, ts)
	case "sheets":
		if !cfg.SheetsEnabled() {
			return errors.New("sheets export needs GOOGLE_SPREADSHEET_ID and service account credentials")
		}
		exp, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return err
		}
		rng, err := exp.Export(ctx, ts)
		if err != nil {
			return err
		}
		logger.Info("Export complete", "range", rng, log.FieldCount, len(ts))
		return nil
	default:
		return fmt.Errorf("unknown format %q: must be csv or sheets", format)
	}
}

func load(ctx context.Context, cfg *config.Config, logger *log.Logger, from string) ([]core.Transaction, error) {
	switch from {
	case "source":
		client, err := rest.New(cfg.SourceURL, cfg.SourceTimeout)
		if err != nil {
			return nil, err
		}
		return client.List(ctx)
	case "backend":
		bcfg, err := backend.FromAppConfig(cfg)
		if err != nil {
			return nil, err
		}
		// Change events are not wanted for a read-only run.
		bcfg.AMQPURL = ""
		result, err := backend.NewFactory(logger).Create(ctx, bcfg)
		if err != nil {
			return nil, err
		}
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", log.FieldError, err)
			}
		}()
		return result.Store.List(ctx)
	default:
		return nil, fmt.Errorf("unknown input %q: must be source or backend", from)
	}
}

func writeCSV(path string, ts []core.Transaction) (err error) {
	var w io.Writer = os.Stdout
	if path != "-" {
		f, ferr := os.Create(path)
		if ferr != nil {
			return fmt.Errorf("create %s: %w", path, ferr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}
	return export.WriteCSV(w, ts)
}
