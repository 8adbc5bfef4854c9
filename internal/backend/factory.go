package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"granaflow/internal/amqp"
	"granaflow/internal/session"
	"granaflow/internal/sheets"
	gsheet "granaflow/internal/sheets/google"
	"granaflow/internal/sheets/memory"
)

// ErrExportNotConfigured is returned when an export is requested without a
// spreadsheet.
var ErrExportNotConfigured = errors.New("export not configured: set GOOGLE_SPREADSHEET_ID")

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	b, err := session.NewSQLiteBackend(config.SQLiteDBPath, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite session backend: %w", err)
	}

	f.logger.Info("Initialized SQLite session backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Session: b,
		Cleanup: b.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	b := session.NewMemoryBackend()

	f.logger.Info("Initialized memory session backend")

	return &BackendResult{
		Session: b,
		Cleanup: b.Close,
	}, nil
}

// CreateEvents implements Factory.CreateEvents. A broker that cannot be
// reached is logged and reported as nil so the session runs without events.
func (f *DefaultFactory) CreateEvents(ctx context.Context, config Config) (*amqp.Client, error) {
	if config.AMQPURL == "" {
		return nil, nil
	}
	client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue, f.logger)
	if err != nil {
		f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", "error", err)
		return nil, nil
	}
	f.logger.InfoContext(ctx, "Initialized AMQP client",
		"exchange", config.AMQPExchange,
		"queue", config.AMQPQueue)
	return client, nil
}

// CreateExporter implements Factory.CreateExporter
func (f *DefaultFactory) CreateExporter(ctx context.Context, config Config, dryRun bool) (sheets.TransactionWriter, error) {
	if dryRun {
		return memory.New(), nil
	}
	if config.GoogleSpreadsheetID == "" {
		return nil, ErrExportNotConfigured
	}
	cli, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:      config.GoogleSpreadsheetID,
		SheetName:          config.GoogleSheetName,
		ServiceAccountJSON: config.GoogleServiceAccountJSON,
		ServiceAccountFile: config.GoogleServiceAccountFile,
	}, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}
	f.logger.InfoContext(ctx, "Initialized Google Sheets exporter")
	return cli, nil
}
