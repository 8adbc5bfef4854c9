// Package backend builds the infrastructure a client session runs on: the
// session store backend, the optional change-event client and the export
// writer.
package backend

import (
	"context"

	"granaflow/internal/amqp"
	"granaflow/internal/session"
	"granaflow/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the session backend and optional cleanup function
type BackendResult struct {
	Session session.Backend
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateEvents returns nil when no broker is configured.
	CreateEvents(ctx context.Context, config Config) (*amqp.Client, error)
	// CreateExporter falls back to an in-memory writer when dryRun is set.
	CreateExporter(ctx context.Context, config Config, dryRun bool) (sheets.TransactionWriter, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string
}

// BackendType represents the type of session backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
