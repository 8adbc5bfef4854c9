// Package feature implements the user-facing operations of the client on
// top of the stores: the wallet dashboard, payment filters, transaction
// creation and management, and reports.
package feature

import (
	"context"
	"errors"

	"granaflow/internal/amqp"
	"granaflow/internal/api"
)

var (
	ErrNameTooShort     = errors.New("name must have at least 3 characters")
	ErrAmountRequired   = errors.New("amount is required")
	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrEmptyPatch       = errors.New("nothing to change")
	ErrYearUnavailable  = errors.New("year not available")
	ErrInvalidMonth     = errors.New("month must be between 1 and 12")
)

// Authenticator yields an API client for the current session.
type Authenticator interface {
	Authenticate(ctx context.Context) (*api.Client, error)
}

// Refetcher reloads the transactions of the selected wallet.
type Refetcher interface {
	Refetch(ctx context.Context) error
}

// ReportInvalidator drops cached reports of a wallet after it changes.
type ReportInvalidator interface {
	InvalidateWallet(walletID int64) int
}

// ChangePublisher broadcasts transaction changes to other sessions.
type ChangePublisher interface {
	PublishTransactionChange(ctx context.Context, msg *amqp.TransactionChangeMessage) error
}
