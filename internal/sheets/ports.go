// Package sheets exports wallet transactions to spreadsheets.
package sheets

import (
	"context"

	"granaflow/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// AppendTransactions adds one row per transaction and returns a
		// reference to the written range.
		AppendTransactions(ctx context.Context, wallet core.Wallet, txs []core.Transaction) (rowRef string, err error)
	}
)
