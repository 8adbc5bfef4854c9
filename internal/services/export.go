package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
	"granaflow/internal/sheets"
)

// ErrWalletNotFound is returned when the wallet is not among the user's wallets.
var ErrWalletNotFound = errors.New("wallet not found")

type ExportResult struct {
	Wallet core.Wallet
	Count  int
	Ref    string
}

// ExportWallet reloads the wallet's transactions and appends them with w.
// Future transactions are included only when includeFuture is set.
func (s *Session) ExportWallet(ctx context.Context, walletID int64, includeFuture bool, w sheets.TransactionWriter) (ExportResult, error) {
	if err := s.Wallets.Load(ctx); err != nil {
		return ExportResult{}, err
	}
	wallet, ok := s.Wallets.Find(walletID)
	if !ok {
		return ExportResult{}, fmt.Errorf("%w: %d", ErrWalletNotFound, walletID)
	}

	s.Transactions.SetWallet(walletID)
	if err := s.Transactions.Fetch(ctx); err != nil {
		notify.Surface(ctx, s.Notifier, err, "Erro ao buscar transações")
		return ExportResult{}, err
	}
	snap := s.Transactions.Snapshot()
	txs := snap.Mine
	if includeFuture {
		txs = append(txs, snap.Future...)
	}

	ref, err := w.AppendTransactions(ctx, wallet, txs)
	if err != nil {
		applog.LogError(ctx, s.logger, "Export failed", err, applog.OpExport,
			applog.NewFields().WithWallet(walletID))
		notify.Surface(ctx, s.Notifier, err, "Erro ao exportar transações")
		return ExportResult{}, fmt.Errorf("export wallet %d: %w", walletID, err)
	}

	s.Notifier.Notify(ctx, notify.New(notify.Success, strconv.Itoa(len(txs))+" transações exportadas"))
	return ExportResult{Wallet: wallet, Count: len(txs), Ref: ref}, nil
}
