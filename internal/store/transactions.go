package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"granaflow/internal/api"
	"granaflow/internal/core"
	applog "granaflow/internal/log"
)

// TransactionsSnapshot is a consistent view of a TransactionStore.
type TransactionsSnapshot struct {
	WalletID int64
	Loading  bool
	// Mine holds transactions dated up to today, Future the ones after.
	Mine   []core.Transaction
	Future []core.Transaction
}

// TransactionStore caches the transactions of the selected wallet.
type TransactionStore struct {
	auth   Authenticator
	logger *slog.Logger
	subs   subscribers[TransactionsSnapshot]

	mu       sync.Mutex
	walletID int64
	loading  bool
	mine     []core.Transaction
	future   []core.Transaction
	seq      uint64
}

func NewTransactionStore(auth Authenticator, logger *slog.Logger) *TransactionStore {
	return &TransactionStore{
		auth:   auth,
		logger: applog.ForComponent(logger, applog.ComponentStore).With("store", "transactions"),
	}
}

// SetWallet selects the wallet subsequent fetches read. Switching wallets
// empties the cached collections and discards whatever fetch is still
// running for the previous one.
func (s *TransactionStore) SetWallet(walletID int64) {
	s.mu.Lock()
	if s.walletID == walletID {
		s.mu.Unlock()
		return
	}
	s.walletID = walletID
	s.seq++
	s.loading = false
	s.mine = nil
	s.future = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snap)
}

func (s *TransactionStore) WalletID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.walletID
}

func (s *TransactionStore) Snapshot() TransactionsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *TransactionStore) snapshotLocked() TransactionsSnapshot {
	return TransactionsSnapshot{
		WalletID: s.walletID,
		Loading:  s.loading,
		Mine:     append([]core.Transaction(nil), s.mine...),
		Future:   append([]core.Transaction(nil), s.future...),
	}
}

// Subscribe registers fn to receive a snapshot after every change.
func (s *TransactionStore) Subscribe(fn func(TransactionsSnapshot)) func() {
	return s.subs.add(fn)
}

// Fetch reloads both transaction windows of the selected wallet and replaces
// the cached collections wholesale. Without a selected wallet it does
// nothing. If a newer fetch starts or another wallet is selected before this
// one finishes, this one's result is dropped.
func (s *TransactionStore) Fetch(ctx context.Context) error {
	walletID, seq, ok := s.begin()
	if !ok {
		return nil
	}
	defer s.finish(seq)

	client, err := s.auth.Authenticate(ctx)
	if err != nil {
		return err
	}

	var mine, future []core.Transaction
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		txs, err := client.ListTransactions(gctx, api.ListTransactionsParams{WalletID: walletID, Window: api.UntilToday})
		mine = txs
		return err
	})
	g.Go(func() error {
		txs, err := client.ListTransactions(gctx, api.ListTransactionsParams{WalletID: walletID, Window: api.AfterToday})
		future = txs
		return err
	})
	if err := g.Wait(); err != nil {
		applog.LogError(ctx, s.logger, "Failed to fetch transactions", err, applog.OpFetch,
			applog.NewFields().WithWallet(walletID))
		return fmt.Errorf("fetch transactions: %w", err)
	}

	s.mu.Lock()
	if seq != s.seq || walletID != s.walletID {
		s.mu.Unlock()
		s.logger.DebugContext(ctx, "Discarding stale transactions",
			applog.FieldSequence, seq, applog.FieldWalletID, walletID)
		return nil
	}
	s.mine = mine
	s.future = future
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Transactions loaded",
		applog.FieldWalletID, walletID, applog.FieldCount, len(mine)+len(future))
	return nil
}

// Refetch reloads the selected wallet.
func (s *TransactionStore) Refetch(ctx context.Context) error {
	return s.Fetch(ctx)
}

// begin claims the next sequence number for the selected wallet. Both are
// read under one lock so a concurrent SetWallet either precedes the claim or
// invalidates it. ok is false when no wallet is selected.
func (s *TransactionStore) begin() (walletID int64, seq uint64, ok bool) {
	s.mu.Lock()
	if s.walletID == 0 {
		s.mu.Unlock()
		return 0, 0, false
	}
	s.seq++
	walletID, seq = s.walletID, s.seq
	s.loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snap)
	return walletID, seq, true
}

// finish clears the loading flag if seq is still the latest fetch.
func (s *TransactionStore) finish(seq uint64) {
	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return
	}
	s.loading = false
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snap)
}
