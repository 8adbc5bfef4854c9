package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"granaflow/internal/amqp"
	"granaflow/internal/api"
	applog "granaflow/internal/log"
)

// WalletRefetcher is the store a watcher keeps fresh.
type WalletRefetcher interface {
	WalletID() int64
	Refetch(ctx context.Context) error
}

// ReportInvalidator drops cached reports of a wallet.
type ReportInvalidator interface {
	InvalidateWallet(walletID int64) int
}

// ChangeWatcher applies transaction change events from other sessions to the
// local stores.
type ChangeWatcher struct {
	store   WalletRefetcher
	reports ReportInvalidator
	origin  string
	logger  *slog.Logger
	// OnRefresh, when set, runs after every successful refetch.
	OnRefresh func(ctx context.Context)
}

// NewChangeWatcher builds a watcher. Messages carrying origin are this
// process's own and are ignored; reports may be nil.
func NewChangeWatcher(store WalletRefetcher, reports ReportInvalidator, origin string, logger *slog.Logger) *ChangeWatcher {
	return &ChangeWatcher{
		store:   store,
		reports: reports,
		origin:  origin,
		logger:  applog.ForComponent(logger, applog.ComponentWorker),
	}
}

// HandleChange processes a single change message from AMQP
func (w *ChangeWatcher) HandleChange(ctx context.Context, msg *amqp.TransactionChangeMessage) error {
	if w.origin != "" && msg.Origin == w.origin {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing transaction change",
		"id", msg.ID,
		"kind", string(msg.Kind),
		applog.FieldWalletID, msg.WalletID)

	if w.reports != nil {
		if n := w.reports.InvalidateWallet(msg.WalletID); n > 0 {
			w.logger.DebugContext(ctx, "Dropped cached reports", applog.FieldCount, n)
		}
	}

	if msg.WalletID != w.store.WalletID() {
		return nil
	}
	return w.refetch(ctx)
}

// PeriodicRefresh refetches the watched wallet every interval until ctx
// ends. It covers changes whose messages were lost.
func (w *ChangeWatcher) PeriodicRefresh(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.refetch(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic refresh failed", applog.FieldError, err.Error())
			}
		}
	}
}

func (w *ChangeWatcher) refetch(ctx context.Context) error {
	if w.store.WalletID() == 0 {
		return nil
	}
	if err := w.store.Refetch(ctx); err != nil {
		// A dead session will not come back by retrying the message.
		if errors.Is(err, api.ErrUnavailable) {
			w.logger.WarnContext(ctx, "Skipping refresh, session unavailable", applog.FieldError, err.Error())
			return nil
		}
		return err
	}
	if w.OnRefresh != nil {
		w.OnRefresh(ctx)
	}
	return nil
}
