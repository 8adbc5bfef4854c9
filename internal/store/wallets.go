package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"granaflow/internal/api"
	"granaflow/internal/core"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
	"granaflow/internal/session"
)

type WalletsSnapshot struct {
	Loading bool
	Wallets []core.Wallet
}

// WalletStore caches the user's wallets.
type WalletStore struct {
	auth     Authenticator
	session  *session.Store
	notifier notify.Notifier
	logger   *slog.Logger
	subs     subscribers[WalletsSnapshot]

	mu      sync.Mutex
	loading bool
	wallets []core.Wallet
	seq     uint64
}

func NewWalletStore(auth Authenticator, sess *session.Store, notifier notify.Notifier, logger *slog.Logger) *WalletStore {
	return &WalletStore{
		auth:     auth,
		session:  sess,
		notifier: notifier,
		logger:   applog.ForComponent(logger, applog.ComponentStore).With("store", "wallets"),
	}
}

func (s *WalletStore) Snapshot() WalletsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *WalletStore) snapshotLocked() WalletsSnapshot {
	return WalletsSnapshot{
		Loading: s.loading,
		Wallets: append([]core.Wallet(nil), s.wallets...),
	}
}

func (s *WalletStore) Subscribe(fn func(WalletsSnapshot)) func() {
	return s.subs.add(fn)
}

// Load fetches the wallet list. It is skipped entirely while no access token
// is stored, i.e. before the first successful validation. A 404 means the
// user has no wallets yet. The sequence number is claimed before the refresh
// exchange, so a Clear or a newer Load during it drops this result.
func (s *WalletStore) Load(ctx context.Context) error {
	token, ok, err := s.session.AccessToken(ctx)
	if err != nil {
		return fmt.Errorf("read access token: %w", err)
	}
	if !ok || token == "" {
		return nil
	}

	seq := s.begin()
	defer s.finish(seq)

	client, err := s.auth.Authenticate(ctx)
	if err != nil {
		return err
	}

	wallets, err := client.ListWallets(ctx)
	switch {
	case api.IsStatus(err, http.StatusNotFound):
		wallets = []core.Wallet{}
	case err != nil:
		applog.LogError(ctx, s.logger, "Failed to load wallets", err, applog.OpList, nil)
		notify.Surface(ctx, s.notifier, err, "Erro ao carregar carteiras")
		return fmt.Errorf("load wallets: %w", err)
	}

	s.mu.Lock()
	if seq != s.seq {
		s.mu.Unlock()
		return nil
	}
	s.wallets = wallets
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Wallets loaded", applog.FieldCount, len(wallets))
	return nil
}

// Refresh reloads the wallet list.
func (s *WalletStore) Refresh(ctx context.Context) error {
	return s.Load(ctx)
}

// Clear empties the cached list and discards any load still running, whose
// result may belong to a session that has since ended.
func (s *WalletStore) Clear() {
	s.mu.Lock()
	s.seq++
	s.loading = false
	s.wallets = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snap)
}

// Find returns the cached wallet with id.
func (s *WalletStore) Find(id int64) (core.Wallet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.wallets {
		if w.ID == id {
			return w, true
		}
	}
	return core.Wallet{}, false
}

func (s *WalletStore) begin() uint64 {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.loading = true
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.publish(snap)
	return seq
}

func (s *WalletStore) finish(seq uint64) {
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
