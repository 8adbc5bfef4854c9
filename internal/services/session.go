// Package services wires the client packages into a running session.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"granaflow/internal/amqp"
	"granaflow/internal/api"
	"granaflow/internal/auth"
	"granaflow/internal/cache"
	"granaflow/internal/feature"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
	"granaflow/internal/router"
	"granaflow/internal/session"
	"granaflow/internal/store"
	"granaflow/internal/worker"
)

// cacheCleanupInterval is how often expired report entries are swept.
const cacheCleanupInterval = time.Minute

type Options struct {
	APIURL     string
	HTTPClient *http.Client
	// Backend is owned by the session from here on and closed by Teardown.
	Backend session.Backend
	// Events may be nil; mutations are then not broadcast.
	Events         *amqp.Client
	ReportCacheTTL time.Duration
	Confirmer      auth.Confirmer
	Browser        auth.BrowserOpener
	Notifier       notify.Notifier
	Logger         *slog.Logger
}

// Session owns every long-lived piece of a signed-in client: the persisted
// session, the call wrapper, the router, the auth controller and the stores.
type Session struct {
	Store        *session.Store
	Wrapper      *api.Wrapper
	Router       *router.Router
	Auth         *auth.Controller
	Wallets      *store.WalletStore
	Transactions *store.TransactionStore
	Reports      *feature.ReportCache
	Notifier     notify.Notifier

	events *amqp.Client
	caches *cache.Manager
	base   *slog.Logger
	logger *slog.Logger

	mu          sync.Mutex
	unsubscribe []func()
	closeOnce   sync.Once
	closeErr    error
}

func NewSession(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewLog(logger)
	}
	confirmer := opts.Confirmer
	if confirmer == nil {
		confirmer = declineAll{}
	}
	ttl := opts.ReportCacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}

	s := &Session{
		Store:    session.NewStore(opts.Backend),
		Router:   router.New(logger),
		Reports:  feature.NewReportCache(ttl),
		Notifier: notifier,
		events:   opts.Events,
		caches:   cache.NewManager(logger),
		base:     logger,
		logger:   applog.ForComponent(logger, applog.ComponentApp),
	}
	s.Wrapper = api.NewWrapper(opts.APIURL, opts.HTTPClient, s.Store, s.Router, logger)
	s.Auth = auth.NewController(auth.Deps{
		Store:         s.Store,
		Authenticator: s.Wrapper,
		Navigator:     s.Router,
		Confirmer:     confirmer,
		Browser:       opts.Browser,
		LoginURL:      s.Wrapper.LoginURL(),
		Logger:        logger,
	})
	s.Router.SetStateSource(s.Auth.State)
	s.Wallets = store.NewWalletStore(s.Wrapper, s.Store, notifier, logger)
	s.Transactions = store.NewTransactionStore(s.Wrapper, logger)
	s.Reports.Register(s.caches)

	// Signing out must not leave the previous user's data behind.
	s.track(s.Auth.Subscribe(func(st auth.AuthenticationState) {
		if st.State() == auth.Unauthenticated {
			s.Transactions.SetWallet(0)
			s.Wallets.Clear()
			s.Reports.Purge()
		}
	}))
	return s
}

// Init starts background housekeeping and resolves the authentication
// state from whatever session was persisted.
func (s *Session) Init(ctx context.Context) auth.State {
	s.caches.StartCleanup(cacheCleanupInterval)
	state := s.Auth.ValidateAuth(ctx)
	s.logger.DebugContext(ctx, "Session initialized", "state", state.String())
	return state
}

// Teardown stops subscriptions and background work and closes the session
// store and the event client. It is safe to call more than once.
func (s *Session) Teardown() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		unsubs := s.unsubscribe
		s.unsubscribe = nil
		s.mu.Unlock()
		for _, fn := range unsubs {
			fn()
		}
		s.caches.Stop()

		var errs []error
		if err := s.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("session store: %w", err))
		}
		if s.events != nil {
			if err := s.events.Close(); err != nil {
				errs = append(errs, fmt.Errorf("amqp: %w", err))
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// Events returns the change-event client, or nil when events are disabled.
func (s *Session) Events() *amqp.Client {
	return s.events
}

func (s *Session) Dashboard() *feature.Dashboard {
	return feature.NewDashboard(s.Transactions, s.Notifier, s.base)
}

func (s *Session) Payments() *feature.Payments {
	return feature.NewPayments(s.Transactions)
}

func (s *Session) Creator(walletID int64) *feature.Creator {
	return feature.NewCreator(walletID, feature.CreatorDeps{
		Auth:      s.Wrapper,
		Refetcher: s.refetcherFor(walletID),
		Reports:   s.Reports,
		Publisher: s.publisher(),
		Notifier:  s.Notifier,
		Logger:    s.base,
	})
}

func (s *Session) Manager(walletID int64) *feature.TransactionManager {
	return feature.NewTransactionManager(feature.ManagerDeps{
		Auth:      s.Wrapper,
		Refetcher: s.refetcherFor(walletID),
		Reports:   s.Reports,
		Publisher: s.publisher(),
		Notifier:  s.Notifier,
		Logger:    s.base,
	})
}

func (s *Session) ReportsFor(walletID int64) *feature.Reports {
	return feature.NewReports(walletID, feature.ReportsDeps{
		Auth:     s.Wrapper,
		Cache:    s.Reports,
		Notifier: s.Notifier,
		Logger:   s.base,
	})
}

// Watcher builds a change watcher over the transaction store. Events from
// this process are recognised by the event client's origin.
func (s *Session) Watcher() *worker.ChangeWatcher {
	origin := ""
	if s.events != nil {
		origin = s.events.Origin()
	}
	return worker.NewChangeWatcher(s.Transactions, s.Reports, origin, s.base)
}

// refetcherFor selects walletID in the transaction store so that the
// refetch after a mutation reloads the wallet that changed.
func (s *Session) refetcherFor(walletID int64) feature.Refetcher {
	s.Transactions.SetWallet(walletID)
	return s.Transactions
}

// publisher returns a nil interface when events are disabled, never a
// typed nil.
func (s *Session) publisher() feature.ChangePublisher {
	if s.events == nil {
		return nil
	}
	return s.events
}

func (s *Session) track(unsub func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribe = append(s.unsubscribe, unsub)
}

// declineAll answers no to every question; sessions without a terminal
// cannot sign out by accident.
type declineAll struct{}

func (declineAll) Confirm(context.Context, string) (bool, error) { return false, nil }
