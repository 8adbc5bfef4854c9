package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	applog "granaflow/internal/log"
	"granaflow/internal/session"
)

const (
	// LandingPath is where an invalidated session is sent.
	LandingPath = "/"
	refreshPath = "/refresh/"
	loginPath   = "/auth/google"
)

// Navigator moves the application to another route.
type Navigator interface {
	Replace(ctx context.Context, path string)
}

// Wrapper produces API clients authenticated with a freshly minted access
// token. Each call to Authenticate performs one refresh exchange, so no
// access token is ever reused past the call that obtained it.
type Wrapper struct {
	baseURL string
	http    *http.Client
	store   *session.Store
	nav     Navigator
	logger  *slog.Logger
}

// NewWrapper builds a wrapper for the API at baseURL. A nil httpClient uses a
// client with a 30 second timeout.
func NewWrapper(baseURL string, httpClient *http.Client, store *session.Store, nav Navigator, logger *slog.Logger) *Wrapper {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Wrapper{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		store:   store,
		nav:     nav,
		logger:  applog.ForComponent(logger, applog.ComponentAPI),
	}
}

// LoginURL is where the browser goes to start the OAuth login.
func (w *Wrapper) LoginURL() string {
	return LoginURL(w.baseURL)
}

// LoginURL builds the login redirect target for the API at baseURL.
func LoginURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + loginPath + "?client=web"
}

// Authenticate exchanges the persisted refresh token for a new token pair
// and returns a client carrying the new access token.
//
// Every failure wraps ErrUnavailable. A missing refresh token or a 401 from
// the refresh endpoint also wraps ErrSessionInvalid; in that case persisted
// session data has been cleared and the navigator sent to the landing route.
// Other failures leave stored credentials alone.
func (w *Wrapper) Authenticate(ctx context.Context) (*Client, error) {
	refresh, ok, err := w.store.RefreshToken(ctx)
	if err != nil {
		applog.LogError(ctx, w.logger, "Failed to read refresh token", err, applog.OpRefresh, nil)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !ok || refresh == "" {
		w.invalidate(ctx, "missing refresh token")
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, ErrSessionInvalid)
	}

	var resp RefreshResponse
	err = call(ctx, bearerClient(ctx, w.http, refresh), w.logger, w.baseURL, http.MethodGet, refreshPath, nil, nil, &resp)
	if err != nil {
		if IsStatus(err, http.StatusUnauthorized) {
			w.invalidate(ctx, "refresh token rejected")
			return nil, fmt.Errorf("%w: %w: %w", ErrUnavailable, ErrSessionInvalid, err)
		}
		applog.LogError(ctx, w.logger, "Unexpected error during refresh", err, applog.OpRefresh,
			applog.NewFields().WithComponent(applog.ComponentAPI))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if resp.Token == "" || resp.RefreshToken == "" {
		err := errors.New("refresh response missing tokens")
		applog.LogError(ctx, w.logger, "Unexpected refresh response", err, applog.OpRefresh, nil)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if err := w.persist(ctx, resp); err != nil {
		applog.LogError(ctx, w.logger, "Failed to persist refreshed tokens", err, applog.OpRefresh, nil)
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	w.logger.DebugContext(ctx, "Session refreshed", "is_premium", bool(resp.IsPremium))
	return newClient(ctx, w.baseURL, w.http, resp.Token, w.logger), nil
}

// persist stores the rotated pair and premium flag as one write, so a
// failure keeps the previous pair intact.
func (w *Wrapper) persist(ctx context.Context, resp RefreshResponse) error {
	return w.store.SetTokens(ctx, resp.Token, resp.RefreshToken, bool(resp.IsPremium))
}

// invalidate clears the persisted session and returns to the landing route.
func (w *Wrapper) invalidate(ctx context.Context, reason string) {
	w.logger.InfoContext(ctx, "Session invalidated", "reason", reason)
	if err := w.store.DeleteAll(ctx); err != nil {
		applog.LogError(ctx, w.logger, "Failed to clear session", err, applog.OpRefresh, nil)
	}
	if w.nav != nil {
		w.nav.Replace(ctx, LandingPath)
	}
}
