// Package auth tracks whether the user is signed in and drives the login,
// logout and validation flows over the persisted session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"granaflow/internal/api"
	applog "granaflow/internal/log"
	"granaflow/internal/session"
)

const (
	// LogoutPrompt is the confirmation question asked before signing out.
	LogoutPrompt = "Você tem certeza que deseja sair?"
	// SignedInPath is where a validated session lands.
	SignedInPath = "/wallets"
)

var ErrCallbackIncomplete = errors.New("login callback missing refresh token or profile")

type State int

const (
	Unknown State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// AuthenticationState is the observable auth state. A nil Authenticated
// means validation has not completed yet.
type AuthenticationState struct {
	UserID        string
	Authenticated *bool
}

func (s AuthenticationState) State() State {
	switch {
	case s.Authenticated == nil:
		return Unknown
	case *s.Authenticated:
		return Authenticated
	default:
		return Unauthenticated
	}
}

// Authenticator yields an API client for the current session.
type Authenticator interface {
	Authenticate(ctx context.Context) (*api.Client, error)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// BrowserOpener sends the user agent to a URL.
type BrowserOpener interface {
	Open(ctx context.Context, url string) error
}

type Deps struct {
	Store         *session.Store
	Authenticator Authenticator
	Navigator     api.Navigator
	Confirmer     Confirmer
	Browser       BrowserOpener
	LoginURL      string
	Logger        *slog.Logger
}

// Controller owns the authentication state.
type Controller struct {
	store    *session.Store
	auth     Authenticator
	nav      api.Navigator
	confirm  Confirmer
	browser  BrowserOpener
	loginURL string
	logger   *slog.Logger

	mu      sync.Mutex
	state   AuthenticationState
	loading bool
	subs    map[int]func(AuthenticationState)
	nextSub int
}

func NewController(d Deps) *Controller {
	return &Controller{
		store:    d.Store,
		auth:     d.Authenticator,
		nav:      d.Navigator,
		confirm:  d.Confirmer,
		browser:  d.Browser,
		loginURL: d.LoginURL,
		logger:   applog.ForComponent(d.Logger, applog.ComponentAuth),
		subs:     make(map[int]func(AuthenticationState)),
	}
}

func (c *Controller) State() AuthenticationState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Subscribe registers fn to run after every state change. The returned
// function removes it.
func (c *Controller) Subscribe(fn func(AuthenticationState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Login starts the external OAuth flow. The state does not change until the
// callback comes back.
func (c *Controller) Login(ctx context.Context) error {
	c.setLoading(true)
	c.logger.InfoContext(ctx, "Starting login", applog.FieldOperation, applog.OpLogin)
	if c.browser == nil {
		return nil
	}
	if err := c.browser.Open(ctx, c.loginURL); err != nil {
		c.setLoading(false)
		return fmt.Errorf("open login page: %w", err)
	}
	return nil
}

// Logout asks for confirmation and, when given, wipes the session. It
// reports whether the user was signed out.
func (c *Controller) Logout(ctx context.Context) (bool, error) {
	ok, err := c.confirm.Confirm(ctx, LogoutPrompt)
	if err != nil {
		c.logger.WarnContext(ctx, "Logout confirmation failed", applog.FieldError, err.Error())
		return false, nil
	}
	if !ok {
		return false, nil
	}

	if err := c.store.DeleteAll(ctx); err != nil {
		applog.LogError(ctx, c.logger, "Failed to clear session", err, applog.OpLogout, nil)
		return false, fmt.Errorf("clear session: %w", err)
	}
	c.setState(unauthenticated())
	c.logger.InfoContext(ctx, "Signed out", applog.FieldOperation, applog.OpLogout)
	c.navigate(ctx, api.LandingPath)
	return true, nil
}

// ValidateAuth decides the auth state from the persisted session. It never
// fails: anything short of a usable client plus a stored profile means
// Unauthenticated.
func (c *Controller) ValidateAuth(ctx context.Context) State {
	c.setLoading(true)
	defer c.setLoading(false)

	if _, err := c.auth.Authenticate(ctx); err != nil {
		c.logger.DebugContext(ctx, "Session not usable",
			applog.FieldOperation, applog.OpValidate, applog.FieldError, err.Error())
		c.setState(unauthenticated())
		return Unauthenticated
	}

	profile, ok, err := c.store.UserProfile(ctx)
	if err != nil || !ok {
		if err != nil {
			applog.LogError(ctx, c.logger, "Failed to read user profile", err, applog.OpValidate, nil)
		}
		c.setState(unauthenticated())
		return Unauthenticated
	}

	yes := true
	c.setState(AuthenticationState{UserID: profile.ID, Authenticated: &yes})
	c.logger.InfoContext(ctx, "Session validated",
		applog.FieldOperation, applog.OpValidate, applog.FieldUserID, profile.ID)
	c.navigate(ctx, SignedInPath)
	return Authenticated
}

// HandleCallback completes a login from the parameters the backend appends
// to the callback URL, then validates. Only the refresh token and profile are
// taken from the callback; the access token comes from the first refresh.
// Nothing is stored unless the token and all four profile fields are present.
func (c *Controller) HandleCallback(ctx context.Context, values url.Values) (State, error) {
	refresh := values.Get("refresh_token")
	profile := session.UserProfile{
		ID:        values.Get("user_id"),
		Email:     values.Get("email"),
		Name:      values.Get("name"),
		AvatarURL: values.Get("avatar_url"),
	}
	if refresh == "" || !profile.Complete() {
		c.setLoading(false)
		return Unknown, ErrCallbackIncomplete
	}
	if err := c.store.SetLogin(ctx, refresh, profile); err != nil {
		return Unknown, fmt.Errorf("store login: %w", err)
	}
	return c.ValidateAuth(ctx), nil
}

// UserProfile returns the persisted profile, if complete.
func (c *Controller) UserProfile(ctx context.Context) (session.UserProfile, bool, error) {
	return c.store.UserProfile(ctx)
}

func (c *Controller) navigate(ctx context.Context, path string) {
	if c.nav != nil {
		c.nav.Replace(ctx, path)
	}
}

func (c *Controller) setLoading(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loading = v
}

func (c *Controller) setState(s AuthenticationState) {
	c.mu.Lock()
	c.state = s
	subs := make([]func(AuthenticationState), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	for _, fn := range subs {
		fn(s)
	}
}

func unauthenticated() AuthenticationState {
	no := false
	return AuthenticationState{Authenticated: &no}
}
