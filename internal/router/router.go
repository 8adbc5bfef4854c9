// Package router maps application paths to named routes and keeps signed-out
// users away from the routes that need a session.
package router

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"granaflow/internal/auth"
	applog "granaflow/internal/log"
)

type RouteName string

const (
	Home          RouteName = "Home"
	Wallets       RouteName = "Wallets"
	Dashboard     RouteName = "Dashboard"
	OAuthCallback RouteName = "OAuthCallback"
	NotFound      RouteName = "NotFound"
)

const (
	HomePath      = "/"
	WalletsPath   = "/wallets"
	CallbackPath  = auth.CallbackPath
	walletsPrefix = WalletsPath + "/"
)

// Route is a resolved path.
type Route struct {
	Name         RouteName
	Path         string
	RequiresAuth bool
	// WalletID is set for Dashboard routes.
	WalletID int64
}

// Resolve maps a path to its route. Unknown paths resolve to NotFound.
func Resolve(path string) Route {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	switch {
	case path == HomePath || path == "":
		return Route{Name: Home, Path: HomePath}
	case path == WalletsPath:
		return Route{Name: Wallets, Path: path, RequiresAuth: true}
	case path == CallbackPath:
		return Route{Name: OAuthCallback, Path: path}
	case strings.HasPrefix(path, walletsPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(path, walletsPrefix), 10, 64)
		if err != nil || id <= 0 {
			return Route{Name: NotFound, Path: path}
		}
		return Route{Name: Dashboard, Path: path, RequiresAuth: true, WalletID: id}
	default:
		return Route{Name: NotFound, Path: path}
	}
}

// DashboardPath is the route of one wallet's dashboard.
func DashboardPath(walletID int64) string {
	return walletsPrefix + strconv.FormatInt(walletID, 10)
}

// Guard decides where a navigation to `to` ends up. The callback route is
// always allowed so an in-progress login can finish.
func Guard(to Route, state auth.AuthenticationState) string {
	if to.Name != OAuthCallback && to.RequiresAuth && state.State() != auth.Authenticated {
		return HomePath
	}
	return to.Path
}

// Router tracks the current route and its history.
type Router struct {
	state  func() auth.AuthenticationState
	logger *slog.Logger

	mu      sync.Mutex
	current Route
	history []string
	subs    map[int]func(Route)
	nextSub int
}

// New builds a router starting at Home. Until SetStateSource is called the
// guard treats the user as signed out.
func New(logger *slog.Logger) *Router {
	return &Router{
		logger:  applog.ForComponent(logger, applog.ComponentRouter),
		current: Resolve(HomePath),
		history: []string{HomePath},
		subs:    make(map[int]func(Route)),
	}
}

// SetStateSource wires the auth state the guard checks.
func (r *Router) SetStateSource(state func() auth.AuthenticationState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = state
}

// Navigate pushes path onto the history after guarding it, and returns the
// route actually reached.
func (r *Router) Navigate(ctx context.Context, path string) Route {
	return r.navigate(ctx, path, false)
}

// Replace swaps the current history entry for path.
func (r *Router) Replace(ctx context.Context, path string) {
	r.navigate(ctx, path, true)
}

// Back pops one history entry. At the first entry it stays put.
func (r *Router) Back(ctx context.Context) Route {
	r.mu.Lock()
	if len(r.history) > 1 {
		r.history = r.history[:len(r.history)-1]
	}
	path := r.history[len(r.history)-1]
	r.mu.Unlock()
	return r.navigate(ctx, path, true)
}

func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Router) History() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.history...)
}

// Subscribe registers fn to run after each navigation.
func (r *Router) Subscribe(fn func(Route)) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.subs, id)
	}
}

func (r *Router) navigate(ctx context.Context, path string, replace bool) Route {
	r.mu.Lock()
	stateFn := r.state
	r.mu.Unlock()

	var state auth.AuthenticationState
	if stateFn != nil {
		state = stateFn()
	}

	to := Resolve(path)
	target := Guard(to, state)
	if target != to.Path {
		r.logger.DebugContext(ctx, "Navigation redirected", "from", to.Path, "to", target)
		to = Resolve(target)
	}

	r.mu.Lock()
	r.current = to
	if replace && len(r.history) > 0 {
		r.history[len(r.history)-1] = to.Path
	} else {
		r.history = append(r.history, to.Path)
	}
	subs := make([]func(Route), 0, len(r.subs))
	for _, fn := range r.subs {
		subs = append(subs, fn)
	}
	r.mu.Unlock()

	for _, fn := range subs {
		fn(to)
	}
	return to
}
