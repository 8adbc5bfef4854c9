package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	applog "granaflow/internal/log"
	"granaflow/internal/middleware/security"
	"granaflow/internal/middleware/trace"
)

// CallbackPath is the route the backend redirects to after the OAuth dance.
const CallbackPath = "/auth/callback"

type callbackResult struct {
	state State
	err   error
}

// CallbackServer is a short-lived local listener that receives the login
// callback for terminal sessions.
type CallbackServer struct {
	ctrl     *Controller
	logger   *slog.Logger
	srv      *http.Server
	listener net.Listener
	results  chan callbackResult
}

// NewCallbackServer binds addr (host:port; port 0 picks a free one).
func NewCallbackServer(addr string, ctrl *Controller, logger *slog.Logger) (*CallbackServer, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for login callback: %w", err)
	}

	s := &CallbackServer{
		ctrl:     ctrl,
		logger:   applog.ForComponent(logger, applog.ComponentCallback),
		listener: ln,
		results:  make(chan callbackResult, 1),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+CallbackPath, s.handleCallback)
	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	handler = trace.NewMiddleware(s.logger).Middleware(handler)
	s.srv = &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Callback server stopped", applog.FieldError, err.Error())
		}
	}()
	return s, nil
}

// URL is the callback address to register with the backend.
func (s *CallbackServer) URL() string {
	return "http://" + s.listener.Addr().String() + CallbackPath
}

// Wait blocks until one callback has been handled or ctx ends, then shuts
// the listener down.
func (s *CallbackServer) Wait(ctx context.Context) (State, error) {
	defer s.Close()
	select {
	case r := <-s.results:
		return r.state, r.err
	case <-ctx.Done():
		return Unknown, ctx.Err()
	}
}

func (s *CallbackServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}

func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if msg := q.Get("error"); msg != "" {
		http.Error(w, "Falha no login: "+msg, http.StatusBadRequest)
		s.deliver(callbackResult{state: Unauthenticated, err: fmt.Errorf("login failed: %s", msg)})
		return
	}

	state, err := s.ctrl.HandleCallback(r.Context(), q)
	if err != nil {
		s.logger.WarnContext(r.Context(), "Login callback rejected", applog.FieldError, err.Error())
		http.Error(w, "Falha no login.", http.StatusBadRequest)
		s.deliver(callbackResult{state: state, err: err})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if state == Authenticated {
		fmt.Fprintln(w, "Login concluído. Você pode fechar esta janela e voltar ao terminal.")
	} else {
		fmt.Fprintln(w, "Não foi possível validar a sessão. Volte ao terminal.")
	}
	s.deliver(callbackResult{state: state})
}

func (s *CallbackServer) deliver(r callbackResult) {
	select {
	case s.results <- r:
	default:
	}
}
