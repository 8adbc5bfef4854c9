// Package cli provides common CLI initialization utilities shared by the
// granaflow commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"granaflow/internal/auth"
	"granaflow/internal/backend"
	"granaflow/internal/config"
	applog "granaflow/internal/log"
	"granaflow/internal/notify"
	"granaflow/internal/services"
)

// SetupLogger initializes structured logging at the given level, writing
// to w (stderr when nil). Returns the configured logger and sets it as the
// default logger.
func SetupLogger(w io.Writer, level string) *slog.Logger {
	cfg := applog.DefaultConfig()
	if w != nil {
		cfg.Output = w
	}
	cfg.Level = applog.ParseLevel(level)
	logger := applog.New(cfg)
	slog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SessionOptions carries the terminal-facing collaborators of a session.
type SessionOptions struct {
	// Ephemeral keeps the session in memory only.
	Ephemeral bool
	// Events connects to the broker when one is configured.
	Events    bool
	Confirmer auth.Confirmer
	Browser   auth.BrowserOpener
	Notifier  notify.Notifier
}

// OpenSession builds a client session from cfg. The caller owns the result
// and must call Teardown.
func OpenSession(ctx context.Context, cfg *config.Config, opts SessionOptions, logger *slog.Logger) (*services.Session, error) {
	bcfg, err := backend.FromAppConfig(cfg, opts.Ephemeral)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}

	sess := services.Options{
		APIURL:         cfg.APIURL,
		HTTPClient:     &http.Client{Timeout: cfg.HTTPTimeout},
		Backend:        res.Session,
		ReportCacheTTL: cfg.ReportCacheTTL,
		Confirmer:      opts.Confirmer,
		Browser:        opts.Browser,
		Notifier:       opts.Notifier,
		Logger:         logger,
	}
	if opts.Events && cfg.EventsEnabled() {
		events, err := factory.CreateEvents(ctx, bcfg)
		if err != nil {
			_ = res.Cleanup()
			return nil, fmt.Errorf("create event client: %w", err)
		}
		sess.Events = events
	}
	return services.NewSession(sess), nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM. cleanup,
// when set, runs once after the signal and before the context is cancelled.
func SignalContext(parent context.Context, logger *slog.Logger, cleanup func()) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			if cleanup != nil {
				cleanup()
			}
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
