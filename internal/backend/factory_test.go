package backend

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"granaflow/internal/config"
	applog "granaflow/internal/log"
	"granaflow/internal/session"
	"granaflow/internal/sheets/memory"
)

func TestFromAppConfig(t *testing.T) {
	app := &config.Config{SessionBackend: "sqlite", DBPath: "/tmp/x.db", AMQPURL: "amqp://h", AMQPExchange: "ex"}

	cfg, err := FromAppConfig(app, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "/tmp/x.db" || cfg.AMQPExchange != "ex" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	cfg, err = FromAppConfig(app, true)
	if err != nil || cfg.Type != MemoryBackend {
		t.Errorf("ephemeral should force memory, got %v err=%v", cfg.Type, err)
	}

	if _, err := FromAppConfig(&config.Config{SessionBackend: "redis"}, false); err == nil {
		t.Error("expected error for invalid backend")
	}
	if _, err := FromAppConfig(nil, false); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestCreateBackend(t *testing.T) {
	f := NewFactory(applog.Discard())
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := res.Session.(*session.MemoryBackend); !ok {
			t.Errorf("expected memory backend, got %T", res.Session)
		}
		if err := res.Cleanup(); err != nil {
			t.Errorf("cleanup: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "session.db")
		res, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer res.Cleanup()

		store := session.NewStore(res.Session)
		if err := store.SetRefreshToken(ctx, "abc"); err != nil {
			t.Fatalf("set: %v", err)
		}
		if got, ok, _ := store.RefreshToken(ctx); !ok || got != "abc" {
			t.Errorf("refresh token = %q, %v", got, ok)
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
			t.Error("expected error")
		}
	})
}

func TestCreateEventsDisabled(t *testing.T) {
	client, err := NewFactory(applog.Discard()).CreateEvents(context.Background(), Config{})
	if err != nil || client != nil {
		t.Errorf("expected nil client without AMQP URL, got %v err=%v", client, err)
	}
}

func TestCreateExporter(t *testing.T) {
	f := NewFactory(applog.Discard())

	w, err := f.CreateExporter(context.Background(), Config{}, true)
	if err != nil {
		t.Fatalf("dry run: %v", err)
	}
	if _, ok := w.(*memory.Store); !ok {
		t.Errorf("dry run should use memory writer, got %T", w)
	}

	_, err = f.CreateExporter(context.Background(), Config{}, false)
	if !errors.Is(err, ErrExportNotConfigured) {
		t.Errorf("expected ErrExportNotConfigured, got %v", err)
	}
}
