package notify

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	applog "granaflow/internal/log"
)

func TestNewDefaults(t *testing.T) {
	tests := []struct {
		severity Severity
		title    string
		life     time.Duration
	}{
		{Success, "Sucesso", DefaultLife},
		{Info, "Informação", DefaultLife},
		{Warn, "Atenção", DefaultLife},
		{Error, "Erro", ErrorLife},
	}
	for _, tt := range tests {
		t.Run(string(tt.severity), func(t *testing.T) {
			msg := New(tt.severity, "detalhe")
			assert.Equal(t, tt.title, msg.Title)
			assert.Equal(t, tt.life, msg.Life)
			assert.Equal(t, "detalhe", msg.Detail)
		})
	}
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	NewWriter(&buf).Notify(context.Background(), New(Error, "Falha ao carregar carteiras"))
	assert.Equal(t, "[Erro] Falha ao carregar carteiras\n", buf.String())
}

func TestLog(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: &buf})

	NewLog(logger).Notify(context.Background(), New(Warn, "sem conexão"))

	out := buf.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, `msg="sem conexão"`)
	assert.Contains(t, out, "component=notify")
}

func TestMultiAndRecorder(t *testing.T) {
	var a, b Recorder
	var calls int
	m := Multi{&a, &b, Func(func(context.Context, Message) { calls++ })}

	_, ok := a.Last()
	assert.False(t, ok)

	m.Notify(context.Background(), New(Success, "ok"))

	require.Len(t, a.Messages(), 1)
	require.Len(t, b.Messages(), 1)
	assert.Equal(t, 1, calls)
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, "Sucesso", last.Title)

	a.Reset()
	assert.Empty(t, a.Messages())
}
