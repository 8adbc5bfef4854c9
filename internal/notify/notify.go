// Package notify delivers short user-facing messages, the terminal
// counterpart of the web client's toasts.
package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	applog "granaflow/internal/log"
)

type Severity string

const (
	Success Severity = "success"
	Info    Severity = "info"
	Warn    Severity = "warn"
	Error   Severity = "error"
)

const (
	DefaultLife = 3 * time.Second
	ErrorLife   = 5 * time.Second
)

// Title is the default heading shown for a severity.
func (s Severity) Title() string {
	switch s {
	case Success:
		return "Sucesso"
	case Warn:
		return "Atenção"
	case Error:
		return "Erro"
	default:
		return "Informação"
	}
}

// Message is one notification.
type Message struct {
	Severity Severity
	Title    string
	Detail   string
	Life     time.Duration
}

// New builds a message with the default title and life for severity.
func New(severity Severity, detail string) Message {
	life := DefaultLife
	if severity == Error {
		life = ErrorLife
	}
	return Message{Severity: severity, Title: severity.Title(), Detail: detail, Life: life}
}

type Notifier interface {
	Notify(ctx context.Context, msg Message)
}

// Func adapts a plain function to Notifier.
type Func func(ctx context.Context, msg Message)

func (f Func) Notify(ctx context.Context, msg Message) { f(ctx, msg) }

// Writer prints messages as single lines.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (n *Writer) Notify(_ context.Context, msg Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "[%s] %s\n", msg.Title, msg.Detail)
}

// Log records messages through a structured logger.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: applog.ForComponent(logger, applog.ComponentNotify)}
}

func (n *Log) Notify(ctx context.Context, msg Message) {
	level := slog.LevelInfo
	switch msg.Severity {
	case Warn:
		level = slog.LevelWarn
	case Error:
		level = slog.LevelError
	}
	n.logger.Log(ctx, level, msg.Detail, "title", msg.Title, "severity", string(msg.Severity))
}

// Multi fans a message out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) {
	for _, n := range m {
		n.Notify(ctx, msg)
	}
}

// Recorder keeps every message it receives.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

func (r *Recorder) Notify(_ context.Context, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, msg)
}

func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.messages...)
}

// Last returns the most recent message, if any.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = nil
}
