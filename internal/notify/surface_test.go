package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"granaflow/internal/api"
)

func TestSurface(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		sent   bool
		detail string
	}{
		{"nil", nil, false, ""},
		{"unavailable", fmt.Errorf("%w: %w", api.ErrUnavailable, api.ErrSessionInvalid), false, ""},
		{"canceled", context.Canceled, false, ""},
		{"api message", &api.APIError{Status: http.StatusBadRequest, Message: "Saldo insuficiente"}, true, "Saldo insuficiente"},
		{"api without message", &api.APIError{Status: http.StatusInternalServerError}, true, "Erro ao salvar"},
		{"wrapped api", fmt.Errorf("create: %w", &api.APIError{Status: 422, Message: "nome curto"}), true, "nome curto"},
		{"network", errors.New("connection refused"), true, "Erro ao salvar"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rec Recorder
			sent := Surface(context.Background(), &rec, tt.err, "Erro ao salvar")
			assert.Equal(t, tt.sent, sent)
			if !tt.sent {
				assert.Empty(t, rec.Messages())
				return
			}
			last, _ := rec.Last()
			assert.Equal(t, Error, last.Severity)
			assert.Equal(t, tt.detail, last.Detail)
		})
	}
}
