package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	applog "granaflow/internal/log"
)

const maxErrorBody = 64 << 10

// bearerClient wraps base so that every request carries token as its bearer
// credential. The timeout of base is kept.
func bearerClient(ctx context.Context, base *http.Client, token string) *http.Client {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, base)
	hc := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	hc.Timeout = base.Timeout
	return hc
}

// call performs one JSON request against baseURL+path. body, when non-nil,
// is sent as JSON; out, when non-nil, receives the decoded response.
func call(ctx context.Context, hc *http.Client, logger *slog.Logger, baseURL, method, path string, query url.Values, body, out any) error {
	endpoint := strings.TrimRight(baseURL, "/") + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	requestID := uuid.NewString()
	ctx = applog.WithRequestID(ctx, requestID)

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	fields := applog.NewFields().
		WithRequestID(requestID).
		WithHTTPCall(method, path, query.Encode())
	if err != nil {
		logger.WarnContext(ctx, "API call failed", fields.WithError(err).ToSlice()...)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	fields = fields.WithHTTPResult(resp.StatusCode, time.Since(start).Milliseconds())
	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode, Method: method, Path: path}
		var e errorResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&e); err == nil {
			apiErr.Message = e.Message
		}
		logger.WarnContext(ctx, "API call rejected", fields.WithError(apiErr).ToSlice()...)
		return apiErr
	}
	logger.DebugContext(ctx, "API call completed", fields.ToSlice()...)

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
