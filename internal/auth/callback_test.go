package auth

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	applog "granaflow/internal/log"
)

func (s *ControllerTestSuite) TestCallbackServer() {
	s.backend.Issue("cb-refresh")
	srv, err := NewCallbackServer("127.0.0.1:0", s.ctrl, applog.Discard())
	s.Require().NoError(err)

	q := url.Values{
		"refresh_token": {"cb-refresh"},
		"user_id":       {testProfile.ID},
		"email":         {testProfile.Email},
		"name":          {testProfile.Name},
		"avatar_url":    {testProfile.AvatarURL},
	}
	resp, err := http.Get(srv.URL() + "?" + q.Encode())
	s.Require().NoError(err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(string(body), "Login concluído")
	s.Equal("no-referrer", resp.Header.Get("Referrer-Policy"))
	s.Equal("no-store", resp.Header.Get("Cache-Control"))
	s.NotEmpty(resp.Header.Get("X-Request-ID"))

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	state, err := srv.Wait(ctx)
	s.Require().NoError(err)
	s.Equal(Authenticated, state)
}

func (s *ControllerTestSuite) TestCallbackServerProviderError() {
	srv, err := NewCallbackServer("127.0.0.1:0", s.ctrl, applog.Discard())
	s.Require().NoError(err)

	resp, err := http.Get(srv.URL() + "?error=access_denied")
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()
	state, err := srv.Wait(ctx)
	s.Error(err)
	s.Equal(Unauthenticated, state)
}

func (s *ControllerTestSuite) TestCallbackServerTimeout() {
	srv, err := NewCallbackServer("127.0.0.1:0", s.ctrl, applog.Discard())
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	_, err = srv.Wait(ctx)
	s.ErrorIs(err, context.Canceled)
}
