package api_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"granaflow/internal/api"
	"granaflow/internal/api/apitest"
	applog "granaflow/internal/log"
	"granaflow/internal/session"
)

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Replace(_ context.Context, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) Paths() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

func newWrapper(t *testing.T, backend *apitest.Backend) (*api.Wrapper, *session.Store, *recordingNavigator) {
	t.Helper()
	store := session.NewStore(session.NewMemoryBackend())
	nav := &recordingNavigator{}
	return api.NewWrapper(backend.URL(), nil, store, nav, applog.Discard()), store, nav
}

func seedSession(t *testing.T, store *session.Store, refresh string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SetRefreshToken(ctx, refresh))
	require.NoError(t, store.SetAccessToken(ctx, "stale-access"))
	require.NoError(t, store.SetUserProfile(ctx, session.UserProfile{
		ID: "42", Email: "ana@example.com", Name: "Ana", AvatarURL: "https://img.example.com/ana.png",
	}))
	require.NoError(t, store.SetIsPremium(ctx, false))
}

func TestAuthenticate_MissingRefreshToken(t *testing.T) {
	backend := apitest.NewBackend(t)
	w, store, nav := newWrapper(t, backend)
	ctx := context.Background()
	require.NoError(t, store.SetAccessToken(ctx, "orphan"))
	require.NoError(t, store.SetUserID(ctx, "42"))

	client, err := w.Authenticate(ctx)

	assert.Nil(t, client)
	assert.ErrorIs(t, err, api.ErrUnavailable)
	assert.ErrorIs(t, err, api.ErrSessionInvalid)
	assert.Equal(t, []string{api.LandingPath}, nav.Paths())
	assert.Zero(t, backend.Count(http.MethodGet, "/refresh/"), "no network call without a refresh token")

	_, ok, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.UserID(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingBackend rejects every batch write that touches failKey.
type failingBackend struct {
	*session.MemoryBackend
	failKey string
}

func (b *failingBackend) Set(ctx context.Context, entries ...session.Entry) error {
	for _, e := range entries {
		if e.Key == b.failKey {
			return errors.New("disk full")
		}
	}
	return b.MemoryBackend.Set(ctx, entries...)
}

func TestAuthenticate_FailedPersistKeepsPreviousPair(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Grant("abc", apitest.Grant{Token: "t2", RefreshToken: "abc2", IsPremium: true})
	store := session.NewStore(&failingBackend{MemoryBackend: session.NewMemoryBackend(), failKey: session.KeyAccessToken})
	w := api.NewWrapper(backend.URL(), nil, store, &recordingNavigator{}, applog.Discard())
	ctx := context.Background()
	require.NoError(t, store.SetRefreshToken(ctx, "abc"))
	require.NoError(t, store.SetAccessToken(ctx, "t1"))

	client, err := w.Authenticate(ctx)

	assert.Nil(t, client)
	assert.ErrorIs(t, err, api.ErrUnavailable)
	refresh, _, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", refresh)
	access, _, err := store.AccessToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "t1", access)
	_, ok, err := store.IsPremium(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_RotatesTokens(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Grant("abc", apitest.Grant{Token: "t2", RefreshToken: "abc2", IsPremium: true})
	w, store, nav := newWrapper(t, backend)
	ctx := context.Background()
	seedSession(t, store, "abc")

	client, err := w.Authenticate(ctx)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "t2", client.BearerToken())
	assert.Empty(t, nav.Paths())

	access, ok, err := store.AccessToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "t2", access)

	refresh, ok, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc2", refresh)

	premium, ok, err := store.IsPremium(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, premium)

	_, err = client.ListWallets(ctx)
	require.NoError(t, err)

	reqs := backend.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/refresh/", reqs[0].Path)
	assert.Equal(t, "abc", reqs[0].Bearer)
	assert.Equal(t, "/api/wallet", reqs[1].Path)
	assert.Equal(t, "t2", reqs[1].Bearer)
}

func TestAuthenticate_EveryCallExchanges(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Issue("r0")
	w, store, _ := newWrapper(t, backend)
	ctx := context.Background()
	seedSession(t, store, "r0")

	first, err := w.Authenticate(ctx)
	require.NoError(t, err)
	second, err := w.Authenticate(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, first.BearerToken(), second.BearerToken())
	assert.Equal(t, 2, backend.Count(http.MethodGet, "/refresh/"))
}

func TestAuthenticate_RejectedRefreshToken(t *testing.T) {
	backend := apitest.NewBackend(t)
	w, store, nav := newWrapper(t, backend)
	ctx := context.Background()
	seedSession(t, store, "revoked")

	client, err := w.Authenticate(ctx)

	assert.Nil(t, client)
	assert.ErrorIs(t, err, api.ErrUnavailable)
	assert.ErrorIs(t, err, api.ErrSessionInvalid)
	assert.True(t, api.IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, []string{api.LandingPath}, nav.Paths())

	_, ok, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.UserProfile(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = store.IsPremium(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAuthenticate_ServerErrorKeepsCredentials(t *testing.T) {
	backend := apitest.NewBackend(t)
	backend.Issue("abc")
	backend.Fail(http.MethodGet, "/refresh/", http.StatusInternalServerError, "boom")
	w, store, nav := newWrapper(t, backend)
	ctx := context.Background()
	seedSession(t, store, "abc")

	client, err := w.Authenticate(ctx)

	assert.Nil(t, client)
	assert.ErrorIs(t, err, api.ErrUnavailable)
	assert.NotErrorIs(t, err, api.ErrSessionInvalid)
	assert.Empty(t, nav.Paths())

	refresh, ok, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "abc", refresh)
	_, ok, err = store.UserProfile(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthenticate_UnreachableBackend(t *testing.T) {
	backend := apitest.NewBackend(t)
	url := backend.URL()
	backend.Server.Close()

	store := session.NewStore(session.NewMemoryBackend())
	nav := &recordingNavigator{}
	w := api.NewWrapper(url, nil, store, nav, applog.Discard())
	ctx := context.Background()
	seedSession(t, store, "abc")

	_, err := w.Authenticate(ctx)

	assert.ErrorIs(t, err, api.ErrUnavailable)
	assert.NotErrorIs(t, err, api.ErrSessionInvalid)
	refresh, ok, _ := store.RefreshToken(ctx)
	assert.True(t, ok)
	assert.Equal(t, "abc", refresh)
}

func TestLoginURL(t *testing.T) {
	assert.Equal(t, "https://api.example.com/auth/google?client=web", api.LoginURL("https://api.example.com/"))
	assert.Equal(t, "http://localhost:4000/auth/google?client=web", api.LoginURL("http://localhost:4000"))
}
