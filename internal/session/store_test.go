package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// StoreTestSuite runs the same contract against every backend.
type StoreTestSuite struct {
	suite.Suite
	newBackend func(t *testing.T) Backend
	store      *Store
}

func (s *StoreTestSuite) SetupTest() {
	s.store = NewStore(s.newBackend(s.T()))
}

func (s *StoreTestSuite) TearDownTest() {
	if s.store != nil {
		s.store.Close()
	}
}

func (s *StoreTestSuite) TestAbsentKeysReadAsAbsent() {
	ctx := context.Background()

	token, ok, err := s.store.RefreshToken(ctx)
	s.Require().NoError(err)
	s.False(ok)
	s.Empty(token)

	_, ok, err = s.store.IsPremium(ctx)
	s.Require().NoError(err)
	s.False(ok)

	_, ok, err = s.store.UserProfile(ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreTestSuite) TestTokensRoundTripAndOverwrite() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetRefreshToken(ctx, "abc"))
	s.Require().NoError(s.store.SetAccessToken(ctx, "t1"))
	s.Require().NoError(s.store.SetRefreshToken(ctx, "abc2"))

	refresh, ok, err := s.store.RefreshToken(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("abc2", refresh)

	access, ok, err := s.store.AccessToken(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("t1", access)

	s.Require().NoError(s.store.DeleteAccessToken(ctx))
	_, ok, err = s.store.AccessToken(ctx)
	s.Require().NoError(err)
	s.False(ok)
}

func (s *StoreTestSuite) TestPremiumIsTyped() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetIsPremium(ctx, true))
	premium, ok, err := s.store.IsPremium(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.True(premium)

	s.Require().NoError(s.store.SetIsPremium(ctx, false))
	premium, ok, err = s.store.IsPremium(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.False(premium)
}

func (s *StoreTestSuite) TestUserProfileRequiresAllFields() {
	ctx := context.Background()
	profile := UserProfile{ID: "u1", Email: "a@b.c", Name: "Ana", AvatarURL: "https://img/a.png"}
	s.Require().NoError(s.store.SetUserProfile(ctx, profile))

	got, ok, err := s.store.UserProfile(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(profile, got)

	s.Require().NoError(s.store.DeleteUserID(ctx))
	_, ok, err = s.store.UserProfile(ctx)
	s.Require().NoError(err)
	s.False(ok, "partial profile must read as absent")
}

func (s *StoreTestSuite) TestSetTokensWritesGroup() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetTokens(ctx, "t2", "abc2", true))

	access, ok, err := s.store.AccessToken(ctx)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("t2", access)
	refresh, _, _ := s.store.RefreshToken(ctx)
	s.Equal("abc2", refresh)
	premium, ok, _ := s.store.IsPremium(ctx)
	s.True(ok)
	s.True(premium)

	s.Require().NoError(s.store.SetTokens(ctx, "t3", "abc3", false))
	premium, ok, _ = s.store.IsPremium(ctx)
	s.True(ok)
	s.False(premium)
}

func (s *StoreTestSuite) TestDeleteAllClearsEverything() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetAccessToken(ctx, "t"))
	s.Require().NoError(s.store.SetRefreshToken(ctx, "r"))
	s.Require().NoError(s.store.SetIsPremium(ctx, true))
	s.Require().NoError(s.store.SetUserProfile(ctx, UserProfile{ID: "1", Email: "e", Name: "n", AvatarURL: "a"}))

	s.Require().NoError(s.store.DeleteAll(ctx))

	_, ok, _ := s.store.AccessToken(ctx)
	s.False(ok)
	_, ok, _ = s.store.RefreshToken(ctx)
	s.False(ok)
	_, ok, _ = s.store.IsPremium(ctx)
	s.False(ok)
	_, ok, _ = s.store.UserProfile(ctx)
	s.False(ok)
}

func (s *StoreTestSuite) TestClearTokensKeepsIdentity() {
	ctx := context.Background()
	s.Require().NoError(s.store.SetRefreshToken(ctx, "r"))
	s.Require().NoError(s.store.SetUserID(ctx, "u1"))

	s.Require().NoError(s.store.ClearTokens(ctx))

	_, ok, _ := s.store.RefreshToken(ctx)
	s.False(ok)
	id, ok, _ := s.store.UserID(ctx)
	s.True(ok)
	s.Equal("u1", id)
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{newBackend: func(t *testing.T) Backend {
		return NewMemoryBackend()
	}})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{newBackend: func(t *testing.T) Backend {
		b, err := NewSQLiteBackend(":memory:", nil)
		require.NoError(t, err)
		return b
	}})
}

func TestSQLiteStorePersistsAcrossReopen(t *testing.T) {
	path := t.TempDir() + "/session.db"
	ctx := context.Background()

	b, err := NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	store := NewStore(b)
	require.NoError(t, store.SetRefreshToken(ctx, "persisted"))
	require.NoError(t, store.SetIsPremium(ctx, true))
	require.NoError(t, store.Close())

	b, err = NewSQLiteBackend(path, nil)
	require.NoError(t, err)
	store = NewStore(b)
	defer store.Close()

	token, ok, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "persisted", token)

	premium, ok, err := store.IsPremium(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, premium)
}

func TestKindMismatchReadsAsAbsent(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	require.NoError(t, b.SetString(ctx, KeyIsPremium, "true"))

	_, ok, err := b.Bool(ctx, KeyIsPremium)
	require.NoError(t, err)
	assert.False(t, ok)
}

// failingBackend rejects every batch write that touches failKey.
type failingBackend struct {
	*MemoryBackend
	failKey string
}

func (b *failingBackend) Set(ctx context.Context, entries ...Entry) error {
	for _, e := range entries {
		if e.Key == b.failKey {
			return errors.New("disk full")
		}
	}
	return b.MemoryBackend.Set(ctx, entries...)
}

func TestFailedBatchWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&failingBackend{MemoryBackend: NewMemoryBackend(), failKey: KeyAccessToken})
	require.NoError(t, store.SetRefreshToken(ctx, "abc"))
	require.NoError(t, store.SetAccessToken(ctx, "t1"))

	err := store.SetTokens(ctx, "t2", "abc2", true)

	require.Error(t, err)
	refresh, _, _ := store.RefreshToken(ctx)
	assert.Equal(t, "abc", refresh)
	access, _, _ := store.AccessToken(ctx)
	assert.Equal(t, "t1", access)
	_, ok, _ := store.IsPremium(ctx)
	assert.False(t, ok)
}

func TestFailedProfileWriteWritesNothing(t *testing.T) {
	ctx := context.Background()
	store := NewStore(&failingBackend{MemoryBackend: NewMemoryBackend(), failKey: KeyUserPhoto})

	err := store.SetUserProfile(ctx, UserProfile{ID: "1", Email: "e", Name: "n", AvatarURL: "a"})

	require.Error(t, err)
	_, ok, _ := store.UserID(ctx)
	assert.False(t, ok)
}

func TestSQLiteBatchRollsBack(t *testing.T) {
	ctx := context.Background()
	b, err := NewSQLiteBackend(":memory:", nil)
	require.NoError(t, err)
	defer b.Close()
	require.NoError(t, b.SetString(ctx, KeyRefreshToken, "abc"))

	// The trigger rejects the second entry after the first was written.
	_, err = b.db.ExecContext(ctx, `CREATE TRIGGER reject_photo BEFORE INSERT ON session_entries
		WHEN NEW.key = 'granaFlow.userPhoto' BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	err = b.Set(ctx,
		StringEntry(KeyRefreshToken, "abc2"),
		StringEntry(KeyUserPhoto, "a"),
	)

	require.Error(t, err)
	refresh, ok, err := b.String(ctx, KeyRefreshToken)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "abc", refresh)
}

func TestDecodeWireBool(t *testing.T) {
	assert.True(t, DecodeWireBool("true"))
	assert.False(t, DecodeWireBool("True"))
	assert.False(t, DecodeWireBool("false"))
	assert.False(t, DecodeWireBool("1"))
	assert.False(t, DecodeWireBool(""))
}

func TestMemoryBackendClosed(t *testing.T) {
	b := NewMemoryBackend()
	require.NoError(t, b.Close())
	_, _, err := b.String(context.Background(), KeyUserID)
	assert.ErrorIs(t, err, ErrClosed)
}
