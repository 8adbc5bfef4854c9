package session

import (
	"context"
	"fmt"
)

// Storage keys. The granaFlow prefix namespaces them inside a shared database.
const (
	KeyUserID       = "granaFlow.userId"
	KeyUserEmail    = "granaFlow.userEmail"
	KeyUserName     = "granaFlow.userName"
	KeyUserPhoto    = "granaFlow.userPhoto"
	KeyAccessToken  = "granaFlow.jwt"
	KeyRefreshToken = "granaFlow.refresh.jwt"
	KeyIsPremium    = "granaFlow.isPremium"
)

var (
	tokenKeys   = []string{KeyAccessToken, KeyRefreshToken}
	profileKeys = []string{KeyUserID, KeyUserEmail, KeyUserName, KeyUserPhoto}
)

// UserProfile identifies the signed-in user.
type UserProfile struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// Complete reports whether every identity field is set.
func (p UserProfile) Complete() bool {
	return p.ID != "" && p.Email != "" && p.Name != "" && p.AvatarURL != ""
}

// Store exposes each persisted session field by name. Values are stored
// verbatim; nothing here validates their shape.
type Store struct {
	backend Backend
}

func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

func (s *Store) AccessToken(ctx context.Context) (string, bool, error) {
	return s.backend.String(ctx, KeyAccessToken)
}

func (s *Store) SetAccessToken(ctx context.Context, token string) error {
	return s.backend.SetString(ctx, KeyAccessToken, token)
}

func (s *Store) DeleteAccessToken(ctx context.Context) error {
	return s.backend.Delete(ctx, KeyAccessToken)
}

func (s *Store) RefreshToken(ctx context.Context) (string, bool, error) {
	return s.backend.String(ctx, KeyRefreshToken)
}

func (s *Store) SetRefreshToken(ctx context.Context, token string) error {
	return s.backend.SetString(ctx, KeyRefreshToken, token)
}

func (s *Store) DeleteRefreshToken(ctx context.Context) error {
	return s.backend.Delete(ctx, KeyRefreshToken)
}

func (s *Store) UserID(ctx context.Context) (string, bool, error) {
	return s.backend.String(ctx, KeyUserID)
}

func (s *Store) SetUserID(ctx context.Context, id string) error {
	return s.backend.SetString(ctx, KeyUserID, id)
}

func (s *Store) DeleteUserID(ctx context.Context) error {
	return s.backend.Delete(ctx, KeyUserID)
}

// IsPremium reports the persisted premium flag. ok is false when the flag
// was never written or has been cleared.
func (s *Store) IsPremium(ctx context.Context) (premium bool, ok bool, err error) {
	return s.backend.Bool(ctx, KeyIsPremium)
}

func (s *Store) SetIsPremium(ctx context.Context, premium bool) error {
	return s.backend.SetBool(ctx, KeyIsPremium, premium)
}

func (s *Store) DeleteIsPremium(ctx context.Context) error {
	return s.backend.Delete(ctx, KeyIsPremium)
}

// SetTokens stores a rotated token pair together with the premium flag
// that came with it, in one atomic write.
func (s *Store) SetTokens(ctx context.Context, access, refresh string, premium bool) error {
	err := s.backend.Set(ctx,
		StringEntry(KeyAccessToken, access),
		StringEntry(KeyRefreshToken, refresh),
		BoolEntry(KeyIsPremium, premium),
	)
	if err != nil {
		return fmt.Errorf("set tokens: %w", err)
	}
	return nil
}

// SetUserProfile writes all four identity fields in one atomic write.
func (s *Store) SetUserProfile(ctx context.Context, p UserProfile) error {
	err := s.backend.Set(ctx,
		StringEntry(KeyUserID, p.ID),
		StringEntry(KeyUserEmail, p.Email),
		StringEntry(KeyUserName, p.Name),
		StringEntry(KeyUserPhoto, p.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("set user profile: %w", err)
	}
	return nil
}

// SetLogin stores the refresh token and profile delivered by a login in one
// atomic write.
func (s *Store) SetLogin(ctx context.Context, refresh string, p UserProfile) error {
	err := s.backend.Set(ctx,
		StringEntry(KeyRefreshToken, refresh),
		StringEntry(KeyUserID, p.ID),
		StringEntry(KeyUserEmail, p.Email),
		StringEntry(KeyUserName, p.Name),
		StringEntry(KeyUserPhoto, p.AvatarURL),
	)
	if err != nil {
		return fmt.Errorf("set login: %w", err)
	}
	return nil
}

// UserProfile returns the stored profile. A profile with any field missing
// or empty counts as absent.
func (s *Store) UserProfile(ctx context.Context) (UserProfile, bool, error) {
	values := make([]string, len(profileKeys))
	for i, key := range profileKeys {
		v, ok, err := s.backend.String(ctx, key)
		if err != nil {
			return UserProfile{}, false, fmt.Errorf("get user profile: %w", err)
		}
		if !ok || v == "" {
			return UserProfile{}, false, nil
		}
		values[i] = v
	}
	return UserProfile{
		ID:        values[0],
		Email:     values[1],
		Name:      values[2],
		AvatarURL: values[3],
	}, true, nil
}

// ClearTokens removes the access and refresh tokens.
func (s *Store) ClearTokens(ctx context.Context) error {
	return s.backend.Delete(ctx, tokenKeys...)
}

// DeleteAll removes tokens, identity and the premium flag in one step.
func (s *Store) DeleteAll(ctx context.Context) error {
	keys := make([]string, 0, len(tokenKeys)+len(profileKeys)+1)
	keys = append(keys, tokenKeys...)
	keys = append(keys, profileKeys...)
	keys = append(keys, KeyIsPremium)
	return s.backend.Delete(ctx, keys...)
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// DecodeWireBool decodes the string form of a boolean used on the wire.
// Only the exact literal "true" is true.
func DecodeWireBool(s string) bool {
	return s == "true"
}
