package credential

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_TokenMissingWhenFileAbsent(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "storage.json"))

	_, err := s.Token()
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestStore_SetAndToken(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "storage.json")
	s := NewStore(path)

	require.NoError(t, s.Set(TokenKey, "abc.def.ghi"))
	require.NoError(t, s.Set("theme", "dark"))

	tok, err := s.Token()
	require.NoError(t, err)
	require.Equal(t, "abc.def.ghi", tok.AccessToken)
	require.Equal(t, "Bearer", tok.Type())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	// A second store on the same file sees the login.
	other := NewStore(path)
	theme, err := other.Get("theme")
	require.NoError(t, err)
	require.Equal(t, "dark", theme)
}

func TestStore_RemoveToken(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "storage.json"))
	require.NoError(t, s.Set(TokenKey, "abc"))
	require.NoError(t, s.Remove(TokenKey))

	_, err := s.Token()
	require.ErrorIs(t, err, ErrMissingCredential)
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewStore(path).Token()
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrMissingCredential))
}

func TestAccessToken(t *testing.T) {
	jwt, err := AccessToken(Static("  tok  "))
	require.NoError(t, err)
	require.Equal(t, "tok", jwt)

	_, err = AccessToken(Static(""))
	require.ErrorIs(t, err, ErrMissingCredential)

	_, err = AccessToken(nil)
	require.ErrorIs(t, err, ErrMissingCredential)
}
