package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kavirubc/cofound/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "nested", "session.json"))
}

func TestStore_NoSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = s.CurrentUser()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.UpdateUser(models.User{FullName: "x"}), ErrNoSession)
	assert.NoError(t, s.Logout())
}

func TestStore_LoginRoundTrip(t *testing.T) {
	s := newTestStore(t)

	user := models.User{ID: "u-42", FullName: "Ada Lovelace", ProfileType: models.ProfileFounder}
	sess, err := s.Login(user, models.AuthTokens{AccessToken: "tok"})
	require.NoError(t, err)
	assert.Equal(t, "u-42", sess.UserID())
	assert.Equal(t, "tok", sess.AccessToken())

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := NewStore(s.Path()).Load()
	require.NoError(t, err)
	assert.Equal(t, user, loaded.User)
	assert.Equal(t, "tok", loaded.Tokens.AccessToken)
}

func TestStore_LoginRequiresID(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Login(models.User{FullName: "nobody"}, models.AuthTokens{})
	assert.Error(t, err)
}

func TestStore_UpdateUserKeepsTokens(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Login(models.User{ID: "u-1", Bio: "old"}, models.AuthTokens{AccessToken: "tok"})
	require.NoError(t, err)

	require.NoError(t, s.UpdateUser(models.User{Bio: "new"}))

	sess, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, "u-1", sess.User.ID)
	assert.Equal(t, "new", sess.User.Bio)
	assert.Equal(t, "tok", sess.Tokens.AccessToken)

	assert.Error(t, s.UpdateUser(models.User{ID: "someone-else"}))
}

func TestStore_Logout(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Login(models.User{ID: "u-1"}, models.AuthTokens{})
	require.NoError(t, err)

	require.NoError(t, s.Logout())
	_, err = s.Load()
	assert.ErrorIs(t, err, ErrNoSession)
	require.NoError(t, s.Logout())
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := NewStore(path).Load()
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
}

func TestSession_NilSafe(t *testing.T) {
	var sess *Session
	assert.Empty(t, sess.UserID())
	assert.Empty(t, sess.AccessToken())
}
