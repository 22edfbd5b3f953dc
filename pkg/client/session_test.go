package client

import (
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSession_RestoresFromStore(t *testing.T) {
	t.Parallel()

	store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
	require.NoError(t, store.Save(&Credentials{Server: "http://x", Token: "tok"}))

	s, err := NewSession(store)
	require.NoError(t, err)
	assert.True(t, s.HasCredential())
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, "http://x", s.Credentials().Server)
}

func TestSession_StartAndEnd(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	s, err := NewSession(store)
	require.NoError(t, err)
	assert.False(t, s.HasCredential())
	assert.Empty(t, s.Token())
	assert.Nil(t, s.Credentials())

	require.Error(t, s.Start(nil))
	require.Error(t, s.Start(&Credentials{}))

	require.NoError(t, s.Start(&Credentials{Token: "tok", Admin: Profile{Email: "alice@x.com"}}))
	assert.True(t, s.HasCredential())

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", saved.Token)

	creds := s.Credentials()
	creds.Token = "changed"
	assert.Equal(t, "tok", s.Token())

	require.NoError(t, s.End())
	assert.False(t, s.HasCredential())
	saved, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestGuards(t *testing.T) {
	t.Parallel()

	errRedirect := errors.New("redirected")
	redirect := func() error { return errRedirect }
	next := func() error { return nil }
	yes := func() bool { return true }
	no := func() bool { return false }

	assert.NoError(t, RequireCredential(yes, redirect, next))
	assert.Equal(t, errRedirect, RequireCredential(no, redirect, next))

	assert.NoError(t, RedirectIfAuthenticated(no, redirect, next))
	assert.Equal(t, errRedirect, RedirectIfAuthenticated(yes, redirect, next))
}
