package http

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"little-stars/internal/authclient"
	"little-stars/internal/domain"
	"little-stars/internal/gate"
	"little-stars/internal/repository/sqlite"
	"little-stars/internal/session"
)

func TestSessionStoreAgainstServer(t *testing.T) {
	srv := newTestServer(t, false)
	ctx := context.Background()

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	persisted := sqlite.NewClientSessionRepository(db)
	require.NoError(t, persisted.Init(ctx))

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	newStore := func() *session.Store {
		return session.NewStore(
			authclient.NewHTTPClient(srv.URL, 5*time.Second),
			session.WithPersister(persisted),
			session.WithLogger(logger),
		)
	}

	store := newStore()
	g := gate.New(store)
	defer g.Close()

	err = store.Login(ctx, "9876543210", "0000")
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	require.Equal(t, gate.TreeAuth, g.Current().Tree)

	require.NoError(t, store.Login(ctx, "9876543210", "1234"))
	require.Equal(t, gate.TreeMain, g.Current().Tree)
	require.Equal(t, "Aarav Patel", g.Current().User.Name)
	token := store.Snapshot().Token

	user, err := srv.auth.Verify(ctx, token)
	require.NoError(t, err)
	require.Equal(t, "STU12345", user.ID)

	// a second install of the client picks the session up from disk
	restarted := newStore()
	ok, err := restarted.Restore(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, token, restarted.Snapshot().Token)

	require.NoError(t, store.Logout(ctx))
	require.Equal(t, gate.TreeAuth, g.Current().Tree)
	require.Nil(t, g.Current().User)
	require.Equal(t, domain.SessionSignedOut, store.Status())

	_, err = srv.auth.Verify(ctx, token)
	require.Error(t, err, "server revoked the token")

	saved, err := persisted.Load(ctx)
	require.NoError(t, err)
	require.Nil(t, saved)
}

func TestLogoutWithServerGone(t *testing.T) {
	srv := newTestServer(t, false)
	ctx := context.Background()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := session.NewStore(authclient.NewHTTPClient(srv.URL, 5*time.Second), session.WithLogger(logger))
	require.NoError(t, store.Login(ctx, "9876543210", "1234"))

	srv.Close()

	require.NoError(t, store.Logout(ctx))
	snap := store.Snapshot()
	require.Equal(t, domain.SessionSignedOut, snap.Status)
	require.Nil(t, snap.User)
	require.Empty(t, snap.Token)
}
