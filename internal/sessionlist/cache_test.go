package sessionlist

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bezalel6/volumectl/internal/api"
	"github.com/bezalel6/volumectl/internal/apierr"
	"github.com/bezalel6/volumectl/internal/bus"
	"github.com/bezalel6/volumectl/internal/session"
)

type mockAPI struct {
	mu           sync.Mutex
	sessionsFunc func(ctx context.Context) ([]api.Session, error)
	revokeFunc   func(ctx context.Context, id string) error
	logoutFunc   func(ctx context.Context) error

	sessionsCalls int
	revokeCalls   int
	logoutCalls   int
}

func (m *mockAPI) Sessions(ctx context.Context) ([]api.Session, error) {
	m.mu.Lock()
	m.sessionsCalls++
	fn := m.sessionsFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return []api.Session{
		{ID: "s-current", DeviceName: "this device", Current: true},
		{ID: "s-other", DeviceName: "other device"},
	}, nil
}

func (m *mockAPI) RevokeSession(ctx context.Context, id string) error {
	m.mu.Lock()
	m.revokeCalls++
	fn := m.revokeFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, id)
	}
	return nil
}

func (m *mockAPI) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.logoutCalls++
	fn := m.logoutFunc
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return nil
}

func (m *mockAPI) calls() (sessions, revokes, logouts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionsCalls, m.revokeCalls, m.logoutCalls
}

func newCache(t *testing.T, interval time.Duration) (*Cache, *mockAPI, *session.MemoryStore, *bus.Bus) {
	t.Helper()
	client := &mockAPI{}
	store := session.NewMemoryStore("")
	signals := bus.New()
	cache := New(client, store, signals, interval)
	t.Cleanup(cache.Stop)
	return cache, client, store, signals
}

func TestRefresh(t *testing.T) {
	t.Run("populates the cached list", func(t *testing.T) {
		cache, _, _, _ := newCache(t, time.Hour)

		require.NoError(t, cache.Refresh(context.Background()))

		sessions, fresh := cache.Sessions()
		assert.True(t, fresh)
		require.Len(t, sessions, 2)

		current, ok := cache.Current()
		require.True(t, ok)
		assert.Equal(t, "s-current", current.ID)
	})

	t.Run("failed refresh keeps the previous list", func(t *testing.T) {
		cache, client, _, _ := newCache(t, time.Hour)
		require.NoError(t, cache.Refresh(context.Background()))

		client.mu.Lock()
		client.sessionsFunc = func(ctx context.Context) ([]api.Session, error) {
			return nil, apierr.New(apierr.KindNetworkUnreachable, "down")
		}
		client.mu.Unlock()

		require.Error(t, cache.Refresh(context.Background()))
		sessions, fresh := cache.Sessions()
		assert.True(t, fresh)
		assert.Len(t, sessions, 2)
	})
}

func TestIntervalRefresh(t *testing.T) {
	t.Run("refreshes only while authenticated", func(t *testing.T) {
		cache, client, store, _ := newCache(t, 5*time.Millisecond)

		cache.Start(context.Background())
		time.Sleep(25 * time.Millisecond)

		calls, _, _ := client.calls()
		assert.Equal(t, 0, calls, "unauthenticated client must not poll")

		require.NoError(t, store.SetAuth("tok", session.Meta{SessionID: "s-current"}))
		assert.Eventually(t, func() bool {
			calls, _, _ := client.calls()
			return calls > 0
		}, time.Second, time.Millisecond)
	})
}

func TestSignals(t *testing.T) {
	t.Run("pairing success triggers an immediate refresh", func(t *testing.T) {
		cache, client, _, signals := newCache(t, time.Hour)
		cache.Start(context.Background())

		signals.Publish(bus.TopicPairingSuccess)

		calls, _, _ := client.calls()
		assert.Equal(t, 1, calls)
		_, fresh := cache.Sessions()
		assert.True(t, fresh)
	})

	t.Run("auth error drops the cached list", func(t *testing.T) {
		cache, _, _, signals := newCache(t, time.Hour)
		cache.Start(context.Background())
		require.NoError(t, cache.Refresh(context.Background()))

		signals.Publish(bus.TopicAuthError)

		sessions, fresh := cache.Sessions()
		assert.False(t, fresh)
		assert.Empty(t, sessions)
	})
}

func TestRevoke(t *testing.T) {
	t.Run("revoking the current session is rejected locally", func(t *testing.T) {
		cache, client, _, _ := newCache(t, time.Hour)
		require.NoError(t, cache.Refresh(context.Background()))

		err := cache.Revoke(context.Background(), "s-current")
		assert.ErrorIs(t, err, ErrRevokeCurrent)

		_, revokes, _ := client.calls()
		assert.Equal(t, 0, revokes, "no network call for a local rejection")
	})

	t.Run("revoking another session refreshes exactly once", func(t *testing.T) {
		cache, client, _, _ := newCache(t, time.Hour)
		require.NoError(t, cache.Refresh(context.Background()))

		before, _, _ := client.calls()
		require.NoError(t, cache.Revoke(context.Background(), "s-other"))

		after, revokes, _ := client.calls()
		assert.Equal(t, 1, revokes)
		assert.Equal(t, before+1, after)
	})

	t.Run("failed revoke does not refresh", func(t *testing.T) {
		cache, client, _, _ := newCache(t, time.Hour)
		require.NoError(t, cache.Refresh(context.Background()))

		client.mu.Lock()
		client.revokeFunc = func(ctx context.Context, id string) error {
			return apierr.New(apierr.KindGeneric, "revoke failed")
		}
		client.mu.Unlock()

		before, _, _ := client.calls()
		require.Error(t, cache.Revoke(context.Background(), "s-other"))
		after, _, _ := client.calls()
		assert.Equal(t, before, after)
	})
}

func TestLogout(t *testing.T) {
	t.Run("clears local state after confirmed server revoke", func(t *testing.T) {
		cache, client, store, _ := newCache(t, time.Hour)
		require.NoError(t, store.SetAuth("tok", session.Meta{SessionID: "s-current"}))
		require.NoError(t, cache.Refresh(context.Background()))

		require.NoError(t, cache.Logout(context.Background()))

		_, _, logouts := client.calls()
		assert.Equal(t, 1, logouts)
		_, hasToken := store.Token()
		assert.False(t, hasToken)
		_, fresh := cache.Sessions()
		assert.False(t, fresh)
	})

	t.Run("does not clear local state when the server call fails", func(t *testing.T) {
		cache, client, store, _ := newCache(t, time.Hour)
		require.NoError(t, store.SetAuth("tok", session.Meta{SessionID: "s-current"}))

		client.mu.Lock()
		client.logoutFunc = func(ctx context.Context) error {
			return apierr.New(apierr.KindNetworkUnreachable, "down")
		}
		client.mu.Unlock()

		err := cache.Logout(context.Background())
		require.Error(t, err)
		assert.Equal(t, apierr.KindNetworkUnreachable, apierr.KindOf(err))

		token, hasToken := store.Token()
		assert.True(t, hasToken, "a failed logout must leave the token for retry")
		assert.Equal(t, "tok", token)
	})
}
