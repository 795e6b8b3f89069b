// Package sessionlist maintains the client's read model of the server's
// active sessions: refreshed on an interval while authenticated, refreshed
// immediately after a pairing, dropped on deauthentication.
package sessionlist

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bezalel6/volumectl/internal/api"
	"github.com/bezalel6/volumectl/internal/bus"
	"github.com/bezalel6/volumectl/internal/session"
)

// ErrRevokeCurrent rejects revocation of the caller's own session; use
// Logout for that.
var ErrRevokeCurrent = errors.New("cannot revoke the current session; use logout")

// API is the slice of the request layer the cache needs.
type API interface {
	Sessions(ctx context.Context) ([]api.Session, error)
	RevokeSession(ctx context.Context, id string) error
	Logout(ctx context.Context) error
}

type Cache struct {
	client   API
	store    session.Store
	signals  *bus.Bus
	interval time.Duration

	mu       sync.Mutex
	sessions []api.Session
	fresh    bool

	done    chan struct{}
	unsubs  []func()
	started bool
}

func New(client API, store session.Store, signals *bus.Bus, interval time.Duration) *Cache {
	return &Cache{
		client:   client,
		store:    store,
		signals:  signals,
		interval: interval,
	}
}

// Start arms the interval refresh and the bus subscriptions. Stop undoes
// both.
func (c *Cache) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.done = make(chan struct{})
	c.unsubs = append(c.unsubs,
		c.signals.Subscribe(bus.TopicPairingSuccess, func() {
			if err := c.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("session list refresh after pairing failed")
			}
		}),
		c.signals.Subscribe(bus.TopicAuthError, func() {
			c.drop()
		}),
	)
	c.mu.Unlock()

	go c.run(ctx, c.done)
	log.Debug().Dur("interval", c.interval).Msg("session list cache started")
}

func (c *Cache) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.done)
	unsubs := c.unsubs
	c.unsubs = nil
	c.mu.Unlock()

	for _, unsub := range unsubs {
		unsub()
	}
}

func (c *Cache) run(ctx context.Context, done chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.store.IsAuthenticated() {
				continue
			}
			if err := c.Refresh(ctx); err != nil {
				log.Warn().Err(err).Msg("session list refresh failed")
			}
		}
	}
}

// Refresh fetches the session list now.
func (c *Cache) Refresh(ctx context.Context) error {
	sessions, err := c.client.Sessions(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.sessions = sessions
	c.fresh = true
	c.mu.Unlock()
	return nil
}

func (c *Cache) drop() {
	c.mu.Lock()
	c.sessions = nil
	c.fresh = false
	c.mu.Unlock()
}

// Sessions returns the cached list and whether it holds fetched data.
func (c *Cache) Sessions() ([]api.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]api.Session, len(c.sessions))
	copy(out, c.sessions)
	return out, c.fresh
}

// Current returns the cached entry flagged as the caller's own session.
func (c *Cache) Current() (*api.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.sessions {
		if s.Current {
			current := s
			return &current, true
		}
	}
	return nil, false
}

// Revoke revokes another device's session and refreshes the list once.
// Revoking the caller's own session is rejected locally, before any network
// traffic.
func (c *Cache) Revoke(ctx context.Context, id string) error {
	if current, ok := c.Current(); ok && current.ID == id {
		return ErrRevokeCurrent
	}

	if err := c.client.RevokeSession(ctx, id); err != nil {
		return err
	}

	log.Info().Str("sessionId", id).Msg("session revoked")
	return c.Refresh(ctx)
}

// Logout revokes the caller's own session server-side, then clears local
// credentials. The clear happens only after the server confirms: a failed
// logout keeps the token so the operator can retry instead of being
// stranded half logged out.
func (c *Cache) Logout(ctx context.Context) error {
	if err := c.client.Logout(ctx); err != nil {
		return err
	}

	if _, err := c.store.Clear(); err != nil {
		return err
	}
	c.drop()
	log.Info().Msg("logged out")
	return nil
}
