// Package pairing drives the pairing handshake: initiate, operator code
// entry, completion, and the countdown that keeps a stale code from ever
// being submitted. At most one attempt is live at a time; starting a new
// one silently discards the previous attempt and its timer.
package pairing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/bezalel6/volumectl/internal/api"
	"github.com/bezalel6/volumectl/internal/apierr"
	"github.com/bezalel6/volumectl/internal/bus"
	"github.com/bezalel6/volumectl/internal/session"
)

type State string

const (
	StateIdle         State = "idle"
	StateInitiating   State = "initiating"
	StateAwaitingCode State = "awaiting_code"
	StateCompleting   State = "completing"
	StatePaired       State = "paired"
	StateFailed       State = "failed"
	StateExpired      State = "expired"
	StateCancelled    State = "cancelled"
)

// ErrNotAwaitingCode is returned when Complete is called outside the code
// entry window.
var ErrNotAwaitingCode = errors.New("no pairing attempt awaiting a code")

// ErrSuperseded marks an operation whose attempt was discarded while its
// request was in flight. The response has been dropped, not applied.
var ErrSuperseded = errors.New("pairing attempt superseded")

// User-facing messages for pairing failure kinds.
const (
	msgCodeInvalid  = "Invalid pairing code. Please check and try again."
	msgCodeExpired  = "The pairing code has expired. Please start over."
	msgSessionLimit = "Maximum number of paired devices reached. Please remove an existing device first."
)

// Attempt is a snapshot of the machine for renderers. SessionID is empty
// whenever no live handshake holds one.
type Attempt struct {
	State         State
	SessionID     string
	CodeLength    int
	ExpiresIn     int
	TimeRemaining int
	LastError     string
}

// API is the slice of the request layer the machine needs.
type API interface {
	PairingStatus(ctx context.Context) (*api.PairingStatus, error)
	PairingInitiate(ctx context.Context, deviceName string) (*api.PairingInitiateResult, error)
	PairingComplete(ctx context.Context, code, sessionID string) (*api.PairingCompleteResult, error)
}

type Machine struct {
	client  API
	store   session.Store
	signals *bus.Bus

	tickInterval time.Duration

	mu         sync.Mutex
	generation uint64
	stopTimer  chan struct{}
	attempt    Attempt
}

type Option func(*Machine)

// WithTickInterval shortens the countdown tick for tests.
func WithTickInterval(d time.Duration) Option {
	return func(m *Machine) { m.tickInterval = d }
}

func New(client API, store session.Store, signals *bus.Bus, opts ...Option) *Machine {
	m := &Machine{
		client:       client,
		store:        store,
		signals:      signals,
		tickInterval: time.Second,
		attempt:      Attempt{State: StateIdle},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Snapshot returns a copy of the current attempt state.
func (m *Machine) Snapshot() Attempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.attempt
}

// Status fetches the server's pairing capability descriptor and remembers
// the advertised code length for input validation.
func (m *Machine) Status(ctx context.Context) (*api.PairingStatus, error) {
	status, err := m.client.PairingStatus(ctx)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.attempt.CodeLength = status.CodeLength
	m.mu.Unlock()
	return status, nil
}

// Initiate starts a new handshake, discarding any previous attempt. On
// failure the machine lands in StateFailed with the classified error
// recorded; the operator retries manually, there is no automatic retry.
func (m *Machine) Initiate(ctx context.Context, deviceName string) error {
	m.mu.Lock()
	m.discardLocked()
	m.attempt.State = StateInitiating
	gen := m.generation
	m.mu.Unlock()

	result, err := m.client.PairingInitiate(ctx, deviceName)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrSuperseded
	}

	if err != nil {
		m.attempt.State = StateFailed
		m.attempt.SessionID = ""
		m.attempt.LastError = displayError(err)
		m.mu.Unlock()
		return err
	}

	m.attempt.State = StateAwaitingCode
	m.attempt.SessionID = result.SessionID
	m.attempt.ExpiresIn = result.ExpiresIn
	m.attempt.TimeRemaining = result.ExpiresIn
	m.attempt.LastError = ""
	m.armTimerLocked(gen)
	m.mu.Unlock()

	log.Info().
		Str("sessionId", result.SessionID).
		Int("expiresIn", result.ExpiresIn).
		Msg("pairing initiated")
	return nil
}

// Complete submits the operator-entered code. On success the issued token
// is stored and pairing-success is published; on a pairing failure the
// attempt stays in StateAwaitingCode with its session retained so a
// mistyped code does not force a restart.
func (m *Machine) Complete(ctx context.Context, code string) error {
	normalized := NormalizeCode(code)

	m.mu.Lock()
	if m.attempt.State != StateAwaitingCode {
		m.mu.Unlock()
		return ErrNotAwaitingCode
	}
	if m.attempt.CodeLength > 0 && len(normalized) != m.attempt.CodeLength {
		m.attempt.LastError = msgCodeInvalid
		m.mu.Unlock()
		return apierr.New(apierr.KindPairingCodeInvalid, "code length mismatch")
	}

	sessionID := m.attempt.SessionID
	gen := m.generation
	m.attempt.State = StateCompleting
	m.mu.Unlock()

	result, err := m.client.PairingComplete(ctx, normalized, sessionID)

	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return ErrSuperseded
	}

	if err != nil {
		// The session is retained so the operator can correct the code.
		m.attempt.State = StateAwaitingCode
		m.attempt.LastError = displayError(err)
		m.mu.Unlock()
		return err
	}

	meta := session.Meta{
		SessionID:  result.Session.ID,
		DeviceName: result.Session.DeviceName,
		CreatedAt:  result.Session.CreatedAt,
		ExpiresAt:  result.Session.ExpiresAt,
	}
	if err := m.store.SetAuth(result.Token, meta); err != nil {
		m.attempt.State = StateAwaitingCode
		m.attempt.LastError = "Failed to persist credentials."
		m.mu.Unlock()
		return err
	}

	m.stopTimerLocked()
	m.generation++
	m.attempt = Attempt{State: StatePaired, CodeLength: m.attempt.CodeLength}
	m.mu.Unlock()

	log.Info().Str("sessionId", result.Session.ID).Msg("pairing completed")
	m.signals.Publish(bus.TopicPairingSuccess)
	return nil
}

// Cancel abandons the current attempt without contacting the server; the
// pairing code is left to expire server-side. Valid from any non-terminal
// state.
func (m *Machine) Cancel() {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.attempt.State {
	case StateInitiating, StateAwaitingCode, StateCompleting:
		m.stopTimerLocked()
		m.generation++
		m.attempt = Attempt{State: StateCancelled, CodeLength: m.attempt.CodeLength}
	}
}

// discardLocked drops the current attempt and its timer. Callers hold m.mu.
func (m *Machine) discardLocked() {
	m.stopTimerLocked()
	m.generation++
	m.attempt = Attempt{State: StateIdle, CodeLength: m.attempt.CodeLength}
}

func (m *Machine) armTimerLocked(gen uint64) {
	stop := make(chan struct{})
	m.stopTimer = stop
	go m.runTimer(gen, stop)
}

func (m *Machine) stopTimerLocked() {
	if m.stopTimer != nil {
		close(m.stopTimer)
		m.stopTimer = nil
	}
}

func (m *Machine) runTimer(gen uint64, stop chan struct{}) {
	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !m.tick(gen) {
				return
			}
		}
	}
}

// tick decrements the countdown; reaching zero expires the attempt and
// drops its session unconditionally. Returns false when the timer should
// stop.
func (m *Machine) tick(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.generation {
		return false
	}
	// A completion in flight suspends the countdown; it resumes if the
	// attempt falls back to code entry.
	if m.attempt.State == StateCompleting {
		return true
	}
	if m.attempt.State != StateAwaitingCode {
		return false
	}

	m.attempt.TimeRemaining--
	if m.attempt.TimeRemaining > 0 {
		return true
	}

	m.attempt.TimeRemaining = 0
	m.attempt.State = StateExpired
	m.attempt.SessionID = ""
	m.attempt.LastError = msgCodeExpired
	m.stopTimer = nil
	m.generation++
	log.Info().Msg("pairing code countdown expired")
	return false
}

// NormalizeCode uppercases the input and strips everything but
// alphanumerics. Input hygiene only; the server stays authoritative.
func NormalizeCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// displayError maps a classified error to the operator-facing message.
func displayError(err error) string {
	apiErr, ok := apierr.As(err)
	if !ok {
		return err.Error()
	}
	switch apiErr.Kind {
	case apierr.KindPairingCodeInvalid:
		return msgCodeInvalid
	case apierr.KindPairingCodeExpired:
		return msgCodeExpired
	case apierr.KindSessionLimitReached:
		return msgSessionLimit
	case apierr.KindPairingRateLimited:
		return "Too many pairing attempts. Please wait and try again."
	case apierr.KindNetworkUnreachable:
		return "Cannot reach the audio control server."
	default:
		return apiErr.Message
	}
}
