// Package api is the request layer: every call to the audio-control service
// goes through Client.do, which injects credentials, classifies failures and
// coordinates the process-wide deauthentication signal.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/bezalel6/volumectl/internal/apierr"
	"github.com/bezalel6/volumectl/internal/bus"
	"github.com/bezalel6/volumectl/internal/config"
	"github.com/bezalel6/volumectl/internal/session"
)

type Client struct {
	baseURL string
	apiKey  string
	store   session.Store
	signals *bus.Bus
	http    *http.Client
	retry   RetryPolicy
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

func New(cfg *config.Config, store session.Store, signals *bus.Bus, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.ServerURL, "/"),
		apiKey:  cfg.APIKey,
		store:   store,
		signals: signals,
		http:    &http.Client{Timeout: cfg.RequestTimeout()},
		retry:   DefaultRetryPolicy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do issues one API call with retries. out, when non-nil, receives the
// decoded response body; the envelope fields live at the top level of the
// same JSON object, so out is decoded from the full body.
func (c *Client) do(ctx context.Context, method, path string, reqBody, out any) error {
	var payload []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		payload = data
	}

	for attempt := 0; ; attempt++ {
		err := c.once(ctx, method, path, payload, out)
		if err == nil {
			return nil
		}

		apiErr, ok := apierr.As(err)
		if !ok {
			return err
		}

		retry, delay := c.retry(attempt, apiErr)
		if !retry {
			return err
		}

		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("retrying request")

		select {
		case <-ctx.Done():
			return apierr.Wrap(apierr.KindNetworkUnreachable, "request cancelled", ctx.Err())
		case <-time.After(delay):
		}
	}
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Request-Id", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setCredentials(req)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("method", method).
			Str("path", path).
			Dur("elapsed", time.Since(start)).
			Msg("request transport failure")
		return apierr.Classify(0, nil, nil, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apierr.Classify(0, nil, nil, fmt.Errorf("read response body: %w", err))
	}

	var env apierr.Envelope
	envPtr := &env
	if json.Unmarshal(data, &env) != nil {
		// Not JSON (proxy error page and the like): classify by status.
		envPtr = nil
	}

	if apiErr := apierr.Classify(resp.StatusCode, resp.Header, envPtr, nil); apiErr != nil {
		log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Str("kind", string(apiErr.Kind)).
			Msg("request failed")

		if apierr.IsAuthFailure(apiErr.Kind) {
			c.deauthenticate()
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return apierr.Wrap(apierr.KindGeneric, "malformed response body", err)
		}
	}
	return nil
}

func (c *Client) setCredentials(req *http.Request) {
	if token, ok := c.store.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
		return
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}
}

// deauthenticate clears stored credentials and raises the auth-error signal.
// The signal fires at most once per stored credential: racing 401s collapse
// because only the call whose Clear actually removed state publishes.
func (c *Client) deauthenticate() {
	cleared, err := c.store.Clear()
	if err != nil {
		log.Error().Err(err).Msg("failed to clear session store after auth failure")
		return
	}
	if cleared {
		log.Info().Msg("deauthenticated: stored session cleared")
		c.signals.Publish(bus.TopicAuthError)
	}
}

// Health checks service reachability. The health endpoint carries no success
// envelope and is judged by HTTP status alone.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("X-Request-Id", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.ClassifyStatus(0, err)
	}
	defer resp.Body.Close()

	if apiErr := apierr.ClassifyStatus(resp.StatusCode, nil); apiErr != nil {
		return nil, apiErr
	}

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, apierr.Wrap(apierr.KindGeneric, "malformed health response", err)
	}
	return &health, nil
}

// PairingStatus fetches the server's pairing capability descriptor.
func (c *Client) PairingStatus(ctx context.Context) (*PairingStatus, error) {
	var out PairingStatus
	if err := c.do(ctx, http.MethodGet, "/api/pairing/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PairingInitiate starts a pairing handshake.
func (c *Client) PairingInitiate(ctx context.Context, deviceName string) (*PairingInitiateResult, error) {
	body := map[string]string{}
	if deviceName != "" {
		body["deviceName"] = deviceName
	}

	var out PairingInitiateResult
	if err := c.do(ctx, http.MethodPost, "/api/pairing/initiate", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PairingComplete exchanges the operator-entered code for a bearer token.
func (c *Client) PairingComplete(ctx context.Context, code, sessionID string) (*PairingCompleteResult, error) {
	body := map[string]string{"code": code, "sessionId": sessionID}

	var out PairingCompleteResult
	if err := c.do(ctx, http.MethodPost, "/api/pairing/complete", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Sessions lists the server's active sessions for this account.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var out struct {
		Sessions []Session `json:"sessions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// CurrentSession fetches the caller's own session.
func (c *Client) CurrentSession(ctx context.Context) (*Session, error) {
	var out struct {
		Session Session `json:"session"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/current", nil, &out); err != nil {
		return nil, err
	}
	return &out.Session, nil
}

// RevokeSession revokes another device's session by ID.
func (c *Client) RevokeSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/sessions/"+url.PathEscape(id), nil, nil)
}

// Logout asks the server to revoke the caller's own session. Local state is
// not touched here: the caller clears the store only after this returns nil,
// so a failed logout leaves the operator able to retry.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/sessions/logout", nil, nil)
}

// Devices enumerates audio devices.
func (c *Client) Devices(ctx context.Context) (*DeviceList, error) {
	var out DeviceList
	if err := c.do(ctx, http.MethodGet, "/api/devices", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeviceVolume reads one device's volume/mute state.
func (c *Client) DeviceVolume(ctx context.Context, device string) (*VolumeInfo, error) {
	var out VolumeInfo
	path := "/api/devices/" + url.PathEscape(device) + "/volume"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetDeviceVolume applies a volume to a device.
func (c *Client) SetDeviceVolume(ctx context.Context, device string, volume float64) error {
	path := "/api/devices/" + url.PathEscape(device) + "/volume"
	return c.do(ctx, http.MethodPut, path, map[string]float64{"volume": volume}, nil)
}

// SetDeviceMute mutes or unmutes a device.
func (c *Client) SetDeviceMute(ctx context.Context, device string, muted bool) error {
	path := "/api/devices/" + url.PathEscape(device) + "/mute"
	return c.do(ctx, http.MethodPut, path, map[string]bool{"muted": muted}, nil)
}

// Applications lists per-process audio sessions.
func (c *Client) Applications(ctx context.Context) ([]AudioApplication, error) {
	var out struct {
		Applications []AudioApplication `json:"applications"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/applications", nil, &out); err != nil {
		return nil, err
	}
	return out.Applications, nil
}

// SetApplicationVolume applies a volume to one application's audio session.
func (c *Client) SetApplicationVolume(ctx context.Context, processPath string, volume float64) error {
	body := map[string]any{"processPath": processPath, "volume": volume}
	return c.do(ctx, http.MethodPut, "/api/applications/volume", body, nil)
}

// Processes lists processes eligible for volume control.
func (c *Client) Processes(ctx context.Context) ([]AudioProcess, error) {
	var out struct {
		Processes []AudioProcess `json:"processes"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/processes", nil, &out); err != nil {
		return nil, err
	}
	return out.Processes, nil
}

// Settings fetches the server-side settings document.
func (c *Client) Settings(ctx context.Context) (*Settings, error) {
	var out struct {
		Settings Settings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out.Settings, nil
}

// UpdateSettings applies a settings patch and returns the resulting document.
func (c *Client) UpdateSettings(ctx context.Context, patch Settings) (*Settings, error) {
	var out struct {
		Settings Settings `json:"settings"`
	}
	if err := c.do(ctx, http.MethodPut, "/api/settings", patch, &out); err != nil {
		return nil, err
	}
	return &out.Settings, nil
}
