package api

import "time"

// Session is a server-tracked device binding. The server owns every field;
// the client only reads them.
type Session struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Current    bool      `json:"current"`
}

// PairingStatus is the server's pairing capability descriptor, fetched only
// while unauthenticated.
type PairingStatus struct {
	PairingEnabled bool `json:"pairingEnabled"`
	CodeLength     int  `json:"codeLength"`
	CodeExpiry     int  `json:"codeExpiry"`
}

// PairingInitiateResult is the server's answer to a pairing initiation.
type PairingInitiateResult struct {
	SessionID string `json:"sessionId"`
	ExpiresIn int    `json:"expiresIn"`
}

// PairingCompleteResult carries the issued credential. Token must reach the
// session store and nowhere else.
type PairingCompleteResult struct {
	Token   string         `json:"token"`
	Session PairingSession `json:"session"`
}

// PairingSession is the session summary attached to a pairing completion.
type PairingSession struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"deviceName"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// AudioDevice is a playback or capture endpoint on the controlled machine.
type AudioDevice struct {
	Name    string  `json:"name"`
	ID      string  `json:"id"`
	Type    string  `json:"type"`
	State   string  `json:"state"`
	Default bool    `json:"default"`
	Volume  float64 `json:"volume"`
	Muted   bool    `json:"muted"`
}

// AudioApplication is a per-process audio session.
type AudioApplication struct {
	ProcessPath     string  `json:"processPath"`
	ProcessID       int     `json:"processId"`
	MainWindowTitle string  `json:"mainWindowTitle"`
	DisplayName     string  `json:"displayName"`
	IconPath        *string `json:"iconPath"`
	Volume          float64 `json:"volume"`
	Muted           bool    `json:"muted"`
	InstanceID      string  `json:"instanceId,omitempty"`
}

// AudioProcess is a running process eligible for volume control.
type AudioProcess struct {
	ProcessPath     string  `json:"processPath"`
	ProcessID       int     `json:"processId"`
	MainWindowTitle string  `json:"mainWindowTitle"`
	DisplayName     string  `json:"displayName"`
	IconPath        *string `json:"iconPath"`
}

// VolumeInfo is the volume/mute pair reported for a single device.
type VolumeInfo struct {
	Volume float64 `json:"volume"`
	Muted  bool    `json:"muted"`
}

// DeviceList is the device enumeration response.
type DeviceList struct {
	Devices       []AudioDevice `json:"devices"`
	DefaultDevice string        `json:"defaultDevice"`
}

// ProcessSettings controls which processes the server exposes.
type ProcessSettings struct {
	Whitelist []string `json:"whitelist"`
	Mode      string   `json:"mode"` // "whitelist" or "all"
}

// Settings is the server-side settings document.
type Settings struct {
	Processes ProcessSettings `json:"processes"`
}

// Health is the health endpoint's body. It carries no success envelope and
// is judged by HTTP status alone.
type Health struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
}
