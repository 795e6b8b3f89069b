// Package tui renders the pairing flow and the volume mixer as a terminal
// UI. It holds no authentication or pairing state of its own: every frame is
// drawn from machine snapshots and cached lists, and key presses only
// dispatch library actions.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/bezalel6/volumectl/internal/api"
	"github.com/bezalel6/volumectl/internal/audio"
	"github.com/bezalel6/volumectl/internal/pairing"
	"github.com/bezalel6/volumectl/internal/session"
)

const volumeStep = 5

type view int

const (
	viewPairing view = iota
	viewMixer
)

type tickMsg time.Time

type devicesMsg struct {
	list *api.DeviceList
	err  error
}

type applicationsMsg struct {
	apps []api.AudioApplication
	err  error
}

type pairingDoneMsg struct{ err error }

type actionErrMsg struct{ err error }

type Model struct {
	machine *pairing.Machine
	audio   *audio.Service
	store   session.Store

	view      view
	codeInput string
	status    string

	devices  []api.AudioDevice
	apps     []api.AudioApplication
	cursor   int
	lastErr  string
	quitting bool
}

func New(machine *pairing.Machine, audioSvc *audio.Service, store session.Store) Model {
	m := Model{
		machine: machine,
		audio:   audioSvc,
		store:   store,
		view:    viewPairing,
	}
	if store.IsAuthenticated() {
		m.view = viewMixer
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tick()}
	if m.view == viewPairing {
		cmds = append(cmds, m.initiatePairing())
	} else {
		cmds = append(cmds, m.fetchDevices(), m.fetchApplications())
	}
	return tea.Batch(cmds...)
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) initiatePairing() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return pairingDoneMsg{err: m.machine.Initiate(ctx, "")}
	}
}

func (m Model) completePairing(code string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return pairingDoneMsg{err: m.machine.Complete(ctx, code)}
	}
}

func (m Model) fetchDevices() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		list, err := m.audio.Devices(ctx)
		return devicesMsg{list: list, err: err}
	}
}

func (m Model) fetchApplications() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		apps, err := m.audio.Applications(ctx)
		return applicationsMsg{apps: apps, err: err}
	}
}

func (m Model) adjustVolume(device string, volume float64) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.audio.SetDeviceVolume(ctx, device, volume); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) toggleMute(device string, muted bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := m.audio.SetDeviceMute(ctx, device, muted); err != nil {
			return actionErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		// Pairing completed elsewhere (or a 401 deauthenticated us):
		// follow the store, not our own idea of progress.
		if m.view == viewPairing && m.store.IsAuthenticated() {
			m.view = viewMixer
			return m, tea.Batch(tick(), m.fetchDevices(), m.fetchApplications())
		}
		if m.view == viewMixer && !m.store.IsAuthenticated() {
			m.view = viewPairing
			m.codeInput = ""
			return m, tea.Batch(tick(), m.initiatePairing())
		}
		return m, tick()

	case pairingDoneMsg:
		if msg.err == nil && m.machine.Snapshot().State == pairing.StatePaired {
			m.view = viewMixer
			return m, tea.Batch(m.fetchDevices(), m.fetchApplications())
		}
		return m, nil

	case devicesMsg:
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		m.devices = msg.list.Devices
		if m.cursor >= len(m.devices) {
			m.cursor = 0
		}
		return m, nil

	case applicationsMsg:
		if msg.err == nil {
			m.apps = msg.apps
		}
		return m, nil

	case actionErrMsg:
		m.lastErr = msg.err.Error()
		return m, nil

	case tea.KeyMsg:
		if m.view == viewPairing {
			return m.updatePairingKeys(msg)
		}
		return m.updateMixerKeys(msg)
	}

	return m, nil
}

func (m Model) updatePairingKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.machine.Cancel()
		m.quitting = true
		return m, tea.Quit

	case tea.KeyEnter:
		if m.codeInput == "" {
			return m, nil
		}
		code := m.codeInput
		m.codeInput = ""
		return m, m.completePairing(code)

	case tea.KeyBackspace:
		if len(m.codeInput) > 0 {
			m.codeInput = m.codeInput[:len(m.codeInput)-1]
		}
		return m, nil

	case tea.KeyRunes:
		snap := m.machine.Snapshot()
		if snap.State == pairing.StateFailed || snap.State == pairing.StateExpired {
			// Any keypress restarts the handshake after a dead end.
			return m, m.initiatePairing()
		}
		m.codeInput += string(msg.Runes)
		return m, nil
	}
	return m, nil
}

func (m Model) updateMixerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.devices)-1 {
			m.cursor++
		}
		return m, nil

	case "left", "h":
		return m.stepVolume(-volumeStep)

	case "right", "l":
		return m.stepVolume(volumeStep)

	case "m":
		if m.cursor < len(m.devices) {
			d := m.devices[m.cursor]
			m.devices[m.cursor].Muted = !d.Muted
			return m, m.toggleMute(d.Name, !d.Muted)
		}
		return m, nil

	case "r":
		return m, tea.Batch(m.fetchDevices(), m.fetchApplications())
	}
	return m, nil
}

func (m Model) stepVolume(delta float64) (tea.Model, tea.Cmd) {
	if m.cursor >= len(m.devices) {
		return m, nil
	}
	d := m.devices[m.cursor]
	next := d.Volume + delta
	if next < 0 {
		next = 0
	}
	if next > 100 {
		next = 100
	}
	m.devices[m.cursor].Volume = next
	return m, m.adjustVolume(d.Name, next)
}
