// Package audio exposes the volume-control surface of the remote service:
// device and application enumeration, volume and mute mutations, and the
// server-side settings document.
package audio

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/bezalel6/volumectl/internal/api"
)

// API is the slice of the request layer this service needs.
type API interface {
	Devices(ctx context.Context) (*api.DeviceList, error)
	DeviceVolume(ctx context.Context, device string) (*api.VolumeInfo, error)
	SetDeviceVolume(ctx context.Context, device string, volume float64) error
	SetDeviceMute(ctx context.Context, device string, muted bool) error
	Applications(ctx context.Context) ([]api.AudioApplication, error)
	SetApplicationVolume(ctx context.Context, processPath string, volume float64) error
	Processes(ctx context.Context) ([]api.AudioProcess, error)
	Settings(ctx context.Context) (*api.Settings, error)
	UpdateSettings(ctx context.Context, patch api.Settings) (*api.Settings, error)
}

type Service struct {
	client API
}

func NewService(client API) *Service {
	return &Service{client: client}
}

func (s *Service) Devices(ctx context.Context) (*api.DeviceList, error) {
	return s.client.Devices(ctx)
}

func (s *Service) DeviceVolume(ctx context.Context, device string) (*api.VolumeInfo, error) {
	if device == "" {
		return nil, fmt.Errorf("device name is required")
	}
	return s.client.DeviceVolume(ctx, device)
}

// SetDeviceVolume clamps the requested volume to [0,100] before dispatch.
func (s *Service) SetDeviceVolume(ctx context.Context, device string, volume float64) error {
	if device == "" {
		return fmt.Errorf("device name is required")
	}
	clamped := clampVolume(volume)
	if clamped != volume {
		log.Debug().Float64("requested", volume).Float64("clamped", clamped).Msg("volume clamped")
	}
	return s.client.SetDeviceVolume(ctx, device, clamped)
}

func (s *Service) SetDeviceMute(ctx context.Context, device string, muted bool) error {
	if device == "" {
		return fmt.Errorf("device name is required")
	}
	return s.client.SetDeviceMute(ctx, device, muted)
}

func (s *Service) Applications(ctx context.Context) ([]api.AudioApplication, error) {
	return s.client.Applications(ctx)
}

func (s *Service) SetApplicationVolume(ctx context.Context, processPath string, volume float64) error {
	if processPath == "" {
		return fmt.Errorf("process path is required")
	}
	return s.client.SetApplicationVolume(ctx, processPath, clampVolume(volume))
}

func (s *Service) Processes(ctx context.Context) ([]api.AudioProcess, error) {
	return s.client.Processes(ctx)
}

func (s *Service) Settings(ctx context.Context) (*api.Settings, error) {
	return s.client.Settings(ctx)
}

// SetWhitelist replaces the process whitelist, dropping blank entries.
func (s *Service) SetWhitelist(ctx context.Context, processes []string) (*api.Settings, error) {
	cleaned := make([]string, 0, len(processes))
	for _, p := range processes {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	patch := api.Settings{Processes: api.ProcessSettings{Whitelist: cleaned, Mode: "whitelist"}}
	return s.client.UpdateSettings(ctx, patch)
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
