package audio

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bezalel6/volumectl/internal/api"
)

type mockAPI struct {
	setDeviceVolumeFunc func(ctx context.Context, device string, volume float64) error
	setAppVolumeFunc    func(ctx context.Context, processPath string, volume float64) error
	updateSettingsFunc  func(ctx context.Context, patch api.Settings) (*api.Settings, error)
}

func (m *mockAPI) Devices(ctx context.Context) (*api.DeviceList, error) {
	return &api.DeviceList{DefaultDevice: "speakers"}, nil
}

func (m *mockAPI) DeviceVolume(ctx context.Context, device string) (*api.VolumeInfo, error) {
	return &api.VolumeInfo{Volume: 40}, nil
}

func (m *mockAPI) SetDeviceVolume(ctx context.Context, device string, volume float64) error {
	if m.setDeviceVolumeFunc != nil {
		return m.setDeviceVolumeFunc(ctx, device, volume)
	}
	return nil
}

func (m *mockAPI) SetDeviceMute(ctx context.Context, device string, muted bool) error {
	return nil
}

func (m *mockAPI) Applications(ctx context.Context) ([]api.AudioApplication, error) {
	return nil, nil
}

func (m *mockAPI) SetApplicationVolume(ctx context.Context, processPath string, volume float64) error {
	if m.setAppVolumeFunc != nil {
		return m.setAppVolumeFunc(ctx, processPath, volume)
	}
	return nil
}

func (m *mockAPI) Processes(ctx context.Context) ([]api.AudioProcess, error) {
	return nil, nil
}

func (m *mockAPI) Settings(ctx context.Context) (*api.Settings, error) {
	return &api.Settings{}, nil
}

func (m *mockAPI) UpdateSettings(ctx context.Context, patch api.Settings) (*api.Settings, error) {
	if m.updateSettingsFunc != nil {
		return m.updateSettingsFunc(ctx, patch)
	}
	return &patch, nil
}

func TestSetDeviceVolume(t *testing.T) {
	t.Run("clamps out-of-range volumes", func(t *testing.T) {
		tests := []struct {
			in   float64
			want float64
		}{
			{-10, 0},
			{0, 0},
			{55, 55},
			{100, 100},
			{150, 100},
		}
		for _, tt := range tests {
			var got float64
			client := &mockAPI{setDeviceVolumeFunc: func(ctx context.Context, device string, volume float64) error {
				got = volume
				return nil
			}}
			svc := NewService(client)

			require.NoError(t, svc.SetDeviceVolume(context.Background(), "speakers", tt.in))
			assert.Equal(t, tt.want, got)
		}
	})

	t.Run("rejects empty device name", func(t *testing.T) {
		svc := NewService(&mockAPI{})
		assert.Error(t, svc.SetDeviceVolume(context.Background(), "", 50))
	})
}

func TestSetApplicationVolume(t *testing.T) {
	t.Run("clamps and forwards", func(t *testing.T) {
		var got float64
		client := &mockAPI{setAppVolumeFunc: func(ctx context.Context, processPath string, volume float64) error {
			got = volume
			return nil
		}}
		svc := NewService(client)

		require.NoError(t, svc.SetApplicationVolume(context.Background(), `C:\apps\player.exe`, 120))
		assert.Equal(t, float64(100), got)
	})

	t.Run("rejects empty process path", func(t *testing.T) {
		svc := NewService(&mockAPI{})
		assert.Error(t, svc.SetApplicationVolume(context.Background(), "", 50))
	})
}

func TestSetWhitelist(t *testing.T) {
	t.Run("drops blank entries and sets whitelist mode", func(t *testing.T) {
		var gotPatch api.Settings
		client := &mockAPI{updateSettingsFunc: func(ctx context.Context, patch api.Settings) (*api.Settings, error) {
			gotPatch = patch
			return &patch, nil
		}}
		svc := NewService(client)

		_, err := svc.SetWhitelist(context.Background(), []string{"player.exe", "  ", "", " browser.exe "})
		require.NoError(t, err)
		assert.Equal(t, []string{"player.exe", "browser.exe"}, gotPatch.Processes.Whitelist)
		assert.Equal(t, "whitelist", gotPatch.Processes.Mode)
	})
}
