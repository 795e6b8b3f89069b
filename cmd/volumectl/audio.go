package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the server's audio devices",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := current.audio.Devices(cmd.Context())
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTYPE\tVOLUME\tMUTED\t")
		for _, d := range list.Devices {
			name := d.Name
			if d.Default {
				name += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%.0f%%\t%v\t\n", name, d.Type, d.Volume, d.Muted)
		}
		return w.Flush()
	},
}

var appsCmd = &cobra.Command{
	Use:   "apps",
	Short: "List applications with an active audio session",
	RunE: func(cmd *cobra.Command, args []string) error {
		apps, err := current.audio.Applications(cmd.Context())
		if err != nil {
			return err
		}
		if len(apps) == 0 {
			fmt.Println("No applications are playing audio.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tPID\tVOLUME\tMUTED\t")
		for _, a := range apps {
			fmt.Fprintf(w, "%s\t%d\t%.0f%%\t%v\t\n", a.DisplayName, a.ProcessID, a.Volume, a.Muted)
		}
		return w.Flush()
	},
}

var volumeCmd = &cobra.Command{
	Use:   "volume <device> [level]",
	Short: "Get or set a device's volume (0-100)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		device := args[0]

		if len(args) == 1 {
			info, err := current.audio.DeviceVolume(ctx, device)
			if err != nil {
				return err
			}
			state := ""
			if info.Muted {
				state = " (muted)"
			}
			fmt.Printf("%.0f%%%s\n", info.Volume, state)
			return nil
		}

		level, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return fmt.Errorf("volume must be a number, got %q", args[1])
		}
		return current.audio.SetDeviceVolume(ctx, device, level)
	},
}

var muteCmd = &cobra.Command{
	Use:   "mute <device> <on|off>",
	Short: "Mute or unmute a device",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var muted bool
		switch args[1] {
		case "on":
			muted = true
		case "off":
			muted = false
		default:
			return fmt.Errorf("expected on or off, got %q", args[1])
		}
		return current.audio.SetDeviceMute(cmd.Context(), args[0], muted)
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd, appsCmd, volumeCmd, muteCmd)
}
