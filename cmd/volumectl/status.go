package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server health and the local authentication state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current

		health, err := a.client.Health(cmd.Context())
		if err != nil {
			return fmt.Errorf("server unreachable: %w", err)
		}
		fmt.Printf("server:  %s (%s, up %s)\n",
			a.cfg.ServerURL, health.Status, time.Duration(health.Uptime*float64(time.Second)).Round(time.Second))

		if !a.store.IsAuthenticated() {
			fmt.Println("session: not paired")
			return nil
		}

		meta, ok := a.store.Meta()
		if !ok {
			fmt.Println("session: paired")
			return nil
		}
		fmt.Printf("session: %s (%s), expires %s\n",
			meta.SessionID, meta.DeviceName, meta.ExpiresAt.Local().Format(time.RFC1123))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
