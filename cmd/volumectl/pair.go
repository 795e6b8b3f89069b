package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bezalel6/volumectl/internal/pairing"
)

var pairCmd = &cobra.Command{
	Use:   "pair",
	Short: "Pair this device with the audio server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if a.store.IsAuthenticated() {
			fmt.Println("Already paired. Run `volumectl logout` first to pair again.")
			return nil
		}

		ctx := cmd.Context()
		status, err := a.machine.Status(ctx)
		if err != nil {
			return fmt.Errorf("check pairing status: %w", err)
		}
		if !status.PairingEnabled {
			return fmt.Errorf("pairing is disabled on the server")
		}

		if err := a.machine.Initiate(ctx, a.cfg.DeviceName); err != nil {
			return fmt.Errorf("start pairing: %w", err)
		}

		snap := a.machine.Snapshot()
		fmt.Printf("Enter the %d-character code shown on the audio server (expires in %ds).\n",
			snap.CodeLength, snap.ExpiresIn)

		scanner := bufio.NewScanner(os.Stdin)
		for {
			snap = a.machine.Snapshot()
			switch snap.State {
			case pairing.StatePaired:
				fmt.Println("Paired.")
				return nil
			case pairing.StateExpired:
				return fmt.Errorf("the pairing code expired, run `volumectl pair` again")
			case pairing.StateFailed:
				return fmt.Errorf("pairing failed: %s", snap.LastError)
			}

			fmt.Print("code> ")
			if !scanner.Scan() {
				a.machine.Cancel()
				return scanner.Err()
			}

			err := a.machine.Complete(ctx, scanner.Text())
			if err == nil {
				fmt.Println("Paired.")
				return nil
			}
			if errors.Is(err, pairing.ErrSuperseded) || errors.Is(err, pairing.ErrNotAwaitingCode) {
				continue
			}
			snap = a.machine.Snapshot()
			if snap.LastError != "" {
				fmt.Println(snap.LastError)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(pairCmd)
}
