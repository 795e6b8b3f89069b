package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bezalel6/volumectl/internal/sessionlist"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and revoke the sessions paired with the server",
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if err := a.sessions.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("fetch sessions: %w", err)
		}

		sessions, _ := a.sessions.Sessions()
		if len(sessions) == 0 {
			fmt.Println("No active sessions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tDEVICE\tCREATED\tLAST USED\t")
		for _, s := range sessions {
			id := s.ID
			if s.Current {
				id += " *"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n",
				id, s.DeviceName,
				s.CreatedAt.Local().Format(time.DateTime),
				s.LastUsedAt.Local().Format(time.DateTime))
		}
		return w.Flush()
	},
}

var sessionsRevokeCmd = &cobra.Command{
	Use:   "revoke <session-id>",
	Short: "Revoke another device's session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if err := a.sessions.Refresh(cmd.Context()); err != nil {
			return fmt.Errorf("fetch sessions: %w", err)
		}

		err := a.sessions.Revoke(cmd.Context(), args[0])
		if errors.Is(err, sessionlist.ErrRevokeCurrent) {
			return fmt.Errorf("refusing to revoke the current session, use `volumectl logout` instead")
		}
		if err != nil {
			return fmt.Errorf("revoke session: %w", err)
		}
		fmt.Println("Session revoked.")
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke this device's session and clear stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		if !a.store.IsAuthenticated() {
			fmt.Println("Not paired.")
			return nil
		}
		if err := a.sessions.Logout(cmd.Context()); err != nil {
			if !a.store.IsAuthenticated() {
				// The server already considered the session dead and the
				// 401 cleared local state for us.
				fmt.Println("Session was already invalid; local credentials cleared.")
				return nil
			}
			return fmt.Errorf("logout failed, credentials kept: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	sessionsCmd.AddCommand(sessionsListCmd, sessionsRevokeCmd)
	rootCmd.AddCommand(sessionsCmd, logoutCmd)
}
