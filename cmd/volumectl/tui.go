package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/bezalel6/volumectl/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive volume mixer",
	RunE: func(cmd *cobra.Command, args []string) error {
		a := current
		a.sessions.Start(cmd.Context())
		defer a.sessions.Stop()

		model := tui.New(a.machine, a.audio, a.store)
		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("run tui: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
