package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bezalel6/volumectl/internal/api"
	"github.com/bezalel6/volumectl/internal/audio"
	"github.com/bezalel6/volumectl/internal/bus"
	"github.com/bezalel6/volumectl/internal/config"
	"github.com/bezalel6/volumectl/internal/pairing"
	"github.com/bezalel6/volumectl/internal/session"
	"github.com/bezalel6/volumectl/internal/sessionlist"
)

// app holds the wired client stack shared by every subcommand.
type app struct {
	cfg      *config.Config
	store    session.Store
	signals  *bus.Bus
	client   *api.Client
	machine  *pairing.Machine
	sessions *sessionlist.Cache
	audio    *audio.Service
}

var (
	current *app

	rootCmd = &cobra.Command{
		Use:           "volumectl",
		Short:         "Control a remote audio service from the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			current = a
			return nil
		},
	}
)

func buildApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	setLogLevel(cfg.LogLevel)

	stateDir, err := cfg.ResolveStateDir()
	if err != nil {
		return nil, err
	}

	store, err := openStore(cfg, stateDir)
	if err != nil {
		return nil, err
	}

	signals := bus.New()
	client := api.New(cfg, store, signals)

	return &app{
		cfg:      cfg,
		store:    store,
		signals:  signals,
		client:   client,
		machine:  pairing.New(client, store, signals),
		sessions: sessionlist.New(client, store, signals, cfg.SessionRefreshInterval()),
		audio:    audio.NewService(client),
	}, nil
}

func openStore(cfg *config.Config, stateDir string) (session.Store, error) {
	if cfg.UseKeyring {
		store, err := session.NewKeyringStore(stateDir, cfg.APIKey)
		if err == nil {
			return store, nil
		}
		log.Warn().Err(err).Msg("keyring unavailable, falling back to file store")
	}
	store, err := session.NewFileStore(stateDir, cfg.APIKey)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return store, nil
}
