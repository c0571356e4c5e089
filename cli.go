package main

import (
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"bwm-bot/internal/config"
	"bwm-bot/internal/logging"
	"bwm-bot/internal/settings"
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bwm-bot",
		Short: "WhatsApp bot with persisted settings and a rotating bio",
		Long: `bwm-bot connects to WhatsApp as a linked device, keeps its settings in
<app-dir>/config/settings.json and rotates the account bio on a timer.
Configuration comes from flags, the environment and an optional .env file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.Info().Str("name", cfg.BotName).Str("app_dir", cfg.AppDir).Msg("starting")
			return runBot(ctx, cfg, log)
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().String("env-file", "", "env file to load (default .env)")

	rootCmd.AddCommand(newSettingsCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	var envFiles []string
	if f, _ := cmd.Flags().GetString("env-file"); f != "" {
		envFiles = append(envFiles, f)
	}
	cfg, err := config.Load(cmd.Flags(), envFiles...)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	log := logging.New(logging.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, log, nil
}

// openSettings loads the same store the bot uses, for offline inspection
// and edits. Safe to run next to a live bot: every write replaces the
// document atomically.
func openSettings(cmd *cobra.Command) (*settings.Store, error) {
	cfg, log, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	store := newSettingsStore(cfg, log, bioQuotes(cfg)[0])
	store.Initialize()
	return store, nil
}

func newSettingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Inspect or edit the persisted settings",
	}
	cmd.AddCommand(newSettingsGetCmd(), newSettingsSetCmd(), newSettingsListCmd())
	return cmd
}

func newSettingsGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get KEY [DEFAULT]",
		Short: "Print one setting",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettings(cmd)
			if err != nil {
				return err
			}
			key := strings.ToUpper(args[0])
			if len(args) == 2 {
				fmt.Fprintln(cmd.OutOrStdout(), store.Get(key, args[1]))
				return nil
			}
			if _, ok := store.All()[key]; !ok {
				return fmt.Errorf("setting %s is not set", key)
			}
			fmt.Fprintln(cmd.OutOrStdout(), store.Get(key, ""))
			return nil
		},
	}
}

func newSettingsSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set KEY VALUE...",
		Short: "Change one setting",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettings(cmd)
			if err != nil {
				return err
			}
			key, value := strings.ToUpper(args[0]), strings.Join(args[1:], " ")
			if err := store.Set(key, value); err != nil {
				return fmt.Errorf("saving %s: %w", key, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", key, value)
			return nil
		},
	}
}

func newSettingsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every setting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSettings(cmd)
			if err != nil {
				return err
			}
			all := store.All()
			keys := make([]string, 0, len(all))
			for k := range all {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			for _, k := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", k, all[k])
			}
			return nil
		},
	}
}
