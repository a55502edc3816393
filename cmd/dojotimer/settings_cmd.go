package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fentz26/dojotimer/internal/config"
	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/settings"
	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show saved round and rest settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the saved round or rest duration",
	RunE:  runSettingsSet,
}

var settingsPresetCmd = &cobra.Command{
	Use:   "preset [minutes]",
	Short: "Apply a round preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsPreset,
}

var settingsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget saved settings and return to the defaults",
	RunE:  runSettingsReset,
}

var settingsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE:  runSettingsInit,
}

var (
	setRound  string
	setRest   string
	initForce bool
)

func init() {
	settingsCmd.AddCommand(settingsSetCmd, settingsPresetCmd, settingsResetCmd, settingsInitCmd)

	settingsSetCmd.Flags().StringVar(&setRound, "round", "", "Round duration as M:SS or minutes")
	settingsSetCmd.Flags().StringVar(&setRest, "rest", "", "Rest duration in minutes (0.5 steps), or 90s")
	settingsInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
}

// withSettings opens the settings store backed by the database.
func withSettings(cmd *cobra.Command, fn func(*settings.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	logger := newStderrLogger(cmd.ErrOrStderr())
	return fn(settings.Load(cmd.Context(), st, settingsOptions(cfg, logger)))
}

func runSettingsShow(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(s *settings.Store) error {
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if setRound == "" && setRest == "" {
		return fmt.Errorf("nothing to set: use --round and/or --rest")
	}
	return withSettings(cmd, func(s *settings.Store) error {
		if setRound != "" {
			minutes, seconds, err := settings.ParseClock(setRound)
			if err != nil {
				return fmt.Errorf("--round: %w", err)
			}
			if _, err := s.SetRound(minutes, seconds); err != nil {
				return err
			}
		}
		if setRest != "" {
			rest, err := settings.ParseRest(setRest)
			if err != nil {
				return fmt.Errorf("--rest: %w", err)
			}
			if _, err := s.SetRest(rest); err != nil {
				return err
			}
		}
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

func runSettingsPreset(cmd *cobra.Command, args []string) error {
	minutes, err := strconv.Atoi(strings.TrimSuffix(args[0], "m"))
	if err != nil {
		return fmt.Errorf("invalid preset %q", args[0])
	}
	return withSettings(cmd, func(s *settings.Store) error {
		if _, err := s.ApplyPreset(minutes); err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

func runSettingsReset(cmd *cobra.Command, args []string) error {
	return withSettings(cmd, func(s *settings.Store) error {
		if _, err := s.Reset(); err != nil {
			return err
		}
		printSettings(cmd.OutOrStdout(), s)
		return nil
	})
}

// runSettingsInit writes the defaults, plus any --db override, to the
// config file.
func runSettingsInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.Path()
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.DefaultConfig()
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if err := config.SaveConfig(path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func printSettings(out io.Writer, s *settings.Store) {
	cur := s.Settings()
	fmt.Fprintf(out, "Round:   %d:%02d\n", cur.RoundMinutes, cur.RoundSeconds)
	fmt.Fprintf(out, "Rest:    %g min\n", cur.RestMinutes)

	presets := make([]string, 0, len(s.Presets()))
	for _, m := range s.Presets() {
		label := fmt.Sprintf("%dm", m)
		if isActivePreset(cur, m) {
			label = "[" + label + "]"
		}
		presets = append(presets, label)
	}
	fmt.Fprintf(out, "Presets: %s\n", strings.Join(presets, " "))

	if d := s.Defaults(); d != cur {
		fmt.Fprintf(out, "Default: %s\n", d)
	}
}

func isActivePreset(cur models.TimerSettings, minutes int) bool {
	return cur.RoundMinutes == minutes && cur.RoundSeconds == 0
}
