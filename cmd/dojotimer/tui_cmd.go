package main

import (
	"fmt"

	"github.com/fentz26/dojotimer/internal/audio"
	"github.com/fentz26/dojotimer/internal/audit"
	"github.com/fentz26/dojotimer/internal/settings"
	"github.com/fentz26/dojotimer/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive timer",
	RunE:  runTUI,
}

var tuiFullScreen bool

func init() {
	tuiCmd.Flags().BoolVarP(&tuiFullScreen, "full", "f", false, "Start in full screen mode")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The TUI owns the terminal, so logs go to a file.
	logger, closeLog, err := openLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	store := settings.Load(cmd.Context(), st, settingsOptions(cfg, logger))
	warning, expiry := audio.Load(cfg.Audio, cmd.OutOrStdout(), logger)
	recorder := audit.NewRecorder(st, logger)

	app, err := tui.New(tui.Options{
		Settings:        store,
		Warning:         warning,
		Expiry:          expiry,
		History:         st,
		OnEvent:         recorder.Handle,
		FrameInterval:   cfg.FrameInterval,
		TransitionDelay: cfg.TransitionDelay,
		FullScreen:      tuiFullScreen,
		Logger:          logger,
	})
	if err != nil {
		return err
	}
	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
