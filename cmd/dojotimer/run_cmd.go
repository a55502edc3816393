package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fentz26/dojotimer/internal/audio"
	"github.com/fentz26/dojotimer/internal/audit"
	"github.com/fentz26/dojotimer/internal/clock"
	"github.com/fentz26/dojotimer/internal/loop"
	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/settings"
	"github.com/fentz26/dojotimer/internal/timer"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer in the terminal without the TUI",
	Long: `Run alternates rounds and rests, printing the countdown to stdout.
--round and --rest apply to this run only; saved settings are unchanged.`,
	RunE: runHeadless,
}

var (
	runRounds int
	runRound  string
	runRest   string
	runQuiet  bool
)

func init() {
	runCmd.Flags().IntVar(&runRounds, "rounds", 0, "Stop after this many rounds (0 = until interrupted)")
	runCmd.Flags().StringVar(&runRound, "round", "", "Round duration as M:SS or minutes")
	runCmd.Flags().StringVar(&runRest, "rest", "", "Rest duration in minutes (0.5 steps), or 90s")
	runCmd.Flags().BoolVarP(&runQuiet, "quiet", "q", false, "Disable audio cues")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	if runRounds < 0 {
		return fmt.Errorf("--rounds must not be negative")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newStderrLogger(cmd.ErrOrStderr())

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	store := settings.Load(cmd.Context(), st, settingsOptions(cfg, logger))
	if runRound != "" || runRest != "" {
		store, err = overrideSettings(cmd.Context(), store, cfg.Presets, logger)
		if err != nil {
			return err
		}
	}

	var warning, expiry timer.Sound
	if !runQuiet {
		warning, expiry = audio.Load(cfg.Audio, cmd.OutOrStdout(), logger)
	}

	l := loop.New()
	t, err := timer.New(timer.Options{
		Clock:           clock.Real{},
		Scheduler:       l,
		Settings:        store,
		Warning:         warning,
		Expiry:          expiry,
		FrameInterval:   cfg.FrameInterval,
		TransitionDelay: cfg.TransitionDelay,
		Rounds:          runRounds,
		Logger:          logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	t.OnEvent(audit.NewRecorder(st, logger).Handle)
	t.OnEvent(printEvents(cmd.OutOrStdout()))
	t.OnEvent(func(ev timer.Event) {
		if ev.Type == timer.EventFinished {
			cancel()
		}
	})

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)
	go func() {
		select {
		case <-sigs:
			l.Post(func() {
				t.Reset()
				cancel()
			})
		case <-ctx.Done():
		}
	}()

	var startErr error
	l.Post(func() {
		if err := t.Start(); err != nil {
			startErr = err
			cancel()
		}
	})

	err = l.Run(ctx)
	t.Close()
	fmt.Fprintln(cmd.OutOrStdout())

	if startErr != nil {
		return startErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// overrideSettings copies the saved settings into a memory-only store and
// applies the --round and --rest flags to it.
func overrideSettings(ctx context.Context, saved *settings.Store, presets []int, logger *log.Logger) (*settings.Store, error) {
	cur := saved.Settings()
	store := settings.Load(ctx, settings.NewMemoryCache(), settings.Options{
		Defaults: &cur,
		Presets:  presets,
		Logger:   logger,
	})

	if runRound != "" {
		minutes, seconds, err := settings.ParseClock(runRound)
		if err != nil {
			return nil, fmt.Errorf("--round: %w", err)
		}
		if _, err := store.SetRound(minutes, seconds); err != nil {
			return nil, err
		}
	}
	if runRest != "" {
		rest, err := settings.ParseRest(runRest)
		if err != nil {
			return nil, fmt.Errorf("--rest: %w", err)
		}
		if _, err := store.SetRest(rest); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// printEvents renders the countdown as a single rewritten line per phase.
func printEvents(out io.Writer) func(timer.Event) {
	return func(ev timer.Event) {
		label := "Rest"
		if ev.Kind == models.KindRound {
			label = fmt.Sprintf("Round %d", ev.Round)
		}

		line := func(suffix string) {
			fmt.Fprintf(out, "\r%-9s %s %-10s", label, timer.FormatClock(ev.Remaining), suffix)
		}

		switch ev.Type {
		case timer.EventPhaseStarted, timer.EventTick, timer.EventResumed:
			line("")
		case timer.EventPaused:
			line("paused")
		case timer.EventCue:
			if ev.Cue == models.CueWarning {
				line("10 seconds")
			}
		case timer.EventExpired:
			line("time")
			fmt.Fprintln(out)
		case timer.EventFinished:
			fmt.Fprintf(out, "Finished after %d rounds\n", ev.Round)
		}
	}
}
