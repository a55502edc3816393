// Package audio provides the sounds behind the timer cues: the terminal
// bell, clip files played through an allowlisted system player, and silence.
package audio

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fentz26/dojotimer/internal/timer"
)

const (
	DefaultWarningClip = "cookedtimer.mp3"
	DefaultExpiryClip  = "beep.mp3"
)

var (
	// ErrPlayerNotAllowed is returned for players outside the allowlist.
	ErrPlayerNotAllowed = errors.New("player not allowed")
	// ErrUnsupported is returned for pause/resume where signals are unavailable.
	ErrUnsupported = errors.New("not supported on this platform")
)

// allowedPlayers is the strict allowlist of clip players and the flags
// passed before the clip path.
var allowedPlayers = map[string][]string{
	"paplay": nil,
	"afplay": nil,
	"aplay":  {"-q"},
	"ffplay": {"-nodisp", "-autoexit", "-loglevel", "quiet"},
	"mpg123": {"-q"},
}

// playerPreference is the lookup order per clip extension when no player
// is configured. paplay and aplay cannot decode mp3.
var playerPreference = map[string][]string{
	".mp3": {"afplay", "ffplay", "mpg123"},
	".wav": {"paplay", "afplay", "aplay", "ffplay"},
	"":     {"afplay", "ffplay", "paplay"},
}

var lookPath = exec.LookPath

// IsAllowed checks if a player is in the allowlist.
func IsAllowed(player string) bool {
	_, ok := allowedPlayers[player]
	return ok
}

// Config selects the cue clips.
type Config struct {
	// Player is one of the allowlisted players. Empty detects one.
	Player string `yaml:"player"`
	// Dir holds cookedtimer.mp3 and beep.mp3 when the files are not named.
	Dir         string `yaml:"dir"`
	WarningFile string `yaml:"warning_file"`
	ExpiryFile  string `yaml:"expiry_file"`
}

// Load resolves the warning and expiry sounds. A cue with no clip rings
// the terminal bell on out. A clip that cannot be played is replaced by
// silence and logged; Load never fails.
func Load(cfg Config, out io.Writer, logger *log.Logger) (warning, expiry timer.Sound) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	bell := NewBell(out)
	warning = loadClip(cfg, cfg.WarningFile, DefaultWarningClip, bell, logger)
	expiry = loadClip(cfg, cfg.ExpiryFile, DefaultExpiryClip, bell, logger)
	return warning, expiry
}

func loadClip(cfg Config, file, fallbackName string, bell *Bell, logger *log.Logger) timer.Sound {
	path := file
	switch {
	case path == "" && cfg.Dir == "":
		return bell
	case path == "":
		path = filepath.Join(cfg.Dir, fallbackName)
		if _, err := os.Stat(path); err != nil {
			return bell
		}
	case !filepath.IsAbs(path) && cfg.Dir != "":
		path = filepath.Join(cfg.Dir, path)
	}

	player := cfg.Player
	if player == "" {
		player = detectPlayer(path)
		if player == "" {
			logger.Printf("audio: no supported player found for %s, cue silenced", path)
			return Silent{}
		}
	}

	cmd, err := NewCommand(player, path)
	if err != nil {
		logger.Printf("audio: %v, cue silenced", err)
		return Silent{}
	}
	cmd.logger = logger
	return cmd
}

func detectPlayer(path string) string {
	candidates, ok := playerPreference[strings.ToLower(filepath.Ext(path))]
	if !ok {
		candidates = playerPreference[""]
	}
	for _, p := range candidates {
		if _, err := lookPath(p); err == nil {
			return p
		}
	}
	return ""
}

// Bell rings the terminal bell. It has nothing to pause or rewind.
type Bell struct {
	mu  sync.Mutex
	out io.Writer
}

// NewBell returns a Bell writing to out.
func NewBell(out io.Writer) *Bell {
	if out == nil {
		out = io.Discard
	}
	return &Bell{out: out}
}

func (b *Bell) Play() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, err := io.WriteString(b.out, "\a")
	return err
}

func (b *Bell) Pause() error  { return nil }
func (b *Bell) Resume() error { return nil }
func (b *Bell) Stop() error   { return nil }
func (b *Bell) Playing() bool { return false }

// Silent is a cue that makes no sound.
type Silent struct{}

func (Silent) Play() error   { return nil }
func (Silent) Pause() error  { return nil }
func (Silent) Resume() error { return nil }
func (Silent) Stop() error   { return nil }
func (Silent) Playing() bool { return false }

// Command plays a clip through an allowlisted player process.
type Command struct {
	mu     sync.Mutex
	bin    string
	args   []string
	path   string
	proc   *exec.Cmd
	paused bool
	logger *log.Logger
}

// NewCommand checks the player and the clip and returns a ready Command.
func NewCommand(player, path string) (*Command, error) {
	flags, ok := allowedPlayers[player]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotAllowed, player)
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("clip %s: %w", path, err)
	}
	bin, err := lookPath(player)
	if err != nil {
		return nil, fmt.Errorf("player %s: %w", player, err)
	}

	args := make([]string, 0, len(flags)+1)
	args = append(args, flags...)
	args = append(args, path)
	return &Command{bin: bin, args: args, path: path, logger: log.New(io.Discard, "", 0)}, nil
}

// Path returns the clip file.
func (c *Command) Path() string {
	return c.path
}

// Play starts the clip from the beginning, stopping any earlier playback.
// It does not wait for the clip to finish.
func (c *Command) Play() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stopLocked()
	proc := exec.Command(c.bin, c.args...)
	if err := proc.Start(); err != nil {
		return fmt.Errorf("start %s: %w", filepath.Base(c.bin), err)
	}
	c.proc = proc
	c.paused = false

	go func() {
		err := proc.Wait()
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.proc != proc {
			return
		}
		c.proc = nil
		c.paused = false
		if err != nil {
			c.logger.Printf("audio: %s: %v", filepath.Base(c.path), err)
		}
	}()
	return nil
}

// Pause suspends the player process.
func (c *Command) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil || c.paused {
		return nil
	}
	if err := suspend(c.proc.Process); err != nil {
		return fmt.Errorf("pause: %w", err)
	}
	c.paused = true
	return nil
}

// Resume continues a suspended player process.
func (c *Command) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.proc == nil || !c.paused {
		return nil
	}
	if err := resume(c.proc.Process); err != nil {
		return fmt.Errorf("resume: %w", err)
	}
	c.paused = false
	return nil
}

// Stop kills the player, so the next Play starts from the beginning.
func (c *Command) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopLocked()
	return nil
}

// Playing reports whether a player process is running and not paused.
func (c *Command) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proc != nil && !c.paused
}

func (c *Command) stopLocked() {
	if c.proc == nil {
		return
	}
	// Killed processes exit even while stopped.
	_ = c.proc.Process.Kill()
	c.proc = nil
	c.paused = false
}
