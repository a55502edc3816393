// Package tui provides the interactive terminal UI for dojotimer.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fentz26/dojotimer/internal/clock"
	"github.com/fentz26/dojotimer/internal/models"
	"github.com/fentz26/dojotimer/internal/settings"
	"github.com/fentz26/dojotimer/internal/timer"
)

var (
	// Colors
	primaryColor = lipgloss.Color("#7C3AED")
	successColor = lipgloss.Color("#10B981")
	errorColor   = lipgloss.Color("#EF4444")
	mutedColor   = lipgloss.Color("#6B7280")
	fgColor      = lipgloss.Color("#F9FAFB")
	restColor    = lipgloss.Color("#3B82F6")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	inputBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	presetStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor).
			Padding(0, 1)

	roundClockStyle = lipgloss.NewStyle().Foreground(fgColor).Bold(true)
	restClockStyle  = lipgloss.NewStyle().Foreground(restColor).Bold(true)
	flashClockStyle = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
)

const historyLimit = 50

// HistorySource lists journaled phases, newest first.
type HistorySource interface {
	ListPhases(ctx context.Context, limit int) ([]models.PhaseRecord, error)
}

// Options configures the App. Settings is required.
type Options struct {
	Settings *settings.Store
	Warning  timer.Sound
	Expiry   timer.Sound
	Clock    clock.Clock
	// History backs the history panel. Nil hides it.
	History HistorySource
	// OnEvent receives every timer event after the App has handled it.
	OnEvent func(timer.Event)

	FrameInterval   time.Duration
	TransitionDelay time.Duration
	FullScreen      bool
	Logger          *log.Logger
}

type editField int

const (
	editNone editField = iota
	editMinutes
	editSeconds
	editRest
)

func (f editField) label() string {
	switch f {
	case editMinutes:
		return "Round minutes"
	case editSeconds:
		return "Round seconds"
	case editRest:
		return "Rest minutes"
	}
	return ""
}

// App is the main TUI application model.
type App struct {
	timer   *timer.Timer
	frames  *frameScheduler
	history HistorySource
	logger  *log.Logger

	keys     keyMap
	help     help.Model
	input    textinput.Model
	viewport viewport.Model

	width       int
	height      int
	fullScreen  bool
	showHistory bool
	editing     editField
	message     string
	quitting    bool
}

// New builds the App and the timer it drives.
func New(opts Options) (*App, error) {
	if opts.Settings == nil {
		return nil, errors.New("tui: settings store is required")
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	frames := newFrameScheduler()
	t, err := timer.New(timer.Options{
		Clock:           opts.Clock,
		Scheduler:       frames,
		Settings:        opts.Settings,
		Warning:         opts.Warning,
		Expiry:          opts.Expiry,
		FrameInterval:   opts.FrameInterval,
		TransitionDelay: opts.TransitionDelay,
		Logger:          opts.Logger,
	})
	if err != nil {
		return nil, err
	}

	ti := textinput.New()
	ti.CharLimit = 6
	ti.Width = 10

	vp := viewport.New(60, 10)

	a := &App{
		timer:      t,
		frames:     frames,
		history:    opts.History,
		logger:     opts.Logger,
		keys:       defaultKeyMap(),
		help:       help.New(),
		input:      ti,
		viewport:   vp,
		fullScreen: opts.FullScreen,
	}
	t.OnEvent(a.handleEvent)
	if opts.OnEvent != nil {
		t.OnEvent(opts.OnEvent)
	}
	return a, nil
}

// Timer exposes the underlying timer.
func (a *App) Timer() *timer.Timer {
	return a.timer
}

// Run starts the TUI application.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	a.timer.Close()
	return err
}

// Init initializes the application.
func (a *App) Init() tea.Cmd {
	return a.frames.drain()
}

// Update handles messages. Timer callbacks scheduled while handling msg are
// dispatched as commands on the way out.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case frameMsg:
		a.frames.fire(msg.id)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.viewport.Width = msg.Width - 4
		a.viewport.Height = msg.Height - 8
		if a.viewport.Height < 3 {
			a.viewport.Height = 3
		}

	case historyLoadedMsg:
		a.viewport.SetContent(renderHistory(msg.records))
		a.viewport.GotoTop()

	case errMsg:
		a.message = "Error: " + msg.err.Error()

	case tea.KeyMsg:
		if a.editing != editNone {
			cmd = a.handleEditKey(msg)
		} else {
			cmd = a.handleKey(msg)
		}
	}

	if a.quitting {
		return a, tea.Quit
	}
	return a, tea.Batch(cmd, a.frames.drain())
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	if a.showHistory {
		switch {
		case key.Matches(msg, a.keys.Quit):
			a.quit()
			return nil
		case key.Matches(msg, a.keys.History), msg.String() == "esc":
			a.showHistory = false
			return nil
		}
		var cmd tea.Cmd
		a.viewport, cmd = a.viewport.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, a.keys.Quit):
		a.quit()
	case key.Matches(msg, a.keys.Toggle):
		a.report(a.timer.Toggle())
	case key.Matches(msg, a.keys.Reset):
		a.timer.Reset()
		a.message = ""
	case key.Matches(msg, a.keys.Preset):
		a.selectPreset(msg.String())
	case key.Matches(msg, a.keys.MinutesUp):
		a.report(a.timer.AdjustRoundMinutes(1))
	case key.Matches(msg, a.keys.MinutesDown):
		a.report(a.timer.AdjustRoundMinutes(-1))
	case key.Matches(msg, a.keys.SecondsUp):
		a.report(a.timer.AdjustRoundSeconds(1))
	case key.Matches(msg, a.keys.SecondsDown):
		a.report(a.timer.AdjustRoundSeconds(-1))
	case key.Matches(msg, a.keys.RestUp):
		a.report(a.timer.StepRest(1))
	case key.Matches(msg, a.keys.RestDown):
		a.report(a.timer.StepRest(-1))
	case key.Matches(msg, a.keys.EditMinutes):
		return a.beginEdit(editMinutes)
	case key.Matches(msg, a.keys.EditSeconds):
		return a.beginEdit(editSeconds)
	case key.Matches(msg, a.keys.EditRest):
		return a.beginEdit(editRest)
	case key.Matches(msg, a.keys.FullScreen):
		a.fullScreen = !a.fullScreen
	case key.Matches(msg, a.keys.History):
		if a.history == nil {
			a.message = "History is not available"
			return nil
		}
		a.showHistory = true
		return a.loadHistory()
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
	}
	return nil
}

func (a *App) handleEditKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		a.endEdit()
		return nil
	case "ctrl+c":
		a.quit()
		return nil
	case "enter":
		a.commitEdit(strings.TrimSpace(a.input.Value()))
		a.endEdit()
		return nil
	}
	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return cmd
}

func (a *App) beginEdit(field editField) tea.Cmd {
	if a.timer.Phase().Locked() {
		a.report(timer.ErrRunning)
		return nil
	}
	cur := a.timer.Settings().Settings()
	switch field {
	case editMinutes:
		a.input.SetValue(strconv.Itoa(cur.RoundMinutes))
	case editSeconds:
		a.input.SetValue(strconv.Itoa(cur.RoundSeconds))
	case editRest:
		a.input.SetValue(strconv.FormatFloat(cur.RestMinutes, 'f', -1, 64))
	}
	a.input.Prompt = field.label() + ": "
	a.input.CursorEnd()
	a.editing = field
	a.message = ""
	return a.input.Focus()
}

func (a *App) endEdit() {
	a.editing = editNone
	a.input.Blur()
	a.input.SetValue("")
}

func (a *App) commitEdit(value string) {
	cur := a.timer.Settings().Settings()
	switch a.editing {
	case editMinutes, editSeconds:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			a.message = fmt.Sprintf("Error: %q is not a whole number", value)
			return
		}
		if a.editing == editMinutes {
			a.report(a.timer.SetRoundDuration(n, cur.RoundSeconds))
		} else {
			a.report(a.timer.SetRoundDuration(cur.RoundMinutes, n))
		}
	case editRest:
		rest, err := settings.ParseRest(value)
		if err != nil {
			a.message = "Error: " + err.Error()
			return
		}
		a.report(a.timer.SetRestDuration(rest))
	}
}

func (a *App) selectPreset(k string) {
	idx, err := strconv.Atoi(k)
	presets := a.timer.Settings().Presets()
	if err != nil || idx < 1 || idx > len(presets) {
		return
	}
	a.report(a.timer.SelectPreset(presets[idx-1]))
}

func (a *App) quit() {
	a.timer.Close()
	a.quitting = true
}

// report turns a control error into a message bar entry.
func (a *App) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, timer.ErrRunning):
		a.message = "Pause or reset the timer to change settings"
	case errors.Is(err, timer.ErrZeroDuration):
		a.message = "Error: set a round duration first"
	default:
		a.message = "Error: " + err.Error()
	}
}

func (a *App) handleEvent(ev timer.Event) {
	switch ev.Type {
	case timer.EventStarted:
		a.message = ""
	case timer.EventPaused:
		a.message = "Paused"
	case timer.EventResumed:
		a.message = ""
	case timer.EventExpired:
		if ev.Kind == models.KindRound {
			a.message = fmt.Sprintf("Round %d complete", ev.Round)
		} else {
			a.message = "Rest over"
		}
	case timer.EventPhaseStarted:
		if ev.Kind == models.KindRest {
			a.message = "Rest"
		} else {
			a.message = fmt.Sprintf("Round %d", ev.Round)
		}
	case timer.EventSettings:
		a.message = "Saved " + ev.Settings.String()
	}
}

// View renders the UI.
func (a *App) View() string {
	if a.quitting {
		return ""
	}
	if a.showHistory {
		return a.renderHistoryPanel()
	}
	if a.fullScreen {
		return a.renderFullScreen()
	}
	return a.renderCompact()
}

func (a *App) renderCompact() string {
	snap := a.timer.Snapshot()
	var b strings.Builder

	header := titleStyle.Render("Dojo Timer")
	header += "  " + lipgloss.NewStyle().Foreground(mutedColor).Render(phaseLabel(snap))
	b.WriteString(header + "\n")
	b.WriteString(strings.Repeat("─", max(a.width, 20)) + "\n\n")

	b.WriteString("  " + titleFor(snap) + "  " + clockStyle(snap).Render(snap.Clock()) + "\n\n")
	b.WriteString("  " + a.renderPresets(snap.Settings) + "\n")
	b.WriteString("  " + lipgloss.NewStyle().Foreground(mutedColor).Render(snap.Settings.String()) + "\n")

	a.writeFooter(&b)
	return b.String()
}

func (a *App) renderFullScreen() string {
	snap := a.timer.Snapshot()

	var b strings.Builder
	b.WriteString(titleStyle.Render(titleFor(snap)) + "\n\n")
	b.WriteString(clockStyle(snap).Render(bigClock(snap.Clock())) + "\n\n")
	b.WriteString(a.renderPresets(snap.Settings) + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(mutedColor).Render(phaseLabel(snap)))

	body := b.String()
	if a.width > 0 && a.height > 4 {
		body = lipgloss.Place(a.width, a.height-3, lipgloss.Center, lipgloss.Center, body)
	}

	var out strings.Builder
	out.WriteString(body + "\n")
	a.writeFooter(&out)
	return out.String()
}

func (a *App) renderHistoryPanel() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("History") + "\n")
	b.WriteString(panelStyle.Render(a.viewport.View()) + "\n")
	b.WriteString(statusBarStyle.Width(a.width).Render(" ↑↓:scroll | Esc:back | q:quit"))
	return b.String()
}

func (a *App) writeFooter(b *strings.Builder) {
	if a.editing != editNone {
		b.WriteString("\n" + inputBoxStyle.Render(a.input.View()) + "\n")
	} else if a.message != "" {
		msgStyle := lipgloss.NewStyle().Foreground(successColor)
		if strings.HasPrefix(a.message, "Error") {
			msgStyle = lipgloss.NewStyle().Foreground(errorColor)
		}
		b.WriteString("\n" + msgStyle.Render(a.message) + "\n")
	} else {
		b.WriteString("\n\n")
	}
	b.WriteString(statusBarStyle.Width(a.width).Render(a.help.View(a.keys)))
}

func (a *App) renderPresets(cur models.TimerSettings) string {
	presets := a.timer.Settings().Presets()
	parts := make([]string, 0, len(presets))
	for _, m := range presets {
		label := fmt.Sprintf("%dm", m)
		if cur.RoundMinutes == m && cur.RoundSeconds == 0 {
			parts = append(parts, selectedStyle.Render(label))
		} else {
			parts = append(parts, presetStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func titleFor(snap timer.Snapshot) string {
	if snap.Phase.Kind() == models.KindRest {
		return "Rest Time"
	}
	return "Round Time"
}

func phaseLabel(snap timer.Snapshot) string {
	switch {
	case snap.Phase == models.PhaseIdle:
		return "ready"
	case snap.Round > 0:
		return fmt.Sprintf("%s · round %d", snap.Phase, snap.Round)
	}
	return snap.Phase.String()
}

// clockStyle picks the clock color. The final seconds alternate with the
// displayed second.
func clockStyle(snap timer.Snapshot) lipgloss.Style {
	if snap.InFinalSeconds() && snap.DisplaySeconds()%2 == 0 {
		return flashClockStyle
	}
	if snap.Phase.Kind() == models.KindRest {
		return restClockStyle
	}
	return roundClockStyle
}

type historyLoadedMsg struct {
	records []models.PhaseRecord
}

type errMsg struct {
	err error
}

func (a *App) loadHistory() tea.Cmd {
	src := a.history
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		records, err := src.ListPhases(ctx, historyLimit)
		if err != nil {
			return errMsg{err}
		}
		return historyLoadedMsg{records: records}
	}
}

func renderHistory(records []models.PhaseRecord) string {
	if len(records) == 0 {
		return "No phases recorded yet."
	}
	var b strings.Builder
	for _, r := range records {
		fmt.Fprintf(&b, "%s  %-5s  %s / %s  %s\n",
			r.EndedAt.Local().Format("2006-01-02 15:04"),
			r.Kind,
			timer.FormatClock(r.Elapsed),
			timer.FormatClock(r.Target),
			r.Outcome)
	}
	return strings.TrimRight(b.String(), "\n")
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
