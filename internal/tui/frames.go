package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// frameMsg delivers a scheduled timer callback to Update.
type frameMsg struct {
	id uint64
}

// frameScheduler adapts timer.Scheduler to bubbletea. Callbacks are queued
// while Update runs and dispatched afterwards as tea.Tick commands, so every
// callback runs inside Update on the program goroutine.
type frameScheduler struct {
	seq     uint64
	pending map[uint64]func()
	queued  []queuedFrame
}

type queuedFrame struct {
	id    uint64
	delay time.Duration
}

func newFrameScheduler() *frameScheduler {
	return &frameScheduler{pending: make(map[uint64]func())}
}

func (s *frameScheduler) AfterFunc(d time.Duration, fn func()) func() {
	s.seq++
	id := s.seq
	s.pending[id] = fn
	s.queued = append(s.queued, queuedFrame{id: id, delay: d})
	return func() { delete(s.pending, id) }
}

// drain turns callbacks scheduled since the last drain into commands.
// Ones cancelled in the meantime are skipped.
func (s *frameScheduler) drain() tea.Cmd {
	var cmds []tea.Cmd
	for _, q := range s.queued {
		if _, ok := s.pending[q.id]; !ok {
			continue
		}
		id := q.id
		cmds = append(cmds, tea.Tick(q.delay, func(time.Time) tea.Msg {
			return frameMsg{id: id}
		}))
	}
	s.queued = nil
	return tea.Batch(cmds...)
}

// fire runs the callback for id unless it was cancelled.
func (s *frameScheduler) fire(id uint64) {
	fn, ok := s.pending[id]
	if !ok {
		return
	}
	delete(s.pending, id)
	fn()
}

func (s *frameScheduler) Pending() int {
	return len(s.pending)
}
