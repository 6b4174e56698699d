// Package debounce provides cancellable, latest-wins scheduled tasks for a
// bubbletea update loop.
//
// A Slot holds at most one pending task. Scheduling again supersedes the
// previous task, and Cancel invalidates it: ticks that arrive for a superseded
// or cancelled task are rejected by Accept, so they are no-ops.
package debounce

import (
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

var slotIDs atomic.Uint64

// FiredMsg is delivered when a scheduled task's delay elapses
type FiredMsg struct {
	Slot uint64
	Seq  uint64
}

// Slot is a single "latest pending task" holder
type Slot struct {
	id      uint64
	delay   time.Duration
	seq     uint64
	pending bool
}

// NewSlot creates a slot whose tasks fire after delay
func NewSlot(delay time.Duration) *Slot {
	return &Slot{
		id:    slotIDs.Add(1),
		delay: delay,
	}
}

// ID identifies the slot in FiredMsg
func (s *Slot) ID() uint64 {
	return s.id
}

// Delay returns the configured delay
func (s *Slot) Delay() time.Duration {
	return s.delay
}

// Schedule supersedes any pending task and returns the tick for the new one
func (s *Slot) Schedule() tea.Cmd {
	s.seq++
	s.pending = true
	id, seq := s.id, s.seq
	return tea.Tick(s.delay, func(time.Time) tea.Msg {
		return FiredMsg{Slot: id, Seq: seq}
	})
}

// Owns reports whether msg was produced by this slot, current or not
func (s *Slot) Owns(msg FiredMsg) bool {
	return msg.Slot == s.id
}

// Accept consumes msg if it belongs to the latest pending task.
// It returns false for foreign, superseded or cancelled ticks.
func (s *Slot) Accept(msg FiredMsg) bool {
	if msg.Slot != s.id || !s.pending || msg.Seq != s.seq {
		return false
	}
	s.pending = false
	return true
}

// Cancel drops the pending task, if any
func (s *Slot) Cancel() {
	if s.pending {
		s.seq++
	}
	s.pending = false
}

// Pending reports whether a task is waiting to fire
func (s *Slot) Pending() bool {
	return s.pending
}
