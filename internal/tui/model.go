package tui

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/complete"
	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/debounce"
	"github.com/cetmix/towered/internal/editor"
	"github.com/cetmix/towered/internal/keybinds"
	"github.com/cetmix/towered/internal/reference"
	"github.com/cetmix/towered/internal/source"
	"github.com/cetmix/towered/internal/types"
)

// Model is the script editor
type Model struct {
	path     string
	buffer   *editor.Buffer
	detector *complete.Detector
	source   source.Source
	keybinds *keybinds.Registry
	settings config.Settings
	log      *slog.Logger
	clicks   *clickRouter

	editorView viewport.Model
	xOffset    int // first visible rune column
	width      int
	height     int

	dirty     bool
	quitArmed bool // unsaved changes: the next quit exits anyway
	quitting  bool

	statusMsg  string
	errorMsg   string
	statusSlot *debounce.Slot

	selection string // formatted reference of the highlighted popup item

	// clipboardWrite is swapped out in tests
	clipboardWrite func(string) error
}

// Options holds what New needs besides the file
type Options struct {
	Source   source.Source
	Keybinds *keybinds.Registry
	Settings config.Settings
	Logger   *slog.Logger
}

// New creates an editor over text. path is where save writes.
func New(path, text string, opts Options) *Model {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := opts.Keybinds
	if registry == nil {
		registry = keybinds.NewDefaultRegistry()
	}

	m := &Model{
		path:           path,
		buffer:         editor.NewBuffer(text),
		source:         opts.Source,
		keybinds:       registry,
		settings:       opts.Settings,
		log:            logger,
		clicks:         newClickRouter(),
		editorView:     viewport.New(80, 20),
		statusSlot:     debounce.NewSlot(opts.Settings.MessageTimeout),
		clipboardWrite: clipboard.WriteAll,
	}

	m.detector = complete.NewDetector(m.buffer, opts.Source, complete.Options{
		SettleDelay:   opts.Settings.SettleDelay,
		SearchDelay:   opts.Settings.SearchDelay,
		FetchTimeout:  opts.Settings.FetchTimeout,
		MaxVisible:    opts.Settings.Popup.MaxVisible,
		SecretKeyType: opts.Settings.SecretKeyType,
		Logger:        logger,
		Clicks:        m.clicks,
		Anchor:        m.anchor,

		OnSelectionChange: m.previewSelection,
	})
	m.buffer.OnChange(func() {
		m.dirty = true
		m.quitArmed = false
	})

	return m
}

// previewSelection keeps the status bar in step with the popup highlight
func (m *Model) previewSelection(kind types.Kind, item *types.Candidate) {
	if item == nil {
		m.selection = ""
		return
	}
	m.selection = reference.Format(kind, item.Reference)
}

// anchor maps a buffer position to content coordinates: the cell below the
// position, shifted right by the line number gutter
func (m *Model) anchor(p editor.Position) complete.Point {
	return complete.Point{X: m.gutterWidth() + p.Col, Y: p.Row + 1}
}

// Init warms the candidate cache in the background
func (m *Model) Init() tea.Cmd {
	if m.source == nil {
		return nil
	}
	src := m.source
	keyType := m.settings.SecretKeyType
	timeout := m.settings.FetchTimeout

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		snap, err := source.Prefetch(ctx, src, keyType)
		return prefetchedMsg{snapshot: snap, err: err}
	}
}

// Cleanup detaches the completion detector from the buffer
func (m *Model) Cleanup() {
	m.detector.Stop()
}

// Text returns the current buffer contents
func (m *Model) Text() string {
	return m.buffer.Text()
}

// Update handles messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		cmds = append(cmds, m.handleKeyPress(msg))

	case tea.MouseMsg:
		cmds = append(cmds, m.handleMouse(msg))

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.editorView.Width = msg.Width
		m.editorView.Height = max(1, msg.Height-StatusBarHeight)

	case debounce.FiredMsg:
		if m.statusSlot.Owns(msg) {
			if m.statusSlot.Accept(msg) {
				m.statusMsg = ""
				m.errorMsg = ""
			}
		} else {
			cmds = append(cmds, m.detector.Update(msg))
		}

	case complete.CandidatesLoadedMsg:
		cmds = append(cmds, m.detector.Update(msg))

	case complete.WarningMsg:
		cmds = append(cmds, m.setErrorMessage(msg.Text))

	case prefetchedMsg:
		if msg.err != nil {
			m.log.Warn("Prefetch failed", "error", msg.err)
			cmds = append(cmds, m.setErrorMessage(fmt.Sprintf("Candidates unavailable: %v", msg.err)))
		} else {
			m.log.Info("Candidates loaded", "variables", len(msg.snapshot.Variables), "secrets", len(msg.snapshot.Secrets))
		}

	case savedMsg:
		if msg.err != nil {
			cmds = append(cmds, m.setErrorMessage(fmt.Sprintf("Save failed: %v", msg.err)))
		} else if m.buffer.Text() == msg.text {
			m.dirty = false
			cmds = append(cmds, m.setStatusMessage(fmt.Sprintf("Saved %s", m.path)))
		}

	case statusMsg:
		cmds = append(cmds, m.setStatusMessage(string(msg)))

	case errorMsg:
		cmds = append(cmds, m.setErrorMessage(string(msg)))
	}

	cmds = append(cmds, m.detector.Settle())
	m.updateViewport()

	if m.quitting {
		m.Cleanup()
		return m, tea.Quit
	}
	return m, tea.Batch(cmds...)
}

// View renders the TUI
func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	body := m.editorView.View()
	if layout, ok := m.popupLayout(); ok {
		body = overlay(body, layout.box, layout.x, layout.y)
	}
	return body + "\n" + m.renderStatusBar()
}

// Custom message types
type prefetchedMsg struct {
	snapshot source.Snapshot
	err      error
}

type savedMsg struct {
	text string // buffer contents that were written
	err  error
}

type statusMsg string
type errorMsg string

// Helper methods for setting messages with a timeout
func (m *Model) setStatusMessage(msg string) tea.Cmd {
	m.statusMsg = truncateMessage(msg)
	m.errorMsg = ""
	return m.clearMessageLater()
}

func (m *Model) setErrorMessage(msg string) tea.Cmd {
	m.errorMsg = truncateMessage(msg)
	return m.clearMessageLater()
}

func (m *Model) clearMessageLater() tea.Cmd {
	if m.settings.MessageTimeout <= 0 {
		return nil
	}
	return m.statusSlot.Schedule()
}

// truncateMessage shortens a message for the footer (max 100 chars)
func truncateMessage(msg string) string {
	runes := []rune(msg)
	if len(runes) > MaxStatusLength {
		return string(runes[:MaxStatusLength-3]) + "..."
	}
	return msg
}

// clickRouter hands clicks outside the popup to whoever registered for them
type clickRouter struct {
	nextID   int
	handlers map[int]func()
}

func newClickRouter() *clickRouter {
	return &clickRouter{handlers: make(map[int]func())}
}

// OnClickOutside implements complete.ClickRouter
func (r *clickRouter) OnClickOutside(fn func()) func() {
	id := r.nextID
	r.nextID++
	r.handlers[id] = fn
	return func() { delete(r.handlers, id) }
}

// clickOutside runs every handler. Handlers may detach themselves while running.
func (r *clickRouter) clickOutside() {
	for _, id := range slices.Sorted(maps.Keys(r.handlers)) {
		if fn, ok := r.handlers[id]; ok {
			fn()
		}
	}
}

// active reports how many handlers are registered
func (r *clickRouter) active() int {
	return len(r.handlers)
}
