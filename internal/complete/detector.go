package complete

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/debounce"
	"github.com/cetmix/towered/internal/editor"
	"github.com/cetmix/towered/internal/reference"
	"github.com/cetmix/towered/internal/types"
)

const (
	DefaultSettleDelay  = 30 * time.Millisecond
	DefaultFetchTimeout = 5 * time.Second
)

// Surface is the text surface the detector watches and edits
type Surface interface {
	Cursor() editor.Position
	Line(row int) string
	Replace(row, start, end int, text string)
	SetCursor(row, col int)
	OnChange(fn func()) (unsubscribe func())
}

// Fetcher supplies candidate lists
type Fetcher interface {
	Variables(ctx context.Context) ([]types.Candidate, error)
	Secrets(ctx context.Context, keyType types.KeyType) ([]types.Candidate, error)
}

// Options configures a Detector. Zero values select the defaults.
type Options struct {
	SettleDelay   time.Duration
	SearchDelay   time.Duration
	FetchTimeout  time.Duration
	MaxVisible    int
	SecretKeyType types.KeyType
	Logger        *slog.Logger

	// Clicks routes outside clicks to the open session, may be nil
	Clicks ClickRouter

	// Anchor maps a cursor position to popup coordinates.
	// The default places the popup on the line below the cursor.
	Anchor func(editor.Position) Point

	// OnSelectionChange reports the highlighted item of the open session,
	// nil when the filtered list is empty
	OnSelectionChange func(kind types.Kind, item *types.Candidate)
}

// CandidatesLoadedMsg carries the result of an asynchronous fetch
type CandidatesLoadedMsg struct {
	Request uint64
	Kind    types.Kind
	Items   []types.Candidate
	Err     error
}

// WarningMsg is a non-fatal problem to show to the user
type WarningMsg struct {
	Text string
}

type request struct {
	id            uint64
	kind          types.Kind
	anchor        editor.Position
	triggerLength int
	search        string
}

// Detector watches a Surface for "{{" and "#!", opens a completion session,
// and splices the chosen reference back into the text.
type Detector struct {
	surface Surface
	fetcher Fetcher
	opts    Options
	log     *slog.Logger

	settle      *debounce.Slot
	changed     bool
	applying    bool
	unsubscribe func()

	nextRequest uint64
	pending     *request
	session     *Session
}

// NewDetector subscribes to surface changes.
// A nil fetcher leaves triggers in the text and never opens a session.
func NewDetector(surface Surface, fetcher Fetcher, opts Options) *Detector {
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = DefaultSettleDelay
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.SecretKeyType == "" {
		opts.SecretKeyType = types.DefaultSecretKeyType
	}
	if opts.Anchor == nil {
		opts.Anchor = func(p editor.Position) Point {
			return Point{X: p.Col, Y: p.Row + 1}
		}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	d := &Detector{
		surface: surface,
		fetcher: fetcher,
		opts:    opts,
		log:     log,
		settle:  debounce.NewSlot(opts.SettleDelay),
	}
	d.unsubscribe = surface.OnChange(func() {
		if !d.applying {
			d.changed = true
		}
	})
	return d
}

// Stop closes any session and unsubscribes from the surface
func (d *Detector) Stop() {
	d.Close()
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
}

// Session returns the open session, or nil
func (d *Detector) Session() *Session {
	return d.session
}

// Loading reports whether a candidate fetch is in flight
func (d *Detector) Loading() bool {
	return d.pending != nil
}

// Settle schedules an inspection if the text changed since the last call.
// Inspection is deferred so the edit is fully applied before the line is read.
func (d *Detector) Settle() tea.Cmd {
	if !d.changed {
		return nil
	}
	d.changed = false
	return d.settle.Schedule()
}

// Update handles debounce ticks and fetch results
func (d *Detector) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case debounce.FiredMsg:
		if d.settle.Owns(msg) {
			if d.settle.Accept(msg) {
				return d.inspect()
			}
			return nil
		}
		if d.session != nil {
			d.session.Popup.HandleTick(msg)
		}
	case CandidatesLoadedMsg:
		return d.loaded(msg)
	}
	return nil
}

// beforeCursor returns the cursor, the current line and the text left of the cursor
func (d *Detector) beforeCursor() (editor.Position, []rune, string) {
	pos := d.surface.Cursor()
	line := []rune(d.surface.Line(pos.Row))
	col := min(max(pos.Col, 0), len(line))
	pos.Col = col
	return pos, line, string(line[:col])
}

func (d *Detector) inspect() tea.Cmd {
	if d.fetcher == nil {
		return nil
	}
	pos, _, before := d.beforeCursor()

	switch {
	case strings.HasSuffix(before, reference.VariableOpen):
		return d.trigger(types.KindVariable, pos, len([]rune(reference.VariableOpen)))
	case strings.HasSuffix(before, reference.SecretTrigger):
		return d.trigger(types.KindSecret, pos, len([]rune(reference.SecretTrigger)))
	}
	return nil
}

// trigger consumes the trigger text and starts fetching candidates
func (d *Detector) trigger(kind types.Kind, pos editor.Position, size int) tea.Cmd {
	start := pos.Col - size
	d.edit(func() {
		d.surface.Replace(pos.Row, start, pos.Col, "")
		d.surface.SetCursor(pos.Row, start)
	})
	return d.fetch(request{
		kind:   kind,
		anchor: editor.Position{Row: pos.Row, Col: start},
	})
}

// Invoke opens variable completion at the cursor without a trigger.
// A partly typed reference before the cursor seeds the search and is
// replaced on commit.
func (d *Detector) Invoke() tea.Cmd {
	if d.fetcher == nil {
		return nil
	}
	pos, _, before := d.beforeCursor()
	word := reference.WordBefore(before)
	return d.fetch(request{
		kind:          types.KindVariable,
		anchor:        pos,
		triggerLength: utf8.RuneCountInString(word),
		search:        word,
	})
}

func (d *Detector) fetch(req request) tea.Cmd {
	d.nextRequest++
	req.id = d.nextRequest
	d.pending = &req

	fetcher := d.fetcher
	timeout := d.opts.FetchTimeout
	keyType := d.opts.SecretKeyType
	log := d.log

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		var items []types.Candidate
		var err error
		if req.kind == types.KindSecret {
			items, err = fetcher.Secrets(ctx, keyType)
		} else {
			items, err = fetcher.Variables(ctx)
		}
		if err != nil {
			return CandidatesLoadedMsg{Request: req.id, Kind: req.kind, Err: err}
		}

		items, dropped := types.ValidateCandidates(items)
		for _, e := range dropped {
			log.Warn("Dropped invalid candidate", "kind", req.kind, "error", e)
		}
		return CandidatesLoadedMsg{Request: req.id, Kind: req.kind, Items: items}
	}
}

func (d *Detector) loaded(msg CandidatesLoadedMsg) tea.Cmd {
	if d.pending == nil || d.pending.id != msg.Request {
		d.log.Debug("Ignoring stale candidate list", "request", msg.Request)
		return nil
	}
	req := *d.pending
	d.pending = nil

	if msg.Err != nil {
		d.log.Error("Failed to load candidates", "kind", req.kind, "error", msg.Err)
		text := fmt.Sprintf("Could not load %ss: %v", req.kind, msg.Err)
		return func() tea.Msg { return WarningMsg{Text: text} }
	}
	if len(msg.Items) == 0 {
		d.log.Debug("No candidates, popup not opened", "kind", req.kind)
		return nil
	}

	d.open(req, msg.Items)
	return nil
}

// open replaces any existing session with a new one
func (d *Detector) open(req request, items []types.Candidate) {
	d.Close()

	popup := NewPopup(items, PopupOptions{
		SearchDelay: d.opts.SearchDelay,
		MaxVisible:  d.opts.MaxVisible,
		Search:      req.search,
		Position:    d.opts.Anchor(req.anchor),
	})
	s := &Session{
		Kind:          req.kind,
		Anchor:        req.anchor,
		TriggerLength: req.triggerLength,
		Popup:         popup,
	}
	popup.OnItemClick = func(item *types.Candidate) {
		d.HandleCommandSelection(item, s.Kind)
	}
	if d.opts.Clicks != nil {
		s.detach = d.opts.Clicks.OnClickOutside(d.Close)
	}
	if d.opts.OnSelectionChange != nil {
		report := func() {
			if item, ok := popup.Selected(); ok {
				d.opts.OnSelectionChange(s.Kind, &item)
				return
			}
			d.opts.OnSelectionChange(s.Kind, nil)
		}
		popup.OnSelectedIndexChange = func(int) { report() }
		report()
	}
	d.session = s
}

// HandleCommandSelection writes item at the cursor and closes the session.
// A nil item cancels without touching the text. Whether the cursor sits inside
// an open reference is recomputed from the current line.
func (d *Detector) HandleCommandSelection(item *types.Candidate, kind types.Kind) {
	if item == nil {
		d.Close()
		return
	}

	triggerLength := 0
	if d.session != nil {
		triggerLength = d.session.TriggerLength
	}

	pos, line, before := d.beforeCursor()
	start, end, text := pos.Col-triggerLength, pos.Col, reference.Format(kind, item.Reference)

	switch kind {
	case types.KindSecret:
		if s, ok := reference.InsideSecret(before); ok {
			start, text = s, reference.FormatSecretInside(item.Reference)
		}
	default:
		if s, ok := reference.InsideVariable(before); ok {
			start, text = s, reference.FormatVariableInside(item.Reference)
		}
	}

	start = min(max(start, 0), len(line))
	end = min(max(end, start), len(line))

	d.edit(func() {
		d.surface.Replace(pos.Row, start, end, text)
		lineLen := utf8.RuneCountInString(d.surface.Line(pos.Row))
		d.surface.SetCursor(pos.Row, min(start+utf8.RuneCountInString(text), lineLen))
	})
	d.log.Debug("Inserted reference", "kind", kind, "reference", item.Reference, "row", pos.Row, "col", start)

	d.Close()
}

// edit applies changes made by the detector itself without re-triggering inspection
func (d *Detector) edit(fn func()) {
	d.applying = true
	defer func() { d.applying = false }()
	fn()
}

// Close tears down the session: pending ticks are cancelled, the outside
// click handler is removed and any in-flight fetch result will be ignored.
func (d *Detector) Close() {
	d.settle.Cancel()
	d.pending = nil
	if d.session != nil {
		d.session.close()
		d.session = nil
	}
}
