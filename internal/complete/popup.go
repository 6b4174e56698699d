package complete

import (
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/debounce"
	"github.com/cetmix/towered/internal/types"
)

// Backspace is the UpdateSearchFromEditor signal for dropping the last character
const Backspace = "\b"

const (
	DefaultSearchDelay = 100 * time.Millisecond
	DefaultMaxVisible  = 8
)

// PopupOptions configures a Popup
type PopupOptions struct {
	SearchDelay time.Duration
	MaxVisible  int
	Search      string // initial search, applied without delay
	Position    Point
}

// Props is what a renderer needs to draw the popup
type Props struct {
	Items         []types.Candidate // filtered list
	Offset        int               // index of the first visible item
	Visible       []types.Candidate // Items[Offset : Offset+MaxVisible]
	SelectedIndex int               // index into Items, -1 when nothing is selectable
	Search        string
	Position      Point
}

// Popup filters a candidate list and tracks keyboard selection.
// Choices are reported through OnItemClick; nil means cancel.
type Popup struct {
	items    []types.Candidate
	filtered []types.Candidate
	search   string
	selected int
	offset   int
	visible  int
	position Point

	searchSlot *debounce.Slot

	OnItemClick           func(item *types.Candidate)
	OnSelectedIndexChange func(index int)
}

// NewPopup creates a popup over items
func NewPopup(items []types.Candidate, opts PopupOptions) *Popup {
	if opts.SearchDelay <= 0 {
		opts.SearchDelay = DefaultSearchDelay
	}
	if opts.MaxVisible <= 0 {
		opts.MaxVisible = DefaultMaxVisible
	}

	p := &Popup{
		items:      items,
		search:     opts.Search,
		visible:    opts.MaxVisible,
		position:   opts.Position,
		searchSlot: debounce.NewSlot(opts.SearchDelay),
	}
	p.filtered = Filter(p.items, p.search)
	p.selected = firstIndex(p.filtered)
	return p
}

func firstIndex(list []types.Candidate) int {
	if len(list) == 0 {
		return -1
	}
	return 0
}

// Search returns the current search text
func (p *Popup) Search() string {
	return p.search
}

// Items returns the filtered list
func (p *Popup) Items() []types.Candidate {
	return p.filtered
}

// SelectedIndex returns the selection, -1 when the list is empty
func (p *Popup) SelectedIndex() int {
	return p.selected
}

// SetSearch stores the search text and schedules the filter pass
func (p *Popup) SetSearch(search string) tea.Cmd {
	p.search = search
	return p.searchSlot.Schedule()
}

// UpdateSearchFromEditor mirrors a keystroke typed in the host editor.
// input is either Backspace or a single character; anything else is ignored.
func (p *Popup) UpdateSearchFromEditor(input string) tea.Cmd {
	switch {
	case input == Backspace:
		if p.search == "" {
			return nil
		}
		_, size := utf8.DecodeLastRuneInString(p.search)
		return p.SetSearch(p.search[:len(p.search)-size])
	case utf8.RuneCountInString(input) == 1:
		return p.SetSearch(p.search + input)
	default:
		return nil
	}
}

// HandleTick applies the filter if msg is the latest search tick.
// It reports whether msg belonged to this popup.
func (p *Popup) HandleTick(msg debounce.FiredMsg) bool {
	if !p.searchSlot.Owns(msg) {
		return false
	}
	if p.searchSlot.Accept(msg) {
		p.applyFilter()
	}
	return true
}

func (p *Popup) applyFilter() {
	p.filtered = Filter(p.items, p.search)
	p.offset = 0
	p.setSelected(firstIndex(p.filtered))
}

// SearchPending reports whether a filter pass is scheduled
func (p *Popup) SearchPending() bool {
	return p.searchSlot.Pending()
}

// MoveDown selects the next item, stopping at the last one
func (p *Popup) MoveDown() {
	if len(p.filtered) == 0 {
		return
	}
	p.setSelected(min(p.selected+1, len(p.filtered)-1))
}

// MoveUp selects the previous item, stopping at the first one
func (p *Popup) MoveUp() {
	if len(p.filtered) == 0 {
		return
	}
	p.setSelected(max(p.selected-1, 0))
}

// Selected returns the highlighted item
func (p *Popup) Selected() (types.Candidate, bool) {
	if p.selected < 0 || p.selected >= len(p.filtered) {
		return types.Candidate{}, false
	}
	return p.filtered[p.selected], true
}

// Enter commits the highlighted item; nothing happens on an empty list
func (p *Popup) Enter() {
	item, ok := p.Selected()
	if !ok {
		return
	}
	p.commit(&item)
}

// Escape commits a cancel
func (p *Popup) Escape() {
	p.commit(nil)
}

// Click commits the item at index of the filtered list
func (p *Popup) Click(index int) {
	if index < 0 || index >= len(p.filtered) {
		return
	}
	p.setSelected(index)
	item := p.filtered[index]
	p.commit(&item)
}

func (p *Popup) commit(item *types.Candidate) {
	if p.OnItemClick != nil {
		p.OnItemClick(item)
	}
}

func (p *Popup) setSelected(index int) {
	p.selected = index
	p.scrollIntoView()
	if p.OnSelectedIndexChange != nil {
		p.OnSelectedIndexChange(index)
	}
}

// scrollIntoView moves the window so the selected row is fully visible
func (p *Popup) scrollIntoView() {
	if p.selected < 0 {
		p.offset = 0
		return
	}
	if p.selected < p.offset {
		p.offset = p.selected
	}
	if p.selected >= p.offset+p.visible {
		p.offset = p.selected - p.visible + 1
	}
	p.offset = max(0, min(p.offset, len(p.filtered)-p.visible))
}

// Position returns the requested anchor
func (p *Popup) Position() Point {
	return p.position
}

// SetPosition moves the anchor
func (p *Popup) SetPosition(pos Point) {
	p.position = pos
}

// Props snapshots the render state
func (p *Popup) Props() Props {
	end := min(p.offset+p.visible, len(p.filtered))
	return Props{
		Items:         p.filtered,
		Offset:        p.offset,
		Visible:       p.filtered[p.offset:end],
		SelectedIndex: p.selected,
		Search:        p.search,
		Position:      p.position,
	}
}

// Close cancels the pending filter pass
func (p *Popup) Close() {
	p.searchSlot.Cancel()
}
