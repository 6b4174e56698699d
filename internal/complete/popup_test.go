package complete

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cetmix/towered/internal/debounce"
	"github.com/cetmix/towered/internal/types"
)

func tick(p *Popup, seq uint64) debounce.FiredMsg {
	return debounce.FiredMsg{Slot: p.searchSlot.ID(), Seq: seq}
}

func TestNewPopup(t *testing.T) {
	items := candidates("Host", "host_ip", "Port", "port")

	p := NewPopup(items, PopupOptions{})
	assert.Equal(t, items, p.Items())
	assert.Equal(t, 0, p.SelectedIndex())

	empty := NewPopup(nil, PopupOptions{})
	assert.Equal(t, -1, empty.SelectedIndex())

	seeded := NewPopup(items, PopupOptions{Search: "po"})
	assert.Equal(t, []string{"port"}, references(seeded.Items()))
}

func TestPopup_SearchIsDebounced(t *testing.T) {
	items := candidates("Host", "host_ip", "Port", "port", "Pass", "pass")
	p := NewPopup(items, PopupOptions{})

	var reported []int
	p.OnSelectedIndexChange = func(i int) { reported = append(reported, i) }

	require.NotNil(t, p.UpdateSearchFromEditor("p"))
	p.UpdateSearchFromEditor("a")
	assert.Equal(t, "pa", p.Search())
	assert.Equal(t, items, p.Items(), "filter waits for the tick")

	assert.True(t, p.HandleTick(tick(p, 1)))
	assert.Equal(t, items, p.Items(), "stale tick must not apply")

	assert.True(t, p.HandleTick(tick(p, 2)))
	assert.Equal(t, []string{"pass"}, references(p.Items()))
	assert.Equal(t, []int{0}, reported)
}

func TestPopup_NoMatchesSelectsNothing(t *testing.T) {
	p := NewPopup(candidates("Host", "host"), PopupOptions{})
	var reported []int
	p.OnSelectedIndexChange = func(i int) { reported = append(reported, i) }

	p.SetSearch("zzz")
	p.HandleTick(tick(p, 1))

	assert.Empty(t, p.Items())
	assert.Equal(t, -1, p.SelectedIndex())
	assert.Equal(t, []int{-1}, reported)

	committed := false
	p.OnItemClick = func(*types.Candidate) { committed = true }
	p.Enter()
	p.MoveDown()
	assert.False(t, committed)
	assert.Equal(t, -1, p.SelectedIndex())
}

func TestPopup_UpdateSearchFromEditor(t *testing.T) {
	p := NewPopup(nil, PopupOptions{})

	p.UpdateSearchFromEditor("h")
	p.UpdateSearchFromEditor("é")
	assert.Equal(t, "hé", p.Search())

	p.UpdateSearchFromEditor(Backspace)
	assert.Equal(t, "h", p.Search())

	assert.Nil(t, p.UpdateSearchFromEditor("ab"), "multi-character input is ignored")
	assert.Equal(t, "h", p.Search())

	p.UpdateSearchFromEditor(Backspace)
	assert.Nil(t, p.UpdateSearchFromEditor(Backspace))
	assert.Equal(t, "", p.Search())
}

func TestPopup_Navigation(t *testing.T) {
	p := NewPopup(candidates("A", "a", "B", "b", "C", "c"), PopupOptions{})

	p.MoveUp()
	assert.Equal(t, 0, p.SelectedIndex(), "up clamps at 0")

	p.MoveDown()
	p.MoveDown()
	p.MoveDown()
	assert.Equal(t, 2, p.SelectedIndex(), "down clamps at last")

	var got *types.Candidate
	p.OnItemClick = func(item *types.Candidate) { got = item }
	p.Enter()
	require.NotNil(t, got)
	assert.Equal(t, "c", got.Reference)
}

func TestPopup_EscapeCommitsNil(t *testing.T) {
	p := NewPopup(candidates("A", "a"), PopupOptions{})
	called := false
	p.OnItemClick = func(item *types.Candidate) {
		called = true
		assert.Nil(t, item)
	}
	p.Escape()
	assert.True(t, called)
}

func TestPopup_Click(t *testing.T) {
	p := NewPopup(candidates("A", "a", "B", "b"), PopupOptions{})
	var got *types.Candidate
	p.OnItemClick = func(item *types.Candidate) { got = item }

	p.Click(5)
	assert.Nil(t, got)

	p.Click(1)
	require.NotNil(t, got)
	assert.Equal(t, "b", got.Reference)
	assert.Equal(t, 1, p.SelectedIndex())
}

func TestPopup_ScrollsSelectionIntoView(t *testing.T) {
	var pairs []string
	for i := 0; i < 10; i++ {
		pairs = append(pairs, fmt.Sprintf("Item %d", i), fmt.Sprintf("item_%d", i))
	}
	p := NewPopup(candidates(pairs...), PopupOptions{MaxVisible: 3})

	for i := 0; i < 4; i++ {
		p.MoveDown()
	}
	props := p.Props()
	assert.Equal(t, 4, props.SelectedIndex)
	assert.Equal(t, 2, props.Offset)
	assert.Equal(t, []string{"item_2", "item_3", "item_4"}, references(props.Visible))

	p.MoveUp()
	p.MoveUp()
	p.MoveUp()
	assert.Equal(t, 1, p.Props().Offset)

	for i := 0; i < 20; i++ {
		p.MoveDown()
	}
	props = p.Props()
	assert.Equal(t, 9, props.SelectedIndex)
	assert.Equal(t, 7, props.Offset)
	assert.Len(t, props.Visible, 3)
}

func TestPopup_CloseCancelsSearch(t *testing.T) {
	items := candidates("A", "a", "B", "b")
	p := NewPopup(items, PopupOptions{})

	p.SetSearch("b")
	assert.True(t, p.SearchPending())
	p.Close()
	assert.False(t, p.SearchPending())

	p.HandleTick(tick(p, 1))
	assert.Equal(t, items, p.Items(), "tick after close is a no-op")
}

func TestPopup_ForeignTick(t *testing.T) {
	p := NewPopup(nil, PopupOptions{})
	other := debounce.NewSlot(0)
	assert.False(t, p.HandleTick(debounce.FiredMsg{Slot: other.ID(), Seq: 1}))
}

func TestPopup_EnterBeforeFilterCommitsShownItem(t *testing.T) {
	p := NewPopup(candidates("Host", "host_ip", "Port", "port"), PopupOptions{})

	p.UpdateSearchFromEditor("p")
	p.UpdateSearchFromEditor("o")
	require.True(t, p.SearchPending())

	var got *types.Candidate
	p.OnItemClick = func(item *types.Candidate) { got = item }
	p.Enter()

	require.NotNil(t, got)
	assert.Equal(t, "host_ip", got.Reference, "the highlighted row of the list on screen wins")
}
