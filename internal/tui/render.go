package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"github.com/cetmix/towered/internal/complete"
	"github.com/cetmix/towered/internal/keybinds"
	"github.com/cetmix/towered/internal/types"
)

// Adaptive color definitions for light/dark terminal support
var (
	colorRed    = lipgloss.AdaptiveColor{Light: "#8b0000", Dark: "#ff0000"}
	colorGreen  = lipgloss.AdaptiveColor{Light: "#006400", Dark: "#00ff00"}
	colorYellow = lipgloss.AdaptiveColor{Light: "#b8860b", Dark: "#ffff00"}
	colorGray   = lipgloss.AdaptiveColor{Light: "#555555", Dark: "#888888"}
	colorCyan   = lipgloss.AdaptiveColor{Light: "#008b8b", Dark: "#00ffff"}
)

// Style definitions
var (
	styleSelected = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#d3d3d3", Dark: "#3a3a3a"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#ffffff"})

	styleCursor = lipgloss.NewStyle().Reverse(true)

	styleGutter = lipgloss.NewStyle().
			Foreground(colorGray)

	styleSuccess = lipgloss.NewStyle().
			Foreground(colorGreen)

	styleError = lipgloss.NewStyle().
			Foreground(colorRed)

	styleWarning = lipgloss.NewStyle().
			Foreground(colorYellow)

	styleSubtle = lipgloss.NewStyle().
			Foreground(colorGray)

	stylePopup = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorCyan)
)

// gutterWidth is the width of the line number column including its trailing space
func (m *Model) gutterWidth() int {
	return len(strconv.Itoa(m.buffer.LineCount())) + 1
}

// updateViewport re-renders the buffer and scrolls the cursor into view
func (m *Model) updateViewport() {
	cursor := m.buffer.Cursor()
	gutter := m.gutterWidth()
	textWidth := max(1, m.editorView.Width-gutter)

	// Horizontal scroll
	if cursor.Col < m.xOffset {
		m.xOffset = cursor.Col
	} else if cursor.Col >= m.xOffset+textWidth {
		m.xOffset = cursor.Col - textWidth + 1
	}

	lines := make([]string, m.buffer.LineCount())
	for row := range lines {
		lines[row] = m.renderLine(row, cursor.Row == row, cursor.Col, gutter, textWidth)
	}
	m.editorView.SetContent(strings.Join(lines, "\n"))

	// Vertical scroll
	if cursor.Row < m.editorView.YOffset {
		m.editorView.SetYOffset(cursor.Row)
	} else if cursor.Row >= m.editorView.YOffset+m.editorView.Height {
		m.editorView.SetYOffset(cursor.Row - m.editorView.Height + 1)
	}
}

// renderLine renders one buffer line with its number and, on the cursor row, the cursor
func (m *Model) renderLine(row int, hasCursor bool, col, gutter, textWidth int) string {
	number := styleGutter.Render(fmt.Sprintf("%*d ", gutter-1, row+1))

	runes := []rune(m.buffer.Line(row))
	start := min(m.xOffset, len(runes))
	end := min(start+textWidth, len(runes))
	visible := runes[start:end]

	if !hasCursor {
		return number + string(visible)
	}

	at := col - start
	if at >= len(visible) {
		return number + string(visible) + styleCursor.Render(" ")
	}
	return number + string(visible[:at]) + styleCursor.Render(string(visible[at])) + string(visible[at+1:])
}

// popupBox is the laid-out popup in screen coordinates
type popupBox struct {
	box        string
	x, y       int
	width      int
	height     int
	offset     int // filtered index of the first item row
	itemsStart int // screen row of the first item
	itemCount  int // rows showing items
}

// contains reports whether the screen cell (x, y) is inside the popup
func (b popupBox) contains(x, y int) bool {
	return x >= b.x && x < b.x+b.width && y >= b.y && y < b.y+b.height
}

// itemAt returns the filtered index of the item drawn on screen row y
func (b popupBox) itemAt(y int) (int, bool) {
	row := y - b.itemsStart
	if row < 0 || row >= b.itemCount {
		return 0, false
	}
	return b.offset + row, true
}

// popupLayout renders the open session's popup and places it in the editor pane
func (m *Model) popupLayout() (popupBox, bool) {
	session := m.detector.Session()
	if session == nil {
		return popupBox{}, false
	}
	props := session.Popup.Props()

	inner := max(MinPopupWidth, m.settings.Popup.Width)
	inner = min(inner, max(MinPopupWidth, m.editorView.Width-2*PopupBorder))

	lines := []string{m.renderPopupHeader(session.Kind, props.Search, inner)}
	for i, item := range props.Visible {
		lines = append(lines, renderPopupItem(item, inner, props.Offset+i == props.SelectedIndex))
	}
	if len(props.Items) == 0 {
		lines = append(lines, styleSubtle.Render(padRight("no matches", inner)))
	}

	box := stylePopup.Render(strings.Join(lines, "\n"))
	size := complete.Size{Width: lipgloss.Width(box), Height: lipgloss.Height(box)}

	// Content coordinates to screen coordinates
	anchor := props.Position
	anchor.X -= m.xOffset
	anchor.Y -= m.editorView.YOffset

	viewport := complete.Size{Width: m.editorView.Width, Height: m.editorView.Height}
	at := complete.Place(anchor, size, viewport, PopupLineHeight)

	return popupBox{
		box:        box,
		x:          at.X,
		y:          at.Y,
		width:      size.Width,
		height:     size.Height,
		offset:     props.Offset,
		itemsStart: at.Y + PopupBorder + PopupHeaderRows,
		itemCount:  len(props.Visible),
	}, true
}

func (m *Model) renderPopupHeader(kind types.Kind, search string, width int) string {
	label := "variables"
	if kind == types.KindSecret {
		label = "secrets"
	}
	header := fmt.Sprintf("%s > %s", label, search)
	return styleWarning.Render(padRight(header, width))
}

// renderPopupItem draws "name  reference", cutting the name first when space is short
func renderPopupItem(item types.Candidate, width int, selected bool) string {
	ref := item.Reference
	nameWidth := width - xansi.StringWidth(ref) - 2
	var line string
	if nameWidth < 4 {
		line = padRight(xansi.Truncate(ref, width, "…"), width)
	} else {
		name := xansi.Truncate(item.Name, nameWidth, "…")
		gap := width - xansi.StringWidth(name) - xansi.StringWidth(ref)
		line = name + strings.Repeat(" ", gap) + styleSubtle.Render(ref)
	}
	if selected {
		return styleSelected.Render(xansi.Strip(line))
	}
	return line
}

func padRight(s string, width int) string {
	s = xansi.Truncate(s, width, "…")
	return s + strings.Repeat(" ", max(0, width-xansi.StringWidth(s)))
}

// overlay draws box over base with its top-left corner at (x, y)
func overlay(base, box string, x, y int) string {
	baseLines := strings.Split(base, "\n")
	for i, boxLine := range strings.Split(box, "\n") {
		row := y + i
		if row < 0 || row >= len(baseLines) {
			continue
		}
		line := baseLines[row]
		lineWidth := xansi.StringWidth(line)

		left := xansi.Cut(line, 0, x)
		if pad := x - xansi.StringWidth(left); pad > 0 {
			left += strings.Repeat(" ", pad)
		}
		right := ""
		if end := x + xansi.StringWidth(boxLine); end < lineWidth {
			right = xansi.Cut(line, end, lineWidth)
		}
		baseLines[row] = left + boxLine + right
	}
	return strings.Join(baseLines, "\n")
}

// renderStatusBar renders the status bar at the bottom
func (m *Model) renderStatusBar() string {
	name := m.path
	if name == "" {
		name = "[no file]"
	}
	if m.dirty {
		name += " [+]"
	}
	cursor := m.buffer.Cursor()
	left := fmt.Sprintf("%s  %d:%d", name, cursor.Row+1, cursor.Col+1)

	right := ""
	switch {
	case m.errorMsg != "":
		right = styleError.Render(m.errorMsg)
	case m.statusMsg != "":
		right = styleSuccess.Render(m.statusMsg)
	case m.detector.Loading():
		right = styleWarning.Render("Loading candidates...")
	case m.detector.Session() != nil:
		if m.selection != "" {
			right = styleSelected.Render(m.selection) + " "
		}
		right += styleSubtle.Render(fmt.Sprintf("%s select | %s cancel | %s copy",
			m.keybinds.GetBindingString(keybinds.ContextPopup, keybinds.ActionPopupSelect),
			m.keybinds.GetBindingString(keybinds.ContextPopup, keybinds.ActionPopupCancel),
			m.keybinds.GetBindingString(keybinds.ContextPopup, keybinds.ActionCopyRef)))
	default:
		right = styleSubtle.Render(fmt.Sprintf("{{ variables | #! secrets | %s complete | %s save | %s quit",
			m.keybinds.GetBindingString(keybinds.ContextEditor, keybinds.ActionShowCompletions),
			m.keybinds.GetBindingString(keybinds.ContextGlobal, keybinds.ActionSave),
			m.keybinds.GetBindingString(keybinds.ContextGlobal, keybinds.ActionQuit)))
	}

	spacing := max(1, m.width-lipgloss.Width(left)-lipgloss.Width(right))
	return left + strings.Repeat(" ", spacing) + right
}
