package editor

import (
	"strings"
	"sync"
)

// Position is a cursor location; Col counts runes
type Position struct {
	Row int
	Col int
}

// Buffer is the host text surface: a multi-line rune buffer with a cursor
// and change notifications. It is safe for concurrent use.
type Buffer struct {
	mu sync.RWMutex

	lines  [][]rune
	cursor Position

	listeners map[int]func()
	nextID    int
}

// NewBuffer creates a buffer holding text with the cursor at the origin
func NewBuffer(text string) *Buffer {
	b := &Buffer{listeners: make(map[int]func())}
	b.lines = splitLines(text)
	return b
}

func splitLines(text string) [][]rune {
	parts := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([][]rune, len(parts))
	for i, p := range parts {
		lines[i] = []rune(p)
	}
	return lines
}

// OnChange registers fn to run after every mutation of the text.
// The returned function removes the subscription.
func (b *Buffer) OnChange(fn func()) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.listeners[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.listeners, id)
		b.mu.Unlock()
	}
}

// notify runs the listeners outside the lock so they may read the buffer
func (b *Buffer) notify() {
	b.mu.RLock()
	fns := make([]func(), 0, len(b.listeners))
	for _, fn := range b.listeners {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn()
	}
}

// Text returns the whole buffer
func (b *Buffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	parts := make([]string, len(b.lines))
	for i, l := range b.lines {
		parts[i] = string(l)
	}
	return strings.Join(parts, "\n")
}

// SetText replaces the whole buffer and moves the cursor to the origin
func (b *Buffer) SetText(text string) {
	b.mu.Lock()
	b.lines = splitLines(text)
	b.cursor = Position{}
	b.mu.Unlock()
	b.notify()
}

// LineCount returns the number of lines
func (b *Buffer) LineCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.lines)
}

// Line returns the text of row, or "" when row is out of range
func (b *Buffer) Line(row int) string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if row < 0 || row >= len(b.lines) {
		return ""
	}
	return string(b.lines[row])
}

// Cursor returns the cursor position
func (b *Buffer) Cursor() Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.cursor
}

// SetCursor moves the cursor, clamping it to the existing text
func (b *Buffer) SetCursor(row, col int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setCursorLocked(row, col)
}

func (b *Buffer) setCursorLocked(row, col int) {
	row = clamp(row, 0, len(b.lines)-1)
	col = clamp(col, 0, len(b.lines[row]))
	b.cursor = Position{Row: row, Col: col}
}

// Replace substitutes the runes [start, end) of row with text.
// The range is clamped to the line; text must not contain newlines.
// The cursor is not moved unless it falls past the end of the new line.
func (b *Buffer) Replace(row, start, end int, text string) {
	b.mu.Lock()
	if row < 0 || row >= len(b.lines) {
		b.mu.Unlock()
		return
	}
	line := b.lines[row]
	start = clamp(start, 0, len(line))
	end = clamp(end, start, len(line))

	insert := []rune(strings.ReplaceAll(text, "\n", " "))
	updated := make([]rune, 0, len(line)-(end-start)+len(insert))
	updated = append(updated, line[:start]...)
	updated = append(updated, insert...)
	updated = append(updated, line[end:]...)
	b.lines[row] = updated
	b.setCursorLocked(b.cursor.Row, b.cursor.Col)
	b.mu.Unlock()

	b.notify()
}

// InsertText types text at the cursor; newlines split the line
func (b *Buffer) InsertText(text string) {
	if text == "" {
		return
	}
	b.mu.Lock()
	for _, r := range text {
		if r == '\r' {
			continue
		}
		row, col := b.cursor.Row, b.cursor.Col
		line := b.lines[row]
		if r == '\n' {
			head := append([]rune{}, line[:col]...)
			tail := append([]rune{}, line[col:]...)
			b.lines[row] = head
			b.lines = append(b.lines[:row+1], append([][]rune{tail}, b.lines[row+1:]...)...)
			b.cursor = Position{Row: row + 1, Col: 0}
			continue
		}
		updated := make([]rune, 0, len(line)+1)
		updated = append(updated, line[:col]...)
		updated = append(updated, r)
		updated = append(updated, line[col:]...)
		b.lines[row] = updated
		b.cursor.Col++
	}
	b.mu.Unlock()
	b.notify()
}

// Backspace deletes the rune before the cursor, joining lines at column 0
func (b *Buffer) Backspace() {
	b.mu.Lock()
	row, col := b.cursor.Row, b.cursor.Col
	switch {
	case col > 0:
		line := b.lines[row]
		b.lines[row] = append(line[:col-1:col-1], line[col:]...)
		b.cursor.Col--
	case row > 0:
		prev := b.lines[row-1]
		b.cursor = Position{Row: row - 1, Col: len(prev)}
		b.lines[row-1] = append(prev[:len(prev):len(prev)], b.lines[row]...)
		b.lines = append(b.lines[:row], b.lines[row+1:]...)
	default:
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.notify()
}

// Delete removes the rune under the cursor, joining the next line at end of line
func (b *Buffer) Delete() {
	b.mu.Lock()
	row, col := b.cursor.Row, b.cursor.Col
	line := b.lines[row]
	switch {
	case col < len(line):
		b.lines[row] = append(line[:col:col], line[col+1:]...)
	case row < len(b.lines)-1:
		b.lines[row] = append(line[:len(line):len(line)], b.lines[row+1]...)
		b.lines = append(b.lines[:row+1], b.lines[row+2:]...)
	default:
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()
	b.notify()
}

// MoveLeft moves one rune left, wrapping to the previous line
func (b *Buffer) MoveLeft() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursor.Col > 0 {
		b.cursor.Col--
	} else if b.cursor.Row > 0 {
		b.cursor.Row--
		b.cursor.Col = len(b.lines[b.cursor.Row])
	}
}

// MoveRight moves one rune right, wrapping to the next line
func (b *Buffer) MoveRight() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cursor.Col < len(b.lines[b.cursor.Row]) {
		b.cursor.Col++
	} else if b.cursor.Row < len(b.lines)-1 {
		b.cursor.Row++
		b.cursor.Col = 0
	}
}

// MoveUp moves one line up keeping the column when possible
func (b *Buffer) MoveUp() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setCursorLocked(b.cursor.Row-1, b.cursor.Col)
}

// MoveDown moves one line down keeping the column when possible
func (b *Buffer) MoveDown() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setCursorLocked(b.cursor.Row+1, b.cursor.Col)
}

// MoveHome moves to the start of the line
func (b *Buffer) MoveHome() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor.Col = 0
}

// MoveEnd moves to the end of the line
func (b *Buffer) MoveEnd() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor.Col = len(b.lines[b.cursor.Row])
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
