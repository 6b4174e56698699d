package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// handleMouse selects popup items on click, and otherwise treats a click as
// an outside click that moves the cursor
func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	layout, hasPopup := m.popupLayout()

	switch msg.Button {
	case tea.MouseButtonWheelUp, tea.MouseButtonWheelDown:
		if hasPopup && layout.contains(msg.X, msg.Y) {
			session := m.detector.Session()
			if msg.Button == tea.MouseButtonWheelUp {
				session.Popup.MoveUp()
			} else {
				session.Popup.MoveDown()
			}
			return nil
		}
		if msg.Button == tea.MouseButtonWheelUp {
			m.buffer.MoveUp()
		} else {
			m.buffer.MoveDown()
		}
		return nil

	case tea.MouseButtonLeft:
		if msg.Action != tea.MouseActionPress {
			return nil
		}
	default:
		return nil
	}

	if hasPopup && layout.contains(msg.X, msg.Y) {
		if index, ok := layout.itemAt(msg.Y); ok {
			m.detector.Session().Popup.Click(index)
		}
		return nil
	}

	m.clicks.clickOutside()

	if msg.Y < m.editorView.Height {
		row := msg.Y + m.editorView.YOffset
		col := msg.X - m.gutterWidth() + m.xOffset
		if row < m.buffer.LineCount() {
			m.buffer.SetCursor(row, max(0, col))
		}
	}
	return nil
}
