package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/complete"
	"github.com/cetmix/towered/internal/keybinds"
)

// handleKeyPress routes a key to the popup while a session is open,
// otherwise to the editor
func (m *Model) handleKeyPress(msg tea.KeyMsg) tea.Cmd {
	if session := m.detector.Session(); session != nil {
		return m.handlePopupKeys(session, msg)
	}
	return m.handleEditorKeys(msg)
}

// handlePopupKeys handles keys while the completion popup is open.
// Typed characters refine the search instead of reaching the buffer.
func (m *Model) handlePopupKeys(session *complete.Session, msg tea.KeyMsg) tea.Cmd {
	popup := session.Popup

	if action, ok := m.keybinds.Match(keybinds.ContextPopup, msg.String()); ok {
		switch action {
		case keybinds.ActionPopupUp:
			popup.MoveUp()
		case keybinds.ActionPopupDown:
			popup.MoveDown()
		case keybinds.ActionPopupSelect:
			popup.Enter()
		case keybinds.ActionPopupCancel:
			popup.Escape()
		case keybinds.ActionPopupErase:
			return popup.UpdateSearchFromEditor(complete.Backspace)
		case keybinds.ActionCopyRef:
			return m.copyReference(session)
		default:
			return m.handleGlobalAction(action)
		}
		return nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		var cmds []tea.Cmd
		for _, r := range msg.Runes {
			cmds = append(cmds, popup.UpdateSearchFromEditor(string(r)))
		}
		return tea.Batch(cmds...)
	}

	return nil
}

// handleEditorKeys handles keys in the script editor
func (m *Model) handleEditorKeys(msg tea.KeyMsg) tea.Cmd {
	if action, ok := m.keybinds.Match(keybinds.ContextEditor, msg.String()); ok {
		switch action {
		case keybinds.ActionShowCompletions:
			return m.detector.Invoke()
		case keybinds.ActionCursorUp:
			m.buffer.MoveUp()
		case keybinds.ActionCursorDown:
			m.buffer.MoveDown()
		case keybinds.ActionCursorLeft:
			m.buffer.MoveLeft()
		case keybinds.ActionCursorRight:
			m.buffer.MoveRight()
		case keybinds.ActionCursorHome:
			m.buffer.MoveHome()
		case keybinds.ActionCursorEnd:
			m.buffer.MoveEnd()
		case keybinds.ActionPageUp:
			m.movePage(-1)
		case keybinds.ActionPageDown:
			m.movePage(1)
		case keybinds.ActionNewline:
			m.buffer.InsertText("\n")
		case keybinds.ActionBackspace:
			m.buffer.Backspace()
		case keybinds.ActionDelete:
			m.buffer.Delete()
		default:
			return m.handleGlobalAction(action)
		}
		return nil
	}

	switch msg.Type {
	case tea.KeyRunes, tea.KeySpace:
		m.buffer.InsertText(string(msg.Runes))
	case tea.KeyTab:
		m.buffer.InsertText(strings.Repeat(" ", TabWidth))
	}
	return nil
}

// handleGlobalAction handles actions available in every context
func (m *Model) handleGlobalAction(action keybinds.Action) tea.Cmd {
	switch action {
	case keybinds.ActionQuitForce:
		m.quitting = true
	case keybinds.ActionQuit:
		if m.dirty && !m.quitArmed {
			m.quitArmed = true
			return m.setErrorMessage("Unsaved changes. Press " +
				m.keybinds.GetBindingString(keybinds.ContextGlobal, keybinds.ActionQuit) + " again to quit")
		}
		m.quitting = true
	case keybinds.ActionSave:
		return m.save()
	}
	return nil
}

// movePage moves the cursor by one editor page
func (m *Model) movePage(direction int) {
	for range max(1, m.editorView.Height) {
		if direction < 0 {
			m.buffer.MoveUp()
		} else {
			m.buffer.MoveDown()
		}
	}
}
