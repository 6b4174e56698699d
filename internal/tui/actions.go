package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cetmix/towered/internal/complete"
	"github.com/cetmix/towered/internal/config"
	"github.com/cetmix/towered/internal/reference"
)

// save writes the buffer to the model's path
func (m *Model) save() tea.Cmd {
	if m.path == "" {
		return m.setErrorMessage("No file name, start towered with a path to save")
	}

	path := m.path
	text := m.buffer.Text()
	return func() tea.Msg {
		if err := os.WriteFile(path, []byte(text), config.FilePermissions); err != nil {
			return savedMsg{text: text, err: err}
		}
		return savedMsg{text: text}
	}
}

// copyReference copies the selected candidate, formatted for the session kind
func (m *Model) copyReference(session *complete.Session) tea.Cmd {
	item, ok := session.Popup.Selected()
	if !ok {
		return nil
	}

	text := reference.Format(session.Kind, item.Reference)
	write := m.clipboardWrite
	return func() tea.Msg {
		if err := write(text); err != nil {
			return errorMsg(fmt.Sprintf("Failed to copy to clipboard: %v", err))
		}
		return statusMsg(fmt.Sprintf("Copied %s", text))
	}
}
