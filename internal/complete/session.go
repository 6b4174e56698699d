package complete

import (
	"github.com/cetmix/towered/internal/editor"
	"github.com/cetmix/towered/internal/types"
)

// Session is the state of one open popup. A Detector owns at most one.
type Session struct {
	Kind          types.Kind
	Anchor        editor.Position // cursor position where the trigger began
	TriggerLength int             // runes before the cursor replaced on commit
	Popup         *Popup

	detach func()
}

// close releases everything the session registered
func (s *Session) close() {
	s.Popup.Close()
	if s.detach != nil {
		s.detach()
		s.detach = nil
	}
}

// ClickRouter delivers clicks that land outside the popup.
// OnClickOutside returns a function that removes the handler.
type ClickRouter interface {
	OnClickOutside(fn func()) (detach func())
}
