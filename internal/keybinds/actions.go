package keybinds

// Action represents a user action that can be triggered by a keybinding
type Action string

// Context represents the context in which keybindings are active
type Context string

const (
	ContextGlobal Context = "global" // Available everywhere
	ContextEditor Context = "editor" // Editing the script
	ContextPopup  Context = "popup"  // Completion popup is open
)

const (
	// Global actions
	ActionQuit      Action = "quit"       // Quit application
	ActionQuitForce Action = "quit_force" // Force quit (ctrl+c)
	ActionSave      Action = "save"       // Write the buffer to its file

	// Editor actions
	ActionShowCompletions Action = "show_completions" // Open the variable popup manually
	ActionCursorUp        Action = "cursor_up"
	ActionCursorDown      Action = "cursor_down"
	ActionCursorLeft      Action = "cursor_left"
	ActionCursorRight     Action = "cursor_right"
	ActionCursorHome      Action = "cursor_home"
	ActionCursorEnd       Action = "cursor_end"
	ActionPageUp          Action = "page_up"
	ActionPageDown        Action = "page_down"
	ActionNewline         Action = "newline"
	ActionBackspace       Action = "backspace"
	ActionDelete          Action = "delete"

	// Popup actions
	ActionPopupUp     Action = "popup_up"
	ActionPopupDown   Action = "popup_down"
	ActionPopupSelect Action = "popup_select"
	ActionPopupCancel Action = "popup_cancel"
	ActionPopupErase  Action = "popup_erase" // Remove the last search character
	ActionCopyRef     Action = "copy_reference"
)

// contextActions lists the actions each context accepts
var contextActions = map[Context][]Action{
	ContextGlobal: {ActionQuit, ActionQuitForce, ActionSave},
	ContextEditor: {
		ActionShowCompletions,
		ActionCursorUp, ActionCursorDown, ActionCursorLeft, ActionCursorRight,
		ActionCursorHome, ActionCursorEnd, ActionPageUp, ActionPageDown,
		ActionNewline, ActionBackspace, ActionDelete,
	},
	ContextPopup: {
		ActionPopupUp, ActionPopupDown, ActionPopupSelect, ActionPopupCancel,
		ActionPopupErase, ActionCopyRef,
	},
}

// Contexts returns all known contexts in display order
func Contexts() []Context {
	return []Context{ContextGlobal, ContextEditor, ContextPopup}
}

// ActionsFor returns the actions that may be bound in context
func ActionsFor(context Context) []Action {
	return contextActions[context]
}

// IsKnownAction reports whether action can be bound in context
func IsKnownAction(context Context, action Action) bool {
	for _, a := range contextActions[context] {
		if a == action {
			return true
		}
	}
	return false
}
