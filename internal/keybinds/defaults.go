package keybinds

// NewDefaultRegistry creates a registry with all default keybindings
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	registerGlobalBindings(r)
	registerEditorBindings(r)
	registerPopupBindings(r)

	return r
}

// registerGlobalBindings sets up bindings available in all modes
func registerGlobalBindings(r *Registry) {
	r.Register(ContextGlobal, "ctrl+c", ActionQuitForce)
	r.Register(ContextGlobal, "ctrl+q", ActionQuit)
	r.Register(ContextGlobal, "ctrl+s", ActionSave)
}

// registerEditorBindings sets up keybindings for the script editor
func registerEditorBindings(r *Registry) {
	r.RegisterMultiple(ContextEditor, []string{"ctrl+@", "alt+/"}, ActionShowCompletions)

	r.Register(ContextEditor, "up", ActionCursorUp)
	r.Register(ContextEditor, "down", ActionCursorDown)
	r.Register(ContextEditor, "left", ActionCursorLeft)
	r.Register(ContextEditor, "right", ActionCursorRight)
	r.RegisterMultiple(ContextEditor, []string{"home", "ctrl+a"}, ActionCursorHome)
	r.RegisterMultiple(ContextEditor, []string{"end", "ctrl+e"}, ActionCursorEnd)
	r.Register(ContextEditor, "pgup", ActionPageUp)
	r.Register(ContextEditor, "pgdown", ActionPageDown)

	r.Register(ContextEditor, "enter", ActionNewline)
	r.Register(ContextEditor, "backspace", ActionBackspace)
	r.Register(ContextEditor, "delete", ActionDelete)
}

// registerPopupBindings sets up keybindings while the completion popup is open
func registerPopupBindings(r *Registry) {
	r.RegisterMultiple(ContextPopup, []string{"up", "ctrl+p"}, ActionPopupUp)
	r.RegisterMultiple(ContextPopup, []string{"down", "ctrl+n"}, ActionPopupDown)
	r.RegisterMultiple(ContextPopup, []string{"enter", "tab"}, ActionPopupSelect)
	r.Register(ContextPopup, "esc", ActionPopupCancel)
	r.Register(ContextPopup, "backspace", ActionPopupErase)
	r.Register(ContextPopup, "ctrl+y", ActionCopyRef)
}
