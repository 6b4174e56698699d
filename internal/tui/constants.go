package tui

// UI Layout Constants

const (
	StatusBarHeight = 1   // Footer line below the editor
	MaxStatusLength = 100 // Footer messages are truncated past this
	TabWidth        = 4   // Spaces inserted for tab

	PopupBorder     = 1 // Border cells on each side of the popup
	PopupHeaderRows = 1 // Search line above the items
	PopupLineHeight = 1 // Terminal rows per text line, for placement
	MinPopupWidth   = 16
)
