/*
Package keybinds provides customizable keyboard binding management.

# Overview

Keys map to actions within a context. The editor asks the registry which
action a key press means and never compares key strings itself.

# Contexts

  - global: quit, force quit, save
  - editor: cursor movement, editing, manual completion
  - popup: completion popup navigation, selection, cancel, copy

A key bound in the editor or popup context overrides the same key in the
global context.

# Configuration

Users override bindings in ~/.towered/keybinds.jsonc. Comments and trailing
commas are allowed. Each section maps an action to a comma-separated key list:

	{
	  // vim-style popup navigation
	  "popup": {
	    "popup_up": "up,ctrl+k",
	    "popup_down": "down,ctrl+j",
	  },
	}

A configured action replaces all of its default keys in that context. Unknown
actions, empty keys and keys claimed by two actions of one context are
rejected before anything is applied. Rebinding ctrl+c is allowed but reported
as a warning.
*/
package keybinds
