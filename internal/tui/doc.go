/*
Package tui implements the interactive script editor.

# Overview

The editor shows one command script with line numbers in a scrollable
viewport and a status bar below it. Typing "{{" or "#!" opens the completion
popup next to the cursor; the popup is drawn over the text and placed so it
stays inside the pane.

# Input

Keys resolve through the keybinds registry. While the popup is open, typed
characters refine its search instead of reaching the buffer, and backspace
removes the last search character. Mouse clicks on a popup row select it; a
click anywhere else closes the popup and moves the cursor there.

# Messages

Status and warning messages (failed fetches, saves, clipboard copies) appear
in the status bar and clear after the configured message timeout.
*/
package tui
