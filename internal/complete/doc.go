/*
Package complete implements reference autocompletion for Tower command scripts.

# Overview

Two pieces cooperate:

  - Detector watches a text Surface. When the text left of the cursor ends in
    "{{" (variables) or "#!" (secrets) it removes the trigger, fetches the
    candidate list and opens a Session.
  - Popup filters and ranks the session's candidates, tracks the selected row
    and reports the user's choice back to the Detector, which splices the
    formatted reference into the line.

# Lifecycle

At most one Session is open. Opening a new one closes the previous one. Closing,
whether by selection, Escape or an outside click, cancels the settle and search
ticks, removes the outside-click handler and forgets any in-flight fetch.

# Timing

Inspection runs one settle delay after the last edit and filtering runs one
search delay after the last search keystroke. Both use debounce.Slot, so only
the latest tick is applied.

# Ranking

Filter scores each candidate against the search term (case-insensitive):

	exact name or reference     1000
	prefix of either            100
	substring of either         10
	name contains the term      +5
	shortness bonus             +max(0, 50 - min(len(name), len(reference)))

Candidates that match neither field are dropped and ties keep input order.
*/
package complete
