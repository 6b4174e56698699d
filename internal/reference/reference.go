package reference

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/cetmix/towered/internal/types"
)

const (
	VariableOpen  = "{{"
	VariableClose = "}}"

	// SecretTrigger is what the user types; SecretOpen is what ends up in the script
	SecretTrigger = "#!"
	SecretOpen    = "#!cxtower.secret"
	SecretClose   = "!#"
)

var (
	secretOpenPattern = regexp.MustCompile(`#!cxtower\.secret`)

	// {{ name }} with optional padding
	variablePattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)

	// #!cxtower.secret.name!#
	secretPattern = regexp.MustCompile(`#!cxtower\.secret\.([A-Za-z0-9_.]+)!#`)
)

// FormatVariable renders a fresh variable reference
func FormatVariable(ref string) string {
	return VariableOpen + " " + ref + " " + VariableClose
}

// FormatVariableInside renders the text placed between existing braces
func FormatVariableInside(ref string) string {
	return " " + ref + " "
}

// FormatSecret renders a fresh secret reference
func FormatSecret(ref string) string {
	return SecretOpen + "." + ref + SecretClose
}

// FormatSecretInside renders the text placed after an existing opening marker.
// The replaced range starts right after "#!cxtower.secret", so the separator dot
// is part of the inserted text.
func FormatSecretInside(ref string) string {
	return "." + ref + SecretClose
}

// Format renders a fresh reference of the given kind
func Format(kind types.Kind, ref string) string {
	if kind == types.KindSecret {
		return FormatSecret(ref)
	}
	return FormatVariable(ref)
}

// InsideVariable reports whether the text before the cursor ends inside an
// open "{{" pair. The returned column is the rune offset just after that "{{".
func InsideVariable(before string) (int, bool) {
	lastOpen := strings.LastIndex(before, VariableOpen)
	if lastOpen < 0 {
		return 0, false
	}
	lastClose := strings.LastIndex(before, VariableClose)
	if lastClose >= 0 && lastOpen <= lastClose {
		return 0, false
	}
	return runeColumn(before, lastOpen+len(VariableOpen)), true
}

// InsideSecret reports whether the text before the cursor ends inside an open
// secret marker. Openings and closings are counted rather than paired, so nested
// or malformed markers can be misclassified. The returned column is the rune
// offset right after "#!cxtower.secret".
func InsideSecret(before string) (int, bool) {
	opens := secretOpenPattern.FindAllStringIndex(before, -1)
	if len(opens) == 0 {
		return 0, false
	}
	closes := strings.Count(before, SecretClose)
	lastOpen := opens[len(opens)-1][0]
	lastClose := strings.LastIndex(before, SecretClose)

	if len(opens) <= closes || lastOpen <= lastClose {
		return 0, false
	}
	return runeColumn(before, lastOpen) + utf8.RuneCountInString(SecretOpen), true
}

// WordBefore returns the trailing run of reference characters
func WordBefore(before string) string {
	i := len(before)
	for i > 0 {
		r, size := utf8.DecodeLastRuneInString(before[:i])
		if !isReferenceRune(r) {
			break
		}
		i -= size
	}
	return before[i:]
}

func isReferenceRune(r rune) bool {
	return r == '_' || r == '.' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// runeColumn converts a byte offset in s to a rune column
func runeColumn(s string, byteOffset int) int {
	return utf8.RuneCountInString(s[:byteOffset])
}

// Ref is a reference found in a script
type Ref struct {
	Kind      types.Kind
	Reference string
	Line      int // 1-based line of the first occurrence
}

// Extract lists the variable and secret references used in text.
// Each reference is reported once per kind, in order of first appearance.
func Extract(text string) []Ref {
	var refs []Ref
	seen := map[types.Kind]map[string]bool{
		types.KindVariable: {},
		types.KindSecret:   {},
	}

	for i, line := range strings.Split(text, "\n") {
		type hit struct {
			pos  int
			kind types.Kind
			ref  string
		}
		var hits []hit
		for _, m := range variablePattern.FindAllStringSubmatchIndex(line, -1) {
			hits = append(hits, hit{m[0], types.KindVariable, line[m[2]:m[3]]})
		}
		for _, m := range secretPattern.FindAllStringSubmatchIndex(line, -1) {
			hits = append(hits, hit{m[0], types.KindSecret, line[m[2]:m[3]]})
		}
		sort.SliceStable(hits, func(a, b int) bool { return hits[a].pos < hits[b].pos })
		for _, h := range hits {
			if seen[h.kind][h.ref] {
				continue
			}
			seen[h.kind][h.ref] = true
			refs = append(refs, Ref{Kind: h.kind, Reference: h.ref, Line: i + 1})
		}
	}

	return refs
}
