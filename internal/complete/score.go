package complete

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"

	"github.com/cetmix/towered/internal/types"
)

const (
	scoreExact     = 1000
	scorePrefix    = 100
	scoreSubstring = 10
	scoreNameBonus = 5
	lengthBonusCap = 50
)

// Scored is a candidate with its match score for one search term
type Scored struct {
	Item  types.Candidate
	Score int
}

// Score rates item against search, ignoring case.
// ok is false when neither the name nor the reference contains the term.
func Score(item types.Candidate, search string) (int, bool) {
	fold := cases.Fold()
	return score(fold, item, fold.String(strings.TrimSpace(search)))
}

// score expects term to be folded already; a Caser is not safe for concurrent use
func score(fold cases.Caser, item types.Candidate, term string) (total int, ok bool) {
	name := fold.String(item.Name)
	ref := fold.String(item.Reference)

	switch {
	case name == term || ref == term:
		total = scoreExact
	case strings.HasPrefix(name, term) || strings.HasPrefix(ref, term):
		total = scorePrefix
	case strings.Contains(name, term) || strings.Contains(ref, term):
		total = scoreSubstring
	default:
		return 0, false
	}

	if strings.Contains(name, term) {
		total += scoreNameBonus
	}

	shortest := min(utf8.RuneCountInString(item.Name), utf8.RuneCountInString(item.Reference))
	total += max(0, lengthBonusCap-shortest)

	return total, true
}

// Rank scores every item against search and returns the matches, best first.
// Equal scores keep their input order.
func Rank(items []types.Candidate, search string) []Scored {
	fold := cases.Fold()
	term := fold.String(strings.TrimSpace(search))
	scored := make([]Scored, 0, len(items))
	for _, item := range items {
		if s, ok := score(fold, item, term); ok {
			scored = append(scored, Scored{Item: item, Score: s})
		}
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

// Filter returns the candidates matching search, best first.
// A blank search returns items unchanged.
func Filter(items []types.Candidate, search string) []types.Candidate {
	if strings.TrimSpace(search) == "" {
		return items
	}
	ranked := Rank(items, search)
	out := make([]types.Candidate, len(ranked))
	for i, s := range ranked {
		out[i] = s.Item
	}
	return out
}
