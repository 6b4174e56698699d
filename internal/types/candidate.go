package types

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Candidate is a selectable variable or secret.
// Reference is the token written into the script, Name is the display label.
type Candidate struct {
	Name      string `json:"name" yaml:"name"`
	Reference string `json:"reference" yaml:"reference"`
}

var (
	ErrEmptyReference   = errors.New("reference is empty")
	ErrInvalidReference = errors.New("reference contains whitespace")
	ErrEmptyName        = errors.New("name is empty")
)

// Validate checks that the candidate can be inserted into a script
func (c Candidate) Validate() error {
	if c.Reference == "" {
		return ErrEmptyReference
	}
	if strings.IndexFunc(c.Reference, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidReference, c.Reference)
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}

// ValidateCandidates filters raw records at the fetch boundary.
// Records without a name are labelled with their reference. Invalid records and
// repeated references are dropped and reported; the first occurrence wins.
func ValidateCandidates(raw []Candidate) ([]Candidate, []error) {
	valid := make([]Candidate, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	var dropped []error

	for i, c := range raw {
		c.Name = strings.TrimSpace(c.Name)
		c.Reference = strings.TrimSpace(c.Reference)
		if c.Name == "" {
			c.Name = c.Reference
		}
		if err := c.Validate(); err != nil {
			dropped = append(dropped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		if seen[c.Reference] {
			dropped = append(dropped, fmt.Errorf("record %d: duplicate reference %q", i, c.Reference))
			continue
		}
		seen[c.Reference] = true
		valid = append(valid, c)
	}

	return valid, dropped
}

// Kind tells which reference syntax a trigger session completes
type Kind int

const (
	KindVariable Kind = iota
	KindSecret
)

func (k Kind) String() string {
	switch k {
	case KindVariable:
		return "variable"
	case KindSecret:
		return "secret"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind accepts singular and plural forms ("variable", "secrets", ...)
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "variable", "variables", "var", "vars":
		return KindVariable, nil
	case "secret", "secrets":
		return KindSecret, nil
	}
	return KindVariable, fmt.Errorf("unknown kind %q (expected variables or secrets)", s)
}
