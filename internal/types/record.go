package types

// KeyType mirrors the key types of a Tower key record
type KeyType string

const (
	KeyTypeSecret KeyType = "s"
	KeyTypeSSH    KeyType = "k"

	// DefaultSecretKeyType is the key type offered after a "#!" trigger
	DefaultSecretKeyType = KeyTypeSecret
)

// Variable is a stored or imported variable definition
type Variable struct {
	Name      string `json:"name" yaml:"name"`
	Reference string `json:"reference" yaml:"reference"`
	Note      string `json:"note,omitempty" yaml:"note,omitempty"`
}

// Candidate returns the completion entry for the variable
func (v Variable) Candidate() Candidate {
	return Candidate{Name: v.Name, Reference: v.Reference}
}

// Key is a stored or imported key (secret or SSH key). Values are never kept.
type Key struct {
	Name      string  `json:"name" yaml:"name"`
	Reference string  `json:"reference" yaml:"reference"`
	KeyType   KeyType `json:"key_type" yaml:"key_type"`
	Note      string  `json:"note,omitempty" yaml:"note,omitempty"`
}

// Candidate returns the completion entry for the key
func (k Key) Candidate() Candidate {
	return Candidate{Name: k.Name, Reference: k.Reference}
}
