package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/cetmix/towered/internal/types"
)

// SupportedManifestVersion is the newest Tower YAML format this tool reads
const SupportedManifestVersion = 1

var (
	// ErrUnsupportedVersion is returned for manifests newer than SupportedManifestVersion
	ErrUnsupportedVersion = errors.New("manifest version is higher than supported")

	// ErrNoRecords is returned for manifests without records
	ErrNoRecords = errors.New("manifest doesn't contain any records")
)

// Manifest is an in-memory source built from a Tower export or a candidate file
type Manifest struct {
	variables []types.Variable
	keys      []types.Key

	seenVariables map[string]bool
	seenKeys      map[string]bool
}

func newManifest() *Manifest {
	return &Manifest{
		seenVariables: make(map[string]bool),
		seenKeys:      make(map[string]bool),
	}
}

// LoadManifest reads a manifest file. ".json" and ".jsonc" files are read as
// candidate files, everything else as Tower YAML.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		m, err := ParseCandidateFile(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	default:
		m, err := ParseManifest(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return m, nil
	}
}

// ParseManifest reads a Tower YAML export.
//
// Variables and keys are collected from anywhere in the record tree:
// top-level records by their cetmix_tower_model, variables nested under
// variable_id/variable_ids, and keys nested under any field (secret_ids,
// ssh_key_id, ...) recognized by their key_type. The first occurrence of a
// reference wins.
func ParseManifest(data []byte) (*Manifest, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid manifest yaml: %w", err)
	}
	if doc == nil {
		return nil, ErrNoRecords
	}

	if version, ok := doc["cetmix_tower_yaml_version"].(int); ok && version > SupportedManifestVersion {
		return nil, fmt.Errorf("%w: %d > %d", ErrUnsupportedVersion, version, SupportedManifestVersion)
	}

	records, _ := doc["records"].([]any)
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	m := newManifest()
	for _, record := range records {
		m.walk(record, "")
	}
	return m, nil
}

// walk visits node depth-first. Map keys are visited in sorted order so the
// result does not depend on map iteration.
func (m *Manifest) walk(node any, field string) {
	switch v := node.(type) {
	case map[string]any:
		m.collect(v, field)
		for _, key := range slices.Sorted(maps.Keys(v)) {
			m.walk(v[key], key)
		}
	case []any:
		for _, child := range v {
			m.walk(child, field)
		}
	}
}

func (m *Manifest) collect(record map[string]any, field string) {
	reference := stringField(record, "reference")
	if reference == "" {
		return
	}
	name := stringField(record, "name")
	model := stringField(record, "cetmix_tower_model")

	switch {
	case model == "variable", model == "" && (field == "variable_id" || field == "variable_ids"):
		m.addVariable(types.Variable{
			Name:      name,
			Reference: reference,
			Note:      stringField(record, "note"),
		})

	case model == "key", hasField(record, "key_type"):
		m.addKey(types.Key{
			Name:      name,
			Reference: reference,
			KeyType:   types.KeyType(stringField(record, "key_type")),
			Note:      stringField(record, "note"),
		})
	}
}

func (m *Manifest) addVariable(v types.Variable) {
	if m.seenVariables[v.Reference] {
		return
	}
	m.seenVariables[v.Reference] = true
	m.variables = append(m.variables, v)
}

func (m *Manifest) addKey(k types.Key) {
	if k.KeyType == "" {
		k.KeyType = types.DefaultSecretKeyType
	}
	if m.seenKeys[k.Reference] {
		return
	}
	m.seenKeys[k.Reference] = true
	m.keys = append(m.keys, k)
}

// candidateFile is the JSON(C) layout accepted by ParseCandidateFile
type candidateFile struct {
	Variables []types.Variable `json:"variables"`
	Secrets   []types.Key      `json:"secrets"`
}

// ParseCandidateFile reads a JSON document (comments and trailing commas
// allowed) of the form {"variables": [...], "secrets": [...]}.
func ParseCandidateFile(data []byte) (*Manifest, error) {
	var file candidateFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &file); err != nil {
		return nil, fmt.Errorf("invalid candidate file: %w", err)
	}

	m := newManifest()
	for _, v := range file.Variables {
		m.addVariable(v)
	}
	for _, k := range file.Secrets {
		m.addKey(k)
	}
	return m, nil
}

// Records returns the collected variables and keys
func (m *Manifest) Records() ([]types.Variable, []types.Key) {
	return slices.Clone(m.variables), slices.Clone(m.keys)
}

// Variables implements Source
func (m *Manifest) Variables(_ context.Context) ([]types.Candidate, error) {
	items := make([]types.Candidate, 0, len(m.variables))
	for _, v := range m.variables {
		items = append(items, v.Candidate())
	}
	return items, nil
}

// Secrets implements Source. An empty keyType lists every key.
func (m *Manifest) Secrets(_ context.Context, keyType types.KeyType) ([]types.Candidate, error) {
	items := make([]types.Candidate, 0, len(m.keys))
	for _, k := range m.keys {
		if keyType != "" && k.KeyType != keyType {
			continue
		}
		items = append(items, k.Candidate())
	}
	return items, nil
}

func stringField(record map[string]any, key string) string {
	switch v := record[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case int:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

func hasField(record map[string]any, key string) bool {
	_, ok := record[key]
	return ok
}
