package keybinds

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/jsonc"
)

// Config represents the user's keybinding configuration.
// Each section maps an action to a comma-separated list of keys.
type Config struct {
	Version string            `json:"version"`
	Global  map[string]string `json:"global,omitempty"`
	Editor  map[string]string `json:"editor,omitempty"`
	Popup   map[string]string `json:"popup,omitempty"`
}

// sections pairs each config section with its context
func (c *Config) sections() map[Context]map[string]string {
	return map[Context]map[string]string{
		ContextGlobal: c.Global,
		ContextEditor: c.Editor,
		ContextPopup:  c.Popup,
	}
}

// LoadConfig loads keybinding configuration from a JSONC file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(jsonc.ToJSON(data), &config); err != nil {
		return nil, fmt.Errorf("invalid keybinds.jsonc format: %w", err)
	}

	return &config, nil
}

// SaveConfig saves keybinding configuration as JSON with a leading comment
func SaveConfig(config *Config, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	header := "// towered keybindings: action -> comma-separated keys\n"
	return os.WriteFile(path, append([]byte(header), data...), 0644)
}

// splitKeys parses "up, k" into ["up", "k"]
func splitKeys(keys string) []string {
	var out []string
	for _, key := range strings.Split(keys, ",") {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// ApplyConfig applies user configuration to a registry.
// A configured action replaces all of its default keys in that context.
func ApplyConfig(registry *Registry, config *Config) error {
	for _, context := range Contexts() {
		for actionStr, keys := range config.sections()[context] {
			action := Action(actionStr)
			if !IsKnownAction(context, action) {
				return fmt.Errorf("unknown action %q in context %q", actionStr, context)
			}

			registry.Unbind(context, action)
			for _, key := range splitKeys(keys) {
				if err := ValidateKey(key); err != nil {
					return fmt.Errorf("action %q: %w", actionStr, err)
				}
				registry.Register(context, key, action)
			}
		}
	}

	return nil
}

// LoadOrDefault loads user config if it exists, otherwise returns default registry
func LoadOrDefault(configPath string) (*Registry, error) {
	registry := NewDefaultRegistry()

	if _, err := os.Stat(configPath); err == nil {
		config, err := LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load keybinds.jsonc: %w", err)
		}

		if result := NewValidator().ValidateConfig(config); result.HasErrors() {
			return nil, fmt.Errorf("invalid keybinds.jsonc:\n%s", result)
		}

		if err := ApplyConfig(registry, config); err != nil {
			return nil, fmt.Errorf("failed to apply keybinds config: %w", err)
		}
	}

	return registry, nil
}

// ExportDefaults exports the default keybindings as a config
func ExportDefaults() *Config {
	registry := NewDefaultRegistry()
	config := &Config{
		Version: "1.0",
		Global:  make(map[string]string),
		Editor:  make(map[string]string),
		Popup:   make(map[string]string),
	}

	for context, section := range config.sections() {
		for _, action := range ActionsFor(context) {
			if keys := registry.keysFor(context, action); len(keys) > 0 {
				section[string(action)] = strings.Join(keys, ",")
			}
		}
	}

	return config
}

// CreateExampleConfig writes the default bindings to path
func CreateExampleConfig(path string) error {
	return SaveConfig(ExportDefaults(), path)
}
