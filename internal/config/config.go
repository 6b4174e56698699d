package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cetmix/towered/internal/types"
)

const (
	// FilePermissions is the default permission mode for regular files (read/write for owner, read for others)
	FilePermissions = 0644
	// DirPermissions is the default permission mode for directories (rwxr-xr-x)
	DirPermissions = 0755

	// LocalSettingsFile overrides the global settings when present in the working directory
	LocalSettingsFile = ".towered.yaml"
)

var (
	// ConfigDir is the global configuration directory (~/.towered)
	ConfigDir string

	// DatabasePath is the SQLite store of variables and keys
	DatabasePath string

	// LogFile receives the TUI log
	LogFile string

	// KeybindsFile holds user keybinding overrides
	KeybindsFile string

	// SettingsFile is the global settings file
	SettingsFile string
)

// ErrUnknownSource is returned for an unsupported candidate source
var ErrUnknownSource = errors.New("unknown candidate source")

// SourceKind selects where candidates come from
type SourceKind string

const (
	SourceStore    SourceKind = "store"
	SourceManifest SourceKind = "manifest"
	SourceRemote   SourceKind = "remote"
)

// Settings is the user configuration
type Settings struct {
	Source   SourceKind     `yaml:"source"`
	Manifest string         `yaml:"manifest,omitempty"`
	Remote   RemoteSettings `yaml:"remote,omitempty"`

	SecretKeyType types.KeyType `yaml:"secret_key_type"`

	SettleDelay    time.Duration `yaml:"settle_delay"`
	SearchDelay    time.Duration `yaml:"search_delay"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
	MessageTimeout time.Duration `yaml:"message_timeout"`

	Popup PopupSettings `yaml:"popup"`

	LogLevel string `yaml:"log_level"`
}

// RemoteSettings configures the HTTP candidate source
type RemoteSettings struct {
	BaseURL       string `yaml:"base_url,omitempty"`
	VariablesPath string `yaml:"variables_path,omitempty"`
	SecretsPath   string `yaml:"secrets_path,omitempty"`

	// Query is a JMESPath expression yielding [{name, reference}]
	Query string `yaml:"query,omitempty"`

	// Either a static bearer token or OAuth2 client credentials
	Token        string   `yaml:"token,omitempty"`
	ClientID     string   `yaml:"client_id,omitempty"`
	ClientSecret string   `yaml:"client_secret,omitempty"`
	TokenURL     string   `yaml:"token_url,omitempty"`
	Scopes       []string `yaml:"scopes,omitempty"`
}

// PopupSettings controls the completion popup size
type PopupSettings struct {
	MaxVisible int `yaml:"max_visible"`
	Width      int `yaml:"width"`
}

// DefaultSettings returns the built-in configuration
func DefaultSettings() Settings {
	return Settings{
		Source:         SourceStore,
		SecretKeyType:  types.DefaultSecretKeyType,
		SettleDelay:    30 * time.Millisecond,
		SearchDelay:    100 * time.Millisecond,
		FetchTimeout:   5 * time.Second,
		CacheTTL:       30 * time.Second,
		MessageTimeout: 4 * time.Second,
		Popup: PopupSettings{
			MaxVisible: 8,
			Width:      40,
		},
		Remote: RemoteSettings{
			VariablesPath: "/cetmix_tower/variables",
			SecretsPath:   "/cetmix_tower/keys",
			Query:         "result[].{name: name, reference: reference}",
		},
		LogLevel: "info",
	}
}

// Validate checks the settings for values the editor cannot work with
func (s Settings) Validate() error {
	switch s.Source {
	case SourceStore:
	case SourceManifest:
		if s.Manifest == "" {
			return fmt.Errorf("source %q requires a manifest path", s.Source)
		}
	case SourceRemote:
		if s.Remote.BaseURL == "" {
			return fmt.Errorf("source %q requires remote.base_url", s.Source)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSource, s.Source)
	}

	delays := map[string]time.Duration{
		"settle_delay":  s.SettleDelay,
		"search_delay":  s.SearchDelay,
		"fetch_timeout": s.FetchTimeout,
	}
	for name, d := range delays {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, d)
		}
	}
	if s.CacheTTL < 0 {
		return fmt.Errorf("cache_ttl must not be negative, got %s", s.CacheTTL)
	}
	if s.Popup.MaxVisible <= 0 || s.Popup.Width <= 0 {
		return fmt.Errorf("popup size must be positive")
	}
	return nil
}

// HomeEnv overrides the configuration directory when set
const HomeEnv = "TOWERED_HOME"

// Initialize sets up the configuration directory and files
// It creates ~/.towered/ (or $TOWERED_HOME) if it doesn't exist
func Initialize() error {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return InitializeAt(dir)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	return InitializeAt(filepath.Join(homeDir, ".towered"))
}

// InitializeAt sets the global paths under dir and creates default files
func InitializeAt(dir string) error {
	ConfigDir = dir
	DatabasePath = filepath.Join(ConfigDir, "towered.db")
	LogFile = filepath.Join(ConfigDir, "towered.log")
	KeybindsFile = filepath.Join(ConfigDir, "keybinds.jsonc")
	SettingsFile = filepath.Join(ConfigDir, "config.yaml")

	if err := os.MkdirAll(ConfigDir, DirPermissions); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", ConfigDir, err)
	}

	// Create default settings file if it doesn't exist
	if _, err := os.Stat(SettingsFile); os.IsNotExist(err) {
		if err := SaveSettings(SettingsFile, DefaultSettings()); err != nil {
			return fmt.Errorf("failed to create settings file: %w", err)
		}
	}

	return nil
}

// GetSettingsFilePath returns the settings file path (local or global)
func GetSettingsFilePath() string {
	if _, err := os.Stat(LocalSettingsFile); err == nil {
		return LocalSettingsFile
	}
	return SettingsFile
}

// LoadSettings reads path over the defaults. A missing file yields the defaults.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return settings, nil
		}
		return settings, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &settings); err != nil {
		return settings, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}

	settings.Manifest = expandHome(settings.Manifest)

	if err := settings.Validate(); err != nil {
		return settings, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return settings, nil
}

// SaveSettings writes settings as YAML
func SaveSettings(path string, settings Settings) error {
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	if err := os.WriteFile(path, data, FilePermissions); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// expandHome expands a leading "~/"
func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(homeDir, path[2:])
}
