// Package config handles configuration loading, validation, and hot reload
// for cantotype.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete cantotype configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Provider configures the remote transliteration endpoint.
	Provider ProviderConfig `toml:"provider" json:"provider" yaml:"provider"`

	// Input configures the typing state machine.
	Input InputConfig `toml:"input" json:"input" yaml:"input"`

	// Output configures how committed text leaves the program.
	Output OutputConfig `toml:"output" json:"output" yaml:"output"`

	// History configures the selection-history store.
	History HistoryConfig `toml:"history" json:"history" yaml:"history"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// ProviderConfig holds the wire-contract parameters.
type ProviderConfig struct {
	// Endpoint is the transliteration request URL.
	Endpoint string `toml:"endpoint" json:"endpoint" yaml:"endpoint"`

	// InputTool is the provider's input scheme/locale tag (itc).
	InputTool string `toml:"input_tool" json:"input_tool" yaml:"input_tool"`

	// CandidateCap is the server-side candidate limit per request.
	CandidateCap int `toml:"candidate_cap" json:"candidate_cap" yaml:"candidate_cap"`

	// CallbackName is the constant JSONP callback identifier. Changing it
	// changes every request URL; it must never be randomized.
	CallbackName string `toml:"callback_name" json:"callback_name" yaml:"callback_name"`

	// TimeoutMs bounds one provider round-trip.
	TimeoutMs int `toml:"timeout_ms" json:"timeout_ms" yaml:"timeout_ms"`
}

// InputConfig holds state-machine tuning.
type InputConfig struct {
	// PageSize is the number of candidates per page (selection digits 1-6).
	PageSize int `toml:"page_size" json:"page_size" yaml:"page_size"`

	// DebounceShortMs applies before the first selection of a session.
	DebounceShortMs int `toml:"debounce_short_ms" json:"debounce_short_ms" yaml:"debounce_short_ms"`

	// DebounceLongMs applies once a selection has occurred.
	DebounceLongMs int `toml:"debounce_long_ms" json:"debounce_long_ms" yaml:"debounce_long_ms"`

	// CacheSize bounds the locator memoization cache.
	CacheSize int `toml:"cache_size" json:"cache_size" yaml:"cache_size"`
}

// OutputConfig holds presentation-boundary options.
type OutputConfig struct {
	// CopyMode prints the committed buffer to stdout on exit.
	CopyMode bool `toml:"copy_mode" json:"copy_mode" yaml:"copy_mode"`

	// Simplified converts committed text to simplified script.
	Simplified bool `toml:"simplified" json:"simplified" yaml:"simplified"`
}

// HistoryConfig holds the selection-history store configuration.
type HistoryConfig struct {
	// Enabled turns history recording on.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is "debug", "info", "warn", or "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file (when Output is "file").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	dir := DataDir()

	return &Config{
		Version: Version,
		Provider: ProviderConfig{
			Endpoint:     "https://inputtools.google.com/request",
			InputTool:    "yue-hant-t-i0-und",
			CandidateCap: 13,
			CallbackName: "_callbacks____cantotype",
			TimeoutMs:    10000,
		},
		Input: InputConfig{
			PageSize:        6,
			DebounceShortMs: 100,
			DebounceLongMs:  200,
			CacheSize:       100,
		},
		Output: OutputConfig{
			CopyMode:   false,
			Simplified: false,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join(dir, "history.db"),
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			Output:   "file",
			FilePath: filepath.Join(dir, "cantotype.log"),
		},
	}
}

// DataDir returns the base cantotype directory, honoring the
// CANTOTYPE_DATA_DIR override.
func DataDir() string {
	if envDir := os.Getenv("CANTOTYPE_DATA_DIR"); envDir != "" {
		return envDir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cantotype")
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Load reads configuration from path. A missing file yields defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// ApplyEnvOverrides applies CANTOTYPE_* environment overrides.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("CANTOTYPE_ENDPOINT"); v != "" {
		c.Provider.Endpoint = v
	}
	if v := os.Getenv("CANTOTYPE_INPUT_TOOL"); v != "" {
		c.Provider.InputTool = v
	}
	if v := os.Getenv("CANTOTYPE_HISTORY_PATH"); v != "" {
		c.History.Path = v
	}
	if v := os.Getenv("CANTOTYPE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CANTOTYPE_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}
	if v := os.Getenv("CANTOTYPE_SIMPLIFIED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Output.Simplified = b
		}
	}
}

// EnsureDirectories creates the directories the configuration points at.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		filepath.Dir(c.History.Path),
		filepath.Dir(c.Logging.FilePath),
	}
	for _, dir := range dirs {
		if dir == "" || dir == "." {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// SaveConfig writes cfg to path as TOML.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}

// LoadOrCreate loads the configuration at path, writing a default file
// when none exists. The second result reports whether a file was created.
func LoadOrCreate(path string) (*Config, bool, error) {
	if path == "" {
		path = ConfigPath()
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()
		if err := SaveConfig(cfg, path); err != nil {
			return nil, false, fmt.Errorf("create default config: %w", err)
		}
		return cfg, true, nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, fmt.Errorf("validation failed: %w", err)
	}
	return cfg, false, nil
}
