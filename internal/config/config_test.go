package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != Version {
		t.Errorf("Version = %d, want %d", cfg.Version, Version)
	}
	if cfg.Provider.Endpoint != "https://inputtools.google.com/request" {
		t.Errorf("unexpected endpoint: %s", cfg.Provider.Endpoint)
	}
	if cfg.Provider.InputTool != "yue-hant-t-i0-und" {
		t.Errorf("unexpected input tool: %s", cfg.Provider.InputTool)
	}
	if cfg.Provider.CandidateCap != 13 {
		t.Errorf("CandidateCap = %d, want 13", cfg.Provider.CandidateCap)
	}
	if cfg.Input.PageSize != 6 {
		t.Errorf("PageSize = %d, want 6", cfg.Input.PageSize)
	}
	if cfg.Input.DebounceShortMs != 100 || cfg.Input.DebounceLongMs != 200 {
		t.Errorf("debounce windows = %d/%d, want 100/200",
			cfg.Input.DebounceShortMs, cfg.Input.DebounceLongMs)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
version = 1

[provider]
endpoint = "https://example.com/request"
input_tool = "yue-hant-t-i0-und"
candidate_cap = 7

[input]
page_size = 4
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.Endpoint != "https://example.com/request" {
		t.Errorf("endpoint = %s", cfg.Provider.Endpoint)
	}
	if cfg.Provider.CandidateCap != 7 {
		t.Errorf("CandidateCap = %d, want 7", cfg.Provider.CandidateCap)
	}
	if cfg.Input.PageSize != 4 {
		t.Errorf("PageSize = %d, want 4", cfg.Input.PageSize)
	}
	// Sections absent from the file keep defaults.
	if cfg.Input.DebounceShortMs != 100 {
		t.Errorf("DebounceShortMs = %d, want default 100", cfg.Input.DebounceShortMs)
	}
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.CandidateCap != 13 {
		t.Errorf("expected defaults, got CandidateCap=%d", cfg.Provider.CandidateCap)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	content := `{"provider": {"candidate_cap": 5}}`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Provider.CandidateCap != 5 {
		t.Errorf("CandidateCap = %d, want 5", cfg.Provider.CandidateCap)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CANTOTYPE_ENDPOINT", "https://override.example/req")
	t.Setenv("CANTOTYPE_SIMPLIFIED", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	if cfg.Provider.Endpoint != "https://override.example/req" {
		t.Errorf("endpoint override not applied: %s", cfg.Provider.Endpoint)
	}
	if !cfg.Output.Simplified {
		t.Error("simplified override not applied")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty endpoint", func(c *Config) { c.Provider.Endpoint = "" }, "endpoint"},
		{"relative endpoint", func(c *Config) { c.Provider.Endpoint = "/request" }, "absolute URL"},
		{"zero cap", func(c *Config) { c.Provider.CandidateCap = 0 }, "candidate_cap"},
		{"oversized page", func(c *Config) { c.Input.PageSize = 9 }, "page_size"},
		{"zero cache", func(c *Config) { c.Input.CacheSize = 0 }, "cache_size"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "level"},
		{"history without path", func(c *Config) { c.History.Enabled = true; c.History.Path = "" }, "history.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if !created {
		t.Error("expected file creation on first call")
	}
	if cfg.Provider.CandidateCap != 13 {
		t.Errorf("CandidateCap = %d, want 13", cfg.Provider.CandidateCap)
	}

	cfg2, created2, err := LoadOrCreate(path)
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}
	if created2 {
		t.Error("second call should not recreate the file")
	}
	if cfg2.Provider.Endpoint != cfg.Provider.Endpoint {
		t.Errorf("round-trip mismatch: %s vs %s", cfg2.Provider.Endpoint, cfg.Provider.Endpoint)
	}
}

func TestLoaderReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	if err := SaveConfig(DefaultConfig(), path); err != nil {
		t.Fatalf("save config: %v", err)
	}

	l := NewLoader(path)
	defer l.Close()

	cfg, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Input.PageSize != 6 {
		t.Errorf("PageSize = %d, want 6", cfg.Input.PageSize)
	}

	if err := l.Watch(); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	changed := make(chan *Config, 1)
	l.OnChange(func(c *Config) {
		select {
		case changed <- c:
		default:
		}
	})

	cfg2 := DefaultConfig()
	cfg2.Input.PageSize = 3
	if err := SaveConfig(cfg2, path); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case got := <-changed:
		if got.Input.PageSize != 3 {
			t.Errorf("reloaded PageSize = %d, want 3", got.Input.PageSize)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("reload callback never fired")
	}
}
