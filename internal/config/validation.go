package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Provider.Endpoint == "" {
		errs = append(errs, errors.New("provider.endpoint is required"))
	} else if u, err := url.Parse(c.Provider.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("provider.endpoint %q is not an absolute URL", c.Provider.Endpoint))
	}

	if c.Provider.InputTool == "" {
		errs = append(errs, errors.New("provider.input_tool is required"))
	}

	if c.Provider.CandidateCap < 1 {
		errs = append(errs, fmt.Errorf("provider.candidate_cap must be >= 1, got %d", c.Provider.CandidateCap))
	}

	if c.Provider.CallbackName == "" {
		errs = append(errs, errors.New("provider.callback_name is required"))
	}

	if c.Provider.TimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("provider.timeout_ms must be >= 0, got %d", c.Provider.TimeoutMs))
	}

	if c.Input.PageSize < 1 || c.Input.PageSize > 6 {
		// Selection digits are 1-6; a larger page would have unreachable
		// candidates.
		errs = append(errs, fmt.Errorf("input.page_size must be in [1,6], got %d", c.Input.PageSize))
	}

	if c.Input.DebounceShortMs < 0 || c.Input.DebounceLongMs < 0 {
		errs = append(errs, errors.New("input debounce windows must be >= 0"))
	}

	if c.Input.CacheSize < 1 {
		errs = append(errs, fmt.Errorf("input.cache_size must be >= 1, got %d", c.Input.CacheSize))
	}

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not a known level", c.Logging.Level))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format %q is not a known format", c.Logging.Format))
	}

	if strings.ToLower(c.Logging.Output) == "file" && c.Logging.FilePath == "" {
		errs = append(errs, errors.New("logging.file_path is required for file output"))
	}

	return errors.Join(errs...)
}
