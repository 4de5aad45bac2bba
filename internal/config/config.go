package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// File is the service configuration. All fields are optional; zero values
// fall back to the defaults below.
type File struct {
	SiteDomain          string   `yaml:"site_domain" json:"site_domain"`
	ManifestMarker      string   `yaml:"manifest_marker" json:"manifest_marker"`
	ManifestPatterns    []string `yaml:"manifest_patterns,omitempty" json:"manifest_patterns,omitempty"`
	DebounceMs          int      `yaml:"debounce_ms" json:"debounce_ms"`
	InitRetryAttempts   int      `yaml:"init_retry_attempts" json:"init_retry_attempts"`
	InitRetryIntervalMs int      `yaml:"init_retry_interval_ms" json:"init_retry_interval_ms"`
	URLPollIntervalMs   int      `yaml:"url_poll_interval_ms" json:"url_poll_interval_ms"`
	ListenAddr          string   `yaml:"listen_addr" json:"listen_addr"`
	DBPath              string   `yaml:"db_path" json:"db_path"`
	MDNSEnable          *bool    `yaml:"mdns_enable,omitempty" json:"mdns_enable,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() File {
	return File{
		SiteDomain:          "github.com",
		ManifestMarker:      ".repos",
		ManifestPatterns:    []string{"**/*.repos"},
		DebounceMs:          100,
		InitRetryAttempts:   10,
		InitRetryIntervalMs: 250,
		URLPollIntervalMs:   2000,
		ListenAddr:          ":8135",
		DBPath:              "repolens.db",
	}
}

func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("read config file %q: %w", path, err)
	}
	return Parse(data, path)
}

func Parse(data []byte, source string) (File, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse YAML in %q: %w", source, err)
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return cfg, fmt.Errorf("invalid config in %q: %s", source, strings.Join(errs, "; "))
	}
	return cfg, nil
}

func (cfg File) Validate() []string {
	var errs []string

	if strings.TrimSpace(cfg.SiteDomain) == "" {
		errs = append(errs, "site_domain is required")
	}
	if strings.ContainsAny(cfg.SiteDomain, "/: \t") {
		errs = append(errs, fmt.Sprintf("site_domain %q must be a bare host name", cfg.SiteDomain))
	}
	if strings.TrimSpace(cfg.ManifestMarker) == "" {
		errs = append(errs, "manifest_marker is required")
	}
	for i, pattern := range cfg.ManifestPatterns {
		if strings.TrimSpace(pattern) == "" {
			errs = append(errs, fmt.Sprintf("manifest_patterns[%d] must not be empty", i))
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			errs = append(errs, fmt.Sprintf("manifest_patterns[%d] invalid glob %q", i, pattern))
		}
	}
	if cfg.DebounceMs <= 0 {
		errs = append(errs, "debounce_ms must be > 0")
	}
	if cfg.InitRetryAttempts <= 0 {
		errs = append(errs, "init_retry_attempts must be > 0")
	}
	if cfg.InitRetryIntervalMs <= 0 {
		errs = append(errs, "init_retry_interval_ms must be > 0")
	}
	if cfg.URLPollIntervalMs <= 0 {
		errs = append(errs, "url_poll_interval_ms must be > 0")
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		errs = append(errs, "listen_addr is required")
	}

	return errs
}

// Debounce returns the debounce window as a duration.
func (cfg File) Debounce() time.Duration {
	return time.Duration(cfg.DebounceMs) * time.Millisecond
}

// InitRetryInterval returns the init retry interval as a duration.
func (cfg File) InitRetryInterval() time.Duration {
	return time.Duration(cfg.InitRetryIntervalMs) * time.Millisecond
}

// URLPollInterval returns the fallback URL poll interval as a duration.
func (cfg File) URLPollInterval() time.Duration {
	return time.Duration(cfg.URLPollIntervalMs) * time.Millisecond
}

// MDNSEnabled reports whether service discovery advertising is on; it
// defaults to on when unset.
func (cfg File) MDNSEnabled() bool {
	return cfg.MDNSEnable == nil || *cfg.MDNSEnable
}
