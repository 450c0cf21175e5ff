// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ReplacePolicy selects the cache-replacement algorithm applied during
// refresh. The empty value and ReplaceNone ("false") both disable
// replacement: files are admitted in scan order with no priority
// ordering, while a files_size ceiling, when set, is still enforced.
type ReplacePolicy string

const (
	ReplaceNone      ReplacePolicy = "false"
	ReplaceLFUDA     ReplacePolicy = "lfuda"
	ReplaceLFUDAGDSF ReplacePolicy = "lfuda_gdsf"
	ReplaceLRU       ReplacePolicy = "lru"
)

// ReadTarget names a single allow-listed file and the byte segment of it
// to serve. Offset and Length are nil when unspecified: no offset means
// "from the start" (or, if negative, from EOF); no length means "to EOF".
type ReadTarget struct {
	Name   string `yaml:"name" validate:"required"`
	Offset *int64 `yaml:"offset,omitempty"`
	Length *int64 `yaml:"length,omitempty"`
}

// RedirectRule maps a subscription pattern to a redirect-target pattern.
type RedirectRule struct {
	Pattern       string `yaml:"pattern" validate:"required"`
	TargetPattern string `yaml:"target_pattern" validate:"required"`
}

// NotifyRule maps a subscription pattern to a notification target name.
type NotifyRule struct {
	Pattern string `yaml:"pattern" validate:"required"`
	Target  string `yaml:"target" validate:"required"`
}

// Config is the master configuration for a filecached instance. It
// mirrors the external-interface configuration table of the
// specification directly: every key there is a field here.
type Config struct {
	// Directory is the root path scanned for content. Required.
	Directory string `yaml:"directory" validate:"required"`

	// FilesSizeKiB is the optional global byte ceiling, in KiB. Zero
	// means unbounded.
	FilesSizeKiB int64 `yaml:"files_size" validate:"gte=0"`

	// RefreshSeconds is the rescan period. Zero disables the refresh
	// loop entirely (the table is populated once at startup).
	RefreshSeconds int64 `yaml:"refresh" validate:"omitempty,gte=1,lte=4294967"`

	// Cache is the HTTP cache lifetime in seconds, or the literal
	// string "refresh" meaning max(refresh/2, 1). Empty disables
	// Cache-Control/Expires emission.
	Cache string `yaml:"cache" validate:"omitempty"`

	// Replace selects the replacement policy. Requires FilesSizeKiB
	// and RefreshSeconds to both be set when not ReplaceNone.
	Replace ReplacePolicy `yaml:"replace" validate:"omitempty,oneof=false lfuda lfuda_gdsf lru"`

	// ReplaceIndex persists the replacement index to a sidecar file
	// across restarts.
	ReplaceIndex bool `yaml:"replace_index"`

	// ProcessIndex disambiguates the sidecar filename when more than
	// one filecached process shares a directory.
	ProcessIndex int `yaml:"process_index" validate:"gte=0"`

	// Read is the allow-list of (name, offset, length) segments. An
	// empty list means "recursively scan the whole directory".
	Read []ReadTarget `yaml:"read,omitempty" validate:"dive"`

	// WriteTruncate and WriteAppend list patterns, matched against
	// logical file names, whose files expose PUT (truncate) and POST
	// (append) respectively.
	WriteTruncate []string `yaml:"write_truncate,omitempty"`
	WriteAppend   []string `yaml:"write_append,omitempty"`

	// Redirect lists pattern -> target_pattern redirect rules,
	// resolved once at startup.
	Redirect []RedirectRule `yaml:"redirect,omitempty" validate:"dive"`

	// NotifyOne and NotifyAll list pattern -> target notification
	// rules, unicast and multicast respectively.
	NotifyOne []NotifyRule `yaml:"notify_one,omitempty" validate:"dive"`
	NotifyAll []NotifyRule `yaml:"notify_all,omitempty" validate:"dive"`

	// NotifyOnStart fires every file's notification list once during
	// initialization, in addition to the usual on-write firing.
	NotifyOnStart bool `yaml:"notify_on_start"`

	// HTTPClockSkewMaxSeconds bounds how far into the future a
	// client's If-Modified-Since/If-Unmodified-Since date may sit and
	// still be treated as valid.
	HTTPClockSkewMaxSeconds int64 `yaml:"http_clock_skew_max" validate:"gte=0"`

	UseContentTypes       bool `yaml:"use_content_types"`
	UseContentDisposition bool `yaml:"use_content_disposition"`
	UseExpires            bool `yaml:"use_expires"`
	UseHTTPMethodRouting  bool `yaml:"use_http_get_suffix"`

	// Debug enables the /debug/status endpoint and raises log
	// verbosity. DebugLevel selects the slog level name when Debug is
	// true ("debug", "info", "warn", "error"); empty defaults to
	// "debug".
	Debug      bool   `yaml:"debug"`
	DebugLevel string `yaml:"debug_level" validate:"omitempty,oneof=debug info warn error"`

	// HTTPAddress is the TCP listen address for cmd/filecached. Not
	// part of the distilled specification's config table (which
	// treats the listener as an external collaborator) but required
	// for a runnable binary.
	HTTPAddress string `yaml:"http_address"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Default returns a Config with conservative zero-value defaults.
// Directory is left empty; callers must set it or load it from a file.
// These defaults exist so every field has a sensible zero-value, not as
// a substitute for loading a real configuration file.
func Default() *Config {
	return &Config{
		HTTPAddress:             ":8080",
		HTTPClockSkewMaxSeconds: 300,
		UseContentTypes:         true,
		UseHTTPMethodRouting:    true,
		DebugLevel:              "debug",
	}
}

// Load loads configuration from the path named by the FILECACHED_CONFIG
// environment variable.
//
// This is the only way to load configuration without an explicit path.
// There is no fallback search path, so configuration stays deterministic
// and auditable.
func Load() (*Config, error) {
	path := os.Getenv("FILECACHED_CONFIG")
	if path == "" {
		return nil, fmt.Errorf("FILECACHED_CONFIG environment variable not set; " +
			"set it to the path of your filecached.yaml config file, or use --config")
	}
	return LoadFile(path)
}

// LoadFile loads configuration from a specific file path and validates
// it before returning.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks structural constraints declared via validate tags,
// then the cross-field constraints the specification calls out
// explicitly (cache is "refresh" or 1..31536000 seconds; replace
// requires files_size and refresh; a read target that a write pattern
// names may not declare a byte segment).
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	if c.Cache != "" && c.Cache != "refresh" {
		seconds, err := strconv.ParseInt(c.Cache, 10, 64)
		if err != nil || seconds < 1 || seconds > 31536000 {
			return fmt.Errorf("config: cache must be \"refresh\" or 1..31536000 seconds, got %q", c.Cache)
		}
	}

	if c.Replace != "" && c.Replace != ReplaceNone {
		if c.FilesSizeKiB <= 0 {
			return fmt.Errorf("config: replace=%s requires files_size to be set", c.Replace)
		}
		if c.RefreshSeconds <= 0 {
			return fmt.Errorf("config: replace=%s requires refresh to be set", c.Replace)
		}
	}

	writeNames := make(map[string]bool)
	for _, pattern := range c.WriteTruncate {
		writeNames[pattern] = true
	}
	for _, pattern := range c.WriteAppend {
		writeNames[pattern] = true
	}
	for _, target := range c.Read {
		if writeNames[target.Name] && (target.Offset != nil || target.Length != nil) {
			return fmt.Errorf("config: read target %q declares both a byte segment and a write capability", target.Name)
		}
	}

	return nil
}
