// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/jeranaias/marquee-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete marquee configuration.
type Config struct {
	Version string `toml:"version" json:"version"`

	// Identity service client
	Identity IdentityConfig `toml:"identity" json:"identity" envPrefix:"IDENTITY_"`

	// Credential persistence
	Storage StorageConfig `toml:"storage" json:"storage" envPrefix:"STORAGE_"`

	// Log file
	Log LogConfig `toml:"log" json:"log" envPrefix:"LOG_"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui" envPrefix:"UI_"`
}

// IdentityConfig configures the identity service client.
type IdentityConfig struct {
	// BaseURL is the root of the identity service, e.g. http://localhost:5000
	BaseURL string `toml:"base_url" json:"base_url" env:"BASE_URL"`
	// TimeoutSecs bounds every identity request.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"TIMEOUT_SECS"`
	// MaxRetries is how often an idempotent read is retried (0 = never).
	MaxRetries int `toml:"max_retries" json:"max_retries" env:"MAX_RETRIES"`
	// RequestsPerSecond limits outgoing requests (0 = unlimited).
	RequestsPerSecond float64 `toml:"requests_per_second" json:"requests_per_second" env:"REQUESTS_PER_SECOND"`
}

// Timeout returns TimeoutSecs as a duration.
func (c IdentityConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// StorageConfig selects where the credential is kept.
type StorageConfig struct {
	// Backend is one of "file", "sqlite" or "memory".
	Backend string `toml:"backend" json:"backend" env:"BACKEND"`
	// Path overrides the backend's default location inside the config directory.
	Path string `toml:"path" json:"path" env:"PATH"`
	// Watch reloads the session when another process changes the credential.
	Watch bool `toml:"watch" json:"watch" env:"WATCH"`
}

// LogConfig configures the rotating log file. The terminal belongs to the
// UI, so logs never go to stdout.
type LogConfig struct {
	Level      string `toml:"level" json:"level" env:"LEVEL"`
	Path       string `toml:"path" json:"path" env:"PATH"`
	MaxSizeMB  int    `toml:"max_size_mb" json:"max_size_mb" env:"MAX_SIZE_MB"`
	MaxBackups int    `toml:"max_backups" json:"max_backups" env:"MAX_BACKUPS"`
	MaxAgeDays int    `toml:"max_age_days" json:"max_age_days" env:"MAX_AGE_DAYS"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// Splash shows the intro screen before the session is restored.
	Splash bool `toml:"splash" json:"splash" env:"SPLASH"`
	// SplashMillis is how long the splash stays up.
	SplashMillis int `toml:"splash_millis" json:"splash_millis" env:"SPLASH_MILLIS"`
	// Theme is "dark", "light" or "auto"
	Theme string `toml:"theme" json:"theme" env:"THEME"`
}

// SplashDuration returns SplashMillis as a duration.
func (c UIConfig) SplashDuration() time.Duration {
	return time.Duration(c.SplashMillis) * time.Millisecond
}

// =============================================================================
// DEFAULT CONFIGURATION
// =============================================================================

const (
	// EnvPrefix prefixes every environment override.
	EnvPrefix = "MARQUEE_"

	// HomeEnv overrides the configuration directory.
	HomeEnv = "MARQUEE_HOME"
)

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: "1",

		Identity: IdentityConfig{
			BaseURL:           "http://localhost:5000",
			TimeoutSecs:       10,
			MaxRetries:        2,
			RequestsPerSecond: 10,
		},

		Storage: StorageConfig{
			Backend: "file",
			Path:    "", // resolved against the config directory
			Watch:   true,
		},

		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},

		UI: UIConfig{
			Splash:       true,
			SplashMillis: 1200,
			Theme:        "auto",
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the marquee configuration directory, $MARQUEE_HOME or
// ~/.marquee.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".marquee"), nil
}

// PathTOML returns the TOML config path inside dir.
func PathTOML(dir string) string { return filepath.Join(dir, "config.toml") }

// PathJSON returns the JSON config path inside dir.
func PathJSON(dir string) string { return filepath.Join(dir, "config.json") }

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Options controls where configuration is read from.
type Options struct {
	// Fs defaults to the OS filesystem.
	Fs afero.Fs

	// Dir is searched for config.toml, then config.json. Defaults to ConfigDir().
	Dir string

	// Path names one config file and skips the directory search.
	Path string

	// Environ replaces the process environment for overrides.
	Environ map[string]string
}

// Load loads configuration from the default locations.
func Load() (*Config, error) {
	return LoadWith(Options{})
}

// LoadWith loads configuration: defaults, then the first config file found,
// then MARQUEE_* environment overrides. The result is validated.
func LoadWith(opts Options) (*Config, error) {
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	cfg := Default()

	path := opts.Path
	if path == "" {
		dir := opts.Dir
		if dir == "" {
			d, err := ConfigDir()
			if err != nil {
				return nil, err
			}
			dir = d
		}
		path = findConfigFile(fs, dir)
	}

	if path != "" {
		var err error
		if strings.HasSuffix(path, ".json") {
			err = LoadJSON(fs, cfg, path)
		} else {
			err = LoadTOML(fs, cfg, path)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := cfg.ApplyEnvOverrides(opts.Environ); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file in dir, or "".
func findConfigFile(fs afero.Fs, dir string) string {
	for _, p := range []string{PathTOML(dir), PathJSON(dir)} {
		if ok, _ := afero.Exists(fs, p); ok {
			return p
		}
	}
	return ""
}

// LoadTOML decodes a TOML file over cfg. Keys absent from the file keep
// their current values.
func LoadTOML(fs afero.Fs, cfg *Config, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read TOML file: %w", err)
	}
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return fmt.Errorf("failed to decode TOML file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	return nil
}

// LoadJSON decodes a JSON file over cfg.
func LoadJSON(fs afero.Fs, cfg *Config, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("failed to read JSON file: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("failed to decode JSON file: %w", err)
	}
	return nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// SaveTOML writes the configuration to a TOML file with 0600 permissions.
func SaveTOML(fs afero.Fs, cfg *Config, path string) error {
	var buf bytes.Buffer
	fmt.Fprintln(&buf, "# marquee configuration file")
	fmt.Fprintln(&buf, "# Generated by marquee - edit with care")
	fmt.Fprintln(&buf, "")
	if err := cfg.EncodeTOML(&buf); err != nil {
		return err
	}
	if err := util.AtomicWriteFileWithDir(fs, path, buf.Bytes(), 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// SaveJSON writes the configuration to a JSON file with 0600 permissions.
func SaveJSON(fs afero.Fs, cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFileWithDir(fs, path, data, 0600, 0700); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EncodeTOML writes the configuration as TOML.
func (c *Config) EncodeTOML(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the names of the invalid fields.
func (e ValidateErrors) Fields() []string {
	out := make([]string, len(e))
	for i, err := range e {
		out[i] = err.Field
	}
	return out
}

// ErrUnknownKey is returned by Get and Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown field")

var validBackends = map[string]bool{"file": true, "sqlite": true, "memory": true}

// Validate validates the configuration and returns ValidateErrors.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// ==========================================================================
	// Identity
	// ==========================================================================

	if u, err := url.Parse(c.Identity.BaseURL); err != nil {
		add("identity.base_url", "invalid URL: %v", err)
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add("identity.base_url", "must be an absolute http(s) URL, got '%s'", c.Identity.BaseURL)
	}
	if c.Identity.TimeoutSecs < 1 || c.Identity.TimeoutSecs > 300 {
		add("identity.timeout_secs", "must be 1-300, got %d", c.Identity.TimeoutSecs)
	}
	if c.Identity.MaxRetries < 0 || c.Identity.MaxRetries > 10 {
		add("identity.max_retries", "must be 0-10, got %d", c.Identity.MaxRetries)
	}
	if c.Identity.RequestsPerSecond < 0 {
		add("identity.requests_per_second", "cannot be negative")
	}

	// ==========================================================================
	// Storage
	// ==========================================================================

	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		add("storage.backend", "invalid backend '%s', must be one of: file, sqlite, memory", c.Storage.Backend)
	}

	// ==========================================================================
	// Log
	// ==========================================================================

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		add("log.level", "invalid level '%s'", c.Log.Level)
	}
	if c.Log.MaxSizeMB < 0 {
		add("log.max_size_mb", "must be non-negative")
	}
	if c.Log.MaxBackups < 0 {
		add("log.max_backups", "must be non-negative")
	}
	if c.Log.MaxAgeDays < 0 {
		add("log.max_age_days", "must be non-negative")
	}

	// ==========================================================================
	// UI
	// ==========================================================================

	if c.UI.SplashMillis < 0 || c.UI.SplashMillis > 10000 {
		add("ui.splash_millis", "must be 0-10000, got %d", c.UI.SplashMillis)
	}
	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		add("ui.theme", "invalid theme '%s', must be one of: dark, light, auto", c.UI.Theme)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// SetDefaults fills empty string fields and normalises case. Numeric fields
// keep their values because zero is meaningful for several of them.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.Identity.BaseURL == "" {
		c.Identity.BaseURL = defaults.Identity.BaseURL
	}
	c.Identity.BaseURL = strings.TrimRight(c.Identity.BaseURL, "/")
	if c.Identity.TimeoutSecs == 0 {
		c.Identity.TimeoutSecs = defaults.Identity.TimeoutSecs
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaults.Storage.Backend
	}
	c.Storage.Backend = strings.ToLower(c.Storage.Backend)
	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	c.Log.Level = strings.ToLower(c.Log.Level)
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
	c.UI.Theme = strings.ToLower(c.UI.Theme)
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies MARQUEE_* variables, for example
// MARQUEE_IDENTITY_BASE_URL or MARQUEE_STORAGE_BACKEND. A nil environ reads
// the process environment. Unset variables leave fields untouched.
func (c *Config) ApplyEnvOverrides(environ map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(c, opts); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// =============================================================================
// GET/SET HELPERS (DOT NOTATION)
// =============================================================================

// Get retrieves a configuration value by its file key, e.g. "identity.base_url".
func (c *Config) Get(key string) (any, error) {
	field, err := c.lookup(key)
	if err != nil {
		return nil, err
	}
	return field.Interface(), nil
}

// Set sets a configuration value by its file key. String values are
// converted to the field's type.
func (c *Config) Set(key string, value any) error {
	field, err := c.lookup(key)
	if err != nil {
		return err
	}
	if !field.CanSet() {
		return fmt.Errorf("cannot set field: %s", key)
	}
	return setFieldValue(field, value)
}

// lookup walks the struct by toml tag names.
func (c *Config) lookup(key string) (reflect.Value, error) {
	if strings.TrimSpace(key) == "" {
		return reflect.Value{}, errors.New("empty key")
	}
	parts := strings.Split(key, ".")

	v := reflect.ValueOf(c).Elem()
	for i, part := range parts {
		idx := fieldByTag(v.Type(), part)
		if idx < 0 {
			return reflect.Value{}, fmt.Errorf("%w: %s", ErrUnknownKey, strings.Join(parts[:i+1], "."))
		}
		field := v.Field(idx)
		if i == len(parts)-1 {
			return field, nil
		}
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("field '%s' is not a section", strings.Join(parts[:i+1], "."))
		}
		v = field
	}
	return reflect.Value{}, fmt.Errorf("invalid key: %s", key)
}

func fieldByTag(t reflect.Type, name string) int {
	for i := 0; i < t.NumField(); i++ {
		if tomlName(t.Field(i)) == strings.ToLower(name) {
			return i
		}
	}
	return -1
}

func tomlName(f reflect.StructField) string {
	tag, _, _ := strings.Cut(f.Tag.Get("toml"), ",")
	return tag
}

// setFieldValue sets a reflect.Value from an interface{} value with type conversion.
func setFieldValue(field reflect.Value, value any) error {
	if strVal, ok := value.(string); ok {
		switch field.Kind() {
		case reflect.String:
			field.SetString(strVal)
			return nil
		case reflect.Int, reflect.Int64:
			intVal, err := strconv.ParseInt(strVal, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer value: %v", err)
			}
			field.SetInt(intVal)
			return nil
		case reflect.Float64:
			floatVal, err := strconv.ParseFloat(strVal, 64)
			if err != nil {
				return fmt.Errorf("invalid float value: %v", err)
			}
			field.SetFloat(floatVal)
			return nil
		case reflect.Bool:
			boolVal, err := strconv.ParseBool(strings.ToLower(strVal))
			if err != nil {
				boolVal = strings.EqualFold(strVal, "yes")
				if !boolVal && !strings.EqualFold(strVal, "no") {
					return fmt.Errorf("invalid boolean value: %q", strVal)
				}
			}
			field.SetBool(boolVal)
			return nil
		case reflect.Struct:
			return errors.New("cannot assign to a section")
		}
	}

	val := reflect.ValueOf(value)
	if !val.IsValid() {
		return errors.New("cannot assign nil")
	}
	if val.Type().AssignableTo(field.Type()) {
		field.Set(val)
		return nil
	}
	if val.Type().ConvertibleTo(field.Type()) && field.Kind() != reflect.String {
		field.Set(val.Convert(field.Type()))
		return nil
	}
	return fmt.Errorf("cannot assign %T to %s", value, field.Type())
}

// GetAllKeys returns all configuration keys in dot notation, in file order.
func GetAllKeys() []string {
	var keys []string
	var walk func(t reflect.Type, prefix string)
	walk = func(t reflect.Type, prefix string) {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			name := tomlName(f)
			if name == "" || name == "-" {
				continue
			}
			if f.Type.Kind() == reflect.Struct {
				walk(f.Type, prefix+name+".")
				continue
			}
			keys = append(keys, prefix+name)
		}
	}
	walk(reflect.TypeOf(Config{}), "")
	return keys
}

// Clone returns a copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	return &clone
}

// String returns the configuration as indented JSON for debugging.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
