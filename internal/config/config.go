package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDBPath     = "data/mission-metadata.db"
	DefaultHotRoot    = "data/hot"
	DefaultColdRoot   = "data/cold"
	DefaultPort       = 8080
	DefaultListenHost = "0.0.0.0"
	DefaultAPIURL     = "http://127.0.0.1:8080"
	DefaultLogLevel   = "info"
	DefaultLogFormat  = "text"

	DefaultIngestMaxBodyBytes  int64 = 256 * 1024 * 1024
	DefaultIngestMaxConcurrent       = 16

	configFileName           = ".mdm.toml"
	configDirEnvKey          = "MDM_CONFIG_DIR"
	trustProjectConfigEnvKey = "MDM_TRUST_PROJECT_CONFIG"

	redactedValue = "********"
)

// Environment overrides.
const (
	EnvDBPath        = "MDM_DB_PATH"
	EnvHotRoot       = "MDM_HOT_ROOT"
	EnvColdRoot      = "MDM_COLD_ROOT"
	EnvPort          = "MDM_PORT"
	EnvListenHost    = "MDM_LISTEN_HOST"
	EnvAPIKey        = "MDM_API_KEY"
	EnvAPIKeyHash    = "MDM_API_KEY_HASH"
	EnvAPIURL        = "MDM_API_URL"
	EnvLogLevel      = "MDM_LOG_LEVEL"
	EnvLogFormat     = "MDM_LOG_FORMAT"
	EnvMaxConcurrent = "MDM_MAX_CONCURRENT_INGESTS"
)

// IngestConfig bounds ingest request handling.
type IngestConfig struct {
	MaxBodyBytes  int64 `toml:"max_body_bytes"`
	MaxConcurrent int   `toml:"max_concurrent"`
}

// Config defines runtime configuration for mdm.
type Config struct {
	DBPath                   string       `toml:"db_path"`
	HotRoot                  string       `toml:"hot_root"`
	ColdRoot                 string       `toml:"cold_root"`
	Port                     int          `toml:"port"`
	ListenHost               string       `toml:"listen_host"`
	APIKey                   string       `toml:"api_key"`
	APIKeyHash               string       `toml:"api_key_hash"`
	APIURL                   string       `toml:"api_url"`
	LogLevel                 string       `toml:"log_level"`
	LogFormat                string       `toml:"log_format"`
	Ingest                   IngestConfig `toml:"ingest"`
	TrustedProjectConfigPath string       `toml:"-"`
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		DBPath:     DefaultDBPath,
		HotRoot:    DefaultHotRoot,
		ColdRoot:   DefaultColdRoot,
		Port:       DefaultPort,
		ListenHost: DefaultListenHost,
		APIURL:     DefaultAPIURL,
		LogLevel:   DefaultLogLevel,
		LogFormat:  DefaultLogFormat,
		Ingest: IngestConfig{
			MaxBodyBytes:  DefaultIngestMaxBodyBytes,
			MaxConcurrent: DefaultIngestMaxConcurrent,
		},
	}
}

func loadFile(path string, cfg *Config) error {
	_, err := loadFileIfExists(path, cfg)
	return err
}

func loadFileIfExists(path string, cfg *Config) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return false, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return true, nil
}

func overrideConfigPath() (string, bool) {
	dir := strings.TrimSpace(os.Getenv(configDirEnvKey))
	if dir == "" {
		return "", false
	}
	return filepath.Join(dir, configFileName), true
}

func trustProjectConfig() bool {
	raw := strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))
	if raw == "" {
		return false
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return value
}

var allowedKeys = []string{
	"db_path",
	"hot_root",
	"cold_root",
	"port",
	"listen_host",
	"api_key",
	"api_key_hash",
	"api_url",
	"log_level",
	"log_format",
	"ingest.max_body_bytes",
	"ingest.max_concurrent",
}

var validLogLevels = map[string]struct{}{"debug": {}, "info": {}, "warn": {}, "warning": {}, "error": {}}

var validLogFormats = map[string]struct{}{"text": {}, "json": {}, "console": {}}

// AllowedKeys returns the set of valid config keys.
func AllowedKeys() []string {
	return allowedKeys
}

// IsAllowedKey checks if a key is a valid config key.
func IsAllowedKey(key string) bool {
	for _, k := range allowedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Get returns the value of a config key. Secrets are redacted.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "db_path":
		return c.DBPath, nil
	case "hot_root":
		return c.HotRoot, nil
	case "cold_root":
		return c.ColdRoot, nil
	case "port":
		return strconv.Itoa(c.Port), nil
	case "listen_host":
		return c.ListenHost, nil
	case "api_key":
		return redact(c.APIKey), nil
	case "api_key_hash":
		return c.APIKeyHash, nil
	case "api_url":
		return c.APIURL, nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	case "ingest.max_body_bytes":
		return strconv.FormatInt(c.Ingest.MaxBodyBytes, 10), nil
	case "ingest.max_concurrent":
		return strconv.Itoa(c.Ingest.MaxConcurrent), nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// AuthEnabled reports whether a shared secret is configured.
func (c *Config) AuthEnabled() bool {
	return strings.TrimSpace(c.APIKey) != "" || strings.TrimSpace(c.APIKeyHash) != ""
}

// GlobalPath returns the path to the global config file.
func GlobalPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, configFileName), nil
}

// ProjectPath returns the path to the project config file.
func ProjectPath() (string, error) {
	if path, ok := overrideConfigPath(); ok {
		return path, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, configFileName), nil
}

// SetKey reads the TOML file at path, sets key=value, and writes it back.
func SetKey(path, key, value string) error {
	if !IsAllowedKey(key) {
		return fmt.Errorf("unknown key: %s", key)
	}

	data := make(map[string]any)
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &data); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}

	parsedValue, err := parseSetValue(key, value)
	if err != nil {
		return err
	}
	if err := setNestedKey(data, strings.Split(key, "."), parsedValue); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(data)
}

// Load reads config from trusted files and applies env overrides.
func Load() (*Config, error) {
	cfg := Default()

	if overridePath, ok := overrideConfigPath(); ok {
		if err := loadFile(overridePath, &cfg); err != nil {
			return nil, err
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			if err := loadFile(filepath.Join(home, configFileName), &cfg); err != nil {
				return nil, err
			}
		}

		if trustProjectConfig() {
			if cwd, err := os.Getwd(); err == nil {
				projectPath := filepath.Join(cwd, configFileName)
				info, statErr := os.Stat(projectPath)
				switch {
				case statErr == nil && !info.IsDir():
					if err := loadFile(projectPath, &cfg); err != nil {
						return nil, err
					}
					cfg.TrustedProjectConfigPath = projectPath
				case statErr != nil && !os.IsNotExist(statErr):
					return nil, statErr
				}
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalizeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadFile reads a single config file over the defaults and validates the
// result. Environment overrides are not applied.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}
	cfg.normalizeDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	stringOverrides := []struct {
		key string
		dst *string
	}{
		{EnvDBPath, &c.DBPath},
		{EnvHotRoot, &c.HotRoot},
		{EnvColdRoot, &c.ColdRoot},
		{EnvListenHost, &c.ListenHost},
		{EnvAPIKey, &c.APIKey},
		{EnvAPIKeyHash, &c.APIKeyHash},
		{EnvAPIURL, &c.APIURL},
		{EnvLogLevel, &c.LogLevel},
		{EnvLogFormat, &c.LogFormat},
	}
	for _, o := range stringOverrides {
		if value := strings.TrimSpace(os.Getenv(o.key)); value != "" {
			*o.dst = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s must be an integer: %q", EnvPort, raw)
		}
		c.Port = port
	}
	if raw := strings.TrimSpace(os.Getenv(EnvMaxConcurrent)); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			return fmt.Errorf("%s must be a positive integer: %q", EnvMaxConcurrent, raw)
		}
		c.Ingest.MaxConcurrent = limit
	}
	return nil
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if _, ok := validLogLevels[strings.ToLower(c.LogLevel)]; !ok {
		return fmt.Errorf("invalid log_level %q (use debug|info|warn|error)", c.LogLevel)
	}
	if _, ok := validLogFormats[strings.ToLower(c.LogFormat)]; !ok {
		return fmt.Errorf("invalid log_format %q (use text|json|console)", c.LogFormat)
	}
	return nil
}

func parseSetValue(key, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch key {
	case "port":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 || parsed > 65535 {
			return nil, fmt.Errorf("%s must be between 1 and 65535", key)
		}
		return int64(parsed), nil
	case "ingest.max_body_bytes":
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return parsed, nil
	case "ingest.max_concurrent":
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("%s must be a positive integer", key)
		}
		return int64(parsed), nil
	case "log_level":
		if _, ok := validLogLevels[strings.ToLower(value)]; !ok {
			return nil, fmt.Errorf("invalid log_level %q (use debug|info|warn|error)", value)
		}
		return strings.ToLower(value), nil
	case "log_format":
		if _, ok := validLogFormats[strings.ToLower(value)]; !ok {
			return nil, fmt.Errorf("invalid log_format %q (use text|json|console)", value)
		}
		return strings.ToLower(value), nil
	default:
		return value, nil
	}
}

func setNestedKey(data map[string]any, parts []string, value any) error {
	if len(parts) == 0 {
		return fmt.Errorf("invalid config key")
	}
	if len(parts) == 1 {
		data[parts[0]] = value
		return nil
	}
	childRaw, ok := data[parts[0]]
	if !ok {
		child := map[string]any{}
		data[parts[0]] = child
		return setNestedKey(child, parts[1:], value)
	}
	child, ok := childRaw.(map[string]any)
	if !ok {
		return fmt.Errorf("cannot set nested key %q", strings.Join(parts, "."))
	}
	return setNestedKey(child, parts[1:], value)
}

func (c *Config) normalizeDefaults() {
	if strings.TrimSpace(c.DBPath) == "" {
		c.DBPath = DefaultDBPath
	}
	if strings.TrimSpace(c.HotRoot) == "" {
		c.HotRoot = DefaultHotRoot
	}
	if strings.TrimSpace(c.ColdRoot) == "" {
		c.ColdRoot = DefaultColdRoot
	}
	if strings.TrimSpace(c.LogLevel) == "" {
		c.LogLevel = DefaultLogLevel
	}
	if strings.TrimSpace(c.LogFormat) == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.Ingest.MaxBodyBytes <= 0 {
		c.Ingest.MaxBodyBytes = DefaultIngestMaxBodyBytes
	}
	if c.Ingest.MaxConcurrent <= 0 {
		c.Ingest.MaxConcurrent = DefaultIngestMaxConcurrent
	}
}

func redact(value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return redactedValue
}
