package config

import (
	"os"
	"path/filepath"
	"testing"
)

// isolateEnv points config loading at an empty directory and clears overrides.
func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	t.Setenv(trustProjectConfigEnvKey, "")
	for _, key := range []string{EnvDBPath, EnvHotRoot, EnvColdRoot, EnvPort, EnvListenHost, EnvAPIKey, EnvAPIKeyHash, EnvAPIURL, EnvLogLevel, EnvLogFormat, EnvMaxConcurrent} {
		t.Setenv(key, "")
	}
	return dir
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DBPath != "data/mission-metadata.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.HotRoot != "data/hot" || cfg.ColdRoot != "data/cold" {
		t.Fatalf("unexpected default roots: %q %q", cfg.HotRoot, cfg.ColdRoot)
	}
	if cfg.Port != 8080 {
		t.Fatalf("expected port 8080, got %d", cfg.Port)
	}
	if cfg.APIKey != "" || cfg.AuthEnabled() {
		t.Fatal("expected auth to be disabled by default")
	}
	if cfg.LogLevel != DefaultLogLevel || cfg.LogFormat != DefaultLogFormat {
		t.Fatalf("unexpected log defaults: %q %q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Ingest.MaxBodyBytes != DefaultIngestMaxBodyBytes || cfg.Ingest.MaxConcurrent != DefaultIngestMaxConcurrent {
		t.Fatalf("unexpected ingest defaults: %#v", cfg.Ingest)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	if err := os.WriteFile(path, []byte(`db_path = "/var/lib/mdm/meta.db"
port = 9090
api_key = "secret123"
log_format = "json"

[ingest]
max_concurrent = 4
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/var/lib/mdm/meta.db" || cfg.Port != 9090 || cfg.APIKey != "secret123" || cfg.LogFormat != "json" {
		t.Fatalf("unexpected config: %#v", cfg)
	}
	if cfg.Ingest.MaxConcurrent != 4 {
		t.Fatalf("expected max_concurrent 4, got %d", cfg.Ingest.MaxConcurrent)
	}
	if cfg.Ingest.MaxBodyBytes != DefaultIngestMaxBodyBytes {
		t.Fatalf("expected untouched max_body_bytes default, got %d", cfg.Ingest.MaxBodyBytes)
	}
	if cfg.HotRoot != DefaultHotRoot {
		t.Fatalf("expected default hot root, got %q", cfg.HotRoot)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile(filepath.Join(t.TempDir(), "nope.toml"), &cfg); err != nil {
		t.Fatalf("expected missing file to be ignored, got %v", err)
	}
}

func TestLoadFileInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte("port = \"not a number\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "secret123"

	tests := map[string]string{
		"db_path":               DefaultDBPath,
		"port":                  "8080",
		"api_key":               redactedValue,
		"api_key_hash":          "",
		"log_format":            "text",
		"ingest.max_body_bytes": "268435456",
		"ingest.max_concurrent": "16",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil {
			t.Fatalf("get %s: %v", key, err)
		}
		if got != want {
			t.Fatalf("Get(%q)=%q want %q", key, got, want)
		}
	}
	if _, err := cfg.Get("bogus"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestAllowedKeysAreGettable(t *testing.T) {
	cfg := Default()
	for _, key := range AllowedKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Fatalf("allowed key %q is not gettable: %v", key, err)
		}
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "new.toml")
	if err := SetKey(path, "hot_root", "/srv/hot"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HotRoot != "/srv/hot" {
		t.Fatalf("expected '/srv/hot', got %q", cfg.HotRoot)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("port = 9000\napi_url = \"http://keep\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "port", "9100"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := SetKey(path, "ingest.max_concurrent", "3"); err != nil {
		t.Fatalf("set nested: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != 9100 || cfg.APIURL != "http://keep" || cfg.Ingest.MaxConcurrent != 3 {
		t.Fatalf("unexpected config after set: %#v", cfg)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	cases := [][2]string{
		{"invalid_key", "value"},
		{"port", "0"},
		{"port", "abc"},
		{"ingest.max_body_bytes", "-1"},
		{"log_level", "loud"},
		{"log_format", "xml"},
	}
	for _, c := range cases {
		if err := SetKey(path, c[0], c[1]); err == nil {
			t.Fatalf("expected error for %s=%s", c[0], c[1])
		}
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, configFileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadConfigDirOverride(t *testing.T) {
	dir := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("cold_root = \"/archive\"\nlisten_host = \"127.0.0.1\"\n"), 0o644); err != nil {
		t.Fatalf("write override config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ColdRoot != "/archive" || cfg.ListenHost != "127.0.0.1" {
		t.Fatalf("expected config-dir values, got %#v", cfg)
	}
	if cfg.DBPath != DefaultDBPath {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
}

func TestEnvOverrides(t *testing.T) {
	dir := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("port = 9000\napi_key = \"from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvDBPath, "/tmp/override.db")
	t.Setenv(EnvHotRoot, "/tmp/hot")
	t.Setenv(EnvColdRoot, "/tmp/cold")
	t.Setenv(EnvPort, "7000")
	t.Setenv(EnvAPIKey, "secret123")
	t.Setenv(EnvMaxConcurrent, "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != "/tmp/override.db" || cfg.HotRoot != "/tmp/hot" || cfg.ColdRoot != "/tmp/cold" {
		t.Fatalf("expected path overrides, got %#v", cfg)
	}
	if cfg.Port != 7000 {
		t.Fatalf("expected env port to win over file, got %d", cfg.Port)
	}
	if cfg.APIKey != "secret123" || !cfg.AuthEnabled() {
		t.Fatalf("expected env api key, got %q", cfg.APIKey)
	}
	if cfg.Ingest.MaxConcurrent != 2 {
		t.Fatalf("expected max concurrent 2, got %d", cfg.Ingest.MaxConcurrent)
	}
}

func TestLoadRejectsInvalidEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv(EnvPort, "eighty")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid port env to fail")
	}

	t.Setenv(EnvPort, "")
	t.Setenv(EnvLogFormat, "xml")
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid log format to fail")
	}
}

func TestLoadNormalizesEmptyValues(t *testing.T) {
	dir := isolateEnv(t)
	if err := os.WriteFile(filepath.Join(dir, configFileName), []byte("hot_root = \"\"\nlog_level = \"\"\n\n[ingest]\nmax_body_bytes = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HotRoot != DefaultHotRoot || cfg.LogLevel != DefaultLogLevel || cfg.Ingest.MaxBodyBytes != DefaultIngestMaxBodyBytes {
		t.Fatalf("expected defaults restored, got %#v", cfg)
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	t.Setenv(configDirEnvKey, "")
	t.Setenv("HOME", t.TempDir())
	t.Setenv(trustProjectConfigEnvKey, "")
	t.Setenv(EnvPort, "")

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, configFileName), []byte("port = 9999\n"), 0o644); err != nil {
		t.Fatalf("write project config: %v", err)
	}
	t.Chdir(workspace)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != DefaultPort {
		t.Fatalf("expected untrusted project config to be ignored, got port %d", cfg.Port)
	}

	t.Setenv(trustProjectConfigEnvKey, "true")
	cfg, err = Load()
	if err != nil {
		t.Fatalf("load trusted: %v", err)
	}
	if cfg.Port != 9999 || cfg.TrustedProjectConfigPath == "" {
		t.Fatalf("expected trusted project config to apply, got port %d path %q", cfg.Port, cfg.TrustedProjectConfigPath)
	}
}

func TestLoadFileValidates(t *testing.T) {
	path := filepath.Join(t.TempDir(), configFileName)
	if err := os.WriteFile(path, []byte("port = 9090\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if cfg.Port != 9090 || cfg.DBPath != DefaultDBPath {
		t.Fatalf("unexpected config: %#v", cfg)
	}

	if err := os.WriteFile(path, []byte("log_level = \"loud\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected invalid log_level to be rejected")
	}
}
