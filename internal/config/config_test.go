// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and duration parsing

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  driver: "sqlite"
  path: "./test.db"

admin:
  name: "school"
  page_size: 50
  include_pk: true
  intro: "School records"

auth:
  enabled: true
  username: "admin"
  password_hash: "$2a$10$abcdefghijklmnopqrstuv"
  jwt_secret: "test-secret"
  session_ttl: "12h"

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify server config
	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}

	// Verify database config
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	// Verify admin config
	if cfg.Admin.Name != "school" {
		t.Errorf("Admin.Name = %q, want %q", cfg.Admin.Name, "school")
	}
	if cfg.Admin.PageSize != 50 {
		t.Errorf("Admin.PageSize = %d, want 50", cfg.Admin.PageSize)
	}
	if !cfg.Admin.IncludePK {
		t.Error("Admin.IncludePK = false, want true")
	}
	if cfg.Admin.Intro != "School records" {
		t.Errorf("Admin.Intro = %q, want %q", cfg.Admin.Intro, "School records")
	}

	// Verify auth config with duration parsing
	if !cfg.Auth.Enabled {
		t.Error("Auth.Enabled = false, want true")
	}
	if cfg.Auth.Username != "admin" {
		t.Errorf("Auth.Username = %q, want %q", cfg.Auth.Username, "admin")
	}
	if cfg.Auth.SessionTTL != 12*time.Hour {
		t.Errorf("Auth.SessionTTL = %v, want %v", cfg.Auth.SessionTTL, 12*time.Hour)
	}

	// Verify logging config
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_MODELADMIN_HASH", "hash-from-env")
	t.Setenv("TEST_MODELADMIN_SECRET", "secret-from-env")

	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  driver: "memory"

auth:
  enabled: true
  username: "admin"
  password_hash: "${TEST_MODELADMIN_HASH}"
  jwt_secret: "${TEST_MODELADMIN_SECRET}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Verify env var expansion
	if cfg.Auth.PasswordHash != "hash-from-env" {
		t.Errorf("Auth.PasswordHash = %q, want %q", cfg.Auth.PasswordHash, "hash-from-env")
	}
	if cfg.Auth.JWTSecret != "secret-from-env" {
		t.Errorf("Auth.JWTSecret = %q, want %q", cfg.Auth.JWTSecret, "secret-from-env")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "server: [not: valid")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	configPath := writeConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  driver: "memory"

auth:
  session_ttl: "not-a-duration"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "session_ttl") {
		t.Errorf("Load() error = %q, want error mentioning session_ttl", err.Error())
	}
}

func TestLoad_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name          string
		configContent string
		wantErrSubstr string
	}{
		{
			name: "missing http_addr",
			configContent: `
database:
  driver: "memory"
`,
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "missing driver",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
`,
			wantErrSubstr: "database.driver is required",
		},
		{
			name: "unknown driver",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "oracle"
`,
			wantErrSubstr: `database.driver "oracle"`,
		},
		{
			name: "sqlite without path",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "sqlite"
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "postgres without dsn",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "postgres"
`,
			wantErrSubstr: "database.dsn is required",
		},
		{
			name: "mongo without uri",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "mongo"
  name: "test"
`,
			wantErrSubstr: "database.uri is required",
		},
		{
			name: "mongo without name",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "mongo"
  uri: "mongodb://localhost:27017"
`,
			wantErrSubstr: "database.name is required",
		},
		{
			name: "auth enabled without username",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "memory"
auth:
  enabled: true
  password_hash: "hash"
  jwt_secret: "secret"
`,
			wantErrSubstr: "auth.username is required",
		},
		{
			name: "auth enabled without password hash",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "memory"
auth:
  enabled: true
  username: "admin"
  jwt_secret: "secret"
`,
			wantErrSubstr: "auth.password_hash is required",
		},
		{
			name: "auth enabled without jwt secret",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "memory"
auth:
  enabled: true
  username: "admin"
  password_hash: "hash"
`,
			wantErrSubstr: "auth.jwt_secret is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeConfig(t, tt.configContent)

			_, err := Load(configPath)
			if err == nil {
				t.Errorf("Load() expected error containing %q, got nil", tt.wantErrSubstr)
				return
			}

			if !strings.Contains(err.Error(), tt.wantErrSubstr) {
				t.Errorf("Load() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
			}
		})
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("FOO", "bar")
	t.Setenv("BAZ", "qux")

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "single env var",
			input:    "${FOO}",
			expected: "bar",
		},
		{
			name:     "env var with surrounding text",
			input:    "prefix-${FOO}-suffix",
			expected: "prefix-bar-suffix",
		},
		{
			name:     "multiple env vars",
			input:    "${FOO}/${BAZ}",
			expected: "bar/qux",
		},
		{
			name:     "no env vars",
			input:    "no-vars-here",
			expected: "no-vars-here",
		},
		{
			name:     "unset env var",
			input:    "${UNSET_VAR}",
			expected: "",
		},
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := expandEnvVars(tt.input)
			if result != tt.expected {
				t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestValidate_Tailscale(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "tailscale enabled with hostname needs no http_addr",
			cfg: Config{
				Tailscale: TailscaleConfig{Enabled: true, Hostname: "modeladmin"},
				Database:  DatabaseConfig{Driver: DriverMemory},
			},
			wantErr: false,
		},
		{
			name: "tailscale enabled without hostname",
			cfg: Config{
				Tailscale: TailscaleConfig{Enabled: true},
				Database:  DatabaseConfig{Driver: DriverMemory},
			},
			wantErr: true,
		},
		{
			name: "tailscale disabled needs http_addr",
			cfg: Config{
				Database: DatabaseConfig{Driver: DriverMemory},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
