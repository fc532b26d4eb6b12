// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML loading, env var expansion, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeTestConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  driver: "sqlite"
  path: "./test.db"

completion:
  base_url: "https://api.groq.com/openai/v1"
  api_key: "gsk-test"
  model: "llama-3.1-8b-instant"

cors:
  allowed_origins:
    - "https://app.example.com"
    - "http://localhost:3000"

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
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}

	// Verify completion config
	if cfg.Completion.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Completion.BaseURL = %q, want %q", cfg.Completion.BaseURL, "https://api.groq.com/openai/v1")
	}
	if cfg.Completion.APIKey != "gsk-test" {
		t.Errorf("Completion.APIKey = %q, want %q", cfg.Completion.APIKey, "gsk-test")
	}
	if cfg.Completion.Model != "llama-3.1-8b-instant" {
		t.Errorf("Completion.Model = %q, want %q", cfg.Completion.Model, "llama-3.1-8b-instant")
	}

	// Verify CORS config
	if len(cfg.CORS.AllowedOrigins) != 2 {
		t.Errorf("CORS.AllowedOrigins len = %d, want 2", len(cfg.CORS.AllowedOrigins))
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
	t.Setenv("TEST_GROQ_API_KEY", "gsk-from-env")

	configPath := writeTestConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

completion:
  api_key: "${TEST_GROQ_API_KEY}"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Completion.APIKey != "gsk-from-env" {
		t.Errorf("Completion.APIKey = %q, want %q", cfg.Completion.APIKey, "gsk-from-env")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	// Ensure the env var is NOT set; validation should then reject the
	// empty api_key the expansion produced
	os.Unsetenv("UNSET_VAR_FOR_TEST")

	configPath := writeTestConfig(t, `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

completion:
  api_key: "${UNSET_VAR_FOR_TEST}"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Fatal("Load() expected error for unset api_key env var, got nil")
	}
	if !strings.Contains(err.Error(), "completion.api_key is required") {
		t.Errorf("Load() error = %q, want error mentioning completion.api_key", err.Error())
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeTestConfig(t, `
server:
  http_addr "missing colon"
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
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
server:
  http_addr: ""
database:
  path: "./test.db"
completion:
  api_key: "gsk-test"
`,
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "missing database path",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: ""
completion:
  api_key: "gsk-test"
`,
			wantErrSubstr: "database.path is required",
		},
		{
			name: "unknown database driver",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  driver: "mongodb"
  path: "./test.db"
completion:
  api_key: "gsk-test"
`,
			wantErrSubstr: "database.driver",
		},
		{
			name: "missing api key",
			configContent: `
server:
  http_addr: "0.0.0.0:8080"
database:
  path: "./test.db"
completion:
  api_key: ""
`,
			wantErrSubstr: "completion.api_key is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := writeTestConfig(t, tt.configContent)

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

func TestValidate_TailscaleConfig(t *testing.T) {
	tests := []struct {
		name          string
		cfg           Config
		wantErr       bool
		wantErrSubstr string
	}{
		{
			name: "tailscale enabled allows empty server address",
			cfg: Config{
				Server:     ServerConfig{HTTPAddr: ""},
				Tailscale:  TailscaleConfig{Enabled: true, Hostname: "chat-gateway"},
				Database:   DatabaseConfig{Path: "./test.db"},
				Completion: CompletionConfig{APIKey: "gsk-test"},
			},
			wantErr: false,
		},
		{
			name: "tailscale enabled requires hostname",
			cfg: Config{
				Server:     ServerConfig{HTTPAddr: ""},
				Tailscale:  TailscaleConfig{Enabled: true, Hostname: ""},
				Database:   DatabaseConfig{Path: "./test.db"},
				Completion: CompletionConfig{APIKey: "gsk-test"},
			},
			wantErr:       true,
			wantErrSubstr: "tailscale.hostname is required",
		},
		{
			name: "tailscale disabled requires server address",
			cfg: Config{
				Server:     ServerConfig{HTTPAddr: ""},
				Tailscale:  TailscaleConfig{Enabled: false, Hostname: "chat-gateway"},
				Database:   DatabaseConfig{Path: "./test.db"},
				Completion: CompletionConfig{APIKey: "gsk-test"},
			},
			wantErr:       true,
			wantErrSubstr: "server.http_addr is required",
		},
		{
			name: "tailscale with all options set",
			cfg: Config{
				Server: ServerConfig{HTTPAddr: ""},
				Tailscale: TailscaleConfig{
					Enabled:   true,
					Hostname:  "chat-gateway",
					AuthKey:   "tskey-auth-xxx",
					StateDir:  "/tmp/ts-state",
					Ephemeral: true,
					Funnel:    true,
				},
				Database:   DatabaseConfig{Path: "./test.db"},
				Completion: CompletionConfig{APIKey: "gsk-test"},
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErrSubstr)
					return
				}
				if !strings.Contains(err.Error(), tt.wantErrSubstr) {
					t.Errorf("Validate() error = %q, want error containing %q", err.Error(), tt.wantErrSubstr)
				}
			} else {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			}
		})
	}
}
