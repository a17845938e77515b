package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

const validYAML = `
server:
  address: ":9090"
database:
  uri: "mongodb://db.internal:27017"
  name: "coaching_test"
s3:
  endpoint: "http://minio:9000"
  region: "us-east-1"
  bucket_name: "session-archive"
  use_ssl: false
jwt:
  secret: "test-secret"
  expiration: "2h"
sweeper:
  schedule: "@every 5m"
  grace: "48h"
`

// writeConfigDir drops a config.yaml into a temp dir and resets the
// global viper so tests don't bleed into each other.
func writeConfigDir(t *testing.T, content string) string {
	t.Helper()
	viper.Reset()
	dir := t.TempDir()
	if content != "" {
		path := filepath.Join(dir, "config.yaml")
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// TestLoadConfig_ReadsFile verifies that a well-formed YAML config loads
// with all sections populated, including duration parsing.
func TestLoadConfig_ReadsFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfigDir(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":9090" {
		t.Errorf("server.address = %q, want %q", cfg.Server.Address, ":9090")
	}
	if cfg.Database.URI != "mongodb://db.internal:27017" {
		t.Errorf("database.uri = %q, want %q", cfg.Database.URI, "mongodb://db.internal:27017")
	}
	if cfg.Database.Name != "coaching_test" {
		t.Errorf("database.name = %q, want %q", cfg.Database.Name, "coaching_test")
	}
	if cfg.S3.BucketName != "session-archive" {
		t.Errorf("s3.bucket_name = %q, want %q", cfg.S3.BucketName, "session-archive")
	}
	if cfg.S3.UseSSL {
		t.Error("s3.use_ssl = true, want false")
	}
	if cfg.JWT.Secret != "test-secret" {
		t.Errorf("jwt.secret = %q, want %q", cfg.JWT.Secret, "test-secret")
	}
	if cfg.JWT.Expiration != 2*time.Hour {
		t.Errorf("jwt.expiration = %v, want 2h", cfg.JWT.Expiration)
	}
	if cfg.Sweeper.Schedule != "@every 5m" {
		t.Errorf("sweeper.schedule = %q, want %q", cfg.Sweeper.Schedule, "@every 5m")
	}
	if cfg.Sweeper.Grace != 48*time.Hour {
		t.Errorf("sweeper.grace = %v, want 48h", cfg.Sweeper.Grace)
	}
}

// TestLoadConfig_DefaultsWithoutFile verifies that a missing config file
// is not an error and defaults fill the gaps.
func TestLoadConfig_DefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(writeConfigDir(t, ""))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":8080" {
		t.Errorf("server.address = %q, want default %q", cfg.Server.Address, ":8080")
	}
	if cfg.Database.Name != "coaching_app" {
		t.Errorf("database.name = %q, want default %q", cfg.Database.Name, "coaching_app")
	}
	if cfg.JWT.Expiration != time.Hour {
		t.Errorf("jwt.expiration = %v, want default 1h", cfg.JWT.Expiration)
	}
	if cfg.Sweeper.Schedule != "@every 15m" {
		t.Errorf("sweeper.schedule = %q, want default %q", cfg.Sweeper.Schedule, "@every 15m")
	}
	if cfg.Sweeper.Grace != 24*time.Hour {
		t.Errorf("sweeper.grace = %v, want default 24h", cfg.Sweeper.Grace)
	}
	if !cfg.S3.UseSSL {
		t.Error("s3.use_ssl = false, want default true")
	}
}

// TestLoadConfig_EnvOverride verifies that environment variables take
// precedence over file values for defaulted keys.
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":7070")
	t.Setenv("DATABASE_NAME", "coaching_env")

	cfg, err := LoadConfig(writeConfigDir(t, validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Address != ":7070" {
		t.Errorf("server.address = %q, want env %q", cfg.Server.Address, ":7070")
	}
	if cfg.Database.Name != "coaching_env" {
		t.Errorf("database.name = %q, want env %q", cfg.Database.Name, "coaching_env")
	}
	// Untouched keys keep their file values.
	if cfg.JWT.Secret != "test-secret" {
		t.Errorf("jwt.secret = %q, want %q", cfg.JWT.Secret, "test-secret")
	}
}
