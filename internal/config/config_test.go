package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return dir
}

func TestLoadConfigDefaultsAndOverrides(t *testing.T) {
	dir := writeConfig(t, `
server:
  port: "9090"
  mode: debug
database:
  driver: sqlite
  path: /tmp/dp.db
jwt:
  secret: dev-secret
  expire_hours: 4
storage:
  type: minio
stats:
  cache_ttl_seconds: 30
`)

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("port = %q", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.Path != "/tmp/dp.db" {
		t.Fatalf("database = %+v", cfg.Database)
	}
	if cfg.JWT.ExpireTime != 4*time.Hour {
		t.Fatalf("jwt expire = %v", cfg.JWT.ExpireTime)
	}
	if cfg.Stats.CacheTTL() != 30*time.Second {
		t.Fatalf("cache ttl = %v", cfg.Stats.CacheTTL())
	}
	if cfg.RateLimit.MaxRequests != 6000 {
		t.Fatalf("rate limit default = %d", cfg.RateLimit.MaxRequests)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	dir := writeConfig(t, `
database:
  driver: sqlite
jwt:
  secret: from-file
`)
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.JWT.Secret != "from-env" {
		t.Fatalf("secret = %q, want env value", cfg.JWT.Secret)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"debug short secret", Config{Server: ServerConfig{Mode: "debug"}, Database: DatabaseConfig{Driver: "mysql"}, JWT: JWTConfig{Secret: "x"}}, false},
		{"release short secret", Config{Server: ServerConfig{Mode: "release"}, Database: DatabaseConfig{Driver: "mysql"}, JWT: JWTConfig{Secret: "x"}}, true},
		{"release default seed password", Config{
			Server:   ServerConfig{Mode: "release"},
			Database: DatabaseConfig{Driver: "mysql"},
			JWT:      JWTConfig{Secret: "0123456789abcdef0123456789abcdef"},
			Seed:     SeedConfig{InstructorPassword: "admin123"},
		}, true},
		{"unknown driver", Config{Database: DatabaseConfig{Driver: "oracle"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
