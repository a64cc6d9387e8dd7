package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jaherreraf/IngSoftwareIIcybersecurity/internal/engine"
)

func TestLoad_defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8001 {
		t.Errorf("expected port 8001, got %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("expected all origins, got %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.MaxUploadBytes != 32<<20 {
		t.Errorf("expected 32 MiB upload limit, got %d", cfg.Server.MaxUploadBytes)
	}
	if cfg.Engine.Kind != engine.KindExec || cfg.Engine.Command != "quicksand" {
		t.Errorf("expected exec quicksand engine, got %s %s", cfg.Engine.Kind, cfg.Engine.Command)
	}
	if cfg.Engine.Timeout != 0 || cfg.Engine.MaxConcurrent != 0 {
		t.Errorf("expected no timeout and no bound, got %s / %d", cfg.Engine.Timeout, cfg.Engine.MaxConcurrent)
	}
}

func TestLoad_fileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "qsapi.yaml")
	body := []byte("server:\n  port: 9100\n  rate_limit_rps: 5\nengine:\n  kind: http\n  url: http://sidecar:8000/analyze\n  timeout: 30s\n")
	if err := os.WriteFile(path, body, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("QSAPI_ENGINE_MAX_CONCURRENT", "4")
	t.Setenv("QSAPI_SERVER_PORT", "9200")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 9200 {
		t.Errorf("expected env port 9200, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimitRPS != 5 {
		t.Errorf("expected rps 5, got %d", cfg.Server.RateLimitRPS)
	}
	if cfg.Engine.Kind != engine.KindHTTP || cfg.Engine.URL != "http://sidecar:8000/analyze" {
		t.Errorf("unexpected engine config: %+v", cfg.Engine)
	}
	if cfg.Engine.Timeout != 30*time.Second {
		t.Errorf("expected 30s timeout, got %s", cfg.Engine.Timeout)
	}
	if cfg.Engine.MaxConcurrent != 4 {
		t.Errorf("expected max_concurrent 4, got %d", cfg.Engine.MaxConcurrent)
	}
	if sc := cfg.ScannerConfig(); sc.Timeout != 30*time.Second || sc.MaxConcurrent != 4 {
		t.Errorf("unexpected scanner config: %+v", sc)
	}
}

func TestLoad_explicitFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	base := Config{Server: ServerConfig{Port: 8001, MaxUploadBytes: 1}}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	bad := base
	bad.Server.Port = 70000
	if err := bad.Validate(); err == nil {
		t.Error("expected error for out-of-range port")
	}

	bad = base
	bad.Engine.Timeout = -time.Second
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative timeout")
	}
}
