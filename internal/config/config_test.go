package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("addr %q", cfg.Server.Addr)
	}
	if cfg.Storage.Backend != BackendPebble || cfg.Storage.Fsync != FsyncInterval {
		t.Fatalf("storage %+v", cfg.Storage)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Fatalf("log %+v", cfg.Log)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  addr: \":9090\"\n  read_timeout: 5s\nstorage:\n  backend: file\n  data_dir: /tmp/queues\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("EDUBOT_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" || cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("server %+v", cfg.Server)
	}
	if cfg.Storage.Backend != BackendFile || cfg.Storage.DataDir != "/tmp/queues" {
		t.Fatalf("storage %+v", cfg.Storage)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("env override missed: %+v", cfg.Log)
	}
}

func TestLoadFromConfigPathEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  addr: \":7070\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("addr %q", cfg.Server.Addr)
	}
}

func TestValidateRejectsBadEnums(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Storage.Backend = "redis" }},
		{"fsync", func(c *Config) { c.Storage.Fsync = "sometimes" }},
		{"format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load("")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
