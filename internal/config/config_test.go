package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults do not validate: %v", err)
	}
	if cfg.Pyramid.TileSize != 512 {
		t.Errorf("default tile size: got %d, want 512", cfg.Pyramid.TileSize)
	}
	if cfg.Storage.Engine != "memory" {
		t.Errorf("default engine: got %q, want memory", cfg.Storage.Engine)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr: got %q, want :8080", cfg.Server.Addr)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
server:
  addr: ":9090"
storage:
  engine: badger
  path: /tmp/pyramids
pyramid:
  tileSize: 256
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr: got %q", cfg.Server.Addr)
	}
	if cfg.Storage.Engine != "badger" || cfg.Storage.Path != "/tmp/pyramids" {
		t.Errorf("storage: got %q %q", cfg.Storage.Engine, cfg.Storage.Path)
	}
	if cfg.Pyramid.TileSize != 256 {
		t.Errorf("tile size: got %d", cfg.Pyramid.TileSize)
	}
	// Untouched keys keep their defaults.
	if cfg.Compression.Codec != "snappy" {
		t.Errorf("codec: got %q, want snappy", cfg.Compression.Codec)
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad engine", "storage:\n  engine: mongodb\n"},
		{"zero tile size", "pyramid:\n  tileSize: 0\n"},
		{"unknown codec", "compression:\n  codec: brotli\n"},
		{"bad yaml", "server: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("invalid config accepted")
			}
		})
	}
}
