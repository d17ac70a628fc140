// Package config loads service configuration from YAML files and
// provides the defaults used when no file is present.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ironsheep/image-pyramid-service/internal/compress"
	"github.com/ironsheep/image-pyramid-service/internal/pyramid"
)

// Config is the full service configuration.
type Config struct {
	Server struct {
		// Addr is the listen address, host:port.
		Addr string `yaml:"addr"`
	} `yaml:"server"`

	Storage struct {
		// Engine selects the backing store: "memory" or "badger".
		Engine string `yaml:"engine"`

		// Path is the Badger database directory. Empty means an
		// in-memory Badger instance, useful for smoke testing.
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Pyramid struct {
		// TileSize is the edge length of square tiles, in pixels.
		TileSize int `yaml:"tileSize"`

		// MinLevelSize stops reduction once the smaller image
		// dimension reaches this many pixels.
		MinLevelSize int `yaml:"minLevelSize"`
	} `yaml:"pyramid"`

	Compression struct {
		// Codec names the tile compression codec: "none", "snappy"
		// or "gzip".
		Codec string `yaml:"codec"`
	} `yaml:"compression"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Storage.Engine = "memory"
	cfg.Pyramid.TileSize = pyramid.DefaultTileSize
	cfg.Pyramid.MinLevelSize = pyramid.DefaultMinLevelSize
	cfg.Compression.Codec = "snappy"
	return cfg
}

// Load reads a YAML config file over the defaults. A missing file is
// not an error; the defaults are returned unchanged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the services cannot run with.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("config: server.addr must not be empty")
	}
	switch c.Storage.Engine {
	case "memory", "badger":
	default:
		return fmt.Errorf("config: unknown storage engine %q", c.Storage.Engine)
	}
	if c.Pyramid.TileSize <= 0 {
		return fmt.Errorf("config: pyramid.tileSize must be positive, got %d", c.Pyramid.TileSize)
	}
	if c.Pyramid.MinLevelSize <= 0 {
		return fmt.Errorf("config: pyramid.minLevelSize must be positive, got %d", c.Pyramid.MinLevelSize)
	}
	if _, err := compress.ParseCodec(c.Compression.Codec); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
