// Package config loads the buffer pool and storage settings recognized by
// the core (spec §6.3): num_frames, page_size, replacement_policy, and the
// data directory the disk manager's backing file lives in.
package config

import (
	"fmt"
	"os"

	"gopkg.in/ini.v1"
)

// Config holds the settings the buffer pool and disk manager are
// constructed from.
type Config struct {
	Raw *ini.File

	NumFrames         int
	PageSize          int
	ReplacementPolicy string
	DataDir           string
}

// Default returns the configuration used when no file is loaded, matching
// the defaults documented in spec.md §6.3.
func Default() *Config {
	return &Config{
		Raw:               ini.Empty(),
		NumFrames:         16,
		PageSize:          1024,
		ReplacementPolicy: "Clock",
		DataDir:           ".",
	}
}

// Load reads an INI file like:
//
//	[buffer_pool]
//	num_frames = 16
//	page_size = 1024
//	replacement_policy = Clock
//
//	[storage]
//	data_dir = ./data
//
// Missing keys fall back to Default()'s values.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config: %s does not exist", path)
	}

	raw, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg := Default()
	cfg.Raw = raw

	bp := raw.Section("buffer_pool")
	cfg.NumFrames = bp.Key("num_frames").MustInt(cfg.NumFrames)
	cfg.PageSize = bp.Key("page_size").MustInt(cfg.PageSize)
	cfg.ReplacementPolicy = bp.Key("replacement_policy").MustString(cfg.ReplacementPolicy)

	storage := raw.Section("storage")
	cfg.DataDir = storage.Key("data_dir").MustString(cfg.DataDir)

	if cfg.ReplacementPolicy != "Clock" {
		return nil, fmt.Errorf("config: unsupported replacement_policy %q (only \"Clock\" is implemented)", cfg.ReplacementPolicy)
	}
	if cfg.NumFrames <= 0 {
		return nil, fmt.Errorf("config: num_frames must be positive, got %d", cfg.NumFrames)
	}
	if cfg.PageSize <= 0 {
		return nil, fmt.Errorf("config: page_size must be positive, got %d", cfg.PageSize)
	}

	return cfg, nil
}
