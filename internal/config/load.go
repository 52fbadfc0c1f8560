package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Load reads the YAML file at path and overlays it on Default. A missing file
// is not an error: the defaults are used as-is. A relative Context is resolved
// against the directory holding path. A non-empty mode overrides the
// mode recorded in the file. The result is validated before it is returned.
func Load(path string, mode Mode) (*Config, error) {
	base := ModeProduction
	if mode != "" {
		base = mode
	}
	cfg := Default(base)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			log.Debug().Str("path", path).Msg("config file not found, using defaults")
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := Decode(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}

		// the project root is relative to the config file, present or not
		if !filepath.IsAbs(cfg.Context) {
			cfg.Context = filepath.Join(filepath.Dir(path), cfg.Context)
		}
	}

	if mode != "" {
		cfg.Mode = mode
	}

	for i := range cfg.ChunkGroups {
		if cfg.ChunkGroups[i].Chunks == "" {
			cfg.ChunkGroups[i].Chunks = ChunksAsync
		}
	}

	parsed, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	cfg.Mode = parsed

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Decode overlays YAML data onto cfg. Keys absent from data keep their
// current values; unknown keys are rejected.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// Encode renders cfg as YAML.
func Encode(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OutputDir resolves the output base path against the project context.
func (c *Config) OutputDir() string {
	return c.Resolve(c.Output.Path)
}

// Resolve joins a configured path with Context unless it is already absolute.
func (c *Config) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Context, filepath.FromSlash(p))
}
