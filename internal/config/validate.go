package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"slices"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var compressEncodings = []string{"gzip", "zstd"}

// Validate checks every pattern, policy and flag in the configuration.
func (c *Config) Validate() error {
	if _, err := ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Source == "" {
		return invalid("source is required")
	}
	if c.Output.Path == "" {
		return invalid("output.path is required")
	}
	if c.Output.Filename == "" || c.Output.ChunkFilename == "" {
		return invalid("output.filename and output.chunkFilename are required")
	}
	if c.Output.CSSFilename == "" || c.Output.CSSChunkFilename == "" {
		return invalid("output.cssFilename and output.cssChunkFilename are required")
	}

	for i, rule := range c.Rules {
		if rule.Test == "" {
			return invalid("rules[%d].test is required", i)
		}
		if _, err := regexp.Compile(rule.Test); err != nil {
			return invalid("rules[%d].test: %v", i, err)
		}
		for _, pattern := range rule.Exclude {
			if _, err := glob.Compile(pattern, '/'); err != nil {
				return invalid("rules[%d].exclude %q: %v", i, pattern, err)
			}
		}
		for _, mode := range []Mode{ModeDevelopment, ModeProduction} {
			for j, ref := range rule.PipelineFor(mode) {
				if ref.Stage == "" {
					return invalid("rules[%d] %s stage %d has no name", i, mode, j)
				}
			}
		}
	}

	seen := make(map[string]bool, len(c.ChunkGroups))
	for i, group := range c.ChunkGroups {
		if group.Name == "" {
			return invalid("chunkGroups[%d].name is required", i)
		}
		if group.Name == "main" {
			return invalid("chunkGroups[%d].name %q is reserved", i, group.Name)
		}
		if seen[group.Name] {
			return invalid("chunkGroups[%d].name %q is declared twice", i, group.Name)
		}
		seen[group.Name] = true
		if _, err := regexp.Compile(group.Test); err != nil {
			return invalid("chunkGroups[%d].test: %v", i, err)
		}
		switch group.Chunks {
		case "", ChunksAll, ChunksAsync, ChunksInitial:
		default:
			return invalid("chunkGroups[%d].chunks %q must be all, async or initial", i, group.Chunks)
		}
		if group.MinSize < 0 {
			return invalid("chunkGroups[%d].minSize must not be negative", i)
		}
	}

	for _, pattern := range c.Lazy {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			return invalid("lazy %q: %v", pattern, err)
		}
	}

	if c.HTML.Template == "" || c.HTML.Filename == "" {
		return invalid("html.template and html.filename are required")
	}
	for flag := range c.HTML.Minify {
		if !slices.Contains(MinifyFlags, flag) {
			return invalid("html.minify: unknown flag %q", flag)
		}
	}

	for i, cp := range c.Copy {
		if cp.From == "" || cp.To == "" {
			return invalid("copy[%d] requires from and to", i)
		}
	}

	for _, enc := range c.Compress {
		if !slices.Contains(compressEncodings, enc) {
			return invalid("compress: unknown encoding %q", enc)
		}
	}

	if c.Workers < 0 {
		return invalid("workers must not be negative")
	}

	return c.validateOutputDir()
}

// validateOutputDir keeps the purged output directory clear of every input.
func (c *Config) validateOutputDir() error {
	out := absPath(c.OutputDir())

	if within(absPath(c.Context), out) {
		return invalid("output.path %q contains the project directory", c.Output.Path)
	}
	src := absPath(c.Resolve(c.Source))
	if within(src, out) || within(out, src) {
		return invalid("output.path %q overlaps source %q", c.Output.Path, c.Source)
	}
	if within(absPath(c.Resolve(c.HTML.Template)), out) {
		return invalid("output.path %q contains html.template %q", c.Output.Path, c.HTML.Template)
	}
	for i, cp := range c.Copy {
		if within(absPath(c.Resolve(cp.From)), out) {
			return invalid("output.path %q contains copy[%d].from %q", c.Output.Path, i, cp.From)
		}
	}
	return nil
}

// within reports whether p is dir or sits below it.
func within(p, dir string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func absPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return filepath.Clean(p)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
