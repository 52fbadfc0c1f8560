// Package config holds the declarative build configuration: where outputs go,
// how assets are routed to transform pipelines, how output units are grouped
// into bundles and how the HTML entry point is assembled.
//
// A Config is constructed once per build invocation and treated as read-only
// afterwards.
package config

import (
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects the active pipeline variant of every AssetRule.
type Mode string

const (
	ModeDevelopment Mode = "development"
	ModeProduction  Mode = "production"
)

var ErrInvalidMode = errors.New("invalid build mode")

// ParseMode normalises a mode name, accepting any letter case.
func ParseMode(raw string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeDevelopment:
		return ModeDevelopment, nil
	case ModeProduction:
		return ModeProduction, nil
	default:
		return "", fmt.Errorf("%w: %q (expected development or production)", ErrInvalidMode, raw)
	}
}

func (m Mode) Production() bool {
	return m == ModeProduction
}

// MergePolicy decides which output units a ChunkGroup admits.
type MergePolicy string

const (
	ChunksAll     MergePolicy = "all"
	ChunksAsync   MergePolicy = "async"
	ChunksInitial MergePolicy = "initial"
)

// Admits reports whether a unit with the given async flag may join a group
// using this policy.
func (p MergePolicy) Admits(async bool) bool {
	switch p {
	case ChunksAll:
		return true
	case ChunksAsync:
		return async
	case ChunksInitial:
		return !async
	default:
		return false
	}
}

// OutputTarget describes where compiled artifacts are written.
type OutputTarget struct {
	// Path is the output base directory, relative to Config.Context unless absolute.
	Path string `yaml:"path"`
	// Filename names the initial script bundle.
	Filename string `yaml:"filename"`
	// ChunkFilename names every other script bundle.
	ChunkFilename string `yaml:"chunkFilename"`
	// CSSFilename names the initial style bundle.
	CSSFilename string `yaml:"cssFilename"`
	// CSSChunkFilename names every other style bundle.
	CSSChunkFilename string `yaml:"cssChunkFilename"`
	// PublicPath is prefixed to URLs injected into the HTML entry point.
	PublicPath string `yaml:"publicPath"`
}

// StageRef names a transform stage and carries its opaque options.
type StageRef struct {
	Stage   string         `yaml:"stage"`
	Options map[string]any `yaml:"options,omitempty"`
}

// UnmarshalYAML accepts either a bare stage name or a mapping.
func (s *StageRef) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		s.Stage = value.Value
		s.Options = nil
		return nil
	}

	type plain StageRef
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*s = StageRef(p)
	return nil
}

// AssetRule routes matching source assets to an ordered transform pipeline.
type AssetRule struct {
	Name string `yaml:"name"`
	// Test is a regular expression evaluated against the asset path.
	Test string `yaml:"test"`
	// Include restricts the rule to paths under these prefixes.
	Include []string `yaml:"include,omitempty"`
	// Exclude lists globs; a matching path is never routed to this rule.
	Exclude []string `yaml:"exclude,omitempty"`
	// Use is the pipeline for both modes unless overridden below.
	Use         []StageRef `yaml:"use,omitempty"`
	Development []StageRef `yaml:"development,omitempty"`
	Production  []StageRef `yaml:"production,omitempty"`
	// Output is the filename template for file outputs of this rule.
	Output string `yaml:"output,omitempty"`
}

// PipelineFor returns the stage list active in the given mode.
func (r AssetRule) PipelineFor(mode Mode) []StageRef {
	switch {
	case mode == ModeDevelopment && len(r.Development) > 0:
		return r.Development
	case mode == ModeProduction && len(r.Production) > 0:
		return r.Production
	default:
		return r.Use
	}
}

// ChunkGroup forces matching output units into one named bundle.
type ChunkGroup struct {
	Name   string      `yaml:"name"`
	Test   string      `yaml:"test"`
	Chunks MergePolicy `yaml:"chunks"`
	// Enforce ignores the MinSize heuristic.
	Enforce bool `yaml:"enforce"`
	// MinSize is the smallest merged size in bytes for a non-enforced group.
	MinSize int `yaml:"minSize,omitempty"`
	// Filename overrides the bundle filename template.
	Filename string `yaml:"filename,omitempty"`
}

// HTMLOptions configures entry-point assembly.
type HTMLOptions struct {
	Template string          `yaml:"template"`
	Filename string          `yaml:"filename"`
	Inject   bool            `yaml:"inject"`
	Minify   map[string]bool `yaml:"minify,omitempty"`
}

// CopyPattern copies a file verbatim into the output directory.
type CopyPattern struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// DevServer is carried for completeness; serving is not provided.
type DevServer struct {
	Open bool `yaml:"open"`
}

// Config is the complete configuration surface of one build invocation.
type Config struct {
	Mode Mode `yaml:"mode"`
	// Context is the project root all other relative paths resolve against.
	Context string `yaml:"context"`
	// Source is the directory walked to discover assets.
	Source      string        `yaml:"source"`
	Output      OutputTarget  `yaml:"output"`
	Rules       []AssetRule   `yaml:"rules"`
	ChunkGroups []ChunkGroup  `yaml:"chunkGroups"`
	Lazy        []string      `yaml:"lazy,omitempty"`
	HTML        HTMLOptions   `yaml:"html"`
	Copy        []CopyPattern `yaml:"copy,omitempty"`
	DevServer   DevServer     `yaml:"devServer"`
	Compress    []string      `yaml:"compress,omitempty"`
	Manifest    string        `yaml:"manifest"`
	Workers     int           `yaml:"workers,omitempty"`
}
