// Package transform defines the stage interface every asset pipeline is built
// from, along with the built-in stages backed by esbuild, dart-sass and
// external tools.
package transform

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
)

// Kind classifies what an asset has become after a stage ran.
type Kind string

const (
	// KindScript assets are merged into script bundles.
	KindScript Kind = "script"
	// KindStyle assets are merged into stylesheet bundles.
	KindStyle Kind = "style"
	// KindFile assets are written individually.
	KindFile Kind = "file"
)

// Asset is a piece of content moving through a pipeline.
type Asset struct {
	// Path is the source path, slash-separated and relative to the project root.
	Path string
	// Ext is the current extension including the dot; stages update it when
	// they change the content type (".scss" becomes ".css").
	Ext  string
	Kind Kind
	// Filename overrides the output template for KindFile assets.
	Filename string
	Content  []byte
}

// NewAsset builds the initial asset for a source file.
func NewAsset(p string, content []byte) Asset {
	ext := strings.ToLower(path.Ext(p))
	return Asset{
		Path:    p,
		Ext:     ext,
		Kind:    KindForExt(ext),
		Content: content,
	}
}

var scriptExts = map[string]bool{".js": true, ".jsx": true, ".mjs": true, ".ts": true, ".tsx": true}
var styleExts = map[string]bool{".css": true, ".scss": true, ".sass": true}

// KindForExt maps an extension to the kind an untransformed asset starts with.
func KindForExt(ext string) Kind {
	switch {
	case scriptExts[ext]:
		return KindScript
	case styleExts[ext]:
		return KindStyle
	default:
		return KindFile
	}
}

// Transform is one pipeline stage. Apply may return several assets; each is
// fed to the next stage.
type Transform interface {
	Name() string
	Apply(ctx context.Context, in Asset) ([]Asset, error)
}

// Error reports a stage rejecting an asset.
type Error struct {
	Asset string
	Stage string
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("transform %s failed for %s: %v", e.Stage, e.Asset, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Pipeline applies stages in order.
type Pipeline struct {
	stages []Transform
}

// NewPipeline creates a pipeline from ordered stages. An empty pipeline passes
// assets through unchanged.
func NewPipeline(stages ...Transform) *Pipeline {
	return &Pipeline{stages: stages}
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

// Run feeds in through every stage. Each stage receives the outputs of the
// previous one.
func (p *Pipeline) Run(ctx context.Context, in Asset) ([]Asset, error) {
	current := []Asset{in}
	for _, stage := range p.stages {
		var next []Asset
		for _, asset := range current {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out, err := stage.Apply(ctx, asset)
			if err != nil {
				return nil, &Error{Asset: in.Path, Stage: stage.Name(), Err: err}
			}
			next = append(next, out...)
		}
		current = next
	}
	return current, nil
}

// Close releases resources held by stages that implement io.Closer.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.stages {
		if c, ok := s.(interface{ Close() error }); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}
