package assets

import (
	"sync"

	"github.com/gobwas/glob"

	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/manifest"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

// Unit is one transformed script or stylesheet waiting to be grouped.
type Unit struct {
	// Source is the originating asset path.
	Source string
	// Rule is the index of the rule that routed the asset.
	Rule    int
	Kind    transform.Kind
	Async   bool
	Content []byte
}

// Bundle is a named output unit made of merged Units.
type Bundle struct {
	Name string
	ID   string
	Kind transform.Kind
	// Filename overrides the output template when set by the owning group.
	Filename string
	Units    []Unit
	// Async is true when every unit is loaded on demand.
	Async bool
	// Rule is the lowest rule index among the units.
	Rule int

	// Path and URL are set once the bundle has been written.
	Path string
	URL  string
}

// Sources lists the asset paths merged into the bundle.
func (b *Bundle) Sources() []string {
	out := make([]string, len(b.Units))
	for i, u := range b.Units {
		out[i] = u.Source
	}
	return out
}

// File is an asset written individually rather than bundled.
type File struct {
	Source string
	Rule   string
	Path   string
	URL    string
}

// Result describes a completed build.
type Result struct {
	Mode    config.Mode
	Bundles []*Bundle
	Files   []File
	// HTML is the output path of the entry document, empty when none was written.
	HTML     string
	Manifest *manifest.Manifest
	// Written lists every file in the output directory, precompressed siblings included.
	Written []string
}

// Scripts returns the script bundle URLs in document order.
func (r *Result) Scripts() []string {
	return r.urls(transform.KindScript)
}

// Styles returns the stylesheet bundle URLs in document order.
func (r *Result) Styles() []string {
	return r.urls(transform.KindStyle)
}

// Bundle looks up a bundle by name and kind.
func (r *Result) Bundle(name string, kind transform.Kind) (*Bundle, bool) {
	for _, b := range r.Bundles {
		if b.Name == name && b.Kind == kind {
			return b, true
		}
	}
	return nil, false
}

func (r *Result) urls(kind transform.Kind) []string {
	var out []string
	for _, b := range r.Bundles {
		if b.Kind == kind {
			out = append(out, b.URL)
		}
	}
	return out
}

// Pipeline manages the asset build process for one configuration.
type Pipeline struct {
	config   *config.Config
	registry *transform.Registry
	workers  int
	router   *Router
	lazy     []glob.Glob

	mu     sync.RWMutex
	result *Result
}
