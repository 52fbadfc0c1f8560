// Package html assembles the entry document: it reads the template, injects
// references to the generated bundles and minifies the result.
package html

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"os"
	"regexp"
)

// ErrMissingTemplate is returned when the entry template cannot be read.
var ErrMissingTemplate = errors.New("html template not found")

// TagKind selects how a bundle is referenced.
type TagKind int

const (
	Script TagKind = iota
	Style
)

// Tag references one generated bundle.
type Tag struct {
	Kind  TagKind
	URL   string
	Async bool
}

func (t Tag) String() string {
	url := template.HTMLEscapeString(t.URL)
	switch {
	case t.Kind == Style:
		return `<link href="` + url + `" rel="stylesheet">`
	case t.Async:
		return `<script src="` + url + `" async></script>`
	default:
		return `<script src="` + url + `"></script>`
	}
}

// Options controls assembly.
type Options struct {
	Inject bool
	Minify map[string]bool
}

// ReadTemplate loads the entry template. A missing or unreadable file is
// reported as ErrMissingTemplate wrapping the filesystem error.
func ReadTemplate(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMissingTemplate, path, err)
	}
	return data, nil
}

// Assemble injects tags into doc and minifies the result.
func Assemble(doc []byte, tags []Tag, opts Options) ([]byte, error) {
	if opts.Inject {
		doc = Inject(doc, tags)
	}
	return Minify(doc, opts.Minify)
}

var (
	cssMarker = regexp.MustCompile(`<!--\s*inject:css\s*-->`)
	jsMarker  = regexp.MustCompile(`<!--\s*inject:js\s*-->`)
	headClose = regexp.MustCompile(`(?i)</head\s*>`)
	bodyClose = regexp.MustCompile(`(?i)</body\s*>`)
)

// Inject places style links at the css marker or before </head>, and scripts
// at the js marker, before </body>, or at the end of the document. Tags keep
// the order they were given in.
func Inject(doc []byte, tags []Tag) []byte {
	var styles, scripts bytes.Buffer
	for _, t := range tags {
		if t.Kind == Style {
			styles.WriteString(t.String())
		} else {
			scripts.WriteString(t.String())
		}
	}

	out := doc
	if styles.Len() > 0 {
		out = insert(out, styles.Bytes(), cssMarker, headClose)
	}
	if scripts.Len() > 0 {
		out = insert(out, scripts.Bytes(), jsMarker, bodyClose)
	}
	return out
}

// insert replaces the first marker match with tags, or places tags before the
// first closing-tag match, or appends them.
func insert(doc, tags []byte, marker, before *regexp.Regexp) []byte {
	if loc := marker.FindIndex(doc); loc != nil {
		return splice(doc, loc[0], loc[1], tags)
	}
	if loc := before.FindIndex(doc); loc != nil {
		return splice(doc, loc[0], loc[0], tags)
	}
	return splice(doc, len(doc), len(doc), tags)
}

func splice(doc []byte, start, end int, tags []byte) []byte {
	out := make([]byte, 0, len(doc)-(end-start)+len(tags))
	out = append(out, doc[:start]...)
	out = append(out, tags...)
	return append(out, doc[end:]...)
}
