package transform

import (
	"context"
	"encoding/json"
	"fmt"
)

// copyStage passes assets through unchanged as standalone files. It backs the
// implicit pipeline of assets no rule matches.
type copyStage struct{}

func newCopy(Options, Env) (Transform, error) {
	return copyStage{}, nil
}

// Copy returns the pass-through stage.
func Copy() Transform {
	return copyStage{}
}

func (copyStage) Name() string { return "copy" }

func (copyStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	in.Kind = KindFile
	return []Asset{in}, nil
}

// fileStage emits the asset as a standalone file, optionally under its own
// filename template.
type fileStage struct {
	name string
}

func newFile(opts Options, _ Env) (Transform, error) {
	name, err := opts.String("name", "")
	if err != nil {
		return nil, err
	}
	return &fileStage{name: name}, nil
}

func (s *fileStage) Name() string { return "file" }

func (s *fileStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	in.Kind = KindFile
	if s.name != "" {
		in.Filename = s.name
	}
	return []Asset{in}, nil
}

// inlineStyleStage turns a stylesheet into a script that injects it into the
// document at runtime, so no separate stylesheet is emitted.
type inlineStyleStage struct{}

func newInlineStyle(Options, Env) (Transform, error) {
	return inlineStyleStage{}, nil
}

func (inlineStyleStage) Name() string { return "inline-style" }

func (inlineStyleStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	if in.Kind != KindStyle {
		return nil, fmt.Errorf("expected a stylesheet, got %s", in.Kind)
	}

	css, err := json.Marshal(string(in.Content))
	if err != nil {
		return nil, err
	}
	source, err := json.Marshal(in.Path)
	if err != nil {
		return nil, err
	}

	script := fmt.Sprintf(`(function(){var s=document.createElement("style");s.setAttribute("data-source",%s);s.textContent=%s;document.head.appendChild(s);})();`, source, css)

	in.Kind = KindScript
	in.Ext = ".js"
	in.Content = []byte(script)
	return []Asset{in}, nil
}

// extractStage marks a stylesheet for extraction into a CSS bundle.
type extractStage struct{}

func newExtract(Options, Env) (Transform, error) {
	return extractStage{}, nil
}

func (extractStage) Name() string { return "extract" }

func (extractStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	if in.Kind != KindStyle {
		return nil, fmt.Errorf("expected a stylesheet, got %s", in.Kind)
	}
	in.Ext = ".css"
	return []Asset{in}, nil
}
