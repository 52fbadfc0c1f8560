package transform

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/bep/godartsass/v2"
	"github.com/rs/zerolog/log"
)

// DefaultSassBinary is the embedded dart-sass executable looked up on PATH.
const DefaultSassBinary = "sass"

type sassCompiler interface {
	Execute(args godartsass.Args) (godartsass.Result, error)
	Close() error
}

// sassStage compiles SCSS and indented Sass through a long-lived dart-sass
// process. Plain CSS passes through untouched.
type sassStage struct {
	root         string
	includePaths []string
	start        func() (sassCompiler, error)

	once     sync.Once
	compiler sassCompiler
	startErr error
}

func newSass(opts Options, env Env) (Transform, error) {
	binary, err := opts.String("binary", DefaultSassBinary)
	if err != nil {
		return nil, err
	}
	includes, err := opts.Strings("includePaths", nil)
	if err != nil {
		return nil, err
	}

	s := &sassStage{root: env.Root}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(env.Root, inc)
		}
		s.includePaths = append(s.includePaths, inc)
	}

	s.start = func() (sassCompiler, error) {
		return godartsass.Start(godartsass.Options{
			DartSassEmbeddedFilename: binary,
			LogEventHandler: func(e godartsass.LogEvent) {
				log.Warn().Str("sass", e.Message).Msg("sass diagnostic")
			},
		})
	}
	return s, nil
}

func (s *sassStage) Name() string { return "sass" }

func (s *sassStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	var syntax godartsass.SourceSyntax
	switch in.Ext {
	case ".css":
		in.Kind = KindStyle
		return []Asset{in}, nil
	case ".sass":
		syntax = godartsass.SourceSyntaxSASS
	default:
		syntax = godartsass.SourceSyntaxSCSS
	}

	compiler, err := s.transpiler()
	if err != nil {
		return nil, err
	}

	dir := filepath.Join(s.root, filepath.Dir(filepath.FromSlash(in.Path)))
	result, err := compiler.Execute(godartsass.Args{
		Source:       string(in.Content),
		OutputStyle:  godartsass.OutputStyleExpanded,
		SourceSyntax: syntax,
		IncludePaths: append([]string{dir}, s.includePaths...),
	})
	if err != nil {
		return nil, err
	}

	in.Content = []byte(result.CSS)
	in.Ext = ".css"
	in.Kind = KindStyle
	return []Asset{in}, nil
}

// transpiler starts dart-sass on first use so pipelines without Sass sources
// never need the binary.
func (s *sassStage) transpiler() (sassCompiler, error) {
	s.once.Do(func() {
		compiler, err := s.start()
		if err != nil {
			s.startErr = fmt.Errorf("failed to start dart-sass: %w", err)
			return
		}
		s.compiler = compiler
	})
	return s.compiler, s.startErr
}

func (s *sassStage) Close() error {
	if s.compiler == nil {
		return nil
	}
	return s.compiler.Close()
}
