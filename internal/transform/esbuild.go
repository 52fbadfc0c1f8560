package transform

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/rs/zerolog/log"
)

var targets = map[string]api.Target{
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"esnext": api.ESNext,
}

var jsxModes = map[string]api.JSX{
	"transform": api.JSXTransform,
	"automatic": api.JSXAutomatic,
	"preserve":  api.JSXPreserve,
}

var formats = map[string]api.Format{
	"iife": api.FormatIIFE,
	"esm":  api.FormatESModule,
	"cjs":  api.FormatCommonJS,
}

var engines = map[string]api.EngineName{
	"chrome":  api.EngineChrome,
	"edge":    api.EngineEdge,
	"firefox": api.EngineFirefox,
	"ie":      api.EngineIE,
	"ios":     api.EngineIOS,
	"opera":   api.EngineOpera,
	"safari":  api.EngineSafari,
}

// DefaultBrowsers drive vendor prefixing when a css stage enables it without targets.
var DefaultBrowsers = []string{"chrome58", "edge16", "firefox57", "safari11", "ios11"}

var enginePattern = regexp.MustCompile(`^([a-z]+)(\d+(?:\.\d+)*)$`)

func parseEngines(specs []string) ([]api.Engine, error) {
	out := make([]api.Engine, 0, len(specs))
	for _, spec := range specs {
		m := enginePattern.FindStringSubmatch(strings.ToLower(spec))
		if m == nil {
			return nil, fmt.Errorf("invalid browser target %q", spec)
		}
		name, ok := engines[m[1]]
		if !ok {
			return nil, fmt.Errorf("unknown browser %q", m[1])
		}
		out = append(out, api.Engine{Name: name, Version: m[2]})
	}
	return out, nil
}

func lookup[T any](table map[string]T, kind, key string) (T, error) {
	v, ok := table[strings.ToLower(key)]
	if !ok {
		var zero T
		return zero, fmt.Errorf("unknown %s %q", kind, key)
	}
	return v, nil
}

func messagesError(msgs []api.Message) error {
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text))
			continue
		}
		errs = append(errs, errors.New(msg.Text))
	}
	return errors.Join(errs...)
}

func logWarnings(path string, msgs []api.Message) {
	for _, msg := range msgs {
		log.Warn().Str("asset", path).Str("warning", msg.Text).Msg("esbuild warning")
	}
}

func loaderFor(ext string) api.Loader {
	switch ext {
	case ".jsx":
		return api.LoaderJSX
	case ".ts":
		return api.LoaderTS
	case ".tsx":
		return api.LoaderTSX
	default:
		return api.LoaderJS
	}
}

// esbuildStage transpiles scripts, optionally bundling their imports.
type esbuildStage struct {
	root   string
	bundle bool
	minify bool
	target api.Target
	jsx    api.JSX
	format api.Format
}

func newESBuild(opts Options, env Env) (Transform, error) {
	s := &esbuildStage{root: env.Root}

	var err error
	if s.bundle, err = opts.Bool("bundle", false); err != nil {
		return nil, err
	}
	if s.minify, err = opts.Bool("minify", false); err != nil {
		return nil, err
	}

	target, err := opts.String("target", "es2017")
	if err != nil {
		return nil, err
	}
	if s.target, err = lookup(targets, "target", target); err != nil {
		return nil, err
	}

	jsx, err := opts.String("jsx", "transform")
	if err != nil {
		return nil, err
	}
	if s.jsx, err = lookup(jsxModes, "jsx mode", jsx); err != nil {
		return nil, err
	}

	format, err := opts.String("format", "iife")
	if err != nil {
		return nil, err
	}
	if s.format, err = lookup(formats, "format", format); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *esbuildStage) Name() string { return "esbuild" }

func (s *esbuildStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	var code []byte
	var err error
	if s.bundle {
		code, err = s.build(in)
	} else {
		code, err = s.transform(in)
	}
	if err != nil {
		return nil, err
	}

	in.Content = code
	in.Ext = ".js"
	in.Kind = KindScript
	return []Asset{in}, nil
}

func (s *esbuildStage) transform(in Asset) ([]byte, error) {
	result := api.Transform(string(in.Content), api.TransformOptions{
		Loader:            loaderFor(in.Ext),
		Sourcefile:        in.Path,
		Target:            s.target,
		JSX:               s.jsx,
		Format:            s.format,
		MinifyWhitespace:  s.minify,
		MinifyIdentifiers: s.minify,
		MinifySyntax:      s.minify,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	logWarnings(in.Path, result.Warnings)
	return result.Code, nil
}

// build bundles the asset with its static imports, resolved from the asset's
// directory on disk.
func (s *esbuildStage) build(in Asset) ([]byte, error) {
	result := api.Build(api.BuildOptions{
		Stdin: &api.StdinOptions{
			Contents:   string(in.Content),
			ResolveDir: filepath.Join(s.root, filepath.Dir(filepath.FromSlash(in.Path))),
			Sourcefile: in.Path,
			Loader:     loaderFor(in.Ext),
		},
		Bundle:            true,
		Write:             false,
		Target:            s.target,
		JSX:               s.jsx,
		Format:            s.format,
		MinifyWhitespace:  s.minify,
		MinifyIdentifiers: s.minify,
		MinifySyntax:      s.minify,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	logWarnings(in.Path, result.Warnings)

	for _, file := range result.OutputFiles {
		if !strings.HasSuffix(file.Path, ".css") {
			return file.Contents, nil
		}
	}
	return nil, errors.New("esbuild produced no script output")
}

// cssStage normalises stylesheets and adds vendor prefixes for the target browsers.
type cssStage struct {
	engines []api.Engine
	minify  bool
}

func newCSS(opts Options, _ Env) (Transform, error) {
	prefix, err := opts.Bool("prefix", false)
	if err != nil {
		return nil, err
	}
	minify, err := opts.Bool("minify", false)
	if err != nil {
		return nil, err
	}

	s := &cssStage{minify: minify}
	if prefix {
		browsers, err := opts.Strings("targets", DefaultBrowsers)
		if err != nil {
			return nil, err
		}
		if s.engines, err = parseEngines(browsers); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *cssStage) Name() string { return "css" }

func (s *cssStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	result := api.Transform(string(in.Content), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       in.Path,
		Engines:          s.engines,
		MinifyWhitespace: s.minify,
		MinifySyntax:     s.minify,
		LogLevel:         api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	logWarnings(in.Path, result.Warnings)

	in.Content = result.Code
	in.Ext = ".css"
	in.Kind = KindStyle
	return []Asset{in}, nil
}

// minifyStage is the bundle-level minimizer for scripts or stylesheets.
type minifyStage struct {
	name   string
	loader api.Loader
}

func newMinifyJS(Options, Env) (Transform, error) {
	return &minifyStage{name: "minify-js", loader: api.LoaderJS}, nil
}

func newMinifyCSS(Options, Env) (Transform, error) {
	return &minifyStage{name: "minify-css", loader: api.LoaderCSS}, nil
}

func (s *minifyStage) Name() string { return s.name }

func (s *minifyStage) Apply(_ context.Context, in Asset) ([]Asset, error) {
	result := api.Transform(string(in.Content), api.TransformOptions{
		Loader:            s.loader,
		Sourcefile:        in.Path,
		MinifyWhitespace:  true,
		MinifyIdentifiers: s.loader == api.LoaderJS,
		MinifySyntax:      true,
		LogLevel:          api.LogLevelSilent,
	})
	if len(result.Errors) > 0 {
		return nil, messagesError(result.Errors)
	}
	in.Content = result.Code
	return []Asset{in}, nil
}
