package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/wolfeidau/assetbuild/internal/html"
	"github.com/wolfeidau/assetbuild/internal/manifest"
	"github.com/wolfeidau/assetbuild/internal/output"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

// source is a discovered input file.
type source struct {
	// path is relative to the project root, rel to the source directory.
	path string
	rel  string
	disk string
}

type routed struct {
	rule    int
	outputs []transform.Asset
}

type emitted struct {
	path    string
	content []byte
}

// unmatched is a copied asset held back until every other output is written.
type unmatched struct {
	source  string
	rel     string
	path    string
	content []byte
}

// build holds the state of one Build invocation.
type build struct {
	p         *Pipeline
	sink      *output.Sink
	manifest  *manifest.Manifest
	result    *Result
	emitted   []emitted
	unmatched []unmatched
}

// Build purges the output directory, transforms every source asset, groups
// the results into bundles and writes them along with the HTML entry point
// and the manifest. The first error aborts the build.
func (p *Pipeline) Build(ctx context.Context) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	cfg := p.config
	outDir := cfg.OutputDir()

	if err := output.Purge(outDir); err != nil {
		return nil, err
	}

	sources, err := p.discover()
	if err != nil {
		return nil, err
	}

	log.Info().Str("mode", string(cfg.Mode)).Int("assets", len(sources)).Str("output", outDir).Msg("Building assets")

	pipelines, err := p.pipelines()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closePipelines(pipelines); err != nil {
			log.Warn().Err(err).Msg("Failed to release transform stages")
		}
	}()

	routes, err := p.transformAll(ctx, sources, pipelines)
	if err != nil {
		return nil, err
	}

	b := &build{
		p:        p,
		sink:     output.NewSink(outDir),
		manifest: manifest.New(string(cfg.Mode)),
		result:   &Result{Mode: cfg.Mode},
	}

	units, err := b.writeFiles(sources, routes)
	if err != nil {
		return nil, err
	}

	bundles, err := GroupUnits(units, cfg.ChunkGroups)
	if err != nil {
		return nil, err
	}
	if err := b.writeBundles(ctx, bundles); err != nil {
		return nil, err
	}

	if err := b.copyPatterns(); err != nil {
		return nil, err
	}
	if err := b.writeHTML(); err != nil {
		return nil, err
	}
	if err := b.writeUnmatched(); err != nil {
		return nil, err
	}
	if err := b.writeManifest(); err != nil {
		return nil, err
	}
	if err := b.precompress(); err != nil {
		return nil, err
	}

	b.result.Written = b.sink.Files()
	p.result = b.result

	log.Info().
		Int("bundles", len(b.result.Bundles)).
		Int("files", len(b.result.Written)).
		Dur("duration", time.Since(start)).
		Msg("Build complete")

	return b.result, nil
}

// Result returns the outcome of the last successful build.
func (p *Pipeline) Result() (*Result, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.result == nil {
		return nil, errors.New("assets not built yet, call Build() first")
	}
	return p.result, nil
}

// discover walks the source directory in lexical order.
func (p *Pipeline) discover() ([]source, error) {
	root := p.config.Resolve(p.config.Source)

	var sources []source
	err := filepath.WalkDir(root, func(disk string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		projectRel, err := filepath.Rel(p.config.Context, disk)
		if err != nil {
			return err
		}
		sourceRel, err := filepath.Rel(root, disk)
		if err != nil {
			return err
		}

		sources = append(sources, source{
			path: filepath.ToSlash(projectRel),
			rel:  filepath.ToSlash(sourceRel),
			disk: disk,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to discover assets in %s: %w", root, err)
	}
	return sources, nil
}

// transformAll runs every asset through its pipeline on a bounded worker
// pool. It returns once all assets are done or the first one fails.
func (p *Pipeline) transformAll(ctx context.Context, sources []source, pipelines []*transform.Pipeline) ([]routed, error) {
	copyPipeline := transform.NewPipeline(transform.Copy())
	routes := make([]routed, len(sources))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)

	for i, src := range sources {
		g.Go(func() error {
			content, err := os.ReadFile(src.disk)
			if err != nil {
				return err
			}

			rule := p.router.Match(src.path)
			pipeline := copyPipeline
			ruleName := "(copy)"
			if rule != NoRule {
				pipeline = pipelines[rule]
				ruleName = p.config.Rules[rule].Name
			}

			log.Debug().Str("asset", src.path).Str("rule", ruleName).Strs("stages", pipeline.Stages()).Msg("Transforming asset")

			outputs, err := pipeline.Run(ctx, transform.NewAsset(src.path, content))
			if err != nil {
				return err
			}
			routes[i] = routed{rule: rule, outputs: outputs}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return routes, nil
}

// writeFiles writes file outputs and returns the script and style units.
func (b *build) writeFiles(sources []source, routes []routed) ([]Unit, error) {
	cfg := b.p.config
	var units []Unit

	for i, src := range sources {
		route := routes[i]
		for _, out := range route.outputs {
			if out.Kind != transform.KindFile {
				units = append(units, Unit{
					Source:  src.path,
					Rule:    route.rule,
					Kind:    out.Kind,
					Async:   matchAny(b.p.lazy, src.path),
					Content: out.Content,
				})
				continue
			}

			tmpl := out.Filename
			ruleName := ""
			if route.rule != NoRule {
				ruleName = cfg.Rules[route.rule].Name
				if tmpl == "" {
					tmpl = cfg.Rules[route.rule].Output
				}
			}
			if tmpl == "" {
				tmpl = DefaultFileTemplate
			}

			dir := path.Dir(src.rel)
			if dir == "." {
				dir = ""
			} else {
				dir += "/"
			}
			base := path.Base(src.rel)
			name, err := Expand(tmpl, NameData{
				Name:    strings.TrimSuffix(base, path.Ext(base)),
				Ext:     strings.TrimPrefix(out.Ext, "."),
				Path:    dir,
				ID:      strings.TrimSuffix(base, path.Ext(base)),
				Content: out.Content,
			})
			if err != nil {
				return nil, fmt.Errorf("asset %s: %w", src.path, err)
			}

			if route.rule == NoRule {
				b.unmatched = append(b.unmatched, unmatched{source: src.path, rel: src.rel, path: name, content: out.Content})
				continue
			}

			if err := b.write(src.rel, name, out.Content); err != nil {
				return nil, err
			}
			b.result.Files = append(b.result.Files, File{
				Source: src.path,
				Rule:   ruleName,
				Path:   name,
				URL:    b.url(name),
			})
		}
	}
	return units, nil
}

// writeBundles merges, minifies in production and writes every bundle.
func (b *build) writeBundles(ctx context.Context, bundles []*Bundle) error {
	cfg := b.p.config
	minifiers := map[transform.Kind]string{
		transform.KindScript: "minify-js",
		transform.KindStyle:  "minify-css",
	}

	for _, bundle := range bundles {
		content := join(bundle.Units)
		ext := "js"
		if bundle.Kind == transform.KindStyle {
			ext = "css"
		}

		if cfg.Mode.Production() {
			stage, err := b.p.registry.New(minifiers[bundle.Kind], nil, b.p.env())
			if err != nil {
				return err
			}
			minifier := transform.NewPipeline(stage)
			minified, err := minifier.Run(ctx, transform.Asset{
				Path:    bundle.Name + "." + ext,
				Ext:     "." + ext,
				Kind:    bundle.Kind,
				Content: content,
			})
			_ = minifier.Close()
			if err != nil {
				return err
			}
			content = minified[0].Content
		}

		name, err := Expand(b.bundleTemplate(bundle), NameData{
			Name:    bundle.Name,
			Ext:     ext,
			ID:      bundle.ID,
			Content: content,
		})
		if err != nil {
			return fmt.Errorf("bundle %s: %w", bundle.Name, err)
		}

		if err := b.write(bundle.Name+"."+ext, name, content); err != nil {
			return err
		}
		bundle.Path = name
		bundle.URL = b.url(name)
		if !bundle.Async {
			b.manifest.AddEntrypoint(name)
		}

		log.Info().Str("bundle", bundle.Name).Str("kind", string(bundle.Kind)).Str("path", name).
			Bool("async", bundle.Async).Strs("sources", bundle.Sources()).Msg("Wrote bundle")
	}

	b.result.Bundles = bundles
	return nil
}

func (b *build) bundleTemplate(bundle *Bundle) string {
	out := b.p.config.Output
	switch {
	case bundle.Filename != "":
		return bundle.Filename
	case bundle.Kind == transform.KindStyle && bundle.Name == MainBundle:
		return out.CSSFilename
	case bundle.Kind == transform.KindStyle:
		return out.CSSChunkFilename
	case bundle.Name == MainBundle:
		return out.Filename
	default:
		return out.ChunkFilename
	}
}

// writeUnmatched writes the assets no rule claimed. They yield to every other
// output: a path already taken is skipped with a warning.
func (b *build) writeUnmatched() error {
	reserved := path.Clean(b.p.config.Manifest)
	for _, u := range b.unmatched {
		if path.Clean(u.path) == reserved || b.sink.Has(u.path) {
			log.Warn().Str("asset", u.source).Str("path", u.path).Msg("Output path already taken, skipping unmatched asset")
			continue
		}
		if err := b.write(u.rel, u.path, u.content); err != nil {
			return err
		}
		b.result.Files = append(b.result.Files, File{
			Source: u.source,
			Path:   u.path,
			URL:    b.url(u.path),
		})
	}
	return nil
}

// copyPatterns copies static files verbatim. Missing sources are skipped.
func (b *build) copyPatterns() error {
	for _, c := range b.p.config.Copy {
		from := b.p.config.Resolve(c.From)
		data, err := os.ReadFile(from)
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", c.From).Msg("Copy source not found, skipping")
			continue
		}
		if err != nil {
			return fmt.Errorf("failed to copy %s: %w", c.From, err)
		}
		if err := b.write(path.Base(c.To), c.To, data); err != nil {
			return err
		}
	}
	return nil
}

// writeHTML assembles the entry document from the template.
func (b *build) writeHTML() error {
	opts := b.p.config.HTML

	doc, err := html.ReadTemplate(b.p.config.Resolve(opts.Template))
	if err != nil {
		return err
	}

	tags := make([]html.Tag, 0, len(b.result.Bundles))
	for _, bundle := range b.result.Bundles {
		kind := html.Script
		if bundle.Kind == transform.KindStyle {
			kind = html.Style
		}
		tags = append(tags, html.Tag{Kind: kind, URL: bundle.URL, Async: bundle.Async})
	}

	out, err := html.Assemble(doc, tags, html.Options{Inject: opts.Inject, Minify: opts.Minify})
	if err != nil {
		return fmt.Errorf("failed to assemble %s: %w", opts.Filename, err)
	}

	if err := b.write(opts.Filename, opts.Filename, out); err != nil {
		return err
	}
	b.result.HTML = opts.Filename
	return nil
}

func (b *build) writeManifest() error {
	name := b.p.config.Manifest
	if name == "" {
		return nil
	}
	data, err := b.manifest.Marshal()
	if err != nil {
		return err
	}
	if _, err := b.sink.Write(name, data); err != nil {
		return err
	}
	b.result.Manifest = b.manifest
	return nil
}

// precompress writes compressed siblings of text outputs in production.
func (b *build) precompress() error {
	cfg := b.p.config
	if !cfg.Mode.Production() || len(cfg.Compress) == 0 {
		return nil
	}
	for _, e := range b.emitted {
		if !output.Compressible(e.path, len(e.content)) {
			continue
		}
		if _, err := b.sink.Precompress(e.path, e.content, cfg.Compress); err != nil {
			return err
		}
	}
	return nil
}

// write stores content at rel and records it in the manifest under name.
func (b *build) write(name, rel string, content []byte) error {
	if _, err := b.sink.Write(rel, content); err != nil {
		return err
	}
	b.manifest.Add(name, rel, b.url(rel), content)
	b.emitted = append(b.emitted, emitted{path: rel, content: content})
	return nil
}

func (b *build) url(rel string) string {
	public := b.p.config.Output.PublicPath
	if public == "" {
		return rel
	}
	return strings.TrimSuffix(public, "/") + "/" + rel
}

func join(units []Unit) []byte {
	var buf bytes.Buffer
	for _, u := range units {
		buf.Write(u.Content)
		if len(u.Content) > 0 && u.Content[len(u.Content)-1] != '\n' {
			buf.WriteByte('\n')
		}
	}
	return buf.Bytes()
}
