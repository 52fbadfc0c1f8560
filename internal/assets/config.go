package assets

import (
	"fmt"
	"runtime"

	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

// Option customises a Pipeline.
type Option func(*Pipeline)

// WithRegistry replaces the built-in stage registry.
func WithRegistry(r *transform.Registry) Option {
	return func(p *Pipeline) {
		p.registry = r
	}
}

// WithWorkers overrides the configured transform parallelism.
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		p.workers = n
	}
}

// New creates an asset pipeline for cfg. The configuration is validated and
// every output template and stage of the active mode is checked up front.
func New(cfg *config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		config:   cfg,
		registry: transform.DefaultRegistry(),
		workers:  cfg.Workers,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.workers <= 0 {
		p.workers = runtime.NumCPU()
	}

	router, err := NewRouter(cfg.Rules)
	if err != nil {
		return nil, err
	}
	p.router = router

	if p.lazy, err = compileGlobs(cfg.Lazy); err != nil {
		return nil, fmt.Errorf("lazy: %w", err)
	}
	if _, err := compileGroups(cfg.ChunkGroups); err != nil {
		return nil, err
	}

	for _, tmpl := range p.templates() {
		if err := CheckTemplate(tmpl); err != nil {
			return nil, err
		}
	}

	// construct and release every stage once so misconfiguration surfaces before a build
	pipelines, err := p.pipelines()
	if err != nil {
		return nil, err
	}
	if err := closePipelines(pipelines); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Pipeline) templates() []string {
	out := []string{
		p.config.Output.Filename,
		p.config.Output.ChunkFilename,
		p.config.Output.CSSFilename,
		p.config.Output.CSSChunkFilename,
	}
	for _, r := range p.config.Rules {
		if r.Output != "" {
			out = append(out, r.Output)
		}
	}
	for _, g := range p.config.ChunkGroups {
		if g.Filename != "" {
			out = append(out, g.Filename)
		}
	}
	return out
}

// pipelines builds one transform pipeline per rule for the active mode.
func (p *Pipeline) pipelines() ([]*transform.Pipeline, error) {
	env := p.env()
	out := make([]*transform.Pipeline, 0, len(p.config.Rules))
	for _, rule := range p.config.Rules {
		refs := rule.PipelineFor(p.config.Mode)
		stages := make([]transform.Transform, 0, len(refs))
		for _, ref := range refs {
			stage, err := p.registry.New(ref.Stage, ref.Options, env)
			if err != nil {
				_ = transform.NewPipeline(stages...).Close()
				_ = closePipelines(out)
				return nil, fmt.Errorf("rule %s: %w", rule.Name, err)
			}
			stages = append(stages, stage)
		}
		out = append(out, transform.NewPipeline(stages...))
	}
	return out, nil
}

func (p *Pipeline) env() transform.Env {
	return transform.Env{Root: p.config.Context, Production: p.config.Mode.Production()}
}

func closePipelines(pipelines []*transform.Pipeline) error {
	var first error
	for _, pl := range pipelines {
		if err := pl.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
