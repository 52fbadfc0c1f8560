package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/assetbuild/internal/assets"
	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/logger"
	"github.com/wolfeidau/assetbuild/internal/watch"
)

// BuildCmd runs one build, or keeps rebuilding with --watch.
type BuildCmd struct {
	Mode     string        `help:"Override the build mode (development or production)" env:"ASSETBUILD_MODE"`
	Workers  int           `help:"Parallel transform workers (0 uses the configured value or the CPU count)" default:"0" env:"ASSETBUILD_WORKERS"`
	Watch    bool          `help:"Rebuild when source files or the HTML template change" default:"false"`
	Debounce time.Duration `help:"Quiet period before a watch rebuild" default:"200ms"`

	out io.Writer
}

func (b *BuildCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Install(globals.Debug)

	mode, err := parseMode(b.Mode)
	if err != nil {
		return err
	}

	cfg, err := config.Load(globals.ConfigFile, mode)
	if err != nil {
		return err
	}

	var opts []assets.Option
	if b.Workers > 0 {
		opts = append(opts, assets.WithWorkers(b.Workers))
	}

	pipeline, err := assets.New(cfg, opts...)
	if err != nil {
		return err
	}

	res, err := pipeline.Build(ctx)
	if err != nil {
		return err
	}
	b.report(cfg, res)

	if !b.Watch {
		return nil
	}

	if cfg.DevServer.Open {
		log.Info().Msg("devServer.open is set; serving is not handled by assetbuild")
	}

	outDir := cfg.OutputDir()
	w := watch.New(watch.Options{
		Paths:    []string{cfg.Resolve(cfg.Source), cfg.Resolve(cfg.HTML.Template)},
		Debounce: b.Debounce,
		Ignore: func(p string) bool {
			return p == outDir || strings.HasPrefix(p, outDir+string(filepath.Separator))
		},
	})

	log.Info().Str("source", cfg.Source).Msg("Watching for changes")

	return w.Run(ctx, func(ctx context.Context) error {
		res, err := pipeline.Build(ctx)
		if err != nil {
			return err
		}
		b.report(cfg, res)
		return nil
	})
}

// report prints every output file with its size.
func (b *BuildCmd) report(cfg *config.Config, res *assets.Result) {
	out := stdout(b.out)
	outDir := cfg.OutputDir()

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, name := range res.Written {
		size := int64(0)
		if info, err := os.Stat(filepath.Join(outDir, filepath.FromSlash(name))); err == nil {
			size = info.Size()
		}
		fmt.Fprintf(tw, "  %s\t%s\n", formatSize(size), filepath.Join(cfg.Output.Path, name))
	}
	_ = tw.Flush()

	fmt.Fprintf(out, "\nBuilt %d files in %s mode.\n", len(res.Written), res.Mode)
}

func formatSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.2f kB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
