package assets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

func unit(source string, rule int, kind transform.Kind, async bool, size int) Unit {
	return Unit{Source: source, Rule: rule, Kind: kind, Async: async, Content: []byte(strings.Repeat("x", size))}
}

type bundleSummary struct {
	Name    string
	Kind    transform.Kind
	Async   bool
	Sources []string
}

func summarize(bundles []*Bundle) []bundleSummary {
	out := make([]bundleSummary, len(bundles))
	for i, b := range bundles {
		out[i] = bundleSummary{Name: b.Name, Kind: b.Kind, Async: b.Async, Sources: b.Sources()}
	}
	return out
}

func TestGroupUnits_DefaultStylesGroup(t *testing.T) {
	units := []Unit{
		unit("src/main.scss", 1, transform.KindStyle, false, 10),
		unit("src/app.js", 0, transform.KindScript, false, 10),
		unit("src/theme.css", 1, transform.KindStyle, false, 10),
	}

	bundles, err := GroupUnits(units, config.Default(config.ModeProduction).ChunkGroups)
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "main", Kind: transform.KindScript, Sources: []string{"src/app.js"}},
		{Name: "styles", Kind: transform.KindStyle, Sources: []string{"src/main.scss", "src/theme.css"}},
	}, summarize(bundles))
}

func TestGroupUnits_EnforceIgnoresMinSize(t *testing.T) {
	units := []Unit{
		unit("src/a.js", 0, transform.KindScript, false, 5),
		unit("src/vendor/x.js", 0, transform.KindScript, false, 5),
		unit("src/vendor/y.js", 0, transform.KindScript, false, 5),
	}

	groups := []config.ChunkGroup{
		{Name: "vendor", Test: `/vendor/`, Chunks: config.ChunksAll, MinSize: 1000},
	}

	// below minSize, a non-enforced group falls back to main
	bundles, err := GroupUnits(units, groups)
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "main", Kind: transform.KindScript, Sources: []string{"src/a.js", "src/vendor/x.js", "src/vendor/y.js"}},
	}, summarize(bundles))

	groups[0].Enforce = true
	bundles, err = GroupUnits(units, groups)
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "main", Kind: transform.KindScript, Sources: []string{"src/a.js"}},
		{Name: "vendor", Kind: transform.KindScript, Sources: []string{"src/vendor/x.js", "src/vendor/y.js"}},
	}, summarize(bundles))
}

func TestGroupUnits_MinSizeReached(t *testing.T) {
	units := []Unit{
		unit("src/vendor/x.js", 0, transform.KindScript, false, 600),
		unit("src/vendor/y.js", 0, transform.KindScript, false, 600),
	}
	bundles, err := GroupUnits(units, []config.ChunkGroup{
		{Name: "vendor", Test: `/vendor/`, Chunks: config.ChunksAll, MinSize: 1000},
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.Equal(t, "vendor", bundles[0].Name)
}

func TestGroupUnits_AsyncFallback(t *testing.T) {
	units := []Unit{
		unit("src/pages/b.js", 0, transform.KindScript, true, 1),
		unit("src/app.js", 0, transform.KindScript, false, 1),
		unit("src/pages/a.js", 0, transform.KindScript, true, 1),
	}

	bundles, err := GroupUnits(units, nil)
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "main", Kind: transform.KindScript, Sources: []string{"src/app.js"}},
		{Name: "1", Kind: transform.KindScript, Async: true, Sources: []string{"src/pages/a.js"}},
		{Name: "2", Kind: transform.KindScript, Async: true, Sources: []string{"src/pages/b.js"}},
	}, summarize(bundles))
	require.Equal(t, "1", bundles[1].ID)
}

func TestGroupUnits_MergePolicies(t *testing.T) {
	units := []Unit{
		unit("src/pages/lazy.js", 0, transform.KindScript, true, 1),
		unit("src/app.js", 0, transform.KindScript, false, 1),
	}

	async, err := GroupUnits(units, []config.ChunkGroup{
		{Name: "pages", Test: `\.js$`, Chunks: config.ChunksAsync, Enforce: true},
	})
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "main", Kind: transform.KindScript, Sources: []string{"src/app.js"}},
		{Name: "pages", Kind: transform.KindScript, Async: true, Sources: []string{"src/pages/lazy.js"}},
	}, summarize(async))

	initial, err := GroupUnits(units, []config.ChunkGroup{
		{Name: "boot", Test: `\.js$`, Chunks: config.ChunksInitial, Enforce: true},
	})
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "boot", Kind: transform.KindScript, Sources: []string{"src/app.js"}},
		{Name: "1", Kind: transform.KindScript, Async: true, Sources: []string{"src/pages/lazy.js"}},
	}, summarize(initial))

	all, err := GroupUnits(units, []config.ChunkGroup{
		{Name: "everything", Test: `\.js$`, Chunks: config.ChunksAll, Enforce: true},
	})
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "everything", Kind: transform.KindScript, Sources: []string{"src/app.js", "src/pages/lazy.js"}},
	}, summarize(all))
}

func TestGroupUnits_FirstGroupWins(t *testing.T) {
	units := []Unit{unit("src/vendor/x.js", 0, transform.KindScript, false, 1)}
	bundles, err := GroupUnits(units, []config.ChunkGroup{
		{Name: "first", Test: `vendor`, Chunks: config.ChunksAll, Enforce: true},
		{Name: "second", Test: `\.js$`, Chunks: config.ChunksAll, Enforce: true},
	})
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.Equal(t, "first", bundles[0].Name)
}

func TestGroupUnits_SplitsByKind(t *testing.T) {
	units := []Unit{
		unit("src/main.scss", 1, transform.KindScript, false, 1),
		unit("src/print.css", 1, transform.KindStyle, false, 1),
	}
	bundles, err := GroupUnits(units, config.Default(config.ModeDevelopment).ChunkGroups)
	require.NoError(t, err)
	require.Equal(t, []bundleSummary{
		{Name: "styles", Kind: transform.KindScript, Sources: []string{"src/main.scss"}},
		{Name: "styles", Kind: transform.KindStyle, Sources: []string{"src/print.css"}},
	}, summarize(bundles))
}

func TestGroupUnits_StyleBundlesAreInitial(t *testing.T) {
	units := []Unit{unit("src/lazy.css", 1, transform.KindStyle, true, 1)}
	bundles, err := GroupUnits(units, nil)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.False(t, bundles[0].Async)
}

func TestGroupUnits_Deterministic(t *testing.T) {
	units := []Unit{
		unit("src/c.js", 0, transform.KindScript, true, 1),
		unit("src/b.css", 1, transform.KindStyle, false, 1),
		unit("src/a.js", 0, transform.KindScript, false, 1),
		unit("src/d.js", 0, transform.KindScript, true, 1),
	}
	reversed := []Unit{units[3], units[2], units[1], units[0]}
	groups := config.Default(config.ModeProduction).ChunkGroups

	first, err := GroupUnits(units, groups)
	require.NoError(t, err)
	second, err := GroupUnits(reversed, groups)
	require.NoError(t, err)
	require.Equal(t, summarize(first), summarize(second))
}

func TestGroupUnits_InvalidGroup(t *testing.T) {
	_, err := GroupUnits(nil, []config.ChunkGroup{{Name: "bad", Test: `(`}})
	require.Error(t, err)
}
