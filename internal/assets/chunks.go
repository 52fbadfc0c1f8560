package assets

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

// MainBundle collects every initial unit no group claims.
const MainBundle = "main"

type compiledGroup struct {
	cfg  config.ChunkGroup
	test *regexp.Regexp
}

func compileGroups(groups []config.ChunkGroup) ([]compiledGroup, error) {
	out := make([]compiledGroup, len(groups))
	for i, g := range groups {
		test, err := regexp.Compile(g.Test)
		if err != nil {
			return nil, fmt.Errorf("chunk group %s: invalid test: %w", g.Name, err)
		}
		if g.Chunks == "" {
			g.Chunks = config.ChunksAsync
		}
		if !g.Enforce && g.MinSize == 0 {
			g.MinSize = config.DefaultMinSize
		}
		out[i] = compiledGroup{cfg: g, test: test}
	}
	return out, nil
}

func (g compiledGroup) admits(u Unit) bool {
	return g.test.MatchString(u.Source) && g.cfg.Chunks.Admits(u.Async)
}

type bundleKey struct {
	name string
	kind transform.Kind
}

// GroupUnits assigns units to bundles. Each unit is offered to the groups in
// declaration order and joins the first that admits it. Enforced groups
// always form their bundle; other groups form it only when the merged units
// reach MinSize. Everything else falls back: initial units merge into the main
// bundle and each async unit becomes its own numbered chunk.
//
// Bundles are returned in document order: initial before async, then by the
// lowest rule index among their units, then by name.
func GroupUnits(units []Unit, groups []config.ChunkGroup) ([]*Bundle, error) {
	compiled, err := compileGroups(groups)
	if err != nil {
		return nil, err
	}

	ordered := slices.Clone(units)
	slices.SortStableFunc(ordered, compareUnits)

	claimed := make(map[bundleKey][]Unit)
	claimedBy := make(map[bundleKey]int)
	var keys []bundleKey
	var rest []Unit

	for _, u := range ordered {
		gi := slices.IndexFunc(compiled, func(g compiledGroup) bool { return g.admits(u) })
		if gi < 0 {
			rest = append(rest, u)
			continue
		}
		key := bundleKey{name: compiled[gi].cfg.Name, kind: u.Kind}
		if _, seen := claimed[key]; !seen {
			keys = append(keys, key)
			claimedBy[key] = gi
		}
		claimed[key] = append(claimed[key], u)
	}

	var bundles []*Bundle
	for _, key := range keys {
		g := compiled[claimedBy[key]].cfg
		members := claimed[key]
		if !g.Enforce && totalSize(members) < g.MinSize {
			rest = append(rest, members...)
			continue
		}
		bundles = append(bundles, newBundle(key.name, key.name, key.kind, g.Filename, members))
	}

	slices.SortStableFunc(rest, compareUnits)

	mains := make(map[transform.Kind]*Bundle)
	nextID := 1
	for _, u := range rest {
		if !u.Async {
			if b, ok := mains[u.Kind]; ok {
				b.Units = append(b.Units, u)
				continue
			}
			b := newBundle(MainBundle, MainBundle, u.Kind, "", []Unit{u})
			mains[u.Kind] = b
			bundles = append(bundles, b)
			continue
		}
		id := strconv.Itoa(nextID)
		nextID++
		bundles = append(bundles, newBundle(id, id, u.Kind, "", []Unit{u}))
	}

	for _, b := range bundles {
		b.finalize()
	}
	slices.SortStableFunc(bundles, compareBundles)
	return bundles, nil
}

func newBundle(name, id string, kind transform.Kind, filename string, units []Unit) *Bundle {
	return &Bundle{Name: name, ID: id, Kind: kind, Filename: filename, Units: units}
}

// finalize orders units and derives the async flag. Style bundles are always
// initial: stylesheets are linked in the document head.
func (b *Bundle) finalize() {
	slices.SortStableFunc(b.Units, compareUnits)
	b.Async = b.Kind == transform.KindScript && !slices.ContainsFunc(b.Units, func(u Unit) bool { return !u.Async })
	b.Rule = b.Units[0].Rule
}

func compareUnits(a, b Unit) int {
	return cmp.Or(
		cmp.Compare(a.Rule, b.Rule),
		cmp.Compare(a.Source, b.Source),
	)
}

func compareBundles(a, b *Bundle) int {
	if a.Async != b.Async {
		if a.Async {
			return 1
		}
		return -1
	}
	return cmp.Or(
		cmp.Compare(a.Rule, b.Rule),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Kind, b.Kind),
	)
}

func totalSize(units []Unit) int {
	n := 0
	for _, u := range units {
		n += len(u.Content)
	}
	return n
}
