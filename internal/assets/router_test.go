package assets

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/assetbuild/internal/config"
)

func TestRouter_DefaultRules(t *testing.T) {
	router, err := NewRouter(config.Default(config.ModeProduction).Rules)
	require.NoError(t, err)

	tests := []struct {
		path string
		want int
	}{
		{"src/app.js", 0},
		{"src/components/Button.jsx", 0},
		{"src/main.scss", 1},
		{"src/theme.css", 1},
		{"src/logo.png", 2},
		{"src/img/photo.JPG", NoRule},
		{"src/fonts/inter.woff", 3},
		{"src/node_modules/lib/index.js", NoRule},
		{"src/data/notes.txt", NoRule},
		{"lib/outside.js", NoRule},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			require.Equal(t, tt.want, router.Match(tt.path))
		})
	}
}

func TestRouter_FirstMatchWins(t *testing.T) {
	router, err := NewRouter([]config.AssetRule{
		{Name: "vendor", Test: `\.js$`, Include: []string{"src/vendor/"}},
		{Name: "scripts", Test: `\.js$`},
		{Name: "everything", Test: `.*`},
	})
	require.NoError(t, err)

	require.Equal(t, 0, router.Match("src/vendor/jquery.js"))
	require.Equal(t, 1, router.Match("src/app.js"))
	require.Equal(t, 1, router.Match("src/vendorish.js"))
	require.Equal(t, 2, router.Match("src/readme.md"))
}

func TestRouter_ExcludeFallsThrough(t *testing.T) {
	router, err := NewRouter([]config.AssetRule{
		{Name: "scripts", Test: `\.js$`, Exclude: []string{"**/*.test.js"}},
		{Name: "tests", Test: `\.test\.js$`},
	})
	require.NoError(t, err)

	require.Equal(t, 0, router.Match("src/app.js"))
	require.Equal(t, 1, router.Match("src/app.test.js"))
}

func TestRouter_InvalidPatterns(t *testing.T) {
	_, err := NewRouter([]config.AssetRule{{Name: "bad", Test: `(`}})
	require.Error(t, err)

	_, err = NewRouter([]config.AssetRule{{Name: "bad", Test: `x`, Exclude: []string{"[a"}}})
	require.Error(t, err)
}
