package config

const (
	styleTest = `\.(css|scss|sass)$`

	// DefaultMinSize mirrors the usual split-chunks minimum of 30kB.
	DefaultMinSize = 30000
)

// MinifyFlags lists every supported HTML minification flag.
var MinifyFlags = []string{
	"removeComments",
	"collapseWhitespace",
	"removeRedundantAttributes",
	"useShortDoctype",
	"removeEmptyAttributes",
	"removeStyleLinkTypeAttributes",
	"keepClosingSlash",
	"minifyJS",
	"minifyCSS",
	"minifyURLs",
}

// Default returns the stock configuration for the given mode.
func Default(mode Mode) *Config {
	minify := make(map[string]bool, len(MinifyFlags))
	for _, flag := range MinifyFlags {
		minify[flag] = true
	}

	return &Config{
		Mode:    mode,
		Context: ".",
		Source:  "src",
		Output: OutputTarget{
			Path:             "build",
			Filename:         "static/js/bundle.js",
			ChunkFilename:    "static/js/[id][hash:32].js",
			CSSFilename:      "static/css/[name].css",
			CSSChunkFilename: "static/css/style.css",
			PublicPath:       "/",
		},
		Rules: []AssetRule{
			{
				Name:    "scripts",
				Test:    `\.(js|jsx)$`,
				Include: []string{"src"},
				Exclude: []string{"**/node_modules/**"},
				Use:     []StageRef{{Stage: "esbuild"}},
			},
			{
				Name: "styles",
				Test: styleTest,
				Development: []StageRef{
					{Stage: "sass"},
					{Stage: "css"},
					{Stage: "inline-style"},
				},
				Production: []StageRef{
					{Stage: "sass"},
					{Stage: "css", Options: map[string]any{"prefix": true}},
					{Stage: "extract"},
				},
			},
			{
				Name: "media",
				Test: `\.(png|jpg|jpeg|gif|bmp|svg|ico)$`,
				Use: []StageRef{
					{Stage: "file", Options: map[string]any{"name": "static/media/[hash:32].[ext]"}},
				},
			},
			{
				Name: "fonts",
				Test: `\.(ttf|otf|woff)$`,
				Use: []StageRef{
					{Stage: "file", Options: map[string]any{"name": "static/assets/[hash:32].[ext]"}},
				},
			},
		},
		ChunkGroups: []ChunkGroup{
			{
				Name:    "styles",
				Test:    styleTest,
				Chunks:  ChunksAll,
				Enforce: true,
			},
		},
		HTML: HTMLOptions{
			Template: "public/index.html",
			Filename: "index.html",
			Inject:   true,
			Minify:   minify,
		},
		Copy: []CopyPattern{
			{From: "public/favicon.ico", To: "favicon.ico"},
		},
		DevServer: DevServer{Open: true},
		Manifest:  "asset-manifest.json",
	}
}
