package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/transform"
)

func TestInitCmd_Run(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetbuild.yaml")
	var out bytes.Buffer

	cmd := &InitCmd{Mode: "production", out: &out}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: path})
	require.NoError(t, err)
	assert.Contains(t, out.String(), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	cfg := config.Default(config.ModeDevelopment)
	require.NoError(t, config.Decode(data, cfg))
	assert.Equal(t, config.Default(config.ModeProduction), cfg)
}

func TestInitCmd_Duplicate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assetbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: development\n"), 0o600))

	cmd := &InitCmd{Mode: "production", out: &bytes.Buffer{}}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "mode: development\n", string(data))

	cmd.Force = true
	require.NoError(t, cmd.Run(context.Background(), &Globals{ConfigFile: path}))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mode: production")
}

func TestInitCmd_InvalidMode(t *testing.T) {
	cmd := &InitCmd{Mode: "staging", out: &bytes.Buffer{}}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: filepath.Join(t.TempDir(), "a.yaml")})
	require.ErrorIs(t, err, config.ErrInvalidMode)
}

func TestConfigCmd_Run(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "assetbuild.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: production\noutput:\n  path: dist\n"), 0o600))

	var out bytes.Buffer
	cmd := &ConfigCmd{Mode: "Development", out: &out}
	require.NoError(t, cmd.Run(context.Background(), &Globals{ConfigFile: path}))

	s := out.String()
	assert.Contains(t, s, "mode: development")
	assert.Contains(t, s, "path: dist")
	assert.Contains(t, s, "inline-style")
}

func TestConfigCmd_InvalidMode(t *testing.T) {
	cmd := &ConfigCmd{Mode: "fast", out: &bytes.Buffer{}}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	require.ErrorIs(t, err, config.ErrInvalidMode)
}

func TestConfigCmd_RejectsWhatBuildRejects(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		wantMsg string
	}{
		{
			name:    "unknown stage",
			yaml:    "rules:\n  - name: scripts\n    test: '\\.js$'\n    use: [babel]\n",
			wantErr: transform.ErrUnknownStage,
		},
		{
			name:    "bad hash length",
			yaml:    "output:\n  chunkFilename: 'static/js/[hash:99].js'\n",
			wantMsg: "invalid hash length",
		},
		{
			name:    "output over source",
			yaml:    "output:\n  path: src\n",
			wantErr: config.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "assetbuild.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o600))

			var out bytes.Buffer
			cmd := &ConfigCmd{out: &out}
			err := cmd.Run(context.Background(), &Globals{ConfigFile: path})
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			if tt.wantMsg != "" {
				assert.Contains(t, err.Error(), tt.wantMsg)
			}
			assert.Empty(t, out.String())
		})
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestBuildCmd_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.js"), "console.log(\"hi\");\n")
	writeFile(t, filepath.Join(dir, "src", "logo.png"), "png")
	writeFile(t, filepath.Join(dir, "public", "index.html"), "<html><head></head><body></body></html>")
	writeFile(t, filepath.Join(dir, "build", "stale.txt"), "old")

	var out bytes.Buffer
	cmd := &BuildCmd{Mode: "production", out: &out}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: filepath.Join(dir, "assetbuild.yaml")})
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "build", "stale.txt"))
	require.ErrorIs(t, err, os.ErrNotExist)

	doc, err := os.ReadFile(filepath.Join(dir, "build", "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(doc), "/static/js/bundle.js")

	assert.Contains(t, out.String(), filepath.Join("build", "static", "js", "bundle.js"))
	assert.Contains(t, out.String(), "production mode")
}

func TestBuildCmd_MissingTemplateFails(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "src", "app.js"), "console.log(1);\n")

	cmd := &BuildCmd{Mode: "development", out: &bytes.Buffer{}}
	err := cmd.Run(context.Background(), &Globals{ConfigFile: filepath.Join(dir, "assetbuild.yaml")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "html template not found")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.50 kB", formatSize(1536))
	assert.Equal(t, "2.00 MB", formatSize(2<<20))
}
