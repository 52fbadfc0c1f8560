package commands

import (
	"io"
	"os"

	"github.com/wolfeidau/assetbuild/internal/config"
)

type Globals struct {
	Debug      bool
	Version    string
	ConfigFile string
}

func parseMode(raw string) (config.Mode, error) {
	if raw == "" {
		return "", nil
	}
	return config.ParseMode(raw)
}

func stdout(w io.Writer) io.Writer {
	if w == nil {
		return os.Stdout
	}
	return w
}
