package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/wolfeidau/assetbuild/internal/assets"
	"github.com/wolfeidau/assetbuild/internal/config"
	"github.com/wolfeidau/assetbuild/internal/logger"
)

// ConfigCmd prints the configuration a build would use. It fails on anything
// a build would reject, output templates and stage names included.
type ConfigCmd struct {
	Mode string `help:"Override the build mode (development or production)" env:"ASSETBUILD_MODE"`

	out io.Writer
}

func (c *ConfigCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Install(globals.Debug)

	mode, err := parseMode(c.Mode)
	if err != nil {
		return err
	}

	cfg, err := config.Load(globals.ConfigFile, mode)
	if err != nil {
		return err
	}

	if _, err := assets.New(cfg); err != nil {
		return err
	}

	data, err := config.Encode(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	_, err = stdout(c.out).Write(data)
	return err
}
