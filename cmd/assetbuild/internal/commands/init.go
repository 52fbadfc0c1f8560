package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/google/renameio/v2"

	"github.com/wolfeidau/assetbuild/internal/config"
)

// InitCmd writes the default configuration file.
type InitCmd struct {
	Force bool   `help:"Overwrite an existing configuration file" default:"false"`
	Mode  string `help:"Mode recorded in the file (development or production)" default:"production"`

	out io.Writer
}

func (c *InitCmd) Run(ctx context.Context, globals *Globals) error {
	mode, err := config.ParseMode(c.Mode)
	if err != nil {
		return err
	}

	path := globals.ConfigFile
	if _, err := os.Stat(path); err == nil && !c.Force {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to check %s: %w", path, err)
	}

	data, err := config.Encode(config.Default(mode))
	if err != nil {
		return fmt.Errorf("failed to encode configuration: %w", err)
	}

	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}

	fmt.Fprintf(stdout(c.out), "Wrote %s\n", path)
	return nil
}
