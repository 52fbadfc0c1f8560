package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/wolfeidau/assetbuild/cmd/assetbuild/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Build   commands.BuildCmd  `cmd:"" default:"withargs" help:"Purge the output directory and build all assets"`
		Init    commands.InitCmd   `cmd:"" help:"Write the default configuration file"`
		Config  commands.ConfigCmd `cmd:"" help:"Print the effective configuration"`
		File    string             `help:"Path to the build configuration file." short:"c" default:"assetbuild.yaml" env:"ASSETBUILD_CONFIG" type:"path"`
		Debug   bool               `help:"Enable debug mode." env:"ASSETBUILD_DEBUG"`
		Version kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&cli,
		kong.Name("assetbuild"),
		kong.Description("Build front-end assets from a declarative pipeline configuration."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version, ConfigFile: cli.File})
	cmd.FatalIfErrorf(err)
}
