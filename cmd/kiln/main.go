package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/kiln-ssg/kiln/builder/run"
)

// Global carries state shared by every command.
type Global struct {
	Logger *slog.Logger
}

// CLI is the kiln command line.
type CLI struct {
	Source      string `short:"s" help:"Source directory" default:"." type:"path"`
	Destination string `short:"d" help:"Destination directory, overrides the config"`
	Config      string `short:"c" help:"Configuration file (default: _config.yml in the source)" type:"path"`
	Verbose     bool   `short:"V" help:"Enable debug logging"`

	Version kong.VersionFlag `help:"Print the version and exit"`

	Build BuildCmd `cmd:"" default:"1" help:"Build the site"`
	Watch WatchCmd `cmd:"" help:"Build, then rebuild on every change"`
	Clean CleanCmd `cmd:"" help:"Remove the destination and the build cache"`
	New   NewCmd   `cmd:"" help:"Create a site skeleton, a post or a draft"`
	Cache CacheCmd `cmd:"" help:"Inspect or clear the build cache"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("kiln"),
		kong.Description("A Jekyll-compatible static site builder."),
		kong.UsageOnError(),
		kong.Vars{"version": run.Version},
	)

	logger := run.NewLogger(os.Stderr, cli.Verbose)
	slog.SetDefault(logger)

	if err := ctx.Run(&Global{Logger: logger}, &cli); err != nil {
		logger.Error("Command failed", "command", ctx.Command(), "error", err)
		os.Exit(1)
	}
}
