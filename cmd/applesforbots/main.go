package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" help:"Play an automated word-association match"`
	Report  ReportCmd        `cmd:"" help:"Render a report from a saved game snapshot"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("applesforbots"),
		kong.Description("Word-association game benchmark for LLM agents"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
