package main

import (
	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/pageboot/cmd/pageboot/commands"
	"git.home.luguber.info/inful/pageboot/internal/version"
)

func main() {
	cli := &commands.CLI{}
	global := &commands.Global{}
	parser := kong.Parse(cli,
		kong.Name("pageboot"),
		kong.Description("Server-side page bootstrap for edge delivered sites."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
		kong.Bind(global),
	)
	parser.FatalIfErrorf(parser.Run(global, cli))
}
