package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/pageboot/internal/config"
	"git.home.luguber.info/inful/pageboot/internal/content"
)

// ContentCmd implements the 'content' command.
type ContentCmd struct {
	Path   string `arg:"" help:"Persisted query path, e.g. /graphql/execute.json/site/articles"`
	Param  string `help:"Query parameter suffix appended to the query path"`
	Origin string `help:"Page origin used to resolve the environment; defaults to site.origin"`
}

func (c *ContentCmd) Run(g *Global, root *CLI) error {
	cfg, _, err := root.loadConfig(g)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	return RunContent(context.Background(), cfg, c, os.Stdout)
}

// RunContent runs one content query and writes the environment and data as
// indented JSON.
func RunContent(ctx context.Context, cfg *config.Config, c *ContentCmd, out io.Writer) error {
	origin := c.Origin
	if origin == "" {
		origin = cfg.Site.Origin
	}
	client := content.NewClient(origin, cfg.Content)
	res, err := client.UseGraphQL(ctx, c.Path, c.Param)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
