package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/arcusfield/haruspex/internal/output"
	"github.com/arcusfield/haruspex/pkg/config"
)

// loadConfig resolves the effective configuration from the optional config
// file plus global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var cfg *config.Config
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
		cfg = loaded
	} else {
		cfg = config.LoadOrDefault()
	}

	if c.IsSet("format") {
		cfg.Output.Format = c.String("format")
	}
	if c.Bool("no-cache") {
		cfg.Cache.Enabled = false
	}
	if c.Bool("verbose") {
		cfg.Output.Verbose = true
	}
	return cfg, nil
}

func newFormatter(c *cli.Context, cfg *config.Config) (*output.Formatter, error) {
	return output.NewFormatter(
		output.ParseFormat(cfg.Output.Format),
		c.String("output"),
		cfg.Output.Color,
	)
}

// listingPaths returns the positional listing arguments.
func listingPaths(c *cli.Context) ([]string, error) {
	if c.Args().Len() == 0 {
		return nil, fmt.Errorf("no listing files given")
	}
	return c.Args().Slice(), nil
}
