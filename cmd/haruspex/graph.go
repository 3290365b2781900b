package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/arcusfield/haruspex/internal/output"
	"github.com/arcusfield/haruspex/pkg/analyzer"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

func graphCmd() *cli.Command {
	return &cli.Command{
		Name:      "graph",
		Usage:     "Print a routine's basic-block node graph",
		ArgsUsage: "<listing>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "routine",
				Aliases:  []string{"r"},
				Usage:    "Routine name as it appears in the listing",
				Required: true,
			},
		},
		Action: runGraphCmd,
	}
}

func runGraphCmd(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("graph takes exactly one listing")
	}
	path := c.Args().First()
	name := c.String("routine")

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	lst, err := disasm.Load(path)
	if err != nil {
		return fmt.Errorf("cannot load %s: %w", path, err)
	}

	graph, err := analyzer.New(cfg).RoutineGraph(lst, lst, name)
	if err != nil {
		return err
	}
	return formatter.Output(output.BuildGraphSection(name, graph))
}
