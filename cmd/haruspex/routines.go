package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/arcusfield/haruspex/internal/output"
	"github.com/arcusfield/haruspex/pkg/disasm"
)

func routinesCmd() *cli.Command {
	return &cli.Command{
		Name:      "routines",
		Aliases:   []string{"ls"},
		Usage:     "List the routines of a listing in program order",
		ArgsUsage: "<listing...>",
		Action:    runRoutinesCmd,
	}
}

func runRoutinesCmd(c *cli.Context) error {
	paths, err := listingPaths(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	for _, path := range paths {
		lst, err := disasm.Load(path)
		if err != nil {
			return fmt.Errorf("cannot load %s: %w", path, err)
		}

		type routineRow struct {
			Name         string `json:"name"`
			Entry        string `json:"entry"`
			Chunks       int    `json:"chunks"`
			Instructions int    `json:"instructions"`
		}

		var rows [][]string
		var data []routineRow
		for _, entry := range lst.Routines() {
			chunks, err := lst.ChunksOf(entry)
			if err != nil {
				return err
			}
			insns := 0
			for _, ch := range chunks {
				insns += len(lst.Heads(ch))
			}
			row := routineRow{
				Name:         lst.RoutineName(entry),
				Entry:        entry.String(),
				Chunks:       len(chunks),
				Instructions: insns,
			}
			data = append(data, row)
			rows = append(rows, []string{
				row.Name,
				row.Entry,
				fmt.Sprintf("%d", row.Chunks),
				fmt.Sprintf("%d", row.Instructions),
			})
		}

		table := output.NewTable(
			"Routines in "+path,
			[]string{"Routine", "Entry", "Chunks", "Instructions"},
			rows,
			[]string{fmt.Sprintf("Total: %d", len(rows)), "", "", ""},
			data,
		)
		if err := formatter.Output(table); err != nil {
			return err
		}
	}
	return nil
}
