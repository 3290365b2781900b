package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/arcusfield/haruspex/internal/cache"
	"github.com/arcusfield/haruspex/internal/output"
	"github.com/arcusfield/haruspex/internal/progress"
	"github.com/arcusfield/haruspex/pkg/analyzer"
	"github.com/arcusfield/haruspex/pkg/config"
	"github.com/arcusfield/haruspex/pkg/models"
)

func analyzeCmd() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Aliases:   []string{"an"},
		Usage:     "Compute complexity metrics for every routine in a listing",
		ArgsUsage: "<listing...>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "metrics",
				Aliases: []string{"m"},
				Usage:   "Comma-separated metric keys (e.g. loc,cc,halstead) or 'all'",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent module analyses (0 = one per CPU)",
			},
			&cli.IntFlag{
				Name:  "arg-size",
				Usage: "Stack argument slot width in bytes (4 or 8)",
			},
		},
		Action: runAnalyzeCmd,
	}
}

func runAnalyzeCmd(c *cli.Context) error {
	paths, err := listingPaths(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if list := c.String("metrics"); list != "" {
		set, err := config.ParseMetricSet(list)
		if err != nil {
			return err
		}
		cfg.Metrics = set
	}
	if c.IsSet("workers") {
		cfg.Analysis.Workers = c.Int("workers")
	}
	if c.IsSet("arg-size") {
		cfg.Analysis.ArgSize = c.Int("arg-size")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := cache.New(cfg.Cache.Dir, cfg.Cache.TTLHours, cfg.Cache.Enabled)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}

	// Serve unchanged listings from the cache, analyze the rest.
	byPath := make(map[string]*models.ModuleMetrics, len(paths))
	var misses []string
	for _, path := range paths {
		hash, err := cache.HashFile(path)
		if err != nil {
			return fmt.Errorf("cannot read %s: %w", path, err)
		}
		if mod, ok := store.Get(path, hash); ok {
			byPath[path] = mod
			continue
		}
		misses = append(misses, path)
	}

	var failures []analyzer.ModuleError
	if len(misses) > 0 {
		bar := progress.NewBar("Analyzing routines...", 0)
		tracker := analyzer.NewTracker(func(current, total int, name string) {
			bar.SetTotal(total)
			bar.Tick()
		})

		a := analyzer.New(cfg)
		var analyzed []*models.ModuleMetrics
		analyzed, failures = a.AnalyzeFiles(analyzer.WithTracker(ctx, tracker), misses, cfg.Analysis.Workers)
		bar.FinishSuccess()

		for _, mod := range analyzed {
			byPath[mod.Path] = mod
			if err := store.Put(mod.Path, mod); err != nil && cfg.Output.Verbose {
				fmt.Fprintf(os.Stderr, "Warning: cache write for %s: %v\n", mod.Path, err)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	formatter, err := newFormatter(c, cfg)
	if err != nil {
		return err
	}
	defer formatter.Close()

	modules := make([]*models.ModuleMetrics, 0, len(byPath))
	for _, path := range paths {
		if mod, ok := byPath[path]; ok {
			modules = append(modules, mod)
		}
	}

	if formatter.Format() == output.FormatCSV {
		if err := formatter.Output(output.ModuleCSV(modules)); err != nil {
			return err
		}
	} else {
		for _, mod := range modules {
			if err := formatter.Output(output.BuildModuleReport(mod, cfg.Metrics)); err != nil {
				return err
			}
		}
	}

	for _, f := range failures {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", f)
	}
	if len(modules) == 0 {
		return fmt.Errorf("no listing could be analyzed")
	}
	return nil
}
