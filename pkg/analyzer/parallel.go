package analyzer

import (
	"context"
	"runtime"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/arcusfield/haruspex/pkg/disasm"
	"github.com/arcusfield/haruspex/pkg/models"
)

// ModuleError pairs a listing path with the error that kept it from being
// analyzed.
type ModuleError struct {
	Path string
	Err  error
}

func (e ModuleError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

// AnalyzeFiles loads and analyzes several listings concurrently, one worker
// per module. Routines inside a module are still analyzed strictly in
// program order. Results keep the input order; failed listings are returned
// separately instead of aborting the batch.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths []string, maxWorkers int) ([]*models.ModuleMetrics, []ModuleError) {
	if len(paths) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	results := make([]*models.ModuleMetrics, len(paths))
	var mu sync.Mutex
	var failures []ModuleError

	p := pool.New().WithMaxGoroutines(maxWorkers)
	for i, path := range paths {
		p.Go(func() {
			lst, err := disasm.Load(path)
			if err == nil {
				var mod *models.ModuleMetrics
				mod, err = a.AnalyzeListing(ctx, lst)
				if err == nil {
					results[i] = mod
					return
				}
			}
			mu.Lock()
			failures = append(failures, ModuleError{Path: path, Err: err})
			mu.Unlock()
		})
	}
	p.Wait()

	kept := results[:0]
	for _, mod := range results {
		if mod != nil {
			kept = append(kept, mod)
		}
	}
	return kept, failures
}
