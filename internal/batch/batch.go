// Package batch runs region detection over many images in parallel.
package batch

import (
	"context"
	"fmt"
	"log"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

// DefaultImageBudget is the working set assumed per in-flight image when
// sizing the pool from available memory.
const DefaultImageBudget = 256 << 20

// Limits bounds a batch run.
type Limits struct {
	// Workers is the number of images processed at once. Zero sizes the pool
	// from the CPU count, capped by available memory over ImageBudget.
	Workers int

	// ImageBudget is the memory assumed per in-flight image in bytes.
	// Zero uses DefaultImageBudget.
	ImageBudget uint64

	// KeepCached leaves decoded images in the cache after detection.
	KeepCached bool

	// Debug logs each image as it completes.
	Debug bool
}

// Item is the outcome for one input.
type Item struct {
	Path   string                   `json:"path"`
	Result *detection.RegionsResult `json:"result,omitempty"`
	Err    error                    `json:"-"`
	Error  string                   `json:"error,omitempty"`
}

// Summary counts the outcomes of a run.
type Summary struct {
	Images  int `json:"images"`
	Failed  int `json:"failed"`
	Regions int `json:"regions"`
	Workers int `json:"workers"`
}

// Run detects regions in every path using a bounded worker pool.
//
// Results are returned in input order. A failure on one image is recorded
// in its Item and does not stop the others; only context cancellation ends
// the run early, in which case the context error is returned along with the
// items completed so far.
func Run(ctx context.Context, cache *imaging.ImageCache, paths []string, opts detection.Options, limits Limits) ([]Item, Summary, error) {
	if cache == nil {
		return nil, Summary{}, fmt.Errorf("nil image cache")
	}
	if err := opts.Validate(); err != nil {
		return nil, Summary{}, err
	}

	workers := limits.Workers
	if workers <= 0 {
		workers = PoolSize(limits.ImageBudget)
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i].Path = p
	}
	summary := Summary{Images: len(paths), Workers: workers}
	if len(paths) == 0 {
		return items, summary, nil
	}

	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range paths {
			if err := gctx.Err(); err != nil {
				return err
			}
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			runner := detection.NewRunner()
			for i := range jobs {
				item := &items[i]
				item.Result, item.Err = detectOne(cache, runner, item.Path, opts)
				if !limits.KeepCached {
					cache.Evict(item.Path)
				}
				if limits.Debug {
					if item.Err != nil {
						log.Printf("batch: %s: %v", item.Path, item.Err)
					} else {
						log.Printf("batch: %s: %d regions", item.Path, item.Result.Count)
					}
				}
			}
			return nil
		})
	}

	err := g.Wait()
	for i := range items {
		if err != nil && items[i].Result == nil && items[i].Err == nil {
			items[i].Err = fmt.Errorf("not processed: %w", err)
		}
		if items[i].Err != nil {
			items[i].Error = items[i].Err.Error()
			summary.Failed++
		} else if items[i].Result != nil {
			summary.Regions += items[i].Result.Count
		}
	}
	return items, summary, err
}

func detectOne(cache *imaging.ImageCache, runner *detection.Runner, path string, opts detection.Options) (*detection.RegionsResult, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}
	result, err := runner.Detect(img, opts)
	if err != nil {
		return nil, err
	}
	result.Source = path
	return result, nil
}

// PoolSize picks a worker count from the logical CPU count, capped so that
// workers*budget fits in available memory. It never returns less than 1.
func PoolSize(budget uint64) int {
	if budget == 0 {
		budget = DefaultImageBudget
	}

	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}

	if vm, err := mem.VirtualMemory(); err == nil && vm.Available > 0 {
		if byMem := int(vm.Available / budget); byMem < n {
			n = byMem
		}
	}
	if n < 1 {
		n = 1
	}
	return n
}
