package spreadsheet

import (
	"context"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

const (
	// defaultParallelThreshold is the minimum tier width worth fanning out.
	// narrower tiers are evaluated on the calling goroutine.
	defaultParallelThreshold = 32
)

// cellResult is the outcome of evaluating one formula cell
type cellResult struct {
	Value Primitive
	Err   *SpreadsheetError
}

// Scheduler orders dirty formula cells into topological tiers and evaluates
// them tier by tier. cells within a tier never read each other.
type Scheduler struct {
	workers   int
	threshold int
}

// NewScheduler creates a scheduler. workers <= 0 means GOMAXPROCS and
// threshold <= 0 means the default tier width.
func NewScheduler(workers, threshold int) *Scheduler {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if threshold <= 0 {
		threshold = defaultParallelThreshold
	}
	return &Scheduler{workers: workers, threshold: threshold}
}

// Plan runs Kahn's algorithm restricted to cells. each tier is sorted by
// row, then column. cells left over (only possible if the graph held a
// cycle) are returned separately.
func (s *Scheduler) Plan(dg *DependencyGraph, cells []CellAddress) (tiers [][]CellAddress, stuck []CellAddress) {
	set := make(map[CellAddress]struct{}, len(cells))
	for _, c := range cells {
		set[c] = struct{}{}
	}

	indegree := make(map[CellAddress]int, len(cells))
	readers := make(map[CellAddress][]CellAddress)
	for c := range set {
		precedents := dg.precedentsIn(c, set)
		indegree[c] = len(precedents)
		for _, p := range precedents {
			readers[p] = append(readers[p], c)
		}
	}

	var ready []CellAddress
	for c := range set {
		if indegree[c] == 0 {
			ready = append(ready, c)
		}
	}

	placed := 0
	for len(ready) > 0 {
		slices.SortFunc(ready, CellAddress.Compare)
		tiers = append(tiers, ready)
		placed += len(ready)

		var next []CellAddress
		for _, c := range ready {
			for _, reader := range readers[c] {
				indegree[reader]--
				if indegree[reader] == 0 {
					next = append(next, reader)
				}
			}
		}
		ready = next
	}

	if placed < len(set) {
		for c := range set {
			if indegree[c] > 0 {
				stuck = append(stuck, c)
			}
		}
		slices.SortFunc(stuck, CellAddress.Compare)
	}
	return tiers, stuck
}

// Run evaluates tiers in order. within a tier eval may run concurrently and
// must not mutate shared state; apply is then called for each cell of the
// tier, in tier order, on the calling goroutine before the next tier starts.
// a cancelled ctx stops the run between tiers and returns ctx.Err().
func (s *Scheduler) Run(ctx context.Context, tiers [][]CellAddress, eval func(CellAddress) cellResult, apply func(CellAddress, cellResult)) error {
	for _, tier := range tiers {
		if err := ctx.Err(); err != nil {
			return err
		}

		results := make([]cellResult, len(tier))
		if len(tier) < s.threshold || s.workers <= 1 {
			for i, addr := range tier {
				results[i] = eval(addr)
			}
		} else if err := s.runParallel(ctx, tier, results, eval); err != nil {
			return err
		}

		for i, addr := range tier {
			apply(addr, results[i])
		}
	}
	return nil
}

func (s *Scheduler) runParallel(ctx context.Context, tier []CellAddress, results []cellResult, eval func(CellAddress) cellResult) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(s.workers, len(tier)))

	// each goroutine owns one slot of results, no mutex needed
	for i, addr := range tier {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			results[i] = eval(addr)
			return nil
		})
	}
	return g.Wait()
}
