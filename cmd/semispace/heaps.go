package main

import (
	"fmt"
	"slices"
	"strings"

	"semispace/internal/bartlett"
	"semispace/internal/cheney"
	"semispace/internal/heapfmt"
	"semispace/internal/heapgen"
	"semispace/internal/node"
	"semispace/internal/output"
	"semispace/internal/verify"
)

// heapFlags are the heap selection flags shared by every subcommand.
type heapFlags struct {
	collector string
	example   string
	cells     int
	pageSize  int
	roots     int
	seed      uint64
}

const randomFill = 0.9

func flatNames() string  { return strings.Join(append(heapgen.FlatNames(), "random"), ", ") }
func pagedNames() string { return strings.Join(append(heapgen.PagedNames(), "random"), ", ") }

func (f heapFlags) checkCollector() error {
	switch f.collector {
	case "cheney", "bartlett":
		return nil
	}
	return fmt.Errorf("--collector must be cheney or bartlett, got %q", f.collector)
}

// loadFlat returns the named example or, for "random", a generated heap of
// f.cells cells.
func (f heapFlags) loadFlat() (heapgen.Heap, error) {
	if f.example != "random" {
		return heapgen.Flat(f.example)
	}
	cells := make([]node.Cell, f.cells)
	pos, err := heapgen.Random(cells, randomFill, f.seed)
	if err != nil {
		return heapgen.Heap{}, fmt.Errorf("random heap: %w", err)
	}
	return heapgen.Heap{
		Name:      fmt.Sprintf("random-%d", f.seed),
		Cells:     cells,
		Roots:     heapgen.RandomRoots(pos, f.roots, f.seed),
		Positions: pos,
	}, nil
}

// loadPaged returns the named paged example or, for "random", a generated heap
// spread over f.cells/f.pageSize pages. Random roots mix node addresses with
// arbitrary values a conservative scan must reject.
func (f heapFlags) loadPaged() (heapgen.PagedHeap, error) {
	if f.example != "random" {
		return heapgen.Paged(f.example)
	}
	if f.pageSize <= 0 {
		return heapgen.PagedHeap{}, fmt.Errorf("--page-size must be positive")
	}
	h, err := heapgen.RandomPaged(f.pageSize, max(f.cells/f.pageSize, 2), f.seed)
	if err != nil {
		return heapgen.PagedHeap{}, fmt.Errorf("random paged heap: %w", err)
	}
	h.Name = fmt.Sprintf("random-%d", f.seed)
	h.Roots = heapgen.RandomRoots(h.Positions, f.roots, f.seed)
	for i := 1; i < len(h.Roots); i += 4 {
		h.Roots[i]++
	}
	return h, nil
}

// runFlat collects h cycles times and checks that the reachable graph
// survived unchanged.
func runFlat(h heapgen.Heap, cycles int, opts heapfmt.Options) (*cheney.Collector, *output.CycleReport, error) {
	rootsBefore := slices.Clone(h.Roots)
	before, err := verify.FlatSnapshot(h.Cells, h.Roots)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot before: %w", err)
	}
	c, err := cheney.New(h.Cells, h.Roots, opts)
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i <= cycles; i++ {
		if err := c.Collect(); err != nil {
			return c, nil, fmt.Errorf("cycle %d: %w", i, err)
		}
	}
	after, err := verify.FlatSnapshot(c.Heap(), c.Roots())
	if err != nil {
		return c, nil, fmt.Errorf("snapshot after: %w", err)
	}
	if err := verify.Equal(before, after); err != nil {
		return c, nil, fmt.Errorf("reachable graph changed: %w", err)
	}

	from, end := c.FromSpace()
	nodes, err := output.ListNodes(c.Heap(), from, end, 0)
	if err != nil {
		return c, nil, err
	}
	return c, &output.CycleReport{
		Collector:   "cheney",
		Example:     h.Name,
		Mode:        opts.Mode.String(),
		Cycles:      c.Cycles(),
		RootsBefore: rootsBefore,
		RootsAfter:  slices.Clone(c.Roots()),
		NextFree:    int(c.NextFreeAddress()),
		Stats:       c.Stats(),
		Diags:       c.Diags(),
		Live:        after,
		Nodes:       nodes,
	}, nil
}

// runPaged is runFlat for the mostly-copying collector. Roots that address no
// node are left out of the comparison since the collector never rewrites them.
func runPaged(h heapgen.PagedHeap, cycles int, opts bartlett.Options) (*bartlett.Collector, *output.CycleReport, error) {
	rootsBefore := slices.Clone(h.Roots)
	probe, err := verify.PagedSnapshot(h.Pages, h.PageSize, h.Roots)
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot before: %w", err)
	}
	before, err := verify.PagedSnapshot(h.Pages, h.PageSize, probe.Resolved(h.Roots))
	if err != nil {
		return nil, nil, fmt.Errorf("snapshot before: %w", err)
	}
	opts.PageSize = h.PageSize
	c, err := bartlett.New(h.Pages, h.Roots, h.Allocated, opts)
	if err != nil {
		return nil, nil, err
	}
	for i := 1; i <= cycles; i++ {
		if err := c.Collect(); err != nil {
			return c, nil, fmt.Errorf("cycle %d: %w", i, err)
		}
	}
	after, err := verify.PagedSnapshot(c.Heap(), c.PageSize(), probe.Resolved(c.Roots()))
	if err != nil {
		return c, nil, fmt.Errorf("snapshot after: %w", err)
	}
	if err := verify.Equal(before, after); err != nil {
		return c, nil, fmt.Errorf("reachable graph changed: %w", err)
	}

	var nodes []output.NodeEntry
	for p, pg := range c.Heap()[:c.NextFreePageIndex()] {
		entries, err := output.ListNodes(pg.Cells(), 0, pg.Cap(), p*c.PageSize())
		if err != nil {
			return c, nil, fmt.Errorf("page %d: %w", p, err)
		}
		nodes = append(nodes, entries...)
	}
	return c, &output.CycleReport{
		Collector:   "bartlett",
		Example:     h.Name,
		Mode:        opts.Mode.String(),
		PageSize:    c.PageSize(),
		Cycles:      c.Cycles(),
		RootsBefore: rootsBefore,
		RootsAfter:  slices.Clone(c.Roots()),
		NextFree:    c.NextFreePageIndex(),
		Order:       c.Order(),
		Stats:       c.Stats(),
		Diags:       c.Diags(),
		Live:        after,
		Nodes:       nodes,
	}, nil
}
