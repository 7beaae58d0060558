package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"semispace/internal/bartlett"
	"semispace/internal/heapfmt"
)

func cmdBench(args []string) error {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	hf := heapFlags{example: "random"}
	fs.StringVar(&hf.collector, "collector", "cheney", "collector: cheney or bartlett")
	fs.IntVar(&hf.cells, "cells", 4000, "heap size in cells")
	fs.IntVar(&hf.pageSize, "page-size", 16, "page size in cells (bartlett)")
	fs.IntVar(&hf.roots, "roots", 16, "root count")
	fs.Uint64Var(&hf.seed, "seed", 1, "first generator seed")
	heaps := fs.Int("heaps", 10, "random heaps to collect, one seed each")
	cycles := fs.Int("cycles", 3, "collection cycles per heap")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := hf.checkCollector(); err != nil {
		return err
	}

	fmt.Printf("%-6s %8s %8s %10s %12s\n", "seed", "live", "diags", "next free", "elapsed")
	var total time.Duration
	first := hf.seed
	for i := 0; i < *heaps; i++ {
		hf.seed = first + uint64(i)
		start := time.Now()
		var live, diags, next int
		if hf.collector == "cheney" {
			h, err := hf.loadFlat()
			if err != nil {
				return err
			}
			c, r, err := runFlat(h, *cycles, heapfmt.Options{})
			if err != nil {
				return fmt.Errorf("seed %d: %w", hf.seed, err)
			}
			live, diags, next = len(r.Live.Objects), len(r.Diags), int(c.NextFreeAddress())
		} else {
			h, err := hf.loadPaged()
			if err != nil {
				return err
			}
			c, r, err := runPaged(h, *cycles, bartlett.Options{})
			if err != nil {
				return fmt.Errorf("seed %d: %w", hf.seed, err)
			}
			live, diags, next = len(r.Live.Objects), len(r.Diags), c.NextFreePageIndex()
		}
		elapsed := time.Since(start)
		total += elapsed
		fmt.Printf("%-6d %8d %8d %10d %12s\n", hf.seed, live, diags, next, elapsed)
	}
	fmt.Fprintf(os.Stderr, "%s: %d heap(s) x %d cycle(s) in %s, reachability preserved\n",
		hf.collector, *heaps, *cycles, total)
	return nil
}
