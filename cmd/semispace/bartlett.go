package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"

	"semispace/internal/bartlett"
	"semispace/internal/heapfmt"
	"semispace/internal/output"
	"semispace/internal/render"
)

func cmdBartlett(args []string) error {
	fs := flag.NewFlagSet("bartlett", flag.ExitOnError)
	var hf heapFlags
	fs.StringVar(&hf.example, "example", "report", "heap to collect: "+pagedNames())
	fs.IntVar(&hf.cells, "cells", 400, "heap size in cells for --example random")
	fs.IntVar(&hf.pageSize, "page-size", 8, "page size in cells for --example random")
	fs.IntVar(&hf.roots, "roots", 8, "root count for --example random")
	fs.Uint64Var(&hf.seed, "seed", 1, "generator seed for --example random")
	cycles := fs.Int("cycles", 1, "collection cycles to run")
	capacity := fs.Int("capacity", 0, "pages the collector may promote (0: all)")
	strict := fs.Bool("strict", false, "fail on the first malformed node of a promoted page")
	maxSteps := fs.Int("max-steps", 0, "scavenge loop cap")
	jsonOut := fs.Bool("json", false, "print the cycle report as JSON instead of a heap dump")
	outDir := fs.String("out", "", "directory for the report, heap dump and DOT files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	h, err := hf.loadPaged()
	if err != nil {
		return err
	}
	mode := heapfmt.ModeBestEffort
	if *strict {
		mode = heapfmt.ModeStrict
	}
	opts := bartlett.Options{
		Options:  heapfmt.Options{Mode: mode, MaxSteps: *maxSteps},
		Capacity: *capacity,
	}
	c, r, err := runPaged(h, *cycles, opts)
	if err != nil {
		return err
	}

	st := c.Stats()
	fmt.Fprintf(os.Stderr, "%s: %d cycle(s), %d live objects, %d page(s) promoted, roots %d accepted %d rejected %d inactive\n",
		h.Name, c.Cycles(), len(r.Live.Objects), st.PagesPromoted, st.RootsAccepted, st.RootsRejected, st.RootsInactive)
	if n := len(c.Diags()); n > 0 {
		fmt.Fprintf(os.Stderr, "  %d diagnostic(s)\n", n)
		if os.Getenv("SEMISPACE_DEBUG") != "" {
			for _, d := range c.Diags() {
				fmt.Fprintf(os.Stderr, "  %s\n", d)
			}
		}
	}

	var dump bytes.Buffer
	render.DumpPages(&dump, c)

	if *jsonOut {
		if err := output.EncodeReport(os.Stdout, r); err != nil {
			return err
		}
	} else {
		os.Stdout.Write(dump.Bytes())
	}

	if *outDir != "" {
		return writeResults(*outDir, "bartlett-"+h.Name, r, dump.String())
	}
	return nil
}
