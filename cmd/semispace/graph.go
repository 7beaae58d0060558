package main

import (
	"flag"
	"fmt"
	"os"

	"semispace/internal/bartlett"
	"semispace/internal/heapfmt"
	"semispace/internal/output"
	"semispace/internal/render"
	"semispace/internal/verify"
)

func cmdGraph(args []string) error {
	fs := flag.NewFlagSet("graph", flag.ExitOnError)
	var hf heapFlags
	fs.StringVar(&hf.collector, "collector", "cheney", "collector: cheney or bartlett")
	fs.StringVar(&hf.example, "example", "report", "heap to collect")
	fs.IntVar(&hf.cells, "cells", 200, "heap size in cells for --example random")
	fs.IntVar(&hf.pageSize, "page-size", 8, "page size in cells for --example random")
	fs.IntVar(&hf.roots, "roots", 4, "root count for --example random")
	fs.Uint64Var(&hf.seed, "seed", 1, "generator seed for --example random")
	plain := fs.Bool("plain", false, "use lattice's default style instead of the record theme")
	outDir := fs.String("out", "", "output directory for DOT files")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}
	if err := hf.checkCollector(); err != nil {
		return err
	}

	var name string
	var before *verify.Snapshot
	var r *output.CycleReport
	if hf.collector == "cheney" {
		h, err := hf.loadFlat()
		if err != nil {
			return err
		}
		name = "cheney-" + h.Name
		if before, err = verify.FlatSnapshot(h.Cells, h.Roots); err != nil {
			return err
		}
		if _, r, err = runFlat(h, 1, heapfmt.Options{}); err != nil {
			return err
		}
	} else {
		h, err := hf.loadPaged()
		if err != nil {
			return err
		}
		name = "bartlett-" + h.Name
		if before, err = verify.PagedSnapshot(h.Pages, h.PageSize, h.Roots); err != nil {
			return err
		}
		if _, r, err = runPaged(h, 1, bartlett.Options{}); err != nil {
			return err
		}
	}

	dot := func(s *verify.Snapshot, title string) string {
		if *plain {
			return render.DOT(s, title)
		}
		return render.ThemedDOT(s, title, render.NASA)
	}
	if err := output.WriteDOT(*outDir, name+"-before", dot(before, name+" before")); err != nil {
		return err
	}
	if err := output.WriteDOT(*outDir, name+"-after", dot(r.Live, name+" after")); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s/%s-{before,after}.dot (%d live objects)\n", *outDir, name, len(r.Live.Objects))
	return nil
}
