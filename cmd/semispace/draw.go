package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"semispace/internal/bartlett"
	"semispace/internal/cheney"
	"semispace/internal/heapfmt"
	"semispace/internal/render"
)

type frameStep struct {
	name string
	run  func() error
}

func cmdDraw(args []string) error {
	fs := flag.NewFlagSet("draw", flag.ExitOnError)
	var hf heapFlags
	fs.StringVar(&hf.collector, "collector", "cheney", "collector: cheney or bartlett")
	fs.StringVar(&hf.example, "example", "1", "heap to collect")
	fs.IntVar(&hf.cells, "cells", 64, "heap size in cells for --example random")
	fs.IntVar(&hf.pageSize, "page-size", 8, "page size in cells for --example random")
	fs.IntVar(&hf.roots, "roots", 3, "root count for --example random")
	fs.Uint64Var(&hf.seed, "seed", 1, "generator seed for --example random")
	outDir := fs.String("out", "", "output directory for PNG frames")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *outDir == "" {
		return fmt.Errorf("--out is required")
	}
	if err := hf.checkCollector(); err != nil {
		return err
	}
	if err := os.MkdirAll(*outDir, 0755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	var name string
	var view func(title string) render.View
	var steps []frameStep
	if hf.collector == "cheney" {
		h, err := hf.loadFlat()
		if err != nil {
			return err
		}
		c, err := cheney.New(h.Cells, h.Roots, heapfmt.Options{})
		if err != nil {
			return err
		}
		name = "cheney-" + h.Name
		view = func(title string) render.View { return render.FlatView(c, title) }
		steps = []frameStep{
			{"roots", c.EvacuateRoots},
			{"scavenge", c.Scavenge},
			{"flip", c.Flip},
			{"clear", c.ClearOldMemory},
		}
	} else {
		h, err := hf.loadPaged()
		if err != nil {
			return err
		}
		c, err := bartlett.New(h.Pages, h.Roots, h.Allocated, bartlett.Options{PageSize: h.PageSize})
		if err != nil {
			return err
		}
		name = "bartlett-" + h.Name
		view = func(title string) render.View { return render.PagedView(c, title) }
		steps = []frameStep{
			{"roots", c.EvacuateRoots},
			{"scavenge", c.Scavenge},
			{"compact", c.CopyToNewSpace},
			{"clear", c.ClearOldMemory},
		}
	}

	frame := func(i int, label string) error {
		path := filepath.Join(*outDir, fmt.Sprintf("%s-%02d-%s.png", name, i, label))
		if err := render.WritePNG(path, view(name), render.NASA); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "  %s\n", path)
		return nil
	}

	if err := frame(0, "start"); err != nil {
		return err
	}
	for i, s := range steps {
		if err := s.run(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
		if err := frame(i+1, s.name); err != nil {
			return err
		}
	}
	fmt.Fprintf(os.Stderr, "wrote %d frames to %s\n", len(steps)+1, *outDir)
	return nil
}
