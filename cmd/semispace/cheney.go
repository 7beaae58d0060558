package main

import (
	"bytes"
	"flag"
	"fmt"
	"os"
	"strings"

	"semispace/internal/heapfmt"
	"semispace/internal/output"
	"semispace/internal/render"
)

func cmdCheney(args []string) error {
	fs := flag.NewFlagSet("cheney", flag.ExitOnError)
	var hf heapFlags
	fs.StringVar(&hf.example, "example", "report", "heap to collect: "+flatNames())
	fs.IntVar(&hf.cells, "cells", 400, "heap size in cells for --example random")
	fs.IntVar(&hf.roots, "roots", 8, "root count for --example random")
	fs.Uint64Var(&hf.seed, "seed", 1, "generator seed for --example random")
	cycles := fs.Int("cycles", 1, "collection cycles to run")
	maxSteps := fs.Int("max-steps", 0, "scavenge loop cap")
	jsonOut := fs.Bool("json", false, "print the cycle report as JSON instead of a heap dump")
	outDir := fs.String("out", "", "directory for the report, heap dump and DOT files")

	if err := fs.Parse(args); err != nil {
		return err
	}

	h, err := hf.loadFlat()
	if err != nil {
		return err
	}
	opts := heapfmt.Options{Mode: heapfmt.ModeStrict, MaxSteps: *maxSteps}
	c, r, err := runFlat(h, *cycles, opts)
	if err != nil {
		return err
	}

	st := c.Stats()
	fmt.Fprintf(os.Stderr, "%s: %d cycle(s), %d live objects, %d nodes (%d cells) copied last cycle, next free %d\n",
		h.Name, c.Cycles(), len(r.Live.Objects), st.NodesCopied, st.CellsCopied, c.NextFreeAddress())
	if st.WeakNulled > 0 {
		fmt.Fprintf(os.Stderr, "  %d weak pointer(s) nulled\n", st.WeakNulled)
	}

	var dump bytes.Buffer
	render.DumpFlat(&dump, c)
	from, end := c.FromSpace()
	render.DumpNodes(&dump, c.Heap(), from, end)

	if *jsonOut {
		if err := output.EncodeReport(os.Stdout, r); err != nil {
			return err
		}
	} else {
		os.Stdout.Write(dump.Bytes())
	}

	if *outDir != "" {
		return writeResults(*outDir, "cheney-"+h.Name, r, dump.String())
	}
	return nil
}

// writeResults writes the report, the text dump, a DOT graph of the
// surviving heap and an HTML summary under dir.
func writeResults(dir, name string, r *output.CycleReport, dump string) error {
	if err := output.WriteReportJSON(dir, name, r); err != nil {
		return err
	}
	if err := output.WriteText(dir, name, dump); err != nil {
		return err
	}
	if err := output.WriteDOT(dir, name, render.ThemedDOT(r.Live, name, render.NASA)); err != nil {
		return err
	}
	var page strings.Builder
	render.WriteReportHTML(&page, r, name, name+".dot")
	if err := output.WriteHTML(dir, name, page.String()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s/%s.{json,txt,dot,html}\n", dir, name)
	return nil
}
