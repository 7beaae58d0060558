package main

import (
	"flag"
	"os"
	"path/filepath"

	"semispace/internal/bartlett"
	"semispace/internal/console"
	"semispace/internal/heapfmt"
)

func cmdShell(args []string) error {
	fs := flag.NewFlagSet("shell", flag.ExitOnError)
	var hf heapFlags
	fs.StringVar(&hf.collector, "collector", "cheney", "collector: cheney or bartlett")
	fs.StringVar(&hf.example, "example", "1", "heap to start from")
	fs.IntVar(&hf.cells, "cells", 64, "heap size in cells for --example random")
	fs.IntVar(&hf.pageSize, "page-size", 8, "page size in cells for --example random")
	fs.IntVar(&hf.roots, "roots", 2, "root count for --example random")
	fs.Uint64Var(&hf.seed, "seed", 1, "generator seed for --example random")
	stack := fs.Int("stack", console.DefaultStackSize, "root stack slots")
	history := fs.String("history", defaultHistory(), "history file (empty to disable)")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := hf.checkCollector(); err != nil {
		return err
	}

	var s *console.Session
	if hf.collector == "cheney" {
		h, err := hf.loadFlat()
		if err != nil {
			return err
		}
		if s, err = console.NewFlat(h, *stack, heapfmt.Options{}); err != nil {
			return err
		}
	} else {
		h, err := hf.loadPaged()
		if err != nil {
			return err
		}
		if s, err = console.NewPaged(h, *stack, bartlett.Options{}); err != nil {
			return err
		}
	}
	return s.Run(os.Stdout, *history)
}

func defaultHistory() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".semispace_history")
}
