package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	if lvl := os.Getenv("SEMISPACE_DEBUG"); lvl != "" {
		enableTracing(lvl)
	}

	var err error
	switch os.Args[1] {
	case "cheney":
		err = cmdCheney(os.Args[2:])
	case "bartlett":
		err = cmdBartlett(os.Args[2:])
	case "bench":
		err = cmdBench(os.Args[2:])
	case "graph":
		err = cmdGraph(os.Args[2:])
	case "draw":
		err = cmdDraw(os.Args[2:])
	case "shell":
		err = cmdShell(os.Args[2:])
	case "help", "-h", "--help":
		usage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `semispace - copying garbage collectors over a synthetic heap

Usage:
  semispace cheney   --example <1|2|report|random> [--json] [--out <dir>]   Run the precise collector
  semispace bartlett --example <1|report|random> [--strict] [--json] [--out <dir>]
                                                   Run the mostly-copying collector
  semispace bench    --cells <n> --roots <n> --seed <s> [--collector <c>]  Collect random heaps
  semispace graph    --collector <c> --example <name> --out <dir>         DOT graphs before and after
  semispace draw     --collector <c> --example <name> --out <dir>         PNG frame per phase
  semispace shell    [--collector <c>] [--example <name>]                  Interactive heap console

Flags:
  --collector <c>    cheney (precise) or bartlett (mostly-copying)
  --cycles <n>       Collection cycles to run (default 1)
  --page-size <n>    Page size in cells for random paged heaps
  --strict           Fail on the first malformed node of a promoted page
  --max-steps <n>    Scavenge loop cap

Environment:
  SEMISPACE_DEBUG    Trace collector phases to stderr (info or debug)
`)
}
