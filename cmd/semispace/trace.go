package main

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/npillmayer/schuko/tracing/gologadapter"
)

// sharedTracer hands the same tracer to every package key, so one level
// setting covers semispace.cheney and semispace.bartlett alike.
type sharedTracer struct {
	t tracing.Trace
}

func (s sharedTracer) Select(string) tracing.Trace { return s.t }

// enableTracing routes every package tracer to stderr. lvl is "info" or
// anything else for debug output.
func enableTracing(lvl string) tracing.Trace {
	level := tracing.LevelDebug
	if lvl == "info" {
		level = tracing.LevelInfo
	}
	t := gologadapter.New()
	t.SetTraceLevel(level)
	tracing.SetTraceSelector(sharedTracer{t: t})
	return t
}
