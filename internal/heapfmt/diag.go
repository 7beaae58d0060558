// Package heapfmt provides shared diagnostics, options and errors for the
// collectors and the tools around them.
package heapfmt

import (
	"errors"
	"fmt"
)

var (
	ErrBadTag         = errors.New("heap: cell is not a recognized node header")
	ErrForwarded      = errors.New("heap: node has been forwarded")
	ErrOutOfRange     = errors.New("heap: address out of range")
	ErrSpaceExhausted = errors.New("heap: destination region exhausted")
	ErrPhase          = errors.New("heap: collection phase out of order")
	ErrStepLimit      = errors.New("heap: step limit exceeded")
)

// DiagKind classifies a diagnostic message.
type DiagKind string

const (
	DiagNotPointer   DiagKind = "not_pointer"
	DiagInactiveRoot DiagKind = "inactive_root"
	DiagBadTag       DiagKind = "bad_tag"
	DiagOutOfRange   DiagKind = "out_of_range"
	DiagWeakNulled   DiagKind = "weak_nulled"
)

// Diag records a non-fatal issue encountered during a collection cycle.
type Diag struct {
	Addr int      `json:"addr"`
	Kind DiagKind `json:"kind"`
	Msg  string   `json:"msg"`
}

func (d Diag) String() string {
	return fmt.Sprintf("[%s] %d: %s", d.Kind, d.Addr, d.Msg)
}

// Diags accumulates diagnostics.
type Diags struct {
	items []Diag
}

func (d *Diags) Add(addr int, kind DiagKind, msg string) {
	d.items = append(d.items, Diag{Addr: addr, Kind: kind, Msg: msg})
}

func (d *Diags) Addf(addr int, kind DiagKind, format string, args ...any) {
	d.items = append(d.items, Diag{Addr: addr, Kind: kind, Msg: fmt.Sprintf(format, args...)})
}

func (d *Diags) Items() []Diag { return d.items }
func (d *Diags) Len() int      { return len(d.items) }

// Reset drops all accumulated diagnostics.
func (d *Diags) Reset() { d.items = nil }

// Count returns the number of diagnostics of the given kind.
func (d *Diags) Count(kind DiagKind) int {
	n := 0
	for _, it := range d.items {
		if it.Kind == kind {
			n++
		}
	}
	return n
}

// Mode controls error handling behavior.
type Mode int

const (
	ModeStrict     Mode = iota // first structural error returns error
	ModeBestEffort             // skip malformed data, accumulate diags
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "strict"
	case ModeBestEffort:
		return "best-effort"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Options controls collector behavior across packages.
type Options struct {
	Mode     Mode
	MaxSteps int // scavenging loop cap; 0 = use default
}

// DefaultMaxSteps is the global default loop cap.
const DefaultMaxSteps = 10_000_000

func (o Options) EffectiveMaxSteps() int {
	if o.MaxSteps > 0 {
		return o.MaxSteps
	}
	return DefaultMaxSteps
}
