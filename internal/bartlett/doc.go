/*
Package bartlett implements a mostly-copying collector over a heap of
fixed-size pages, after Bartlett's "Compacting Garbage Collection with
Ambiguous Roots" (1988).

Roots are ambiguous: a root is trusted only if the cell it addresses decodes
as a node. Live pages are promoted rather than copied: the page's space flag
becomes New and the page is appended to the promotion order, which doubles as
the scavenging worklist. Pointers are rewritten to the slot their page will
occupy once the heap is compacted in promotion order, so compaction moves
whole pages and never touches cells.

A cycle is

	c.EvacuateRoots()
	c.Scavenge()
	c.CopyToNewSpace()
	c.ClearOldMemory()
*/
package bartlett

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'semispace.bartlett'
func tracer() tracing.Trace {
	return tracing.Select("semispace.bartlett")
}
