/*
Package cheney implements a precise copying collector over a flat heap split
into two semispaces, following Cheney's algorithm.

Survivors are copied into to-space, which doubles as the worklist: the scan
cursor chases the allocation cursor until they meet. An evacuated node's
header is overwritten with a Forward cell naming its new address, so every
node is copied at most once per cycle regardless of fan-in. Weak fields are
resolved after scavenging and never keep their referent alive.

A cycle is

	c.EvacuateRoots()
	c.Scavenge()
	c.Flip()
	c.ClearOldMemory() // optional

and must run to completion before the mutator touches the heap again.
*/
package cheney

import (
	"github.com/npillmayer/schuko/tracing"
)

// tracer writes to trace with key 'semispace.cheney'
func tracer() tracing.Trace {
	return tracing.Select("semispace.cheney")
}
