package cheney

import (
	"fmt"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
)

type phase int

const (
	phaseIdle phase = iota
	phaseEvacuated
	phaseScavenged
	phaseFlipped
	phaseFailed
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseEvacuated:
		return "roots-evacuated"
	case phaseScavenged:
		return "scavenged"
	case phaseFlipped:
		return "flipped"
	case phaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Stats counts the work of the current (or last completed) cycle.
type Stats struct {
	NodesCopied   int `json:"nodes_copied"`
	CellsCopied   int `json:"cells_copied"`
	RootsSkipped  int `json:"roots_skipped"`
	WeakRewritten int `json:"weak_rewritten"`
	WeakNulled    int `json:"weak_nulled"`
}

// Collector is bound to a caller-owned heap and root stack. Neither slice is
// copied; both are rewritten in place during a cycle.
type Collector struct {
	heap  []node.Cell
	roots []node.Addr
	opts  heapfmt.Options

	half      int // semispace size in cells
	fromStart int // live space
	toStart   int
	scan      int // next to-space cell to scavenge
	alloc     int // next free to-space cell
	free      int // mutator's next free cell in the live space
	cycles    int

	phase phase
	stats Stats
	diags heapfmt.Diags
}

// New binds a collector to heap and roots. The lower half of heap is the live
// space; its allocated prefix runs up to the first empty cell.
func New(heap []node.Cell, roots []node.Addr, opts heapfmt.Options) (*Collector, error) {
	if len(heap) < 2 {
		return nil, fmt.Errorf("cheney: heap of %d cells cannot hold two semispaces", len(heap))
	}
	c := &Collector{
		heap:  heap,
		roots: roots,
		opts:  opts,
		half:  len(heap) / 2,
	}
	c.toStart = c.half
	c.scan, c.alloc = c.toStart, c.toStart

	live := heap[:c.half]
	at := 0
	for at < len(live) && live[at] != nil {
		size, err := node.SizeAt(live, at)
		if err != nil {
			return nil, fmt.Errorf("cheney: live space: %w", err)
		}
		at += size
	}
	c.free = at
	return c, nil
}

// Heap returns the bound heap.
func (c *Collector) Heap() []node.Cell { return c.heap }

// Roots returns the bound root stack.
func (c *Collector) Roots() []node.Addr { return c.roots }

// NextFreeAddress is where the mutator resumes allocating in the live space.
func (c *Collector) NextFreeAddress() node.Addr { return node.Addr(c.free) }

// FromSpace returns the [start, end) cell range of the live space.
func (c *Collector) FromSpace() (int, int) { return c.fromStart, c.fromStart + c.half }

// ToSpace returns the [start, end) cell range of the space survivors are
// copied into by the next cycle.
func (c *Collector) ToSpace() (int, int) { return c.toStart, c.toStart + c.half }

// Cursors returns the scan and allocation cursors.
func (c *Collector) Cursors() (scan, alloc int) { return c.scan, c.alloc }

func (c *Collector) SemispaceSize() int       { return c.half }
func (c *Collector) Cycles() int              { return c.cycles }
func (c *Collector) Stats() Stats             { return c.stats }
func (c *Collector) Diags() []heapfmt.Diag    { return c.diags.Items() }
func (c *Collector) Options() heapfmt.Options { return c.opts }

// Phase names the collector's position within a cycle.
func (c *Collector) Phase() string { return c.phase.String() }

// InCycle reports whether a cycle has started and not yet flipped.
func (c *Collector) InCycle() bool {
	return c.phase == phaseEvacuated || c.phase == phaseScavenged
}

// Collect runs a complete cycle.
func (c *Collector) Collect() error {
	if err := c.EvacuateRoots(); err != nil {
		return err
	}
	if err := c.Scavenge(); err != nil {
		return err
	}
	if err := c.Flip(); err != nil {
		return err
	}
	return c.ClearOldMemory()
}

// EvacuateRoots copies every node addressed by an active root into to-space
// and rewrites the root to the node's new address. NoRoot slots are skipped
// without being decoded.
func (c *Collector) EvacuateRoots() error {
	if c.phase != phaseIdle && c.phase != phaseFlipped {
		return c.phaseErr("evacuate roots")
	}
	c.stats = Stats{}
	c.diags.Reset()
	c.phase = phaseEvacuated

	for i, r := range c.roots {
		if r == node.NoRoot {
			c.stats.RootsSkipped++
			continue
		}
		to, err := c.resolve(r)
		if err != nil {
			return c.fail(fmt.Errorf("cheney: root %d: %w", i, err))
		}
		c.roots[i] = to
	}
	tracer().Infof("cycle %d: evacuated roots, %d nodes in to-space [%d,%d)",
		c.cycles, c.stats.NodesCopied, c.toStart, c.alloc)
	return nil
}

// Scavenge scans to-space from its start, evacuating the targets of every
// strong pointer field and rewriting the field, until the scan cursor meets
// the allocation cursor. Weak fields are fixed up afterwards.
func (c *Collector) Scavenge() error {
	if c.phase != phaseEvacuated {
		return c.phaseErr("scavenge")
	}
	maxSteps := c.opts.EffectiveMaxSteps()
	for steps := 0; c.scan < c.alloc; steps++ {
		if steps >= maxSteps {
			return c.fail(fmt.Errorf("cheney: scavenge at %d: %w", c.scan, heapfmt.ErrStepLimit))
		}
		n, err := node.Decode(c.heap[:c.alloc], c.scan)
		if err != nil {
			return c.fail(fmt.Errorf("cheney: scavenge: %w", err))
		}
		for _, off := range n.StrongOffsets() {
			target, ok := n.Target(off)
			if !ok {
				continue
			}
			to, err := c.resolve(target)
			if err != nil {
				return c.fail(fmt.Errorf("cheney: scavenge %d field %d: %w", c.scan, off, err))
			}
			c.heap[c.scan+off] = node.Ptr(to)
		}
		c.scan += n.Size()
	}

	c.fixWeakPointers()
	c.phase = phaseScavenged
	tracer().Infof("cycle %d: scavenged %d nodes (%d cells), weak %d rewritten %d nulled",
		c.cycles, c.stats.NodesCopied, c.stats.CellsCopied, c.stats.WeakRewritten, c.stats.WeakNulled)
	return nil
}

// Flip swaps the semispaces. Survivors now form the live space and the
// mutator allocates after them.
func (c *Collector) Flip() error {
	if c.phase != phaseScavenged {
		return c.phaseErr("flip")
	}
	c.fromStart, c.toStart = c.toStart, c.fromStart
	c.free = c.alloc
	c.scan, c.alloc = c.toStart, c.toStart
	c.cycles++
	c.phase = phaseFlipped
	tracer().Debugf("flip %d: live space [%d,%d), next free %d", c.cycles, c.fromStart, c.fromStart+c.half, c.free)
	return nil
}

// ClearOldMemory empties the stale semispace left behind by Flip.
func (c *Collector) ClearOldMemory() error {
	if c.phase != phaseFlipped {
		return c.phaseErr("clear old memory")
	}
	clear(c.heap[c.toStart : c.toStart+c.half])
	c.phase = phaseIdle
	return nil
}

// Allocate encodes n at the next free cell of the live space.
func (c *Collector) Allocate(n node.Node) (node.Addr, error) {
	if c.phase != phaseIdle && c.phase != phaseFlipped {
		return 0, c.phaseErr("allocate")
	}
	cells, err := node.Encode(n)
	if err != nil {
		return 0, fmt.Errorf("cheney: allocate: %w", err)
	}
	if c.free+len(cells) > c.fromStart+c.half {
		return 0, fmt.Errorf("cheney: allocate %s at %d: %w", n.Kind, c.free, heapfmt.ErrSpaceExhausted)
	}
	at := c.free
	copy(c.heap[at:], cells)
	c.free += len(cells)
	return node.Addr(at), nil
}

// resolve returns the to-space address of the from-space node at a,
// evacuating it first if it has not been forwarded yet.
func (c *Collector) resolve(a node.Addr) (node.Addr, error) {
	if !c.inFromSpace(a) {
		return 0, fmt.Errorf("address %d outside from-space [%d,%d): %w",
			a, c.fromStart, c.fromStart+c.half, heapfmt.ErrOutOfRange)
	}
	if fwd, ok := c.heap[a].(node.Forward); ok {
		return fwd.To, nil
	}
	return c.evacuate(a)
}

func (c *Collector) evacuate(a node.Addr) (node.Addr, error) {
	n, err := node.Decode(c.heap[:c.fromStart+c.half], int(a))
	if err != nil {
		return 0, err
	}
	size := n.Size()
	if c.alloc+size > c.toStart+c.half {
		return 0, fmt.Errorf("evacuate %s at %d needs %d cells, %d left: %w",
			n.Kind, a, size, c.toStart+c.half-c.alloc, heapfmt.ErrSpaceExhausted)
	}
	to := node.Addr(c.alloc)
	copy(c.heap[c.alloc:c.alloc+size], c.heap[a:int(a)+size])
	c.alloc += size
	c.heap[a] = node.Forward{To: to}

	c.stats.NodesCopied++
	c.stats.CellsCopied += size
	tracer().Debugf("evacuate %s %d -> %d", n.Kind, a, to)
	return to, nil
}

// fixWeakPointers walks to-space once. A weak field whose referent was
// forwarded follows it; any other weak field is nulled.
func (c *Collector) fixWeakPointers() {
	for at := c.toStart; at < c.alloc; {
		n, err := node.Decode(c.heap[:c.alloc], at)
		if err != nil {
			// Scavenge decoded every to-space node already.
			tracer().Errorf("weak fixup: %v", err)
			return
		}
		if off, ok := n.WeakOffset(); ok {
			if target, ok := n.Target(off); ok {
				if fwd, ok := c.forwarded(target); ok {
					c.heap[at+off] = node.Ptr(fwd)
					c.stats.WeakRewritten++
				} else {
					c.heap[at+off] = node.Nil{}
					c.stats.WeakNulled++
					c.diags.Addf(at, heapfmt.DiagWeakNulled, "referent %d did not survive", target)
				}
			}
		}
		at += n.Size()
	}
}

func (c *Collector) forwarded(a node.Addr) (node.Addr, bool) {
	if !c.inFromSpace(a) {
		return 0, false
	}
	fwd, ok := c.heap[a].(node.Forward)
	return fwd.To, ok
}

func (c *Collector) inFromSpace(a node.Addr) bool {
	return int(a) >= c.fromStart && int(a) < c.fromStart+c.half
}

func (c *Collector) fail(err error) error {
	c.phase = phaseFailed
	tracer().Errorf("cycle %d aborted: %v", c.cycles, err)
	return err
}

func (c *Collector) phaseErr(op string) error {
	return fmt.Errorf("cheney: %s while %s: %w", op, c.phase, heapfmt.ErrPhase)
}
