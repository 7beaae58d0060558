package bartlett

import (
	"errors"
	"fmt"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
	"semispace/internal/pageaddr"
)

// Space is the per-page space flag.
type Space uint8

const (
	SpaceOld Space = iota // not (yet) reached this cycle
	SpaceNew              // promoted; survives the cycle
)

func (s Space) String() string {
	if s == SpaceNew {
		return "new"
	}
	return "old"
}

type phase int

const (
	phaseIdle phase = iota
	phaseEvacuated
	phaseScavenged
	phaseCompacted
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
	case phaseCompacted:
		return "compacted"
	case phaseFailed:
		return "failed"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Options configures a paged collector.
type Options struct {
	heapfmt.Options
	PageSize int // cells per page, fixed for the collector's life
	Capacity int // most pages promotable per cycle; 0 means every page
}

// Stats counts the work of the current (or last completed) cycle.
type Stats struct {
	PagesPromoted     int `json:"pages_promoted"`
	RootsAccepted     int `json:"roots_accepted"`
	RootsRejected     int `json:"roots_rejected"`
	RootsInactive     int `json:"roots_inactive"`
	NodesScanned      int `json:"nodes_scanned"`
	PointersRewritten int `json:"pointers_rewritten"`
	WeakRewritten     int `json:"weak_rewritten"`
	WeakNulled        int `json:"weak_nulled"`
}

// Collector is bound to a caller-owned page slice and root stack. Both are
// modified in place: pages are reordered during compaction and root slots are
// rewritten when accepted.
type Collector struct {
	pages []*Page
	roots []node.Addr
	geom  pageaddr.Geometry
	opts  Options

	space     []Space
	slot      []int // position of a SpaceNew page in order
	order     []int // promoted page indices, also the scavenging worklist
	lastOrder []int // order of the last completed cycle
	scan      int
	allocated int
	capacity  int
	cycles    int

	phase phase
	stats Stats
	diags heapfmt.Diags
}

// New binds a collector to pages and roots. The first allocated pages hold
// the mutator's data.
func New(pages []*Page, roots []node.Addr, allocated int, opts Options) (*Collector, error) {
	geom, err := pageaddr.New(opts.PageSize)
	if err != nil {
		return nil, fmt.Errorf("bartlett: %w", err)
	}
	for i, p := range pages {
		if p == nil {
			return nil, fmt.Errorf("bartlett: page %d is nil", i)
		}
		if p.Cap() != geom.PageSize {
			return nil, fmt.Errorf("bartlett: page %d holds %d cells, page size is %d", i, p.Cap(), geom.PageSize)
		}
	}
	if allocated < 0 || allocated > len(pages) {
		return nil, fmt.Errorf("bartlett: %d allocated pages out of %d", allocated, len(pages))
	}
	capacity := opts.Capacity
	if capacity == 0 {
		capacity = len(pages)
	}
	if capacity < 0 || capacity > len(pages) {
		return nil, fmt.Errorf("bartlett: capacity %d out of %d pages", capacity, len(pages))
	}
	return &Collector{
		pages:     pages,
		roots:     roots,
		geom:      geom,
		opts:      opts,
		space:     make([]Space, len(pages)),
		slot:      make([]int, len(pages)),
		allocated: allocated,
		capacity:  capacity,
	}, nil
}

// Heap returns the bound pages in their current order.
func (c *Collector) Heap() []*Page { return c.pages }

// Roots returns the bound root stack.
func (c *Collector) Roots() []node.Addr { return c.roots }

// NextFreePageIndex is the first page the mutator has not allocated into.
func (c *Collector) NextFreePageIndex() int { return c.allocated }

// Space returns the space flag of page p.
func (c *Collector) Space(p int) Space { return c.space[p] }

// Order returns the promotion order of the running cycle, or of the last
// completed one when idle.
func (c *Collector) Order() []int {
	if c.phase == phaseIdle {
		return append([]int(nil), c.lastOrder...)
	}
	return append([]int(nil), c.order...)
}

// Scan returns the index into Order of the next page to scavenge.
func (c *Collector) Scan() int { return c.scan }

func (c *Collector) PageSize() int               { return c.geom.PageSize }
func (c *Collector) Geometry() pageaddr.Geometry { return c.geom }
func (c *Collector) Capacity() int               { return c.capacity }
func (c *Collector) Cycles() int                 { return c.cycles }
func (c *Collector) Stats() Stats                { return c.stats }
func (c *Collector) Diags() []heapfmt.Diag       { return c.diags.Items() }
func (c *Collector) Options() Options            { return c.opts }
func (c *Collector) Phase() string               { return c.phase.String() }

// InCycle reports whether a cycle has started and not yet been cleared.
func (c *Collector) InCycle() bool {
	return c.phase != phaseIdle && c.phase != phaseFailed
}

// Collect runs a complete cycle.
func (c *Collector) Collect() error {
	if err := c.EvacuateRoots(); err != nil {
		return err
	}
	if err := c.Scavenge(); err != nil {
		return err
	}
	if err := c.CopyToNewSpace(); err != nil {
		return err
	}
	return c.ClearOldMemory()
}

// EvacuateRoots promotes the page of every root that addresses a node and
// rewrites the root to the address it will have after compaction. Roots that
// do not address a node are diagnosed and left untouched.
func (c *Collector) EvacuateRoots() error {
	if c.phase != phaseIdle {
		return c.phaseErr("evacuate roots")
	}
	c.stats = Stats{}
	c.diags.Reset()
	c.order = c.order[:0]
	c.scan = 0
	c.phase = phaseEvacuated

	for i, r := range c.roots {
		if r == node.NoRoot {
			c.stats.RootsInactive++
			c.diags.Addf(int(r), heapfmt.DiagInactiveRoot, "root %d is empty", i)
			continue
		}
		if err := c.checkRoot(r); err != nil {
			c.stats.RootsRejected++
			c.diags.Addf(int(r), heapfmt.DiagNotPointer, "root %d: %v", i, err)
			tracer().Debugf("root %d: %d is not a pointer: %v", i, r, err)
			continue
		}
		slot, err := c.promote(c.geom.PageOf(r))
		if err != nil {
			return c.fail(fmt.Errorf("bartlett: root %d: %w", i, err))
		}
		c.roots[i] = c.geom.Translate(slot, r)
		c.stats.RootsAccepted++
	}
	tracer().Infof("cycle %d: %d roots accepted, %d rejected, %d pages promoted",
		c.cycles, c.stats.RootsAccepted, c.stats.RootsRejected, len(c.order))
	return nil
}

// checkRoot accepts a candidate only if a whole node decodes at it.
func (c *Collector) checkRoot(a node.Addr) error {
	if !c.geom.Contains(a, len(c.pages)) {
		return fmt.Errorf("address outside %d pages: %w", len(c.pages), heapfmt.ErrOutOfRange)
	}
	_, err := node.Decode(c.pages[c.geom.PageOf(a)].cells, c.geom.Offset(a))
	return err
}

// Scavenge scans promoted pages in promotion order, promoting the page of
// every strong pointer target and rewriting the pointer, until the scan index
// reaches the end of the order. Weak fields are fixed up afterwards.
func (c *Collector) Scavenge() error {
	if c.phase != phaseEvacuated {
		return c.phaseErr("scavenge")
	}
	maxSteps := c.opts.EffectiveMaxSteps()
	for steps := 0; c.scan < len(c.order); steps++ {
		if steps >= maxSteps {
			return c.fail(fmt.Errorf("bartlett: scavenge at order %d: %w", c.scan, heapfmt.ErrStepLimit))
		}
		if err := c.scavengePage(c.order[c.scan]); err != nil {
			return c.fail(err)
		}
		c.scan++
	}

	c.fixWeakPointers()
	c.phase = phaseScavenged
	tracer().Infof("cycle %d: scavenged %d pages (%d nodes), weak %d rewritten %d nulled",
		c.cycles, len(c.order), c.stats.NodesScanned, c.stats.WeakRewritten, c.stats.WeakNulled)
	return nil
}

func (c *Collector) scavengePage(p int) error {
	cells := c.pages[p].cells
	for off := 0; off < len(cells) && cells[off] != nil; {
		at := int(c.geom.Addr(p, off))
		n, err := node.Decode(cells, off)
		if err != nil {
			if c.opts.Mode == heapfmt.ModeStrict {
				return fmt.Errorf("bartlett: page %d offset %d: %w", p, off, err)
			}
			c.diags.Addf(at, heapfmt.DiagBadTag, "page %d: %v; rest of page skipped", p, err)
			return nil
		}
		for _, foff := range n.StrongOffsets() {
			target, ok := n.Target(foff)
			if !ok {
				continue
			}
			if !c.geom.Contains(target, len(c.pages)) {
				if c.opts.Mode == heapfmt.ModeStrict {
					return fmt.Errorf("bartlett: %s at %d field %d points to %d: %w",
						n.Kind, at, foff, target, heapfmt.ErrOutOfRange)
				}
				c.diags.Addf(at, heapfmt.DiagOutOfRange, "%s field %d points to %d", n.Kind, foff, target)
				continue
			}
			slot, err := c.promote(c.geom.PageOf(target))
			if err != nil {
				return fmt.Errorf("bartlett: %s at %d field %d: %w", n.Kind, at, foff, err)
			}
			cells[off+foff] = node.Ptr(c.geom.Translate(slot, target))
			c.stats.PointersRewritten++
		}
		c.stats.NodesScanned++
		off += n.Size()
	}
	return nil
}

// promote flags page p SpaceNew and appends it to the order, unless it already is.
// It returns the page's position in the order.
func (c *Collector) promote(p int) (int, error) {
	if c.space[p] == SpaceNew {
		return c.slot[p], nil
	}
	if len(c.order) >= c.capacity {
		return 0, fmt.Errorf("promote page %d beyond capacity %d: %w", p, c.capacity, heapfmt.ErrSpaceExhausted)
	}
	c.space[p] = SpaceNew
	c.slot[p] = len(c.order)
	c.order = append(c.order, p)
	c.stats.PagesPromoted++
	tracer().Debugf("promote page %d to slot %d", p, c.slot[p])
	return c.slot[p], nil
}

// fixWeakPointers visits every page once. A weak field whose target page was
// promoted follows the page; any other weak field is nulled. Only nulled
// fields on promoted pages are diagnosed, the rest are discarded with their
// page.
func (c *Collector) fixWeakPointers() {
	for p, pg := range c.pages {
		cells := pg.cells
		for off := 0; off < len(cells) && cells[off] != nil; {
			n, err := node.Decode(cells, off)
			if err != nil {
				// Unpromoted pages may hold anything; promoted ones were
				// diagnosed while scavenging.
				break
			}
			if foff, ok := n.WeakOffset(); ok {
				if target, ok := n.Target(foff); ok {
					if c.geom.Contains(target, len(c.pages)) && c.space[c.geom.PageOf(target)] == SpaceNew {
						cells[off+foff] = node.Ptr(c.geom.Translate(c.slot[c.geom.PageOf(target)], target))
						c.stats.WeakRewritten++
					} else {
						cells[off+foff] = node.Nil{}
						c.stats.WeakNulled++
						if c.space[p] == SpaceNew {
							c.diags.Addf(int(c.geom.Addr(p, off)), heapfmt.DiagWeakNulled, "referent %d did not survive", target)
						}
					}
				}
			}
			off += n.Size()
		}
	}
}

// CopyToNewSpace moves every promoted page to its position in the order.
func (c *Collector) CopyToNewSpace() error {
	if c.phase != phaseScavenged {
		return c.phaseErr("copy to new space")
	}
	moved := make([]*Page, len(c.order))
	for i, p := range c.order {
		moved[i] = c.pages[p]
	}
	copy(c.pages, moved)
	c.phase = phaseCompacted
	tracer().Debugf("compacted %d pages: order %v", len(moved), c.order)
	return nil
}

// ClearOldMemory replaces every page past the survivors with an empty page and
// resets the per-cycle state.
func (c *Collector) ClearOldMemory() error {
	if c.phase != phaseCompacted {
		return c.phaseErr("clear old memory")
	}
	n := len(c.order)
	for i := n; i < len(c.pages); i++ {
		c.pages[i] = NewPage(c.geom.PageSize)
	}
	c.allocated = n
	c.lastOrder = append(c.lastOrder[:0], c.order...)
	c.order = c.order[:0]
	clear(c.space)
	c.scan = 0
	c.cycles++
	c.phase = phaseIdle
	return nil
}

// Allocate places n on the last allocated page if it fits, otherwise on the
// next free page.
func (c *Collector) Allocate(n node.Node) (node.Addr, error) {
	if c.phase != phaseIdle {
		return 0, c.phaseErr("allocate")
	}
	if c.allocated > 0 {
		last := c.allocated - 1
		off, err := c.pages[last].Add(n)
		if err == nil {
			return c.geom.Addr(last, off), nil
		}
		if !errors.Is(err, heapfmt.ErrSpaceExhausted) {
			return 0, fmt.Errorf("bartlett: allocate: %w", err)
		}
	}
	if c.allocated == len(c.pages) {
		return 0, fmt.Errorf("bartlett: allocate %s: all %d pages in use: %w", n.Kind, len(c.pages), heapfmt.ErrSpaceExhausted)
	}
	off, err := c.pages[c.allocated].Add(n)
	if err != nil {
		return 0, fmt.Errorf("bartlett: allocate: %w", err)
	}
	c.allocated++
	return c.geom.Addr(c.allocated-1, off), nil
}

func (c *Collector) fail(err error) error {
	c.phase = phaseFailed
	tracer().Errorf("cycle %d aborted: %v", c.cycles, err)
	return err
}

func (c *Collector) phaseErr(op string) error {
	return fmt.Errorf("bartlett: %s while %s: %w", op, c.phase, heapfmt.ErrPhase)
}
