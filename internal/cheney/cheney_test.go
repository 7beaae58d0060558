package cheney

import (
	"errors"
	"testing"

	"semispace/internal/heapfmt"
	"semispace/internal/heapgen"
	"semispace/internal/node"
	"semispace/internal/verify"
)

func newCollector(t *testing.T, heap []node.Cell, roots []node.Addr) *Collector {
	t.Helper()
	c, err := New(heap, roots, heapfmt.Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func snapshot(t *testing.T, c *Collector) *verify.Snapshot {
	t.Helper()
	s, err := verify.FlatSnapshot(c.Heap(), c.Roots())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return s
}

func TestIndirectionStepByStep(t *testing.T) {
	heap := make([]node.Cell, 8)
	b := heapgen.NewBuilder(heap)
	b.Ind(2)
	b.Int(10)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	roots := []node.Addr{0}
	c := newCollector(t, heap, roots)
	if got := c.NextFreeAddress(); got != 4 {
		t.Fatalf("NextFreeAddress before = %d, want 4", got)
	}

	if err := c.EvacuateRoots(); err != nil {
		t.Fatal(err)
	}
	if roots[0] != 4 {
		t.Errorf("root = %d, want 4", roots[0])
	}
	if scan, alloc := c.Cursors(); scan != 4 || alloc != 6 {
		t.Errorf("cursors = %d,%d, want 4,6", scan, alloc)
	}
	if err := c.Scavenge(); err != nil {
		t.Fatal(err)
	}
	if err := c.Flip(); err != nil {
		t.Fatal(err)
	}

	// The old region holds nothing but forwarding cells over its headers.
	if heap[0] != (node.Forward{To: 4}) {
		t.Errorf("heap[0] = %s, want FWD->4", node.FormatCell(heap[0]))
	}
	if heap[2] != (node.Forward{To: 6}) {
		t.Errorf("heap[2] = %s, want FWD->6", node.FormatCell(heap[2]))
	}

	want := []node.Cell{node.Header{Kind: node.KindIndirection}, node.Ptr(6), node.Header{Kind: node.KindInt}, node.Int(10)}
	for i, w := range want {
		if heap[4+i] != w {
			t.Errorf("heap[%d] = %s, want %s", 4+i, node.FormatCell(heap[4+i]), node.FormatCell(w))
		}
	}
	if got := c.NextFreeAddress(); got != 8 {
		t.Errorf("NextFreeAddress after = %d, want 8", got)
	}
	if from, _ := c.FromSpace(); from != 4 {
		t.Errorf("live space starts at %d, want 4", from)
	}

	if err := c.ClearOldMemory(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if heap[i] != nil {
			t.Errorf("heap[%d] = %s after clear, want empty", i, node.FormatCell(heap[i]))
		}
	}
	if c.Cycles() != 1 {
		t.Errorf("Cycles = %d, want 1", c.Cycles())
	}
}

func TestExamplesPreserveReachability(t *testing.T) {
	for _, name := range heapgen.FlatNames() {
		t.Run(name, func(t *testing.T) {
			h, err := heapgen.Flat(name)
			if err != nil {
				t.Fatal(err)
			}
			c := newCollector(t, h.Cells, h.Roots)
			before := snapshot(t, c)

			if err := c.Collect(); err != nil {
				t.Fatalf("Collect: %v", err)
			}
			after := snapshot(t, c)
			if err := verify.Equal(before, after); err != nil {
				t.Fatalf("graph changed: %v", err)
			}
			from, _ := c.FromSpace()
			if got, want := int(c.NextFreeAddress()), from+before.Cells; got != want {
				t.Errorf("NextFreeAddress = %d, want %d", got, want)
			}
			if got := c.Stats().NodesCopied; got != len(before.Objects) {
				t.Errorf("NodesCopied = %d, want %d", got, len(before.Objects))
			}
		})
	}
}

func TestCollectIsIdempotent(t *testing.T) {
	h, err := heapgen.ReportHeap()
	if err != nil {
		t.Fatal(err)
	}
	c := newCollector(t, h.Cells, h.Roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}
	first := snapshot(t, c)
	used := int(c.NextFreeAddress()) - c.SemispaceSize()

	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}
	if err := verify.Equal(first, snapshot(t, c)); err != nil {
		t.Fatalf("second cycle changed the graph: %v", err)
	}
	if got := int(c.NextFreeAddress()); got != used {
		t.Errorf("NextFreeAddress after second cycle = %d, want %d", got, used)
	}
	if s := c.Stats(); s.WeakNulled != 0 {
		t.Errorf("second cycle nulled %d weak fields, want 0", s.WeakNulled)
	}
}

func TestSharedNodeCopiedOnce(t *testing.T) {
	heap := make([]node.Cell, 20)
	b := heapgen.NewBuilder(heap)
	shared := b.Int(7)
	cons := b.Cons(shared, shared)
	ind := b.Ind(shared)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	roots := []node.Addr{cons, ind, shared, shared}
	c := newCollector(t, heap, roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}

	if got := c.Stats().NodesCopied; got != 3 {
		t.Errorf("NodesCopied = %d, want 3", got)
	}
	if roots[2] != roots[3] {
		t.Errorf("roots to the same node diverged: %d vs %d", roots[2], roots[3])
	}
	consNode, err := node.Decode(heap, int(roots[0]))
	if err != nil {
		t.Fatal(err)
	}
	head, _ := consNode.Target(1)
	tail, _ := consNode.Target(2)
	if head != roots[2] || tail != roots[2] {
		t.Errorf("cons fields = %d,%d, want both %d", head, tail, roots[2])
	}
}

func TestConsSecondPointerEvacuatedFromOwnValue(t *testing.T) {
	heap := make([]node.Cell, 14)
	b := heapgen.NewBuilder(heap)
	one := b.Int(1)
	two := b.Int(2)
	cons := b.Cons(one, two)
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	roots := []node.Addr{cons}
	c := newCollector(t, heap, roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}

	n, err := node.Decode(heap, int(roots[0]))
	if err != nil {
		t.Fatal(err)
	}
	for off, want := range map[int]node.Int{1: 1, 2: 2} {
		target, ok := n.Target(off)
		if !ok {
			t.Fatalf("field %d is %s, want a pointer", off, node.FormatCell(n.Field(off)))
		}
		got, err := node.Decode(heap, int(target))
		if err != nil {
			t.Fatalf("field %d: %v", off, err)
		}
		if got.Field(1) != want {
			t.Errorf("field %d reaches %s, want INT %d", off, got, want)
		}
	}
}

func TestWeakPointers(t *testing.T) {
	h, err := heapgen.ReportHeap()
	if err != nil {
		t.Fatal(err)
	}
	c := newCollector(t, h.Cells, h.Roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}
	heap := c.Heap()

	// roots[3] holds the only reference to the double.
	dead, err := node.Decode(heap, int(h.Roots[3]))
	if err != nil {
		t.Fatal(err)
	}
	if dead.Field(1) != (node.Nil{}) {
		t.Errorf("weak to unreachable node = %s, want NULL", node.FormatCell(dead.Field(1)))
	}

	// roots[4] points at the variable that roots[1]'s cons also holds.
	live, err := node.Decode(heap, int(h.Roots[4]))
	if err != nil {
		t.Fatal(err)
	}
	cons, err := node.Decode(heap, int(h.Roots[1]))
	if err != nil {
		t.Fatal(err)
	}
	wt, _ := live.Target(1)
	ct, _ := cons.Target(2)
	if wt != ct {
		t.Errorf("weak target = %d, want the variable at %d", wt, ct)
	}

	s := c.Stats()
	if s.WeakNulled != 1 || s.WeakRewritten != 1 {
		t.Errorf("weak nulled/rewritten = %d/%d, want 1/1", s.WeakNulled, s.WeakRewritten)
	}
	if n := countDiags(c, heapfmt.DiagWeakNulled); n != 1 {
		t.Errorf("%d weak_nulled diags, want 1", n)
	}
	// The double was never copied.
	for _, o := range snapshot(t, c).Objects {
		if o.Kind == node.KindDouble {
			t.Errorf("double survived at %d", o.Addr)
		}
	}
}

func countDiags(c *Collector, kind heapfmt.DiagKind) int {
	n := 0
	for _, d := range c.Diags() {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

func TestNoRootSkipped(t *testing.T) {
	heap := make([]node.Cell, 8)
	b := heapgen.NewBuilder(heap)
	b.Int(3)
	roots := []node.Addr{node.NoRoot, 0, node.NoRoot}
	c := newCollector(t, heap, roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}
	if roots[0] != node.NoRoot || roots[2] != node.NoRoot {
		t.Errorf("sentinel slots rewritten: %v", roots)
	}
	if roots[1] != 4 {
		t.Errorf("root = %d, want 4", roots[1])
	}
	if got := c.Stats().RootsSkipped; got != 2 {
		t.Errorf("RootsSkipped = %d, want 2", got)
	}
}

func TestRootErrorsAbortCycle(t *testing.T) {
	tests := []struct {
		name string
		root node.Addr
		want error
	}{
		{"data cell", 1, heapfmt.ErrBadTag},
		{"empty cell", 2, heapfmt.ErrBadTag},
		{"beyond from-space", 5, heapfmt.ErrOutOfRange},
		{"negative", -7, heapfmt.ErrOutOfRange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			heap := make([]node.Cell, 8)
			b := heapgen.NewBuilder(heap)
			b.Int(3)
			c := newCollector(t, heap, []node.Addr{tt.root})
			err := c.Collect()
			if !errors.Is(err, tt.want) {
				t.Fatalf("Collect = %v, want %v", err, tt.want)
			}
			if c.Phase() != "failed" {
				t.Errorf("Phase = %q, want failed", c.Phase())
			}
			if err := c.Scavenge(); !errors.Is(err, heapfmt.ErrPhase) {
				t.Errorf("Scavenge after failure = %v, want ErrPhase", err)
			}
		})
	}
}

func TestPhaseOrder(t *testing.T) {
	heap := make([]node.Cell, 8)
	heapgen.NewBuilder(heap).Int(1)
	c := newCollector(t, heap, []node.Addr{0})

	steps := []struct {
		name string
		run  func() error
	}{
		{"scavenge", c.Scavenge},
		{"flip", c.Flip},
		{"clear", c.ClearOldMemory},
	}
	for _, s := range steps {
		if err := s.run(); !errors.Is(err, heapfmt.ErrPhase) {
			t.Errorf("%s while idle = %v, want ErrPhase", s.name, err)
		}
	}

	if err := c.EvacuateRoots(); err != nil {
		t.Fatal(err)
	}
	if !c.InCycle() {
		t.Error("InCycle = false after EvacuateRoots")
	}
	if _, err := c.Allocate(node.NewNull()); !errors.Is(err, heapfmt.ErrPhase) {
		t.Errorf("Allocate mid-cycle = %v, want ErrPhase", err)
	}
	if err := c.EvacuateRoots(); !errors.Is(err, heapfmt.ErrPhase) {
		t.Errorf("EvacuateRoots twice = %v, want ErrPhase", err)
	}
}

func TestAllocateBetweenCycles(t *testing.T) {
	heap := make([]node.Cell, 24)
	b := heapgen.NewBuilder(heap)
	x := b.Var("x")
	b.Int(99) // garbage
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	roots := []node.Addr{x, node.NoRoot}
	c := newCollector(t, heap, roots)
	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}

	nil1, err := c.Allocate(node.NewNull())
	if err != nil {
		t.Fatal(err)
	}
	cons, err := c.Allocate(node.NewCons(roots[0], nil1))
	if err != nil {
		t.Fatal(err)
	}
	roots[1] = cons
	before := snapshot(t, c)

	if err := c.Collect(); err != nil {
		t.Fatal(err)
	}
	if err := verify.Equal(before, snapshot(t, c)); err != nil {
		t.Fatal(err)
	}
	if got := c.Stats().NodesCopied; got != 3 {
		t.Errorf("NodesCopied = %d, want 3", got)
	}
}

func TestAllocateExhausted(t *testing.T) {
	heap := make([]node.Cell, 8)
	c := newCollector(t, heap, nil)
	for i := 0; i < 2; i++ {
		if _, err := c.Allocate(node.NewInt(int64(i))); err != nil {
			t.Fatalf("Allocate %d: %v", i, err)
		}
	}
	if _, err := c.Allocate(node.NewNull()); !errors.Is(err, heapfmt.ErrSpaceExhausted) {
		t.Errorf("Allocate into full space = %v, want ErrSpaceExhausted", err)
	}
}

func TestRandomHeaps(t *testing.T) {
	for seed := uint64(1); seed <= 8; seed++ {
		heap := make([]node.Cell, 400)
		positions, err := heapgen.Random(heap, 0.9, seed)
		if err != nil {
			t.Fatalf("seed %d: %v", seed, err)
		}
		roots := heapgen.RandomRoots(positions, 6, seed)
		c := newCollector(t, heap, roots)
		before := snapshot(t, c)
		for cycle := 0; cycle < 3; cycle++ {
			if err := c.Collect(); err != nil {
				t.Fatalf("seed %d cycle %d: %v", seed, cycle, err)
			}
			if err := verify.Equal(before, snapshot(t, c)); err != nil {
				t.Fatalf("seed %d cycle %d: %v", seed, cycle, err)
			}
		}
	}
}
