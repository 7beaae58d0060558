package heapgen

import (
	"errors"
	"testing"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
)

func TestBuilderPositions(t *testing.T) {
	cells := make([]node.Cell, 20)
	b := NewBuilder(cells)
	i := b.Int(1)
	c := b.Cons(i, i)
	n := b.Null()
	if err := b.Err(); err != nil {
		t.Fatal(err)
	}
	if i != 0 || c != 2 || n != 5 {
		t.Errorf("positions = %d,%d,%d, want 0,2,5", i, c, n)
	}
	if b.Next() != 6 {
		t.Errorf("Next = %d, want 6", b.Next())
	}
}

func TestBuilderStopsAtLimit(t *testing.T) {
	cells := make([]node.Cell, 8)
	b := NewBuilder(cells)
	b.Int(1)
	b.Int(2)
	if got := b.Int(3); got != node.NoRoot {
		t.Errorf("Int past limit = %d, want NoRoot", got)
	}
	if !errors.Is(b.Err(), heapfmt.ErrSpaceExhausted) {
		t.Errorf("Err = %v, want ErrSpaceExhausted", b.Err())
	}
	if cells[4] != nil {
		t.Errorf("builder wrote into the upper half: %s", node.FormatCell(cells[4]))
	}
}

func TestExampleLayouts(t *testing.T) {
	tests := []struct {
		name      string
		positions []node.Addr
	}{
		{"1", []node.Addr{0, 2, 4, 7, 10, 13}},
		{"2", []node.Addr{0, 2, 4, 6, 13, 15, 18, 21, 23, 24, 26}},
		{"report", []node.Addr{0, 2, 4, 6, 9, 11, 13, 19, 23, 25, 27, 29, 32, 34}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := Flat(tt.name)
			if err != nil {
				t.Fatal(err)
			}
			if len(h.Positions) != len(tt.positions) {
				t.Fatalf("positions = %v, want %v", h.Positions, tt.positions)
			}
			for i, want := range tt.positions {
				if h.Positions[i] != want {
					t.Errorf("node %d at %d, want %d", i, h.Positions[i], want)
				}
				if _, err := node.Decode(h.Cells, int(want)); err != nil {
					t.Errorf("node %d: %v", i, err)
				}
			}
		})
	}
	if _, err := Flat("nope"); err == nil {
		t.Error("Flat accepted an unknown name")
	}
}

func TestPagedReportLayout(t *testing.T) {
	h, err := PagedReportHeap()
	if err != nil {
		t.Fatal(err)
	}
	want := []node.Addr{0, 2, 4, 6, 9, 12, 18, 24, 28, 30, 32, 36, 39, 41}
	for i, w := range want {
		if h.Positions[i] != w {
			t.Errorf("node %d at %d, want %d", i, h.Positions[i], w)
		}
	}
	if h.Allocated != 7 || len(h.Pages) != 14 {
		t.Errorf("allocated %d of %d pages, want 7 of 14", h.Allocated, len(h.Pages))
	}
}

func TestPageBuilderAddMovesOn(t *testing.T) {
	b, err := NewPageBuilder(4, 3)
	if err != nil {
		t.Fatal(err)
	}
	var got []node.Addr
	for _, n := range []node.Node{node.NewInt(1), node.NewNull(), node.NewCons(0, 0), node.NewType(0, "t")} {
		at, err := b.Add(n)
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, at)
	}
	want := []node.Addr{0, 2, 4, 8}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("node %d at %d, want %d", i, got[i], want[i])
		}
	}
	if b.Allocated() != 3 {
		t.Errorf("Allocated = %d, want 3", b.Allocated())
	}
	if _, err := b.Add(node.NewCons(0, 0)); err == nil {
		t.Error("Add past the last page succeeded")
	}
}

func TestRandomIsDeterministic(t *testing.T) {
	a := make([]node.Cell, 300)
	b := make([]node.Cell, 300)
	pa, err := Random(a, 0.9, 42)
	if err != nil {
		t.Fatal(err)
	}
	pb, err := Random(b, 0.9, 42)
	if err != nil {
		t.Fatal(err)
	}
	if len(pa) != len(pb) {
		t.Fatalf("%d vs %d nodes for the same seed", len(pa), len(pb))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("cell %d differs: %s vs %s", i, node.FormatCell(a[i]), node.FormatCell(b[i]))
		}
	}
	for _, p := range pa {
		if _, err := node.Decode(a, int(p)); err != nil {
			t.Errorf("node at %d: %v", p, err)
		}
	}
	for _, r := range RandomRoots(pa, 10, 7) {
		if _, err := node.Decode(a, int(r)); err != nil {
			t.Errorf("root %d: %v", r, err)
		}
	}
}

func TestRandomPagedFillsHalf(t *testing.T) {
	h, err := RandomPaged(6, 20, 3)
	if err != nil {
		t.Fatal(err)
	}
	if h.Allocated == 0 || h.Allocated > 10 {
		t.Errorf("Allocated = %d, want 1..10", h.Allocated)
	}
	for p := h.Allocated; p < len(h.Pages); p++ {
		if h.Pages[p].Used() != 0 {
			t.Errorf("page %d beyond the allocated prefix holds data", p)
		}
	}
	for i, pg := range h.Pages[:h.Allocated] {
		if _, _, err := pg.Nodes(); err != nil {
			t.Errorf("page %d: %v", i, err)
		}
	}
}
