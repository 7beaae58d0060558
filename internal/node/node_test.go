package node

import (
	"errors"
	"math"
	"slices"
	"testing"

	"semispace/internal/heapfmt"
)

func TestEncodeSizes(t *testing.T) {
	tests := []struct {
		n    Node
		want int
	}{
		{NewInt(10), 2},
		{NewDouble(7.1), 2},
		{NewChar('c'), 2},
		{NewBool(false), 2},
		{NewIndirection(2), 2},
		{NewVariable("x"), 2},
		{NewWeak(23), 2},
		{NewType(2, "aType"), 3},
		{NewCons(25, 27), 3},
		{NewNull(), 1},
		{NewConstructor("const", 9), 4},
		{NewLambda("func", 2, 4, 6), 6},
		{NewConstructor("unit"), 3},
	}
	for _, tt := range tests {
		cells, err := Encode(tt.n)
		if err != nil {
			t.Errorf("Encode(%s): %v", tt.n, err)
			continue
		}
		if len(cells) != tt.want || tt.n.Size() != tt.want {
			t.Errorf("%s: encoded %d cells, Size %d, want %d", tt.n, len(cells), tt.n.Size(), tt.want)
		}
		if h, ok := cells[0].(Header); !ok || h.Kind != tt.n.Kind {
			t.Errorf("%s: first cell %v is not its header", tt.n, cells[0])
		}
	}
}

func TestDecodeRoundTripInHeap(t *testing.T) {
	// [IND ->2, INT 10, LAMBDA "f" #2 ->0 ->2]
	var heap []Cell
	for _, n := range []Node{NewIndirection(2), NewInt(10), NewLambda("f", 0, 2)} {
		cells, err := Encode(n)
		if err != nil {
			t.Fatal(err)
		}
		heap = append(heap, cells...)
	}

	n, err := Decode(heap, 4)
	if err != nil {
		t.Fatal(err)
	}
	if n.Kind != KindLambda || n.Size() != 5 {
		t.Fatalf("Decode(4) = %s size %d, want LAMBDA size 5", n, n.Size())
	}
	if got := n.StrongOffsets(); !slices.Equal(got, []int{3, 4}) {
		t.Errorf("StrongOffsets = %v, want [3 4]", got)
	}
	if a, ok := n.Target(4); !ok || a != 2 {
		t.Errorf("Target(4) = %d,%v want 2,true", a, ok)
	}

	// Decoded fields are a copy.
	n.Fields[2] = Ptr(99)
	if heap[7] != Ptr(0) {
		t.Errorf("Decode aliased heap cells")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		cells []Cell
		at    int
		want  error
	}{
		{"empty cell", []Cell{nil, nil}, 0, heapfmt.ErrBadTag},
		{"data cell", []Cell{Int(3)}, 0, heapfmt.ErrBadTag},
		{"invalid kind", []Cell{Header{KindInvalid}, Int(1)}, 0, heapfmt.ErrBadTag},
		{"unknown kind", []Cell{Header{Kind(200)}, Int(1)}, 0, heapfmt.ErrBadTag},
		{"forwarded", []Cell{Forward{To: 8}, Int(1)}, 0, heapfmt.ErrForwarded},
		{"negative", []Cell{Header{KindNull}}, -1, heapfmt.ErrOutOfRange},
		{"past end", []Cell{Header{KindNull}}, 1, heapfmt.ErrOutOfRange},
		{"truncated int", []Cell{Header{KindInt}}, 0, heapfmt.ErrBadTag},
		{"truncated constr", []Cell{Header{KindConstructor}, Label("c"), Count(2), Ptr(0)}, 0, heapfmt.ErrBadTag},
		{"missing count", []Cell{Header{KindLambda}, Label("f"), Int(2)}, 0, heapfmt.ErrBadTag},
		{"huge count", []Cell{Header{KindConstructor}, Label("c"), Count(math.MaxInt), Ptr(0)}, 0, heapfmt.ErrBadTag},
		{"huge count offset", []Cell{Int(1), Header{KindLambda}, Label("f"), Count(math.MaxInt - 1)}, 1, heapfmt.ErrBadTag},
		{"wrong scalar", []Cell{Header{KindInt}, Bool(true)}, 0, heapfmt.ErrBadTag},
		{"label in pointer", []Cell{Header{KindCons}, Ptr(0), Label("x")}, 0, heapfmt.ErrBadTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.cells, tt.at)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestNilAcceptedInPointerFields(t *testing.T) {
	heap := []Cell{Header{KindWeak}, Nil{}, Header{KindCons}, Nil{}, Ptr(0)}
	if _, err := Decode(heap, 0); err != nil {
		t.Errorf("nulled weak: %v", err)
	}
	n, err := Decode(heap, 2)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := n.Target(1); ok {
		t.Errorf("Nil field reported as a target")
	}
}

func TestEncodeRejectsMalformed(t *testing.T) {
	bad := []Node{
		{Kind: KindInt},
		{Kind: KindInvalid},
		{Kind: KindConstructor, Fields: []Cell{Label("c"), Count(3), Ptr(1)}},
		{Kind: KindType, Fields: []Cell{Label("t"), Ptr(1)}},
	}
	for _, n := range bad {
		if _, err := Encode(n); !errors.Is(err, heapfmt.ErrBadTag) {
			t.Errorf("Encode(%v) err = %v, want ErrBadTag", n, err)
		}
	}
}

func TestKindNames(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseKind(%q) = %v,%v", k.String(), got, ok)
		}
	}
	if len(Kinds()) != 12 {
		t.Errorf("Kinds() has %d entries, want 12", len(Kinds()))
	}
	if _, ok := ParseKind("FWD"); ok {
		t.Errorf("FWD parsed as a node kind")
	}
}

func TestWeakOffsetOnlyForWeak(t *testing.T) {
	if off, ok := NewWeak(3).WeakOffset(); !ok || off != 1 {
		t.Errorf("Weak offset = %d,%v", off, ok)
	}
	if _, ok := NewIndirection(3).WeakOffset(); ok {
		t.Errorf("Indirection reported a weak field")
	}
	if offs := NewWeak(3).StrongOffsets(); len(offs) != 0 {
		t.Errorf("Weak reported strong offsets %v", offs)
	}
}

func TestFormat(t *testing.T) {
	if got := Format(NewCons(25, 27)); got != "CONS ->25 ->27" {
		t.Errorf("Format = %q", got)
	}
	if got := FormatCell(Forward{To: 14}); got != "FWD->14" {
		t.Errorf("FormatCell(Forward) = %q", got)
	}
}
