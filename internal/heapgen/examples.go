package heapgen

import (
	"fmt"
	"sort"

	"semispace/internal/bartlett"
	"semispace/internal/node"
)

// Heap is a flat heap ready for a precise collector.
type Heap struct {
	Name      string
	Cells     []node.Cell
	Roots     []node.Addr
	Positions []node.Addr
}

// PagedHeap is a paged heap ready for a mostly-copying collector.
type PagedHeap struct {
	Name      string
	PageSize  int
	Pages     []*bartlett.Page
	Roots     []node.Addr
	Positions []node.Addr
	Allocated int
}

var flatExamples = map[string]func() (Heap, error){
	"1":      Example1,
	"2":      Example2,
	"report": ReportHeap,
}

var pagedExamples = map[string]func() (PagedHeap, error){
	"1":      PagedExample1,
	"report": PagedReportHeap,
}

// Flat returns the named flat example heap.
func Flat(name string) (Heap, error) {
	fn, ok := flatExamples[name]
	if !ok {
		return Heap{}, fmt.Errorf("heapgen: unknown example %q (have %v)", name, FlatNames())
	}
	return fn()
}

// Paged returns the named paged example heap.
func Paged(name string) (PagedHeap, error) {
	fn, ok := pagedExamples[name]
	if !ok {
		return PagedHeap{}, fmt.Errorf("heapgen: unknown paged example %q (have %v)", name, PagedNames())
	}
	return fn()
}

func FlatNames() []string  { return names(flatExamples) }
func PagedNames() []string { return names(pagedExamples) }

func names[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Example1 is a small list structure with shared tails:
//
//	0 IND ->2   2 INT 2   4 CONS ->0 ->7   7 CONS ->0 ->7   10 CONS ->7 ->13   13 NULL
func Example1() (Heap, error) {
	cells := make([]node.Cell, 28)
	b := NewBuilder(cells)
	ind := b.Ind(2)
	two := b.Int(2)
	first := b.Cons(0, 7)
	b.Cons(0, 7)
	b.Cons(7, 13)
	b.Null()
	if err := b.Err(); err != nil {
		return Heap{}, err
	}
	return Heap{
		Name:      "example1",
		Cells:     cells,
		Roots:     []node.Addr{two, ind, ind, two, ind, first, ind},
		Positions: b.Positions(),
	}, nil
}

// Example2 mixes every scalar kind with a constructor and a type node.
func Example2() (Heap, error) {
	cells := make([]node.Cell, 70)
	b := NewBuilder(cells)
	five := b.Int(5)
	half := b.Double(10.5)
	ind := b.Ind(13)
	constr := b.Constr("aConstructor", 26, five, half, ind)
	x := b.Var("x")
	b.Cons(constr, x)
	b.Type(23, "aType")
	b.Bool(false)
	b.Null()
	b.Ind(15)
	b.Char('c')
	if err := b.Err(); err != nil {
		return Heap{}, err
	}
	return Heap{
		Name:      "example2",
		Cells:     cells,
		Roots:     []node.Addr{constr, x},
		Positions: b.Positions(),
	}, nil
}

// ReportHeap roots two weak nodes. The double behind the first is held by
// nothing else; the variable behind the second is also reachable from a cons.
func ReportHeap() (Heap, error) {
	cells := make([]node.Cell, 80)
	b := NewBuilder(cells)
	b.Weak(2)
	ten := b.Int(10)
	c := b.Char('c')
	typ := b.Type(ten, "aType")
	ind := b.Ind(13)
	weak := b.Weak(23)
	b.Lambda("func", ten, c, typ)
	constr := b.Constr("constr", ind)
	b.Double(7.1)
	f := b.Bool(false)
	x := b.Var("x")
	cons := b.Cons(f, x)
	weakX := b.Weak(x)
	b.Null()
	if err := b.Err(); err != nil {
		return Heap{}, err
	}
	return Heap{
		Name:      "report",
		Cells:     cells,
		Roots:     []node.Addr{typ, cons, constr, weak, weakX, node.NoRoot, node.NoRoot, node.NoRoot, node.NoRoot},
		Positions: b.Positions(),
	}, nil
}

// PagedExample1 spreads a chain over the first four of eight 4-cell pages.
// The weak node on page 0 targets page 3, which nothing strong reaches.
func PagedExample1() (PagedHeap, error) {
	const pageSize, count = 4, 8
	b, err := NewPageBuilder(pageSize, count)
	if err != nil {
		return PagedHeap{}, err
	}
	w := b.Put(0, node.NewWeak(12))
	ind := b.Put(0, node.NewIndirection(w))
	cons := b.Put(1, node.NewCons(w, ind))
	constr := b.Put(2, node.NewConstructor("constr", cons))
	b.Put(3, node.NewType(constr, "type"))
	if err := b.Err(); err != nil {
		return PagedHeap{}, err
	}
	return PagedHeap{
		Name:      "paged1",
		PageSize:  pageSize,
		Pages:     b.Pages(),
		Roots:     []node.Addr{constr},
		Positions: b.Positions(),
		Allocated: 4,
	}, nil
}

// PagedReportHeap lays the report heap out over fourteen 6-cell pages with
// seven roots, two of them empty.
func PagedReportHeap() (PagedHeap, error) {
	const pageSize, count = 6, 14
	b, err := NewPageBuilder(pageSize, count)
	if err != nil {
		return PagedHeap{}, err
	}
	b.Put(0, node.NewWeak(2))
	b.Put(0, node.NewInt(10))
	b.Put(0, node.NewChar('c'))

	b.Put(1, node.NewType(2, "aType"))
	b.Put(1, node.NewIndirection(18))

	b.Put(2, node.NewWeak(28))

	b.Put(3, node.NewLambda("func", 2, 4, 6))

	b.Put(4, node.NewConstructor("constr", 9))
	b.Put(4, node.NewDouble(7.1))

	b.Put(5, node.NewBool(false))
	b.Put(5, node.NewVariable("x"))

	b.Put(6, node.NewCons(30, 32))
	b.Put(6, node.NewWeak(32))
	b.Put(6, node.NewNull())
	if err := b.Err(); err != nil {
		return PagedHeap{}, err
	}
	return PagedHeap{
		Name:      "paged-report",
		PageSize:  pageSize,
		Pages:     b.Pages(),
		Roots:     []node.Addr{6, 36, 24, 12, 39, node.NoRoot, node.NoRoot},
		Positions: b.Positions(),
		Allocated: count / 2,
	}, nil
}
