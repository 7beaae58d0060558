package heapgen

import (
	"errors"
	"math/rand/v2"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// seedNodes starts every random heap so that pointer-bearing kinds always
// have earlier nodes to point at.
func seedNodes() []node.Node {
	return []node.Node{
		node.NewInt(10),
		node.NewChar('c'),
		node.NewDouble(10.5),
		node.NewChar('c'),
	}
}

// randomNode returns a node of a random kind whose pointers refer to the most
// recently placed nodes.
func randomNode(r *rand.Rand, prev []node.Addr) node.Node {
	last := func(i int) node.Addr { return prev[len(prev)-1-i] }
	switch node.Kind(r.IntN(int(node.KindWeak)) + 1) {
	case node.KindInt:
		return node.NewInt(r.Int64N(1000))
	case node.KindDouble:
		return node.NewDouble(float64(r.IntN(10000)) / 100)
	case node.KindChar:
		return node.NewChar(rune('a' + r.IntN(26)))
	case node.KindBool:
		return node.NewBool(r.IntN(2) == 1)
	case node.KindConstructor:
		return node.NewConstructor("constr", last(0), last(1))
	case node.KindCons:
		return node.NewCons(last(0), last(1))
	case node.KindNull:
		return node.NewNull()
	case node.KindLambda:
		return node.NewLambda("func", last(0))
	case node.KindIndirection:
		return node.NewIndirection(last(0))
	case node.KindVariable:
		return node.NewVariable("var")
	case node.KindType:
		return node.NewType(last(0), "type")
	default:
		return node.NewWeak(last(0))
	}
}

// Random fills the live half of cells with random nodes until fill of it is
// used. The same seed always yields the same heap.
func Random(cells []node.Cell, fill float64, seed uint64) ([]node.Addr, error) {
	b := NewBuilder(cells)
	for _, n := range seedNodes() {
		if _, err := b.Add(n); err != nil {
			return nil, err
		}
	}
	r := newRand(seed)
	target := int(fill * float64(b.limit))
	for b.Next() < target {
		if _, err := b.Add(randomNode(r, b.Positions())); err != nil {
			if errors.Is(err, heapfmt.ErrSpaceExhausted) {
				break
			}
			return nil, err
		}
	}
	return b.Positions(), nil
}

// RandomRoots picks n roots among positions.
func RandomRoots(positions []node.Addr, n int, seed uint64) []node.Addr {
	roots := make([]node.Addr, n)
	if len(positions) == 0 {
		for i := range roots {
			roots[i] = node.NoRoot
		}
		return roots
	}
	r := newRand(seed)
	for i := range roots {
		roots[i] = positions[r.IntN(len(positions))]
	}
	return roots
}

// RandomPaged fills the first half of count pages with random nodes. Nodes
// that cannot fit on a page of pageSize cells are not generated.
func RandomPaged(pageSize, count int, seed uint64) (PagedHeap, error) {
	b, err := NewPageBuilder(pageSize, count)
	if err != nil {
		return PagedHeap{}, err
	}
	for _, n := range seedNodes() {
		if _, err := b.Add(n); err != nil {
			return PagedHeap{}, err
		}
	}
	r := newRand(seed)
	limit := count / 2
	for {
		n := randomNode(r, b.Positions())
		if n.Size() > pageSize {
			continue
		}
		full := n.Size() > b.pages[b.cursor].Free()
		if full && b.cursor+1 >= max(limit, 1) {
			break
		}
		if _, err := b.Add(n); err != nil {
			return PagedHeap{}, err
		}
	}
	return PagedHeap{
		Name:      "random",
		PageSize:  pageSize,
		Pages:     b.Pages(),
		Positions: b.Positions(),
		Allocated: b.Allocated(),
	}, nil
}
