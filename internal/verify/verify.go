// Package verify computes the reachable object graph of a heap in an
// address-independent form, so heaps before and after a collection can be
// compared.
package verify

import (
	"fmt"
	"slices"

	"semispace/internal/bartlett"
	"semispace/internal/node"
	"semispace/internal/pageaddr"
)

// Object is one reachable node. Edges and Weak refer to other objects by
// index into Snapshot.Objects.
type Object struct {
	Addr   node.Addr `json:"addr"`
	Kind   node.Kind `json:"kind"`
	Values []string  `json:"values,omitempty"` // non-pointer fields
	Edges  []int     `json:"edges,omitempty"`  // strong pointer fields; -1 for a nil field
	Weak   int       `json:"weak"`             // -1 when absent or not strongly reachable
}

// Snapshot is the strongly reachable graph discovered breadth-first from the
// roots, fields visited in order. Two heaps holding the same graph yield
// equal snapshots regardless of where their nodes live.
type Snapshot struct {
	Objects []Object `json:"objects"`
	Roots   []int    `json:"roots"` // object per root slot; -1 when the slot addresses no node
	Cells   int      `json:"cells"`
}

type decodeFunc func(a node.Addr) (node.Node, error)

// FlatSnapshot walks a flat heap. Every root other than NoRoot must address
// a node.
func FlatSnapshot(cells []node.Cell, roots []node.Addr) (*Snapshot, error) {
	decode := func(a node.Addr) (node.Node, error) {
		if a < 0 || int(a) >= len(cells) {
			return node.Node{}, fmt.Errorf("address %d outside heap of %d cells", a, len(cells))
		}
		return node.Decode(cells, int(a))
	}
	return build(decode, roots, false)
}

// PagedSnapshot walks a paged heap. Roots that do not address a node are
// ambiguous and recorded as -1.
func PagedSnapshot(pages []*bartlett.Page, pageSize int, roots []node.Addr) (*Snapshot, error) {
	geom, err := pageaddr.New(pageSize)
	if err != nil {
		return nil, fmt.Errorf("verify: %w", err)
	}
	decode := func(a node.Addr) (node.Node, error) {
		if !geom.Contains(a, len(pages)) {
			return node.Node{}, fmt.Errorf("address %d outside %d pages", a, len(pages))
		}
		return node.Decode(pages[geom.PageOf(a)].Cells(), geom.Offset(a))
	}
	return build(decode, roots, true)
}

func build(decode decodeFunc, roots []node.Addr, ambiguous bool) (*Snapshot, error) {
	s := &Snapshot{Roots: make([]int, len(roots))}
	index := make(map[node.Addr]int)
	var nodes []node.Node

	visit := func(a node.Addr) (int, error) {
		if i, ok := index[a]; ok {
			return i, nil
		}
		n, err := decode(a)
		if err != nil {
			return -1, err
		}
		i := len(s.Objects)
		index[a] = i
		s.Objects = append(s.Objects, Object{Addr: a, Kind: n.Kind, Weak: -1})
		nodes = append(nodes, n)
		s.Cells += n.Size()
		return i, nil
	}

	for i, r := range roots {
		s.Roots[i] = -1
		if r == node.NoRoot {
			continue
		}
		idx, err := visit(r)
		if err != nil {
			if ambiguous {
				continue
			}
			return nil, fmt.Errorf("verify: root %d: %w", i, err)
		}
		s.Roots[i] = idx
	}

	// Objects doubles as the BFS queue.
	for i := 0; i < len(s.Objects); i++ {
		n := nodes[i]
		strong := n.StrongOffsets()
		weak, hasWeak := n.WeakOffset()
		for off := 1; off < n.Size(); off++ {
			switch {
			case slices.Contains(strong, off):
				target, ok := n.Target(off)
				if !ok {
					s.Objects[i].Edges = append(s.Objects[i].Edges, -1)
					continue
				}
				idx, err := visit(target)
				if err != nil {
					return nil, fmt.Errorf("verify: %s at %d field %d: %w", n.Kind, s.Objects[i].Addr, off, err)
				}
				s.Objects[i].Edges = append(s.Objects[i].Edges, idx)
			case hasWeak && off == weak:
			default:
				s.Objects[i].Values = append(s.Objects[i].Values, node.FormatCell(n.Field(off)))
			}
		}
	}

	// Weak fields resolve only against the strongly reachable set.
	for i, n := range nodes {
		off, ok := n.WeakOffset()
		if !ok {
			continue
		}
		if target, ok := n.Target(off); ok {
			if idx, ok := index[target]; ok {
				s.Objects[i].Weak = idx
			}
		}
	}
	return s, nil
}

// Resolved returns roots with every slot s could not resolve set to NoRoot.
// Slots a paged collector leaves unrewritten then stay out of later
// snapshots.
func (s *Snapshot) Resolved(roots []node.Addr) []node.Addr {
	out := make([]node.Addr, len(roots))
	for i, r := range roots {
		out[i] = node.NoRoot
		if i < len(s.Roots) && s.Roots[i] >= 0 {
			out[i] = r
		}
	}
	return out
}

// Live returns the addresses of every reachable object.
func (s *Snapshot) Live() map[node.Addr]bool {
	live := make(map[node.Addr]bool, len(s.Objects))
	for _, o := range s.Objects {
		live[o.Addr] = true
	}
	return live
}

// Equal reports the first difference between two snapshots, ignoring
// addresses.
func Equal(a, b *Snapshot) error {
	if !slices.Equal(a.Roots, b.Roots) {
		return fmt.Errorf("roots differ: %v vs %v", a.Roots, b.Roots)
	}
	if len(a.Objects) != len(b.Objects) {
		return fmt.Errorf("%d reachable objects vs %d", len(a.Objects), len(b.Objects))
	}
	for i := range a.Objects {
		x, y := a.Objects[i], b.Objects[i]
		switch {
		case x.Kind != y.Kind:
			return fmt.Errorf("object %d: kind %s vs %s", i, x.Kind, y.Kind)
		case !slices.Equal(x.Values, y.Values):
			return fmt.Errorf("object %d (%s): values %v vs %v", i, x.Kind, x.Values, y.Values)
		case !slices.Equal(x.Edges, y.Edges):
			return fmt.Errorf("object %d (%s): edges %v vs %v", i, x.Kind, x.Edges, y.Edges)
		case x.Weak != y.Weak:
			return fmt.Errorf("object %d (%s): weak %d vs %d", i, x.Kind, x.Weak, y.Weak)
		}
	}
	return nil
}
