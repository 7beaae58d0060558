// Package node encodes and decodes the tagged records stored in a heap.
//
// A node is a Header cell followed by its fields. Fixed-size kinds have a
// fixed field layout; Constructor and Lambda carry a label, an explicit
// pointer count and that many pointer fields.
package node

import (
	"fmt"
	"slices"
	"strings"

	"semispace/internal/heapfmt"
)

// Node is a decoded record: its kind and the cells after the header.
type Node struct {
	Kind   Kind
	Fields []Cell
}

func NewInt(v int64) Node        { return Node{KindInt, []Cell{Int(v)}} }
func NewDouble(v float64) Node   { return Node{KindDouble, []Cell{Float(v)}} }
func NewChar(v rune) Node        { return Node{KindChar, []Cell{Char(v)}} }
func NewBool(v bool) Node        { return Node{KindBool, []Cell{Bool(v)}} }
func NewNull() Node              { return Node{Kind: KindNull} }
func NewIndirection(p Addr) Node { return Node{KindIndirection, []Cell{Ptr(p)}} }
func NewVariable(name string) Node {
	return Node{KindVariable, []Cell{Label(name)}}
}
func NewWeak(p Addr) Node              { return Node{KindWeak, []Cell{Ptr(p)}} }
func NewCons(head, tail Addr) Node     { return Node{KindCons, []Cell{Ptr(head), Ptr(tail)}} }
func NewType(p Addr, name string) Node { return Node{KindType, []Cell{Ptr(p), Label(name)}} }

// NewConstructor builds a data constructor node with the given pointer fields.
func NewConstructor(name string, ptrs ...Addr) Node {
	return variable(KindConstructor, name, ptrs)
}

// NewLambda builds a function node whose free variables are ptrs.
func NewLambda(fn string, ptrs ...Addr) Node {
	return variable(KindLambda, fn, ptrs)
}

func variable(k Kind, name string, ptrs []Addr) Node {
	fields := make([]Cell, 0, len(ptrs)+2)
	fields = append(fields, Label(name), Count(len(ptrs)))
	for _, p := range ptrs {
		fields = append(fields, Ptr(p))
	}
	return Node{k, fields}
}

// Size is the number of cells the node occupies, header included.
func (n Node) Size() int { return 1 + len(n.Fields) }

// StrongOffsets returns the cell offsets, relative to the node start, of the
// strong pointer fields in declared order.
func (n Node) StrongOffsets() []int {
	switch n.Kind {
	case KindIndirection, KindType:
		return []int{1}
	case KindCons:
		return []int{1, 2}
	case KindConstructor, KindLambda:
		out := make([]int, 0, max(len(n.Fields)-2, 0))
		for off := 3; off < n.Size(); off++ {
			out = append(out, off)
		}
		return out
	}
	return nil
}

// WeakOffset returns the offset of the weak field of a Weak node.
func (n Node) WeakOffset() (int, bool) {
	if n.Kind == KindWeak {
		return 1, true
	}
	return 0, false
}

// Field returns the cell at offset off from the node start (off >= 1).
func (n Node) Field(off int) Cell {
	if off < 1 || off > len(n.Fields) {
		return nil
	}
	return n.Fields[off-1]
}

// Target returns the address held by the pointer field at offset off.
// A Nil field or a non-pointer cell reports false.
func (n Node) Target(off int) (Addr, bool) {
	p, ok := n.Field(off).(Ptr)
	return Addr(p), ok
}

// Encode validates n and returns its cells, header first.
func Encode(n Node) ([]Cell, error) {
	if err := n.validate(); err != nil {
		return nil, err
	}
	out := make([]Cell, 0, n.Size())
	out = append(out, Header{n.Kind})
	return append(out, n.Fields...), nil
}

// Decode reads the node starting at cells[at]. The cell there must be a
// Header with a recognized kind; a Forward cell yields ErrForwarded.
func Decode(cells []Cell, at int) (Node, error) {
	if at < 0 || at >= len(cells) {
		return Node{}, fmt.Errorf("node: decode %d: %w", at, heapfmt.ErrOutOfRange)
	}
	var kind Kind
	switch c := cells[at].(type) {
	case Header:
		if !c.Kind.Valid() {
			return Node{}, fmt.Errorf("node: decode %d: tag %s: %w", at, c.Kind, heapfmt.ErrBadTag)
		}
		kind = c.Kind
	case Forward:
		return Node{}, fmt.Errorf("node: decode %d: %w", at, heapfmt.ErrForwarded)
	default:
		return Node{}, fmt.Errorf("node: decode %d: cell %s: %w", at, FormatCell(c), heapfmt.ErrBadTag)
	}

	size := fixedSizes[kind]
	if kind.Variable() {
		if at+2 >= len(cells) {
			return Node{}, fmt.Errorf("node: decode %d: truncated %s: %w", at, kind, heapfmt.ErrBadTag)
		}
		cnt, ok := cells[at+2].(Count)
		if !ok || cnt < 0 {
			return Node{}, fmt.Errorf("node: decode %d: %s count %s: %w", at, kind, FormatCell(cells[at+2]), heapfmt.ErrBadTag)
		}
		if int(cnt) > len(cells)-at-3 {
			return Node{}, fmt.Errorf("node: decode %d: %s count %d past end: %w", at, kind, cnt, heapfmt.ErrBadTag)
		}
		size = int(cnt) + 3
	}
	if at+size > len(cells) {
		return Node{}, fmt.Errorf("node: decode %d: truncated %s: %w", at, kind, heapfmt.ErrBadTag)
	}

	n := Node{Kind: kind, Fields: slices.Clone(cells[at+1 : at+size])}
	if err := n.validate(); err != nil {
		return Node{}, fmt.Errorf("node: decode %d: %w", at, err)
	}
	return n, nil
}

// SizeAt returns the size of the node at cells[at] without copying it.
func SizeAt(cells []Cell, at int) (int, error) {
	n, err := Decode(cells, at)
	if err != nil {
		return 0, err
	}
	return n.Size(), nil
}

func (n Node) validate() error {
	if !n.Kind.Valid() {
		return fmt.Errorf("node: kind %s: %w", n.Kind, heapfmt.ErrBadTag)
	}
	if want := fixedSizes[n.Kind]; want != 0 && n.Size() != want {
		return fmt.Errorf("node: %s has %d fields, want %d: %w", n.Kind, len(n.Fields), want-1, heapfmt.ErrBadTag)
	}
	bad := func(off int) error {
		return fmt.Errorf("node: %s field %d is %s: %w", n.Kind, off, FormatCell(n.Field(off)), heapfmt.ErrBadTag)
	}
	isPtr := func(off int) bool {
		switch n.Field(off).(type) {
		case Ptr, Nil:
			return true
		}
		return false
	}
	isLabel := func(off int) bool {
		_, ok := n.Field(off).(Label)
		return ok
	}

	switch n.Kind {
	case KindInt:
		if _, ok := n.Field(1).(Int); !ok {
			return bad(1)
		}
	case KindDouble:
		if _, ok := n.Field(1).(Float); !ok {
			return bad(1)
		}
	case KindChar:
		if _, ok := n.Field(1).(Char); !ok {
			return bad(1)
		}
	case KindBool:
		if _, ok := n.Field(1).(Bool); !ok {
			return bad(1)
		}
	case KindIndirection, KindWeak:
		if !isPtr(1) {
			return bad(1)
		}
	case KindVariable:
		if !isLabel(1) {
			return bad(1)
		}
	case KindType:
		if !isPtr(1) {
			return bad(1)
		}
		if !isLabel(2) {
			return bad(2)
		}
	case KindCons:
		for _, off := range []int{1, 2} {
			if !isPtr(off) {
				return bad(off)
			}
		}
	case KindConstructor, KindLambda:
		if len(n.Fields) < 2 {
			return fmt.Errorf("node: %s missing label or count: %w", n.Kind, heapfmt.ErrBadTag)
		}
		if !isLabel(1) {
			return bad(1)
		}
		cnt, ok := n.Field(2).(Count)
		if !ok || int(cnt) != len(n.Fields)-2 {
			return bad(2)
		}
		for off := 3; off < n.Size(); off++ {
			if !isPtr(off) {
				return bad(off)
			}
		}
	}
	return nil
}

// Format renders a node as its tag followed by its fields.
func Format(n Node) string {
	var b strings.Builder
	b.WriteString(n.Kind.String())
	for _, c := range n.Fields {
		b.WriteByte(' ')
		b.WriteString(FormatCell(c))
	}
	return b.String()
}

func (n Node) String() string { return Format(n) }
