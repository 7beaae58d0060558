// Package heapgen builds heaps for the collectors: a bump builder over a flat
// cell array, a page builder, the worked example heaps and seeded random
// heaps.
package heapgen

import (
	"fmt"

	"semispace/internal/bartlett"
	"semispace/internal/heapfmt"
	"semispace/internal/node"
	"semispace/internal/pageaddr"
)

// Builder bump-allocates nodes into a flat cell array. The typed helpers
// record the first error and keep returning addresses, so a heap can be
// written out in one block and checked once with Err.
type Builder struct {
	cells     []node.Cell
	next      int
	limit     int
	positions []node.Addr
	err       error
}

// NewBuilder fills the live half of cells, the way a precise collector sees
// it before its first cycle.
func NewBuilder(cells []node.Cell) *Builder {
	return &Builder{cells: cells, limit: len(cells) / 2}
}

// NewBuilderAt resumes allocation at next and refuses to write at or beyond
// limit.
func NewBuilderAt(cells []node.Cell, next, limit int) *Builder {
	return &Builder{cells: cells, next: next, limit: min(limit, len(cells))}
}

// Add encodes n at the next free cell.
func (b *Builder) Add(n node.Node) (node.Addr, error) {
	cells, err := node.Encode(n)
	if err != nil {
		return 0, fmt.Errorf("heapgen: %w", err)
	}
	if b.next+len(cells) > b.limit {
		return 0, fmt.Errorf("heapgen: %s at %d needs %d cells, limit %d: %w",
			n.Kind, b.next, len(cells), b.limit, heapfmt.ErrSpaceExhausted)
	}
	at := node.Addr(b.next)
	copy(b.cells[b.next:], cells)
	b.next += len(cells)
	b.positions = append(b.positions, at)
	return at, nil
}

func (b *Builder) add(n node.Node) node.Addr {
	if b.err != nil {
		return node.NoRoot
	}
	at, err := b.Add(n)
	if err != nil {
		b.err = err
		return node.NoRoot
	}
	return at
}

func (b *Builder) Int(v int64) node.Addr      { return b.add(node.NewInt(v)) }
func (b *Builder) Double(v float64) node.Addr { return b.add(node.NewDouble(v)) }
func (b *Builder) Char(v rune) node.Addr      { return b.add(node.NewChar(v)) }
func (b *Builder) Bool(v bool) node.Addr      { return b.add(node.NewBool(v)) }
func (b *Builder) Null() node.Addr            { return b.add(node.NewNull()) }
func (b *Builder) Ind(p node.Addr) node.Addr  { return b.add(node.NewIndirection(p)) }
func (b *Builder) Var(name string) node.Addr  { return b.add(node.NewVariable(name)) }
func (b *Builder) Weak(p node.Addr) node.Addr { return b.add(node.NewWeak(p)) }
func (b *Builder) Cons(head, tail node.Addr) node.Addr {
	return b.add(node.NewCons(head, tail))
}
func (b *Builder) Type(p node.Addr, name string) node.Addr {
	return b.add(node.NewType(p, name))
}
func (b *Builder) Constr(name string, ptrs ...node.Addr) node.Addr {
	return b.add(node.NewConstructor(name, ptrs...))
}
func (b *Builder) Lambda(fn string, ptrs ...node.Addr) node.Addr {
	return b.add(node.NewLambda(fn, ptrs...))
}

// Err returns the first error hit by a typed helper.
func (b *Builder) Err() error { return b.err }

// Next returns the next free cell.
func (b *Builder) Next() int { return b.next }

// Positions returns the address of every node added, in order.
func (b *Builder) Positions() []node.Addr { return b.positions }

// PageBuilder places nodes on fixed-size pages.
type PageBuilder struct {
	geom      pageaddr.Geometry
	pages     []*bartlett.Page
	cursor    int // page Add is currently filling
	used      int // pages touched so far
	positions []node.Addr
	err       error
}

// NewPageBuilder returns count empty pages of pageSize cells.
func NewPageBuilder(pageSize, count int) (*PageBuilder, error) {
	geom, err := pageaddr.New(pageSize)
	if err != nil {
		return nil, fmt.Errorf("heapgen: %w", err)
	}
	pages := make([]*bartlett.Page, count)
	for i := range pages {
		pages[i] = bartlett.NewPage(pageSize)
	}
	return &PageBuilder{geom: geom, pages: pages}, nil
}

// AddTo places n on page p and returns its heap address.
func (b *PageBuilder) AddTo(p int, n node.Node) (node.Addr, error) {
	if p < 0 || p >= len(b.pages) {
		return 0, fmt.Errorf("heapgen: page %d of %d: %w", p, len(b.pages), heapfmt.ErrOutOfRange)
	}
	off, err := b.pages[p].Add(n)
	if err != nil {
		return 0, fmt.Errorf("heapgen: page %d: %w", p, err)
	}
	at := b.geom.Addr(p, off)
	b.positions = append(b.positions, at)
	b.used = max(b.used, p+1)
	return at, nil
}

// Add places n on the current page, moving on to the next page when it does
// not fit.
func (b *PageBuilder) Add(n node.Node) (node.Addr, error) {
	if b.cursor < len(b.pages) && n.Size() > b.pages[b.cursor].Free() {
		b.cursor++
	}
	return b.AddTo(b.cursor, n)
}

// Put is AddTo recording the first error, for writing example heaps.
func (b *PageBuilder) Put(p int, n node.Node) node.Addr {
	if b.err != nil {
		return node.NoRoot
	}
	at, err := b.AddTo(p, n)
	if err != nil {
		b.err = err
		return node.NoRoot
	}
	return at
}

func (b *PageBuilder) Err() error                  { return b.err }
func (b *PageBuilder) Pages() []*bartlett.Page     { return b.pages }
func (b *PageBuilder) Positions() []node.Addr      { return b.positions }
func (b *PageBuilder) Geometry() pageaddr.Geometry { return b.geom }

// Allocated returns the number of leading pages that hold nodes.
func (b *PageBuilder) Allocated() int { return b.used }
