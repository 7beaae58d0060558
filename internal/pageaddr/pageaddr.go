// Package pageaddr converts between page indices and cell addresses for a
// fixed page size.
package pageaddr

import (
	"fmt"

	"semispace/internal/node"
)

// Geometry fixes the page size of a paged heap.
type Geometry struct {
	PageSize int
}

// New returns a Geometry for pageSize. Pages must hold the largest
// fixed-size node so that no fixed node straddles two pages.
func New(pageSize int) (Geometry, error) {
	if pageSize < node.MaxFixedSize {
		return Geometry{}, fmt.Errorf("pageaddr: page size %d below minimum %d", pageSize, node.MaxFixedSize)
	}
	return Geometry{PageSize: pageSize}, nil
}

// PageOf returns the page holding address a.
func (g Geometry) PageOf(a node.Addr) int { return int(a) / g.PageSize }

// Offset returns the cell offset of a within its page.
func (g Geometry) Offset(a node.Addr) int { return int(a) % g.PageSize }

// PageStart returns the address of the first cell of page p.
func (g Geometry) PageStart(p int) node.Addr { return node.Addr(p * g.PageSize) }

// Addr returns the address of cell off on page p.
func (g Geometry) Addr(p, off int) node.Addr { return node.Addr(p*g.PageSize + off) }

// Translate moves a onto the page occupying slot, keeping its offset.
func (g Geometry) Translate(slot int, a node.Addr) node.Addr {
	return node.Addr(slot*g.PageSize + g.Offset(a))
}

// Contains reports whether a lies inside a heap of pages pages.
func (g Geometry) Contains(a node.Addr, pages int) bool {
	return a >= 0 && int(a) < pages*g.PageSize
}
