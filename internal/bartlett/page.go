package bartlett

import (
	"fmt"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
)

// Page is a fixed-capacity run of cells. Nodes are packed from offset 0; the
// first empty cell ends the page's allocated prefix.
type Page struct {
	cells []node.Cell
	free  int // number of unallocated cells
}

// NewPage returns an empty page of size cells.
func NewPage(size int) *Page {
	return &Page{cells: make([]node.Cell, size), free: size}
}

// Add appends n to the page and returns its offset within the page.
func (p *Page) Add(n node.Node) (int, error) {
	cells, err := node.Encode(n)
	if err != nil {
		return 0, fmt.Errorf("page: %w", err)
	}
	if len(cells) > p.free {
		return 0, fmt.Errorf("page: %s needs %d cells, %d free: %w", n.Kind, len(cells), p.free, heapfmt.ErrSpaceExhausted)
	}
	off := p.Used()
	copy(p.cells[off:], cells)
	p.free -= len(cells)
	return off, nil
}

// Cells exposes the page memory. Writes go straight to the page.
func (p *Page) Cells() []node.Cell { return p.cells }

func (p *Page) Cap() int  { return len(p.cells) }
func (p *Page) Free() int { return p.free }
func (p *Page) Used() int { return len(p.cells) - p.free }

// Nodes decodes the page's allocated prefix, stopping at the first empty or
// malformed cell.
func (p *Page) Nodes() ([]node.Node, []int, error) {
	var nodes []node.Node
	var offs []int
	for off := 0; off < len(p.cells) && p.cells[off] != nil; {
		n, err := node.Decode(p.cells, off)
		if err != nil {
			return nodes, offs, err
		}
		nodes = append(nodes, n)
		offs = append(offs, off)
		off += n.Size()
	}
	return nodes, offs, nil
}
