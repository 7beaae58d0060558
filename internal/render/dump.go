package render

import (
	"fmt"
	"io"
	"strings"

	"semispace/internal/bartlett"
	"semispace/internal/cheney"
	"semispace/internal/node"
)

// cellsPerRow is the row width of text dumps and PNG strips.
const cellsPerRow = 8

// DumpCells writes cells[start:end] as rows of cellsPerRow, each row prefixed
// with the address of its first cell. marks annotates addresses (cursor
// names, for instance).
func DumpCells(w io.Writer, cells []node.Cell, start, end int, marks map[int]string) {
	for row := start; row < end; row += cellsPerRow {
		fmt.Fprintf(w, "%5d |", row)
		var notes []string
		for a := row; a < min(row+cellsPerRow, end); a++ {
			fmt.Fprintf(w, " %-10s", truncLabel(node.FormatCell(cells[a]), 10))
			if m, ok := marks[a]; ok {
				notes = append(notes, fmt.Sprintf("%s=%d", m, a))
			}
		}
		if len(notes) > 0 {
			fmt.Fprintf(w, " <- %s", strings.Join(notes, " "))
		}
		fmt.Fprintln(w)
	}
}

// DumpNodes writes one line per node in cells[start:end], stopping at the
// first empty cell. Forwarding cells are listed with their target and the
// dump resumes after the one-cell forward.
func DumpNodes(w io.Writer, cells []node.Cell, start, end int) {
	for at := start; at < end && cells[at] != nil; {
		if fwd, ok := cells[at].(node.Forward); ok {
			fmt.Fprintf(w, "%5d  FWD -> %d\n", at, fwd.To)
			at++
			continue
		}
		n, err := node.Decode(cells[:end], at)
		if err != nil {
			fmt.Fprintf(w, "%5d  ?? %v\n", at, err)
			return
		}
		fmt.Fprintf(w, "%5d  %s\n", at, n)
		at += n.Size()
	}
}

// DumpFlat writes the state of a precise collector: both semispaces, the
// cursors and the roots.
func DumpFlat(w io.Writer, c *cheney.Collector) {
	from, fromEnd := c.FromSpace()
	to, toEnd := c.ToSpace()
	scan, alloc := c.Cursors()
	fmt.Fprintf(w, "cycle %d, phase %s, next free %d\n", c.Cycles(), c.Phase(), c.NextFreeAddress())
	fmt.Fprintf(w, "from-space [%d,%d)\n", from, fromEnd)
	DumpCells(w, c.Heap(), from, fromEnd, map[int]string{int(c.NextFreeAddress()): "free"})
	fmt.Fprintf(w, "to-space [%d,%d)\n", to, toEnd)
	marks := map[int]string{scan: "scan"}
	if alloc == scan {
		marks[scan] = "scan,alloc"
	} else {
		marks[alloc] = "alloc"
	}
	DumpCells(w, c.Heap(), to, toEnd, marks)
	DumpRoots(w, c.Roots())
}

// DumpPages writes the state of a paged collector: every page with its space
// flag and position in the promotion order, then the roots.
func DumpPages(w io.Writer, c *bartlett.Collector) {
	pages := c.Heap()
	slots := make(map[int]int)
	for i, p := range c.Order() {
		slots[p] = i
	}
	fmt.Fprintf(w, "cycle %d, phase %s, page size %d, next free page %d\n",
		c.Cycles(), c.Phase(), c.PageSize(), c.NextFreePageIndex())
	for p, pg := range pages {
		slot := "-"
		if s, ok := slots[p]; ok && c.InCycle() {
			slot = fmt.Sprint(s)
		}
		fmt.Fprintf(w, "page %d [%s] slot %s used %d/%d\n", p, c.Space(p), slot, pg.Used(), pg.Cap())
		if pg.Used() == 0 {
			continue
		}
		base := p * c.PageSize()
		cells := make([]node.Cell, base+pg.Cap())
		copy(cells[base:], pg.Cells())
		DumpCells(w, cells, base, base+pg.Cap(), nil)
	}
	DumpRoots(w, c.Roots())
}

// DumpRoots writes the root stack on one line.
func DumpRoots(w io.Writer, roots []node.Addr) {
	parts := make([]string, len(roots))
	for i, r := range roots {
		parts[i] = rootText(r)
	}
	fmt.Fprintf(w, "roots [%s]\n", strings.Join(parts, " "))
}
