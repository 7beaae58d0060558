package node

import (
	"fmt"
	"strconv"
)

// Addr is a cell index into a heap. Pointer fields hold Addrs.
type Addr int

// NoRoot marks an inactive root slot.
const NoRoot Addr = -1

// Cell is one heap word. The variants below form a closed set; a nil Cell is
// an empty cell.
type Cell interface {
	cell()
}

// Header is the first cell of every node.
type Header struct{ Kind Kind }

// Forward replaces the header of an evacuated node and names its new address.
type Forward struct{ To Addr }

type (
	Int   int64
	Float float64
	Char  rune
	Bool  bool
	Ptr   Addr   // pointer field
	Label string // constructor, function, variable or type identifier
	Count int    // pointer count of Constructor and Lambda
)

// Nil is a null pointer, written over weak fields whose referent died.
type Nil struct{}

func (Header) cell()  {}
func (Forward) cell() {}
func (Int) cell()     {}
func (Float) cell()   {}
func (Char) cell()    {}
func (Bool) cell()    {}
func (Ptr) cell()     {}
func (Nil) cell()     {}
func (Label) cell()   {}
func (Count) cell()   {}

// FormatCell renders a single cell for heap dumps.
func FormatCell(c Cell) string {
	switch c := c.(type) {
	case nil:
		return "_"
	case Header:
		return c.Kind.String()
	case Forward:
		return fmt.Sprintf("FWD->%d", c.To)
	case Int:
		return strconv.FormatInt(int64(c), 10)
	case Float:
		return strconv.FormatFloat(float64(c), 'g', -1, 64)
	case Char:
		return strconv.QuoteRune(rune(c))
	case Bool:
		return strconv.FormatBool(bool(c))
	case Ptr:
		return fmt.Sprintf("->%d", Addr(c))
	case Nil:
		return "NULL"
	case Label:
		return strconv.Quote(string(c))
	case Count:
		return fmt.Sprintf("#%d", int(c))
	}
	return "?"
}
