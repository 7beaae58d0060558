package render

import (
	"fmt"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"semispace/internal/bartlett"
	"semispace/internal/cheney"
	"semispace/internal/node"
)

// Strip is one labeled run of cells in a frame: a semispace or a page.
type Strip struct {
	Label string
	Start int // address of the first cell
	Cells []node.Cell
	New   bool           // shade as surviving space
	Marks map[int]string // address -> marker text
}

// View is everything a frame shows.
type View struct {
	Title  string
	Strips []Strip
	Roots  []node.Addr
}

const (
	cellW    = 96
	cellH    = 36
	margin   = 24
	titleH   = 48
	labelH   = 26
	markH    = 18
	stripGap = 12
)

var (
	fontOnce sync.Once
	monoFont *truetype.Font
	fontErr  error
	faces    = make(map[float64]font.Face)
	facesMu  sync.Mutex
)

func setFontFace(c *gg.Context, size float64) error {
	fontOnce.Do(func() {
		monoFont, fontErr = truetype.Parse(gomono.TTF)
	})
	if fontErr != nil {
		return fmt.Errorf("render: parse font: %w", fontErr)
	}
	facesMu.Lock()
	defer facesMu.Unlock()
	f, ok := faces[size]
	if !ok {
		f = truetype.NewFace(monoFont, &truetype.Options{Size: size})
		faces[size] = f
	}
	c.SetFontFace(f)
	return nil
}

// Frame draws v as rows of cells, one block per strip, with the roots listed
// along the bottom.
func Frame(v View, t Theme) (*gg.Context, error) {
	height := margin*2 + titleH + labelH + cellH
	for _, s := range v.Strips {
		rows := (len(s.Cells) + cellsPerRow - 1) / cellsPerRow
		height += labelH + rows*(cellH+markH) + stripGap
	}
	width := margin*2 + cellsPerRow*cellW
	c := gg.NewContext(width, height)

	c.SetHexColor(t.Background)
	c.DrawRectangle(0, 0, float64(width), float64(height))
	c.Fill()

	if err := setFontFace(c, 20); err != nil {
		return nil, err
	}
	c.SetHexColor(t.TextColor)
	c.DrawStringAnchored(v.Title, margin, margin+titleH/2, 0, 0.5)

	y := float64(margin + titleH)
	for _, s := range v.Strips {
		if err := setFontFace(c, 14); err != nil {
			return nil, err
		}
		c.SetHexColor(t.ClusterLabel)
		c.DrawStringAnchored(s.Label, margin, y+labelH/2, 0, 0.5)
		y += labelH
		for i, cell := range s.Cells {
			col, row := i%cellsPerRow, i/cellsPerRow
			x := float64(margin + col*cellW)
			cy := y + float64(row*(cellH+markH))
			drawCell(c, t, s, cell, x, cy)
			if m, ok := s.Marks[s.Start+i]; ok {
				c.SetHexColor(t.Cursor)
				c.DrawStringAnchored("^ "+m, x+4, cy+cellH+markH/2, 0, 0.5)
			}
		}
		rows := (len(s.Cells) + cellsPerRow - 1) / cellsPerRow
		y += float64(rows*(cellH+markH) + stripGap)
	}

	if err := setFontFace(c, 14); err != nil {
		return nil, err
	}
	c.SetHexColor(t.EdgeRoot)
	c.DrawStringAnchored(rootsLine(v.Roots), margin, y+labelH/2, 0, 0.5)
	return c, nil
}

func drawCell(c *gg.Context, t Theme, s Strip, cell node.Cell, x, y float64) {
	fill := t.NodeFill
	switch cell.(type) {
	case node.Header:
		fill = t.HeaderFill
	case node.Forward:
		fill = t.ForwardFill
	case nil:
		if s.New {
			fill = t.NewSpace
		}
	}
	c.SetHexColor(fill)
	c.DrawRectangle(x, y, cellW, cellH)
	c.Fill()
	c.SetHexColor(t.NodeBorder)
	c.SetLineWidth(1)
	c.DrawRectangle(x, y, cellW, cellH)
	c.Stroke()

	if cell == nil {
		c.SetHexColor(t.EmptyText)
	} else {
		c.SetHexColor(t.TextColor)
	}
	c.DrawStringAnchored(truncLabel(node.FormatCell(cell), 10), x+cellW/2, y+cellH/2, 0.5, 0.5)
}

func rootsLine(roots []node.Addr) string {
	s := "roots:"
	for _, r := range roots {
		s += " " + rootText(r)
	}
	return s
}

// WritePNG draws v and saves it to path.
func WritePNG(path string, v View, t Theme) error {
	c, err := Frame(v, t)
	if err != nil {
		return err
	}
	if err := c.SavePNG(path); err != nil {
		return fmt.Errorf("render: save %s: %w", path, err)
	}
	return nil
}

// FlatView captures a precise collector's semispaces and cursors.
func FlatView(c *cheney.Collector, title string) View {
	heap := c.Heap()
	from, fromEnd := c.FromSpace()
	to, toEnd := c.ToSpace()
	scan, alloc := c.Cursors()
	toMarks := map[int]string{scan: "scan"}
	if alloc == scan {
		toMarks[scan] = "scan/alloc"
	} else {
		toMarks[alloc] = "alloc"
	}
	return View{
		Title: fmt.Sprintf("%s: cycle %d, %s", title, c.Cycles(), c.Phase()),
		Strips: []Strip{
			{Label: fmt.Sprintf("from-space [%d,%d)", from, fromEnd), Start: from, Cells: heap[from:fromEnd],
				Marks: map[int]string{int(c.NextFreeAddress()): "free"}},
			{Label: fmt.Sprintf("to-space [%d,%d)", to, toEnd), Start: to, Cells: heap[to:toEnd], New: c.InCycle(), Marks: toMarks},
		},
		Roots: c.Roots(),
	}
}

// PagedView captures a paged collector's pages and space flags. Pages past
// the allocated prefix that were not promoted are left out.
func PagedView(c *bartlett.Collector, title string) View {
	v := View{
		Title: fmt.Sprintf("%s: cycle %d, %s", title, c.Cycles(), c.Phase()),
		Roots: c.Roots(),
	}
	for p, pg := range c.Heap() {
		isNew := c.Space(p) == bartlett.SpaceNew
		if p >= c.NextFreePageIndex() && !isNew && pg.Used() == 0 {
			continue
		}
		v.Strips = append(v.Strips, Strip{
			Label: fmt.Sprintf("page %d (%s)", p, c.Space(p)),
			Start: p * c.PageSize(),
			Cells: pg.Cells(),
			New:   isNew,
		})
	}
	return v
}
