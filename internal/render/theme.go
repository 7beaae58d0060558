package render

// Theme holds colors for heap rendering, both DOT and PNG frames.
type Theme struct {
	Background string
	NodeFill   string
	NodeBorder string
	TextColor  string

	// Edge colors by reference kind.
	EdgeStrong string // strong pointer fields
	EdgeWeak   string // weak fields
	EdgeRoot   string // root slot to node

	// Cell and node accents.
	RootFill    string // root slots
	HeaderFill  string // node header cells
	ForwardFill string // forwarding cells left in from-space
	EmptyText   string // unallocated cells
	NewSpace    string // promoted pages / to-space
	Cursor      string // scan and alloc markers

	// Cluster styling.
	ClusterBorder string // semispace or page cluster border
	ClusterLabel  string // cluster label text
}

// NASA is the NASA/Bauhaus theme: geometric, monochrome, sparse color.
var NASA = Theme{
	Background: "#F5F5F5",
	NodeFill:   "#FFFFFF",
	NodeBorder: "#1A1A1A",
	TextColor:  "#1A1A1A",

	EdgeStrong: "#424242", // dark gray
	EdgeWeak:   "#9E9E9E", // gray
	EdgeRoot:   "#0B3D91", // NASA blue

	RootFill:    "#E3F2FD", // blue 50
	HeaderFill:  "#ECEFF1", // blue-gray 50
	ForwardFill: "#FFE0B2", // orange 100
	EmptyText:   "#BDBDBD",
	NewSpace:    "#E8F5E9", // green 50
	Cursor:      "#FC3D21", // NASA red

	ClusterBorder: "#BDBDBD",
	ClusterLabel:  "#757575",
}
