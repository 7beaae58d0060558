package render

import (
	"fmt"
	"strings"

	"github.com/zboralski/lattice"
	lrender "github.com/zboralski/lattice/render"

	"semispace/internal/verify"
)

// HeapGraph converts the strong references of a snapshot into a lattice
// graph. Root slots become nodes named "root[i]".
func HeapGraph(s *verify.Snapshot) *lattice.Graph {
	g := &lattice.Graph{}
	names := make([]string, len(s.Objects))
	for i, o := range s.Objects {
		names[i] = nodeLabel(o.Addr, o.Kind)
		g.Nodes = append(g.Nodes, names[i])
	}
	for i, r := range s.Roots {
		if r < 0 {
			continue
		}
		root := fmt.Sprintf("root[%d]", i)
		g.Nodes = append(g.Nodes, root)
		g.Edges = append(g.Edges, lattice.Edge{Caller: root, Callee: names[r]})
	}
	for i, o := range s.Objects {
		for _, e := range o.Edges {
			if e < 0 {
				continue
			}
			g.Edges = append(g.Edges, lattice.Edge{Caller: names[i], Callee: names[e]})
		}
	}
	g.Dedup()
	return g
}

// DOT renders the snapshot's reference graph with lattice's default style.
func DOT(s *verify.Snapshot, title string) string {
	return lrender.DOT(HeapGraph(s), title)
}

// ThemedDOT renders the snapshot as a record-per-node graph: scalar fields in
// the label, strong edges solid, weak edges dashed, roots as boxes on the
// left.
func ThemedDOT(s *verify.Snapshot, title string, t Theme) string {
	var b strings.Builder
	b.WriteString("digraph heap {\n")
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  splines=true;\n")
	b.WriteString("  nodesep=0.3;\n")
	b.WriteString("  ranksep=0.5;\n")
	fmt.Fprintf(&b, "  bgcolor=%q;\n", t.Background)
	fmt.Fprintf(&b, "  node [shape=rect, style=filled, fillcolor=%q, color=%q, penwidth=0.5, fontname=\"Menlo,Consolas,monospace\", fontsize=9, fontcolor=%q, height=0.3, margin=\"0.12,0.06\"];\n",
		t.NodeFill, t.NodeBorder, t.TextColor)
	fmt.Fprintf(&b, "  edge [penwidth=0.5, arrowsize=0.5, arrowhead=vee, color=%q];\n", t.EdgeStrong)
	if title != "" {
		fmt.Fprintf(&b, "  labelloc=t;\n  labeljust=l;\n")
		fmt.Fprintf(&b, "  label=<<font face=\"Helvetica Neue,Helvetica\" point-size=\"8\" color=\"%s\">%s</font>>;\n",
			t.TextColor, htmlEscape(title))
	}
	b.WriteByte('\n')

	b.WriteString("  subgraph cluster_roots {\n")
	fmt.Fprintf(&b, "    label=<<font point-size=\"8\" color=\"%s\">roots</font>>;\n", t.ClusterLabel)
	fmt.Fprintf(&b, "    style=dotted; color=%q; penwidth=0.3;\n", t.ClusterBorder)
	for i, r := range s.Roots {
		if r < 0 {
			fmt.Fprintf(&b, "    r_%d [label=\"[%d] -\", fillcolor=%q, fontcolor=%q];\n", i, i, t.RootFill, t.EmptyText)
			continue
		}
		fmt.Fprintf(&b, "    r_%d [label=\"[%d]\", fillcolor=%q];\n", i, i, t.RootFill)
	}
	b.WriteString("  }\n\n")

	for _, o := range s.Objects {
		label := o.Kind.String()
		if len(o.Values) > 0 {
			label += " " + strings.Join(o.Values, " ")
		}
		fmt.Fprintf(&b, "  %s [label=<<b>%d</b> %s>];\n", dotID(o.Addr), o.Addr, htmlEscape(truncLabel(label, 40)))
	}
	b.WriteByte('\n')

	for i, r := range s.Roots {
		if r >= 0 {
			fmt.Fprintf(&b, "  r_%d -> %s [color=%q];\n", i, dotID(s.Objects[r].Addr), t.EdgeRoot)
		}
	}
	for _, o := range s.Objects {
		for fi, e := range o.Edges {
			if e < 0 {
				continue
			}
			fmt.Fprintf(&b, "  %s -> %s [taillabel=\"%d\", labelfontsize=7];\n", dotID(o.Addr), dotID(s.Objects[e].Addr), fi)
		}
		if o.Weak >= 0 {
			fmt.Fprintf(&b, "  %s -> %s [style=dashed, color=%q];\n", dotID(o.Addr), dotID(s.Objects[o.Weak].Addr), t.EdgeWeak)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
