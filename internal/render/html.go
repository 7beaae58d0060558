package render

import (
	"fmt"
	"io"
	"sort"

	"semispace/internal/node"
	"semispace/internal/output"
)

// WriteReportHTML writes a small HTML page summarizing one collector run.
// dotFile, when not empty, is linked as the graph of surviving objects.
func WriteReportHTML(w io.Writer, r *output.CycleReport, title, dotFile string) {
	t := NASA
	fmt.Fprintf(w, `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body { font-family: "Helvetica Neue", Helvetica, Arial, sans-serif; font-size: 14px; color: %s; background: %s; margin: 2em; max-width: 900px; }
h1 { font-size: 18px; font-weight: 600; margin-bottom: 0.5em; }
h2 { font-size: 14px; font-weight: 600; margin-top: 1.5em; border-bottom: 1px solid #ddd; padding-bottom: 4px; }
table { border-collapse: collapse; margin: 0.5em 0; }
th, td { text-align: left; padding: 3px 12px 3px 0; font-size: 13px; }
th { font-weight: 600; }
td.num { text-align: right; font-variant-numeric: tabular-nums; }
a { color: %s; }
.mbar { height: 6px; border-radius: 2px; display: inline-block; vertical-align: middle; background: %s; }
.ep { font-family: "Courier New", monospace; font-size: 12px; }
.gone { color: %s; }
</style>
</head>
<body>
`, htmlEscape(title), t.TextColor, t.Background, t.EdgeRoot, t.EdgeRoot, t.Cursor)

	fmt.Fprintf(w, "<h1>%s</h1>\n", htmlEscape(title))

	fmt.Fprintln(w, "<h2>Summary</h2>")
	fmt.Fprintln(w, "<table>")
	row := func(k string, v any) {
		fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%s</td></tr>\n", k, htmlEscape(fmt.Sprint(v)))
	}
	row("Collector", r.Collector)
	row("Heap", r.Example)
	row("Mode", r.Mode)
	if r.PageSize > 0 {
		row("Page size", r.PageSize)
		row("Next free page", r.NextFree)
		row("Promotion order", r.Order)
	} else {
		row("Next free cell", r.NextFree)
	}
	row("Cycles", r.Cycles)
	if r.Live != nil {
		row("Live objects", len(r.Live.Objects))
	}
	row("Diagnostics", len(r.Diags))
	fmt.Fprintln(w, "</table>")

	fmt.Fprintln(w, "<h2>Last Cycle</h2>")
	fmt.Fprintf(w, "<p class=\"ep\">%s</p>\n", htmlEscape(fmt.Sprintf("%+v", r.Stats)))

	if dotFile != "" {
		fmt.Fprintln(w, "<h2>Graphs</h2>")
		fmt.Fprintf(w, "<p><a href=\"%s\">Surviving objects (DOT)</a></p>\n", htmlEscape(dotFile))
	}

	// Live objects by kind.
	if r.Live != nil && len(r.Live.Objects) > 0 {
		counts := make(map[node.Kind]int)
		for _, o := range r.Live.Objects {
			counts[o.Kind]++
		}
		kinds := make([]node.Kind, 0, len(counts))
		for k := range counts {
			kinds = append(kinds, k)
		}
		sort.Slice(kinds, func(i, j int) bool {
			if counts[kinds[i]] != counts[kinds[j]] {
				return counts[kinds[i]] > counts[kinds[j]]
			}
			return kinds[i] < kinds[j]
		})
		maxCount := counts[kinds[0]]
		fmt.Fprintln(w, "<h2>Live Objects by Kind</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Kind</th><th>Count</th><th></th></tr>")
		for _, k := range kinds {
			barW := max(counts[k]*120/maxCount, 2)
			fmt.Fprintf(w, "<tr><td>%s</td><td class=\"num\">%d</td><td><span class=\"mbar\" style=\"width:%dpx\"></span></td></tr>\n",
				k, counts[k], barW)
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "<h2>Roots</h2>")
	fmt.Fprintln(w, "<table>")
	fmt.Fprintln(w, "<tr><th>Slot</th><th>Before</th><th>After</th></tr>")
	for i := range r.RootsBefore {
		after := node.NoRoot
		if i < len(r.RootsAfter) {
			after = r.RootsAfter[i]
		}
		fmt.Fprintf(w, "<tr><td>%d</td><td class=\"num\">%s</td><td class=\"num\">%s</td></tr>\n",
			i, rootText(r.RootsBefore[i]), rootText(after))
	}
	fmt.Fprintln(w, "</table>")

	if len(r.Diags) > 0 {
		fmt.Fprintln(w, "<h2>Diagnostics</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Address</th><th>Kind</th><th>Message</th></tr>")
		for _, d := range r.Diags {
			fmt.Fprintf(w, "<tr><td class=\"num\">%d</td><td class=\"gone\">%s</td><td>%s</td></tr>\n",
				d.Addr, d.Kind, htmlEscape(d.Msg))
		}
		fmt.Fprintln(w, "</table>")
	}

	if len(r.Nodes) > 0 {
		fmt.Fprintln(w, "<h2>Heap After Collection</h2>")
		fmt.Fprintln(w, "<table>")
		fmt.Fprintln(w, "<tr><th>Address</th><th>Node</th></tr>")
		limit := min(len(r.Nodes), 200)
		for _, n := range r.Nodes[:limit] {
			fmt.Fprintf(w, "<tr><td class=\"num\">%d</td><td class=\"ep\">%s</td></tr>\n", n.Addr, htmlEscape(n.Text))
		}
		if len(r.Nodes) > limit {
			fmt.Fprintf(w, "<tr><td></td><td>... and %d more</td></tr>\n", len(r.Nodes)-limit)
		}
		fmt.Fprintln(w, "</table>")
	}

	fmt.Fprintln(w, "</body></html>")
}
