// Package render draws heaps and collector state as text dumps, Graphviz DOT
// and PNG frames.
package render

import (
	"fmt"
	"strings"

	"semispace/internal/node"
)

// htmlEscape escapes a string for HTML pages and DOT HTML labels.
func htmlEscape(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, "\"", "&quot;")
	return s
}

// dotID creates a safe DOT identifier for the node at addr.
func dotID(addr node.Addr) string {
	if addr < 0 {
		return fmt.Sprintf("n_m%d", -addr)
	}
	return fmt.Sprintf("n_%d", addr)
}

// truncLabel shortens a label to maxLen, appending "..." if truncated.
func truncLabel(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// nodeLabel is the name a reachable node carries in graphs: its address and
// kind.
func nodeLabel(addr node.Addr, kind node.Kind) string {
	return fmt.Sprintf("%d:%s", addr, kind)
}

// rootText prints a root slot, "-" when inactive.
func rootText(a node.Addr) string {
	if a == node.NoRoot {
		return "-"
	}
	return fmt.Sprint(a)
}
