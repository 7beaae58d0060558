// Package output writes collection results to files.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"semispace/internal/heapfmt"
	"semispace/internal/node"
	"semispace/internal/verify"
)

// NodeEntry is one decoded node of a heap listing.
type NodeEntry struct {
	Addr node.Addr `json:"addr"`
	Kind node.Kind `json:"kind"`
	Text string    `json:"text"`
}

// CycleReport describes one run of a collector over one heap.
type CycleReport struct {
	Collector   string           `json:"collector"`
	Example     string           `json:"example"`
	Mode        string           `json:"mode"`
	PageSize    int              `json:"page_size,omitempty"`
	Cycles      int              `json:"cycles"`
	RootsBefore []node.Addr      `json:"roots_before"`
	RootsAfter  []node.Addr      `json:"roots_after"`
	NextFree    int              `json:"next_free"`
	Order       []int            `json:"order,omitempty"`
	Stats       any              `json:"stats"`
	Diags       []heapfmt.Diag   `json:"diags,omitempty"`
	Live        *verify.Snapshot `json:"live"`
	Nodes       []NodeEntry      `json:"nodes"`
}

// ListNodes decodes the nodes in cells[start:end] up to the first empty
// cell. base is added to every address.
func ListNodes(cells []node.Cell, start, end int, base int) ([]NodeEntry, error) {
	var out []NodeEntry
	for at := start; at < end && cells[at] != nil; {
		n, err := node.Decode(cells[:end], at)
		if err != nil {
			return out, fmt.Errorf("output: list nodes: %w", err)
		}
		out = append(out, NodeEntry{Addr: node.Addr(base + at), Kind: n.Kind, Text: n.String()})
		at += n.Size()
	}
	return out, nil
}

// WriteReportJSON writes r to <dir>/<name>.json.
func WriteReportJSON(dir, name string, r *CycleReport) error {
	return writeJSON(filepath.Join(dir, name+".json"), r)
}

// EncodeReport writes r as indented JSON to w.
func EncodeReport(w io.Writer, r *CycleReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("output: encode report: %w", err)
	}
	return nil
}

// WriteDOT writes a Graphviz document to <dir>/<name>.dot.
func WriteDOT(dir, name, dot string) error {
	return writeFile(filepath.Join(dir, name+".dot"), dot)
}

// WriteText writes a text dump to <dir>/<name>.txt.
func WriteText(dir, name, text string) error {
	return writeFile(filepath.Join(dir, name+".txt"), text)
}

// WriteHTML writes an HTML page to <dir>/<name>.html.
func WriteHTML(dir, name, html string) error {
	return writeFile(filepath.Join(dir, name+".html"), html)
}

func writeFile(path, text string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("output: mkdir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("output: create %s: %w", path, err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("output: encode %s: %w", path, err)
	}
	return nil
}
