// Package console is an interactive shell over one collector: allocate nodes,
// edit the root stack, and run or step collection cycles.
package console

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/derekparker/trie"
	"github.com/peterh/liner"

	"semispace/internal/bartlett"
	"semispace/internal/cheney"
	"semispace/internal/heapfmt"
	"semispace/internal/heapgen"
	"semispace/internal/node"
	"semispace/internal/render"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("console: quit")

// DefaultStackSize is the number of root slots a session offers.
const DefaultStackSize = 16

type command struct {
	name  string
	usage string
	help  string
	run   func(s *Session, args []string) (string, error)
}

// commands is filled in init: help ranges over it.
var commands []command

func init() {
	commands = []command{
		{"alloc", "alloc <kind> [args...]", "allocate a node in the live space", (*Session).cmdAlloc},
		{"root", "root <addr>", "push an address onto the first free root slot", (*Session).cmdRoot},
		{"unroot", "unroot <slot>", "clear a root slot", (*Session).cmdUnroot},
		{"gc", "gc", "run a full collection cycle", (*Session).cmdGC},
		{"step", "step", "run the next phase of a cycle", (*Session).cmdStep},
		{"dump", "dump", "print the heap, cursors and roots", (*Session).cmdDump},
		{"nodes", "nodes", "list the nodes of the live space", (*Session).cmdNodes},
		{"roots", "roots", "print the root stack", (*Session).cmdRoots},
		{"stats", "stats", "print statistics of the current cycle", (*Session).cmdStats},
		{"diags", "diags", "print diagnostics of the current cycle", (*Session).cmdDiags},
		{"help", "help", "list commands", (*Session).cmdHelp},
		{"quit", "quit", "leave the shell", (*Session).cmdQuit},
	}
}

// Session holds one collector and the command table.
type Session struct {
	flat  *cheney.Collector
	paged *bartlett.Collector
	roots []node.Addr
	name  string
	cmds  *trie.Trie
}

func newSession(name string, roots []node.Addr, stackSize int) *Session {
	stack := make([]node.Addr, max(stackSize, len(roots)))
	for i := range stack {
		stack[i] = node.NoRoot
	}
	copy(stack, roots)

	t := trie.New()
	for _, c := range commands {
		t.Add(c.name, c)
	}
	return &Session{roots: stack, name: name, cmds: t}
}

// NewFlat starts a session over a precise collector.
func NewFlat(h heapgen.Heap, stackSize int, opts heapfmt.Options) (*Session, error) {
	s := newSession(h.Name, h.Roots, stackSize)
	c, err := cheney.New(h.Cells, s.roots, opts)
	if err != nil {
		return nil, err
	}
	s.flat = c
	return s, nil
}

// NewPaged starts a session over a paged collector.
func NewPaged(h heapgen.PagedHeap, stackSize int, opts bartlett.Options) (*Session, error) {
	s := newSession(h.Name, h.Roots, stackSize)
	opts.PageSize = h.PageSize
	c, err := bartlett.New(h.Pages, s.roots, h.Allocated, opts)
	if err != nil {
		return nil, err
	}
	s.paged = c
	return s, nil
}

// Roots returns the session's root stack.
func (s *Session) Roots() []node.Addr { return s.roots }

// Exec runs one command line and returns its output.
func (s *Session) Exec(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}
	cmd, err := s.lookup(fields[0])
	if err != nil {
		return "", err
	}
	return cmd.run(s, fields[1:])
}

// lookup accepts a command name or an unambiguous prefix of one.
func (s *Session) lookup(name string) (command, error) {
	if n, ok := s.cmds.Find(name); ok {
		return n.Meta().(command), nil
	}
	matches := s.cmds.PrefixSearch(name)
	switch len(matches) {
	case 0:
		return command{}, fmt.Errorf("unknown command %q (try help)", name)
	case 1:
		n, _ := s.cmds.Find(matches[0])
		return n.Meta().(command), nil
	}
	sort.Strings(matches)
	return command{}, fmt.Errorf("ambiguous command %q: %s", name, strings.Join(matches, ", "))
}

// Complete returns the command names starting with line.
func (s *Session) Complete(line string) []string {
	if strings.ContainsRune(line, ' ') {
		return nil
	}
	out := s.cmds.PrefixSearch(line)
	sort.Strings(out)
	return out
}

// Run reads commands from the terminal until quit or end of input. History is
// kept in historyPath when it is not empty.
func (s *Session) Run(w io.Writer, historyPath string) error {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)
	ln.SetCompleter(s.Complete)

	if historyPath != "" {
		if f, err := os.Open(historyPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
	}

	fmt.Fprintf(w, "%s: %s collector, type help for commands\n", s.name, s.kind())
	for {
		line, err := ln.Prompt("gc> ")
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(w)
			break
		}
		if err != nil {
			return fmt.Errorf("console: %w", err)
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		ln.AppendHistory(line)

		out, err := s.Exec(line)
		if errors.Is(err, ErrQuit) {
			break
		}
		if err != nil {
			fmt.Fprintf(w, "error: %v\n", err)
			continue
		}
		fmt.Fprint(w, out)
	}

	if historyPath != "" {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}
	return nil
}

func (s *Session) kind() string {
	if s.paged != nil {
		return "paged"
	}
	return "precise"
}

func (s *Session) cmdAlloc(args []string) (string, error) {
	n, err := ParseNode(args)
	if err != nil {
		return "", err
	}
	var at node.Addr
	if s.paged != nil {
		at, err = s.paged.Allocate(n)
	} else {
		at, err = s.flat.Allocate(n)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s at %d\n", n, at), nil
}

func (s *Session) cmdRoot(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: root <addr>")
	}
	a, err := strconv.Atoi(args[0])
	if err != nil {
		return "", fmt.Errorf("root: %w", err)
	}
	for i, r := range s.roots {
		if r == node.NoRoot {
			s.roots[i] = node.Addr(a)
			return fmt.Sprintf("root[%d] = %d\n", i, a), nil
		}
	}
	return "", fmt.Errorf("root: all %d slots in use", len(s.roots))
}

func (s *Session) cmdUnroot(args []string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: unroot <slot>")
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 0 || i >= len(s.roots) {
		return "", fmt.Errorf("unroot: slot %q out of range 0..%d", args[0], len(s.roots)-1)
	}
	s.roots[i] = node.NoRoot
	return fmt.Sprintf("root[%d] cleared\n", i), nil
}

func (s *Session) cmdGC(args []string) (string, error) {
	var err error
	if s.paged != nil {
		err = s.paged.Collect()
	} else {
		err = s.flat.Collect()
	}
	if err != nil {
		return "", err
	}
	return s.cmdStats(nil)
}

// cmdStep advances by one phase. A precise collector that has flipped clears
// the stale semispace next.
func (s *Session) cmdStep(args []string) (string, error) {
	var phase string
	var err error
	if s.paged != nil {
		c := s.paged
		switch phase = c.Phase(); phase {
		case "idle":
			err = c.EvacuateRoots()
		case "roots-evacuated":
			err = c.Scavenge()
		case "scavenged":
			err = c.CopyToNewSpace()
		case "compacted":
			err = c.ClearOldMemory()
		default:
			err = fmt.Errorf("step: collector is %s", phase)
		}
	} else {
		c := s.flat
		switch phase = c.Phase(); phase {
		case "idle":
			err = c.EvacuateRoots()
		case "roots-evacuated":
			err = c.Scavenge()
		case "scavenged":
			err = c.Flip()
		case "flipped":
			err = c.ClearOldMemory()
		default:
			err = fmt.Errorf("step: collector is %s", phase)
		}
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s -> %s\n", phase, s.phase()), nil
}

func (s *Session) phase() string {
	if s.paged != nil {
		return s.paged.Phase()
	}
	return s.flat.Phase()
}

func (s *Session) cmdDump(args []string) (string, error) {
	var b bytes.Buffer
	if s.paged != nil {
		render.DumpPages(&b, s.paged)
	} else {
		render.DumpFlat(&b, s.flat)
	}
	return b.String(), nil
}

func (s *Session) cmdNodes(args []string) (string, error) {
	var b bytes.Buffer
	if s.paged != nil {
		geom := s.paged.Geometry()
		for p, pg := range s.paged.Heap()[:s.paged.NextFreePageIndex()] {
			nodes, offs, err := pg.Nodes()
			for i, n := range nodes {
				fmt.Fprintf(&b, "%5d  %s\n", geom.Addr(p, offs[i]), n)
			}
			if err != nil {
				fmt.Fprintf(&b, "page %d: %v\n", p, err)
			}
		}
	} else {
		from, end := s.flat.FromSpace()
		render.DumpNodes(&b, s.flat.Heap(), from, end)
	}
	return b.String(), nil
}

func (s *Session) cmdRoots(args []string) (string, error) {
	var b bytes.Buffer
	render.DumpRoots(&b, s.roots)
	return b.String(), nil
}

func (s *Session) cmdStats(args []string) (string, error) {
	if s.paged != nil {
		st := s.paged.Stats()
		return fmt.Sprintf("cycles %d, pages promoted %d, roots %d accepted %d rejected, weak %d rewritten %d nulled, next free page %d\n",
			s.paged.Cycles(), st.PagesPromoted, st.RootsAccepted, st.RootsRejected,
			st.WeakRewritten, st.WeakNulled, s.paged.NextFreePageIndex()), nil
	}
	st := s.flat.Stats()
	return fmt.Sprintf("cycles %d, copied %d nodes (%d cells), weak %d rewritten %d nulled, next free %d\n",
		s.flat.Cycles(), st.NodesCopied, st.CellsCopied, st.WeakRewritten, st.WeakNulled, s.flat.NextFreeAddress()), nil
}

func (s *Session) cmdDiags(args []string) (string, error) {
	var diags []heapfmt.Diag
	if s.paged != nil {
		diags = s.paged.Diags()
	} else {
		diags = s.flat.Diags()
	}
	if len(diags) == 0 {
		return "no diagnostics\n", nil
	}
	var b strings.Builder
	for _, d := range diags {
		fmt.Fprintln(&b, d)
	}
	return b.String(), nil
}

func (s *Session) cmdHelp(args []string) (string, error) {
	var b strings.Builder
	for _, c := range commands {
		fmt.Fprintf(&b, "  %-24s %s\n", c.usage, c.help)
	}
	fmt.Fprintf(&b, "  kinds: %s\n", kindList())
	return b.String(), nil
}

func (s *Session) cmdQuit(args []string) (string, error) {
	return "", ErrQuit
}
