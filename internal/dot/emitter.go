// Package dot writes reconstructed call trees as Graphviz digraphs.
package dot

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"calltree2dot/internal/calltree"
	"calltree2dot/internal/policy"
)

const header = `digraph callTree {
  concentrate=false
  node [fontname=Tahoma fontsize=8 style=filled fillcolor=white]
  overlap=false
  rankdir="TB"
  splines=true

`

const footer = "}\n"

// Fill colors, from hottest to coolest.
const (
	hotFill      = `fontcolor=white fillcolor="#FF1744"`
	warmFill     = `fillcolor="#FFEB3B"`
	coolFill     = `fillcolor="#42A5F5"`
	defaultFill  = `fillcolor=white`
	sampledFrame = `color="#00E676" penwidth=2`
)

var labelEscaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"<", "&lt;",
	">", "&gt;",
)

type edge struct {
	from, to int
}

// Emitter writes each node and each directed edge at most once per run.
type Emitter struct {
	w      *bufio.Writer
	policy *policy.Policy
	nodes  map[int]struct{}
	edges  map[edge]struct{}
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer, p *policy.Policy) *Emitter {
	return &Emitter{
		w:      bufio.NewWriter(w),
		policy: p,
		nodes:  make(map[int]struct{}),
		edges:  make(map[edge]struct{}),
	}
}

// Header writes the graph preamble followed by the root node.
func (e *Emitter) Header(root *calltree.Entry) {
	e.w.WriteString(header)
	e.Node(root)
}

// Footer closes the graph and flushes buffered output.
// It returns the first error encountered while writing.
func (e *Emitter) Footer() error {
	e.w.WriteString(footer)
	return e.w.Flush()
}

// Node writes entry as a styled node unless it has already been written.
func (e *Emitter) Node(entry *calltree.Entry) {
	if _, ok := e.nodes[entry.ID]; ok {
		return
	}
	e.nodes[entry.ID] = struct{}{}

	fmt.Fprintf(e.w, "entry%d [label=\"%s\"", entry.ID, Label(entry))
	if style := e.style(entry); style != "" {
		e.w.WriteString(" ")
		e.w.WriteString(style)
	}
	e.w.WriteString("]\n")
}

// Edge writes from -> to unless that ordered pair has already been written.
func (e *Emitter) Edge(from, to *calltree.Entry) {
	key := edge{from: from.ID, to: to.ID}
	if _, ok := e.edges[key]; ok {
		return
	}
	e.edges[key] = struct{}{}
	fmt.Fprintf(e.w, "entry%d -> entry%d\n", from.ID, to.ID)
}

// Nodes returns the number of distinct nodes written.
func (e *Emitter) Nodes() int {
	return len(e.nodes)
}

// Edges returns the number of distinct edges written.
func (e *Emitter) Edges() int {
	return len(e.edges)
}

func (e *Emitter) style(entry *calltree.Entry) string {
	var attrs []string
	switch {
	case !e.policy.IsInteresting(entry):
		attrs = append(attrs, defaultFill)
	case entry.InclusivePercent > 5:
		attrs = append(attrs, hotFill)
	case entry.InclusivePercent > 4:
		attrs = append(attrs, warmFill)
	case entry.InclusivePercent > 1:
		attrs = append(attrs, coolFill)
	}
	if entry.InclusiveCount > 1 {
		attrs = append(attrs, sampledFrame)
	}
	return strings.Join(attrs, " ")
}

// Label renders the multi-line node label for entry, escaped for a quoted dot string.
func Label(entry *calltree.Entry) string {
	lines := []string{
		fmt.Sprintf("level %d", entry.Level),
		"",
		labelEscaper.Replace(calltree.DisplayName(entry.Name)),
		"",
		fmt.Sprintf("inclusive count: %d %s%%", entry.InclusiveCount, formatPercent(entry.InclusivePercent)),
		fmt.Sprintf("exclusive count: %d %s%%", entry.ExclusiveCount, formatPercent(entry.ExclusivePercent)),
	}
	return strings.Join(lines, `\n`)
}

func formatPercent(pct float64) string {
	return strconv.FormatFloat(pct, 'f', -1, 64)
}
