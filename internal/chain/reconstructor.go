// Package chain rebuilds caller/callee relations from depth-annotated call-tree rows
// and decides which of them end up in the graph.
package chain

import (
	"go.uber.org/zap"

	"calltree2dot/internal/calltree"
	"calltree2dot/internal/policy"
)

const (
	// unwindThreshold is the inclusive sample count a frame must exceed to anchor
	// a chain flushed while the stream is still being read.
	unwindThreshold = 1
	// finalThreshold anchors the last chain of the stream.
	finalThreshold = 0
)

// Sink receives the surviving nodes and edges.
type Sink interface {
	Node(e *calltree.Entry)
	Edge(from, to *calltree.Entry)
}

// Stats summarizes the decisions taken during a run.
type Stats struct {
	Rows           int
	MaxLevel       int
	Chains         int
	RenderedChains int
	AbortedChains  int
	ElidedFrames   int
}

// Reconstructor holds the state of one conversion run.
type Reconstructor struct {
	policy *policy.Policy
	sink   Sink
	logger *zap.Logger

	frames *FrameTable
	last   *calltree.Entry
	stats  Stats
}

// New creates a Reconstructor whose stack starts at root.
func New(root *calltree.Entry, p *policy.Policy, sink Sink, logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		policy: p,
		sink:   sink,
		logger: logger,
		frames: NewFrameTable(root),
		last:   root,
		stats:  Stats{MaxLevel: root.Level},
	}
}

// Consume feeds the next entry of the stream. A decrease in depth means the
// pending chain is complete and gets flushed before e is recorded.
func (r *Reconstructor) Consume(e *calltree.Entry) {
	if e.Level < r.last.Level {
		r.processChain(1, r.last.Level, unwindThreshold)
	}
	r.frames.Set(e)
	r.last = e

	r.stats.Rows++
	r.stats.MaxLevel = max(r.stats.MaxLevel, e.Level)
}

// Finish flushes the chain still pending at end of stream.
func (r *Reconstructor) Finish() {
	r.processChain(1, r.last.Level, finalThreshold)
}

// Stats returns the counters accumulated so far.
func (r *Reconstructor) Stats() Stats {
	return r.stats
}

func (r *Reconstructor) anchors(e *calltree.Entry, threshold int64) bool {
	return e != nil && e.InclusiveCount > threshold && r.policy.IsInteresting(e)
}

// elides reports whether child can be folded into parent.
// The synthetic root stands in for whatever module its first callee lives in.
func (r *Reconstructor) elides(parent, child *calltree.Entry) bool {
	if r.policy.IsInteresting(child) {
		return false
	}
	return parent.IsRoot() || parent.Module == child.Module
}

func (r *Reconstructor) processChain(from, to int, threshold int64) {
	r.stats.Chains++

	for to >= from && !r.anchors(r.frames.At(to), threshold) {
		to--
	}
	if to < from {
		return
	}
	r.stats.RenderedChains++
	r.logger.Debug("Rendering chain", zap.Int("from", from), zap.Int("to", to), zap.Int64("threshold", threshold))

	parent := r.frames.Ancestor(from - 1)
	r.sink.Node(parent)
	for level := from; level <= to; level++ {
		child := r.frames.At(level)
		if child == nil {
			continue
		}
		if r.policy.ShouldIgnore(child) {
			// Everything below an ignored frame is dropped along with it.
			r.stats.AbortedChains++
			r.logger.Debug("Chain aborted at ignored frame",
				zap.Int("level", level),
				zap.String("function", child.Name),
			)
			return
		}
		if r.elides(parent, child) {
			r.stats.ElidedFrames++
			continue
		}
		r.sink.Node(child)
		r.sink.Edge(parent, child)
		parent = child
	}
}
