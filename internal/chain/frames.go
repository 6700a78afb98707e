package chain

import "calltree2dot/internal/calltree"

// FrameTable is the reconstructed call stack: the most recent entry seen at each depth.
// Slot 0 holds the synthetic root at level -1.
type FrameTable struct {
	frames []*calltree.Entry
}

// NewFrameTable creates a table holding only root.
func NewFrameTable(root *calltree.Entry) *FrameTable {
	return &FrameTable{frames: []*calltree.Entry{root}}
}

func slot(level int) int {
	return level + 1
}

// Set records e at its level. Deeper frames belong to a finished call and are dropped.
func (t *FrameTable) Set(e *calltree.Entry) {
	idx := slot(e.Level)
	for len(t.frames) <= idx {
		t.frames = append(t.frames, nil)
	}
	t.frames[idx] = e
	clear(t.frames[idx+1:])
	t.frames = t.frames[:idx+1]
}

// At returns the entry at level, or nil if no frame is recorded there.
func (t *FrameTable) At(level int) *calltree.Entry {
	idx := slot(level)
	if idx < 0 || idx >= len(t.frames) {
		return nil
	}
	return t.frames[idx]
}

// Ancestor returns the nearest recorded entry at or above level in the stack,
// i.e. at level or the closest shallower one. It falls back to the root.
func (t *FrameTable) Ancestor(level int) *calltree.Entry {
	idx := min(slot(level), len(t.frames)-1)
	for ; idx > 0; idx-- {
		if t.frames[idx] != nil {
			return t.frames[idx]
		}
	}
	return t.frames[0]
}

// Depth returns the deepest recorded level.
func (t *FrameTable) Depth() int {
	return len(t.frames) - 2
}
