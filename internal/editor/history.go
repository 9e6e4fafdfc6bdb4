package editor

import "draftpad/pkg/draftdoc"

const DefaultHistoryLimit = 200

type snapshot struct {
	doc   *draftdoc.Document
	block int
	caret int
}

// History keeps whole-document snapshots for undo and redo.
type History struct {
	undo  []snapshot
	redo  []snapshot
	limit int
}

func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{limit: limit}
}

// Record saves s before a mutation. Any redo steps are discarded.
func (h *History) Record(s *State) {
	h.undo = pushSnapshot(h.undo, capture(s), h.limit)
	h.redo = h.redo[:0]
}

func (h *History) Undo(s *State) (*State, bool) {
	if len(h.undo) == 0 {
		return s, false
	}
	last := h.undo[len(h.undo)-1]
	h.undo = h.undo[:len(h.undo)-1]
	h.redo = pushSnapshot(h.redo, capture(s), h.limit)
	return restore(last), true
}

func (h *History) Redo(s *State) (*State, bool) {
	if len(h.redo) == 0 {
		return s, false
	}
	last := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.undo = pushSnapshot(h.undo, capture(s), h.limit)
	return restore(last), true
}

func (h *History) Reset() {
	h.undo = h.undo[:0]
	h.redo = h.redo[:0]
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

func capture(s *State) snapshot {
	return snapshot{doc: draftdoc.CloneDocument(s.Doc), block: s.CurrentBlock, caret: s.CaretByte}
}

func restore(snap snapshot) *State {
	st := NewState(snap.doc)
	st.SetCaret(snap.block, snap.caret)
	return st
}

func pushSnapshot(stack []snapshot, snap snapshot, limit int) []snapshot {
	stack = append(stack, snap)
	if len(stack) > limit {
		stack = stack[len(stack)-limit:]
	}
	return stack
}
