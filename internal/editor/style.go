package editor

import "draftpad/pkg/draftdoc"

const (
	MinFontSize = 8
	MaxFontSize = 96
)

// ToggleBold flips bold. With a selection, every selected run takes the
// opposite of the first selected character's weight; without one, the change
// applies to the next typed text.
func (s *State) ToggleBold() {
	s.toggleTrait(
		func(a draftdoc.StyleAttr) bool { return a.Bold },
		func(a *draftdoc.StyleAttr, v bool) { a.Bold = v },
	)
}

func (s *State) ToggleItalic() {
	s.toggleTrait(
		func(a draftdoc.StyleAttr) bool { return a.Italic },
		func(a *draftdoc.StyleAttr, v bool) { a.Italic = v },
	)
}

func (s *State) ToggleUnderline() {
	s.toggleTrait(
		func(a draftdoc.StyleAttr) bool { return a.Underline },
		func(a *draftdoc.StyleAttr, v bool) { a.Underline = v },
	)
}

func (s *State) toggleTrait(get func(draftdoc.StyleAttr) bool, set func(*draftdoc.StyleAttr, bool)) {
	s.Normalize()
	if start, end, ok := s.SelectionRange(); ok {
		first, found := s.firstSelectedAttr()
		if !found {
			return
		}
		want := !get(first)
		s.mutateSelection(start, end, func(a *draftdoc.StyleAttr) { set(a, want) })
		return
	}
	attr := s.insertionAttr()
	set(&attr, !get(attr))
	s.typing = &attr
}

// AdjustFontSize changes the size of the selection, or of the next typed text,
// by delta points within [MinFontSize, MaxFontSize].
func (s *State) AdjustFontSize(delta int) {
	clamp := func(a *draftdoc.StyleAttr) {
		a.FontSizePt = uint16(min(max(int(a.FontSizePt)+delta, MinFontSize), MaxFontSize))
	}
	s.Normalize()
	if start, end, ok := s.SelectionRange(); ok {
		s.mutateSelection(start, end, clamp)
		return
	}
	attr := s.insertionAttr()
	clamp(&attr)
	s.typing = &attr
}

// SetAlignment aligns every paragraph touched by the selection, or the
// paragraph holding the caret.
func (s *State) SetAlignment(align draftdoc.Align) {
	if !draftdoc.IsValidAlign(align) {
		align = draftdoc.AlignLeft
	}
	s.Normalize()
	from, to := s.CurrentBlock, s.CurrentBlock
	if start, end, ok := s.SelectionRange(); ok {
		from, to = start.Block, end.Block
	}
	for i := from; i <= to; i++ {
		tb := s.textBlock(i)
		if tb == nil || s.IsMedia(i) {
			continue
		}
		for r := range tb.Runs {
			tb.Runs[r].Attr.Align = align
		}
		tb.Runs = coverRuns(len(tb.UTF8), tb.Runs)
	}
	if s.typing != nil {
		s.typing.Align = align
	}
}

// CurrentStyleAttr is the style shown as active: the first selected
// character's, or the one the next typed text will get.
func (s *State) CurrentStyleAttr() draftdoc.StyleAttr {
	s.Normalize()
	if s.HasSelection() {
		if attr, ok := s.firstSelectedAttr(); ok {
			return attr
		}
	}
	return s.insertionAttr()
}

// ParagraphAlign returns the alignment of block index.
func (s *State) ParagraphAlign(index int) draftdoc.Align {
	if s.IsMedia(index) {
		return s.Doc.Blocks[index].Image.Align
	}
	return attrAt(s.textBlock(index), 0).Align
}

func (s *State) BlockRuns(index int) []draftdoc.StyleRun {
	s.Normalize()
	tb := s.textBlock(index)
	if tb == nil {
		return nil
	}
	return append([]draftdoc.StyleRun(nil), coverRuns(len(tb.UTF8), tb.Runs)...)
}

func (s *State) insertionAttr() draftdoc.StyleAttr {
	if s.typing != nil {
		return *s.typing
	}
	if s.IsMedia(s.CurrentBlock) {
		attr := draftdoc.DefaultStyleAttr()
		for _, i := range []int{s.CurrentBlock - 1, s.CurrentBlock + 1} {
			if tb := s.textBlock(i); tb != nil && !s.IsMedia(i) {
				attr = attrAt(tb, 0)
				break
			}
		}
		return attr
	}
	return attrBefore(s.textBlock(s.CurrentBlock), s.CaretByte)
}

// firstSelectedAttr returns the style of the first selected character.
func (s *State) firstSelectedAttr() (draftdoc.StyleAttr, bool) {
	start, end, ok := s.SelectionRange()
	if !ok {
		return draftdoc.StyleAttr{}, false
	}
	for i := start.Block; i <= end.Block; i++ {
		if s.IsMedia(i) {
			continue
		}
		from, to := s.segment(i, start, end)
		if from < to {
			return attrAt(s.textBlock(i), from), true
		}
	}
	return draftdoc.StyleAttr{}, false
}

func (s *State) mutateSelection(start, end Position, mut func(*draftdoc.StyleAttr)) {
	for i := start.Block; i <= end.Block; i++ {
		if s.IsMedia(i) {
			continue
		}
		from, to := s.segment(i, start, end)
		mutateRange(s.textBlock(i), from, to, mut)
	}
}

// segment is the byte range of text block i covered by [start,end].
func (s *State) segment(i int, start, end Position) (int, int) {
	from, to := 0, s.BlockLen(i)
	if i == start.Block {
		from = start.Byte
	}
	if i == end.Block {
		to = end.Byte
	}
	return from, to
}
