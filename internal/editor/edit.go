package editor

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"draftpad/pkg/draftdoc"
)

var ErrInvalidUTF8 = errors.New("editor: input must be valid UTF-8")

// InsertTextAtCaret replaces the selection, if any, with input. Newlines split
// the paragraph.
func (s *State) InsertTextAtCaret(input string) error {
	if input == "" {
		return nil
	}
	if !utf8.ValidString(input) {
		return ErrInvalidUTF8
	}
	input = strings.ReplaceAll(input, "\r\n", "\n")
	input = strings.ReplaceAll(input, "\r", "\n")

	s.Normalize()
	attr := s.insertionAttr()
	if s.HasSelection() {
		if first, found := s.firstSelectedAttr(); found && s.typing == nil {
			attr = first
		}
		s.DeleteSelection()
	}
	s.ensureTextAtCaret(attr)

	for i, part := range strings.Split(input, "\n") {
		if i > 0 {
			s.splitTextBlock(s.CurrentBlock, s.CaretByte)
			s.CurrentBlock++
			s.CaretByte = 0
		}
		s.replaceRange(s.CurrentBlock, s.CaretByte, s.CaretByte, []byte(part), attr)
		s.CaretByte += len(part)
	}
	s.typing = nil
	s.ClearSelection()
	return nil
}

func (s *State) SplitBlockAtCaret() {
	_ = s.InsertTextAtCaret("\n")
}

func (s *State) Backspace() {
	s.Normalize()
	if s.DeleteSelection() {
		return
	}
	s.typing = nil
	cur := s.CurrentBlock
	switch {
	case s.IsMedia(cur) && s.CaretByte == 1:
		s.deleteBlock(cur)
		s.caretBefore(cur)
	case s.CaretByte == 0:
		s.joinBackward(cur)
	default:
		text := s.CurrentBlockText()
		start := previousRuneBoundary(text, s.CaretByte)
		s.replaceRange(cur, start, s.CaretByte, nil, attrAt(s.textBlock(cur), start))
		s.CaretByte = start
	}
	s.Normalize()
}

func (s *State) DeleteForward() {
	s.Normalize()
	if s.DeleteSelection() {
		return
	}
	s.typing = nil
	cur := s.CurrentBlock
	switch {
	case s.IsMedia(cur) && s.CaretByte == 0:
		s.deleteBlock(cur)
		s.caretAt(cur)
	case s.CaretByte >= s.BlockLen(cur):
		s.joinForward(cur)
	default:
		text := s.CurrentBlockText()
		end := nextRuneBoundary(text, s.CaretByte)
		s.replaceRange(cur, s.CaretByte, end, nil, attrAt(s.textBlock(cur), s.CaretByte))
	}
	s.Normalize()
}

func (s *State) DeleteWordBackward() {
	s.Normalize()
	if s.IsMedia(s.CurrentBlock) || s.CaretByte == 0 || s.HasSelection() {
		s.Backspace()
		return
	}
	s.typing = nil
	text := s.CurrentBlockText()
	start := scanBack(text, s.CaretByte, unicode.IsSpace)
	s.replaceRange(s.CurrentBlock, start, s.CaretByte, nil, attrAt(s.textBlock(s.CurrentBlock), start))
	s.CaretByte = start
}

func (s *State) DeleteWordForward() {
	s.Normalize()
	if s.IsMedia(s.CurrentBlock) || s.CaretByte >= s.BlockLen(s.CurrentBlock) || s.HasSelection() {
		s.DeleteForward()
		return
	}
	s.typing = nil
	text := s.CurrentBlockText()
	end := scanForward(text, s.CaretByte, unicode.IsSpace)
	s.replaceRange(s.CurrentBlock, s.CaretByte, end, nil, attrAt(s.textBlock(s.CurrentBlock), s.CaretByte))
}

// DeleteSelection removes the selected text and any images wholly inside the
// selection. Partially selected paragraphs at both ends are joined.
func (s *State) DeleteSelection() bool {
	start, end, ok := s.SelectionRange()
	if !ok {
		return false
	}
	s.ClearSelection()
	s.typing = nil

	if start.Block == end.Block {
		if s.IsMedia(start.Block) {
			s.deleteBlock(start.Block)
			s.caretBefore(start.Block)
		} else {
			tb := s.textBlock(start.Block)
			s.replaceRange(start.Block, start.Byte, end.Byte, nil, attrAt(tb, start.Byte))
			s.CurrentBlock, s.CaretByte = start.Block, start.Byte
		}
		s.Normalize()
		return true
	}

	var head, tail *draftdoc.Block
	first, last := s.Doc.Blocks[start.Block], s.Doc.Blocks[end.Block]
	if first.Kind == draftdoc.BlockKindMedia {
		if start.Byte == 1 {
			head = &first
		}
	} else {
		b := textSlice(first, 0, start.Byte)
		head = &b
	}
	if last.Kind == draftdoc.BlockKindMedia {
		if end.Byte == 0 {
			tail = &last
		}
	} else {
		b := textSlice(last, end.Byte, len(last.Text.UTF8))
		tail = &b
	}

	keep := make([]draftdoc.Block, 0, 2)
	switch {
	case head != nil && tail != nil && head.Kind == draftdoc.BlockKindText && tail.Kind == draftdoc.BlockKindText:
		keep = append(keep, joinText(*head, *tail))
	default:
		if head != nil {
			keep = append(keep, *head)
		}
		if tail != nil {
			keep = append(keep, *tail)
		}
	}

	rest := append(keep, s.Doc.Blocks[end.Block+1:]...)
	s.Doc.Blocks = append(s.Doc.Blocks[:start.Block], rest...)
	switch {
	case head != nil:
		s.CurrentBlock, s.CaretByte = start.Block, start.Byte
	case tail != nil:
		s.CurrentBlock, s.CaretByte = start.Block, 0
	default:
		s.caretBefore(start.Block)
	}
	s.Normalize()
	return true
}

// joinBackward handles a backspace at the start of block i.
func (s *State) joinBackward(i int) {
	if i <= 0 {
		return
	}
	prev := i - 1
	switch {
	case s.IsMedia(prev):
		s.deleteBlock(prev)
		s.CurrentBlock, s.CaretByte = prev, 0
	case s.IsMedia(i):
		if s.BlockLen(prev) == 0 {
			s.deleteBlock(prev)
			s.CurrentBlock, s.CaretByte = prev, 0
			return
		}
		s.CurrentBlock, s.CaretByte = prev, s.BlockLen(prev)
	default:
		at := s.BlockLen(prev)
		s.Doc.Blocks[prev] = joinText(s.Doc.Blocks[prev], s.Doc.Blocks[i])
		s.deleteBlock(i)
		s.CurrentBlock, s.CaretByte = prev, at
	}
}

// joinForward handles a forward delete at the end of block i.
func (s *State) joinForward(i int) {
	next := i + 1
	if next >= len(s.Doc.Blocks) {
		return
	}
	switch {
	case s.IsMedia(next):
		s.deleteBlock(next)
	case s.IsMedia(i):
		if s.BlockLen(next) == 0 {
			s.deleteBlock(next)
			return
		}
		s.CurrentBlock, s.CaretByte = next, 0
	default:
		s.Doc.Blocks[i] = joinText(s.Doc.Blocks[i], s.Doc.Blocks[next])
		s.deleteBlock(next)
	}
}

// ensureTextAtCaret moves the caret off an image into a text block, creating
// an empty paragraph styled with attr when there is none to move into.
func (s *State) ensureTextAtCaret(attr draftdoc.StyleAttr) {
	cur := s.CurrentBlock
	if !s.IsMedia(cur) {
		return
	}
	if s.CaretByte == 0 && cur > 0 && !s.IsMedia(cur-1) {
		s.CurrentBlock, s.CaretByte = cur-1, s.BlockLen(cur-1)
		return
	}
	at := cur
	if s.CaretByte == 1 {
		at = cur + 1
	}
	s.insertBlock(at, draftdoc.NewTextBlock(nextBlockID(s.Doc.Blocks), "", normalizeAttr(attr)))
	s.CurrentBlock, s.CaretByte = at, 0
}

// splitTextBlock cuts block i at pos into two paragraphs.
func (s *State) splitTextBlock(i, pos int) {
	tb := s.textBlock(i)
	if tb == nil {
		return
	}
	pos = clampToRuneBoundary(tb.UTF8, pos)
	right := textSlice(s.Doc.Blocks[i], pos, len(tb.UTF8))
	right.ID = nextBlockID(s.Doc.Blocks)
	if len(right.Text.UTF8) == 0 {
		right.Text.Runs = []draftdoc.StyleRun{{Attr: attrBefore(tb, pos)}}
	}
	s.Doc.Blocks[i] = textSlice(s.Doc.Blocks[i], 0, pos)
	s.insertBlock(i+1, right)
}

func (s *State) replaceRange(i, start, end int, insert []byte, attr draftdoc.StyleAttr) {
	tb := s.textBlock(i)
	if tb == nil {
		return
	}
	text := tb.UTF8
	start, end = clampToRuneBoundary(text, start), clampToRuneBoundary(text, end)
	if start > end {
		start, end = end, start
	}

	newText := make([]byte, 0, len(text)-(end-start)+len(insert))
	newText = append(newText, text[:start]...)
	newText = append(newText, insert...)
	newText = append(newText, text[end:]...)

	runs := sliceRuns(tb, 0, start, 0)
	if len(insert) > 0 {
		runs = append(runs, draftdoc.StyleRun{Start: uint32(start), End: uint32(start + len(insert)), Attr: attr})
	}
	runs = append(runs, sliceRuns(tb, end, len(text), start+len(insert))...)
	if len(newText) == 0 {
		runs = []draftdoc.StyleRun{{Attr: attr}}
	}

	tb.UTF8 = newText
	tb.Runs = coverRuns(len(newText), runs)
}

func (s *State) insertBlock(at int, b draftdoc.Block) {
	s.Doc.Blocks = append(s.Doc.Blocks, draftdoc.Block{})
	copy(s.Doc.Blocks[at+1:], s.Doc.Blocks[at:])
	s.Doc.Blocks[at] = b
}

func (s *State) deleteBlock(i int) {
	s.Doc.Blocks = append(s.Doc.Blocks[:i], s.Doc.Blocks[i+1:]...)
}

// caretBefore puts the caret at the end of the block preceding index i after
// a removal, or at the very start.
func (s *State) caretBefore(i int) {
	if i > 0 && i-1 < len(s.Doc.Blocks) {
		s.CurrentBlock, s.CaretByte = i-1, s.BlockLen(i-1)
		return
	}
	s.CurrentBlock, s.CaretByte = 0, 0
}

// caretAt puts the caret at the start of whatever now occupies index i.
func (s *State) caretAt(i int) {
	if i < len(s.Doc.Blocks) {
		s.CurrentBlock, s.CaretByte = i, 0
		return
	}
	s.caretBefore(i)
}

// textSlice returns a copy of the text block b limited to [from,to).
func textSlice(b draftdoc.Block, from, to int) draftdoc.Block {
	text := b.Text.UTF8[from:to]
	tb := &draftdoc.TextBlock{UTF8: append([]byte(nil), text...)}
	if len(text) == 0 {
		tb.Runs = []draftdoc.StyleRun{{Attr: attrAt(b.Text, from)}}
	} else {
		tb.Runs = coverRuns(len(text), sliceRuns(b.Text, from, to, 0))
	}
	return draftdoc.Block{ID: b.ID, Kind: draftdoc.BlockKindText, Text: tb}
}

func joinText(left, right draftdoc.Block) draftdoc.Block {
	lt, rt := left.Text.UTF8, right.Text.UTF8
	text := make([]byte, 0, len(lt)+len(rt))
	text = append(append(text, lt...), rt...)
	runs := append(sliceRuns(left.Text, 0, len(lt), 0), sliceRuns(right.Text, 0, len(rt), len(lt))...)
	if len(text) == 0 {
		runs = []draftdoc.StyleRun{{Attr: attrAt(left.Text, 0)}}
	}
	return draftdoc.Block{ID: left.ID, Kind: draftdoc.BlockKindText, Text: &draftdoc.TextBlock{UTF8: text, Runs: coverRuns(len(text), runs)}}
}
