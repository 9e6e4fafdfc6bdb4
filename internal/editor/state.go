package editor

import (
	"strings"

	"draftpad/pkg/draftdoc"
)

// Position addresses a caret location. For text blocks Byte is a UTF-8 offset;
// a media block has two positions, 0 before the image and 1 after it.
type Position struct {
	Block int
	Byte  int
}

type State struct {
	Doc          *draftdoc.Document
	CurrentBlock int
	CaretByte    int

	anchor    Position
	anchored  bool
	selecting bool

	// typing holds attributes toggled with no selection; they apply to the
	// next inserted text and are dropped when the caret moves.
	typing *draftdoc.StyleAttr
}

func NewState(doc *draftdoc.Document) *State {
	if doc == nil {
		doc = draftdoc.NewDocument("")
	}
	s := &State{Doc: doc}
	s.Normalize()
	return s
}

// Normalize repairs the document and caret so every invariant the editing
// operations rely on holds: at least one block, tiled style runs, and a
// caret on a valid boundary.
func (s *State) Normalize() {
	if s.Doc == nil {
		s.Doc = draftdoc.NewDocument("")
	}
	blocks := s.Doc.Blocks[:0]
	for _, b := range s.Doc.Blocks {
		switch b.Kind {
		case draftdoc.BlockKindMedia:
			if b.Image == nil {
				continue
			}
		default:
			b.Kind = draftdoc.BlockKindText
			if b.Text == nil {
				b.Text = &draftdoc.TextBlock{}
			}
			b.Text.Runs = coverRuns(len(b.Text.UTF8), b.Text.Runs)
		}
		blocks = append(blocks, b)
	}
	s.Doc.Blocks = blocks
	if len(s.Doc.Blocks) == 0 {
		s.Doc.Blocks = append(s.Doc.Blocks, draftdoc.NewTextBlock(1, "", draftdoc.DefaultStyleAttr()))
	}
	s.CurrentBlock = min(max(s.CurrentBlock, 0), len(s.Doc.Blocks)-1)
	s.CaretByte = s.clampByte(s.CurrentBlock, s.CaretByte)
	if s.anchored {
		s.anchor = s.clampPosition(s.anchor)
		s.selecting = comparePos(s.anchor, s.caretPos()) != 0
	}
}

func (s *State) BlockCount() int {
	if s.Doc == nil {
		return 0
	}
	return len(s.Doc.Blocks)
}

func (s *State) IsMedia(index int) bool {
	return s.Doc != nil && index >= 0 && index < len(s.Doc.Blocks) && s.Doc.Blocks[index].Kind == draftdoc.BlockKindMedia
}

// BlockLen is the largest caret offset in the block.
func (s *State) BlockLen(index int) int {
	if s.IsMedia(index) {
		return 1
	}
	if s.Doc == nil || index < 0 || index >= len(s.Doc.Blocks) || s.Doc.Blocks[index].Text == nil {
		return 0
	}
	return len(s.Doc.Blocks[index].Text.UTF8)
}

func (s *State) CurrentBlockText() []byte {
	return s.blockText(s.CurrentBlock)
}

func (s *State) CurrentText() string {
	return string(s.CurrentBlockText())
}

func (s *State) blockText(index int) []byte {
	if s.Doc == nil || index < 0 || index >= len(s.Doc.Blocks) || s.Doc.Blocks[index].Text == nil {
		return nil
	}
	return s.Doc.Blocks[index].Text.UTF8
}

func (s *State) textBlock(index int) *draftdoc.TextBlock {
	if s.Doc == nil || index < 0 || index >= len(s.Doc.Blocks) {
		return nil
	}
	return s.Doc.Blocks[index].Text
}

func (s *State) SetCaret(block, pos int) {
	s.Normalize()
	s.typing = nil
	s.CurrentBlock = min(max(block, 0), len(s.Doc.Blocks)-1)
	s.CaretByte = s.clampByte(s.CurrentBlock, pos)
	if s.anchored {
		s.selecting = comparePos(s.anchor, s.caretPos()) != 0
	}
}

func (s *State) MoveBlock(delta int) {
	s.SetCaret(s.CurrentBlock+delta, s.CaretByte)
}

func (s *State) MoveCaretLeft() {
	s.Normalize()
	s.typing = nil
	switch {
	case s.CaretByte <= 0:
		if s.CurrentBlock > 0 {
			s.CurrentBlock--
			s.CaretByte = s.BlockLen(s.CurrentBlock)
		}
	case s.IsMedia(s.CurrentBlock):
		s.CaretByte = 0
	default:
		s.CaretByte = previousRuneBoundary(s.CurrentBlockText(), s.CaretByte)
	}
}

func (s *State) MoveCaretRight() {
	s.Normalize()
	s.typing = nil
	switch {
	case s.CaretByte >= s.BlockLen(s.CurrentBlock):
		if s.CurrentBlock < len(s.Doc.Blocks)-1 {
			s.CurrentBlock++
			s.CaretByte = 0
		}
	case s.IsMedia(s.CurrentBlock):
		s.CaretByte = 1
	default:
		s.CaretByte = nextRuneBoundary(s.CurrentBlockText(), s.CaretByte)
	}
}

func (s *State) MoveCaretWordLeft() {
	if s.CaretByte <= 0 || s.IsMedia(s.CurrentBlock) {
		s.MoveCaretLeft()
		return
	}
	s.Normalize()
	s.typing = nil
	s.CaretByte = scanBack(s.CurrentBlockText(), s.CaretByte, notWordRune)
}

func (s *State) MoveCaretWordRight() {
	if s.CaretByte >= s.BlockLen(s.CurrentBlock) || s.IsMedia(s.CurrentBlock) {
		s.MoveCaretRight()
		return
	}
	s.Normalize()
	s.typing = nil
	s.CaretByte = scanForward(s.CurrentBlockText(), s.CaretByte, notWordRune)
}

func (s *State) MoveCaretToLineStart() {
	s.SetCaret(s.CurrentBlock, 0)
}

func (s *State) MoveCaretToLineEnd() {
	s.SetCaret(s.CurrentBlock, s.BlockLen(s.CurrentBlock))
}

func (s *State) HasSelection() bool {
	s.Normalize()
	return s.selecting
}

func (s *State) EnsureSelectionAnchor() {
	s.Normalize()
	if s.anchored {
		return
	}
	s.anchor = s.caretPos()
	s.anchored = true
	s.selecting = false
}

func (s *State) UpdateSelectionFromCaret() {
	s.Normalize()
	if !s.anchored {
		s.anchor = s.caretPos()
		s.anchored = true
	}
	s.selecting = comparePos(s.anchor, s.caretPos()) != 0
}

func (s *State) ClearSelection() {
	s.anchored = false
	s.selecting = false
}

// SelectionRange returns the selection ordered from start to end.
func (s *State) SelectionRange() (Position, Position, bool) {
	s.Normalize()
	if !s.selecting {
		return Position{}, Position{}, false
	}
	a, b := s.anchor, s.caretPos()
	if comparePos(a, b) <= 0 {
		return a, b, true
	}
	return b, a, true
}

func (s *State) SelectAll() {
	s.Normalize()
	s.typing = nil
	s.anchor = Position{}
	s.anchored = true
	s.CurrentBlock = len(s.Doc.Blocks) - 1
	s.CaretByte = s.BlockLen(s.CurrentBlock)
	s.selecting = comparePos(s.anchor, s.caretPos()) != 0
}

// SelectBlock selects the whole of block index.
func (s *State) SelectBlock(index int) {
	s.Normalize()
	if index < 0 || index >= len(s.Doc.Blocks) {
		return
	}
	s.typing = nil
	s.anchor = Position{Block: index}
	s.anchored = true
	s.CurrentBlock = index
	s.CaretByte = s.BlockLen(index)
	s.selecting = comparePos(s.anchor, s.caretPos()) != 0
}

// SelectedText returns the selected text with paragraphs joined by newlines.
// Images contribute nothing.
func (s *State) SelectedText() string {
	start, end, ok := s.SelectionRange()
	if !ok {
		return ""
	}
	var out strings.Builder
	for i := start.Block; i <= end.Block; i++ {
		if i > start.Block {
			out.WriteByte('\n')
		}
		text := s.blockText(i)
		from, to := 0, len(text)
		if i == start.Block && !s.IsMedia(i) {
			from = start.Byte
		}
		if i == end.Block && !s.IsMedia(i) {
			to = end.Byte
		}
		if from < to {
			out.Write(text[from:to])
		}
	}
	return out.String()
}

func (s *State) caretPos() Position {
	return Position{Block: s.CurrentBlock, Byte: s.CaretByte}
}

func (s *State) clampByte(block, pos int) int {
	if s.IsMedia(block) {
		return min(max(pos, 0), 1)
	}
	return clampToRuneBoundary(s.blockText(block), pos)
}

func (s *State) clampPosition(p Position) Position {
	if s.Doc == nil || len(s.Doc.Blocks) == 0 {
		return Position{}
	}
	p.Block = min(max(p.Block, 0), len(s.Doc.Blocks)-1)
	p.Byte = s.clampByte(p.Block, p.Byte)
	return p
}

func (s *State) AllBlockTexts() []string {
	s.Normalize()
	out := make([]string, 0, len(s.Doc.Blocks))
	for i := range s.Doc.Blocks {
		out = append(out, string(s.blockText(i)))
	}
	return out
}
