package ui

import (
	"unicode/utf8"

	"golang.org/x/image/font"

	"draftpad/internal/editor"
	"draftpad/internal/render"
	"draftpad/pkg/draftdoc"
)

// Segment is a stretch of one line drawn with a single face.
type Segment struct {
	Start, End int // byte offsets in the block
	X, Width   int // X is relative to the line
	Text       string
	Attr       draftdoc.StyleAttr
	Face       font.Face
}

// Line is one visual row: part of a wrapped paragraph, or a whole image.
// Coordinates are in document space with the origin at the content's top-left.
type Line struct {
	Block      int
	Start, End int
	X, Y       int
	Width      int
	Height     int
	Ascent     int
	Wrapped    bool
	Segments   []Segment
	Image      *draftdoc.ImageBlock
}

func (l *Line) Baseline() int { return l.Y + l.Ascent + (l.Height-l.Ascent-l.descent())/2 }

func (l *Line) descent() int {
	d := 0
	for _, seg := range l.Segments {
		d = max(d, seg.Face.Metrics().Descent.Round())
	}
	return d
}

type DocLayout struct {
	Lines  []Line
	Width  int
	Height int
}

type glyph struct {
	pos, size int
	r         rune
	adv       int
	run       int
}

// LayoutDocument wraps every paragraph to width and stacks the result.
func LayoutDocument(doc *draftdoc.Document, fonts *FontBank, width int, theme Theme, scale float32) *DocLayout {
	out := &DocLayout{Width: max(width, 1)}
	if doc == nil {
		return out
	}
	lineGap := max(dp(theme.LineGapDp, scale), 1)
	blockGap := max(dp(theme.BlockGapDp, scale), 2)

	y := 0
	for bi, b := range doc.Blocks {
		switch {
		case b.Kind == draftdoc.BlockKindMedia && b.Image != nil:
			y = out.layoutImage(bi, b.Image, y, scale)
		case b.Kind == draftdoc.BlockKindText && b.Text != nil:
			y = out.layoutParagraph(bi, b.Text, fonts, y, lineGap, scale)
		default:
			continue
		}
		y += blockGap
	}
	out.Height = max(y-blockGap, 0)
	return out
}

func (d *DocLayout) layoutImage(bi int, img *draftdoc.ImageBlock, y int, scale float32) int {
	w, h := dp(int(img.DisplayW), scale), dp(int(img.DisplayH), scale)
	if w > d.Width && w > 0 {
		h = h * d.Width / w
		w = d.Width
	}
	w, h = max(w, 1), max(h, 1)
	d.Lines = append(d.Lines, Line{
		Block:  bi,
		Start:  0,
		End:    1,
		X:      alignOffset(img.Align, d.Width, w),
		Y:      y,
		Width:  w,
		Height: h,
		Ascent: h,
		Image:  img,
	})
	return y + h
}

func (d *DocLayout) layoutParagraph(bi int, tb *draftdoc.TextBlock, fonts *FontBank, y, lineGap int, scale float32) int {
	runs := tb.Runs
	if len(runs) == 0 {
		runs = []draftdoc.StyleRun{{End: uint32(len(tb.UTF8)), Attr: draftdoc.DefaultStyleAttr()}}
	}
	faces := make([]font.Face, len(runs))
	for i, r := range runs {
		faces[i] = fonts.Face(r.Attr, scale)
	}

	text := tb.UTF8
	glyphs := make([]glyph, 0, len(text))
	ri := 0
	for pos := 0; pos < len(text); {
		r, size := utf8.DecodeRune(text[pos:])
		for ri < len(runs)-1 && pos >= int(runs[ri].End) {
			ri++
		}
		glyphs = append(glyphs, glyph{pos: pos, size: size, r: r, adv: runeAdvance(faces[ri], r), run: ri})
		pos += size
	}

	align := runs[0].Attr.Align
	ranges := wrapGlyphs(glyphs, d.Width)
	for li, rg := range ranges {
		last := li == len(ranges)-1
		line := buildLine(bi, text, glyphs[rg[0]:rg[1]], runs, faces, align == draftdoc.AlignJustified && !last)
		if rg[0] == rg[1] {
			at := len(text)
			if rg[0] < len(glyphs) {
				at = glyphs[rg[0]].pos
			}
			line.Start, line.End = at, at
			fr := runIndexAt(runs, at)
			line.Segments = []Segment{{Start: at, End: at, Attr: runs[fr].Attr, Face: faces[fr]}}
		}
		line.Wrapped = !last
		line.Y = y

		ascent, descent := 0, 0
		for _, seg := range line.Segments {
			m := seg.Face.Metrics()
			ascent = max(ascent, m.Ascent.Round())
			descent = max(descent, m.Descent.Round())
		}
		line.Ascent = ascent
		line.Height = max(ascent+descent+dp(4, scale), dp(14, scale))

		switch {
		case align == draftdoc.AlignJustified && !last:
			justify(&line, d.Width)
		default:
			line.X = alignOffset(align, d.Width, line.Width)
		}
		d.Lines = append(d.Lines, line)
		y += line.Height
		if !last {
			y += lineGap
		}
	}
	return y
}

// wrapGlyphs splits glyphs into rows no wider than width, breaking after the
// last space when possible. Spaces may hang past the edge. There is always at
// least one row.
func wrapGlyphs(glyphs []glyph, width int) [][2]int {
	var out [][2]int
	start, x, lastBreak := 0, 0, -1
	for i := 0; i < len(glyphs); i++ {
		g := glyphs[i]
		if g.r != ' ' && x+g.adv > width && i > start {
			end := i
			if lastBreak > start {
				end = lastBreak
			}
			out = append(out, [2]int{start, end})
			start, x, lastBreak = end, 0, -1
			i = end - 1
			continue
		}
		x += g.adv
		if g.r == ' ' {
			lastBreak = i + 1
		}
	}
	return append(out, [2]int{start, len(glyphs)})
}

// buildLine groups glyphs into segments by style run. With split set, every
// word becomes its own segment so that justify can spread them.
func buildLine(bi int, text []byte, glyphs []glyph, runs []draftdoc.StyleRun, faces []font.Face, split bool) Line {
	line := Line{Block: bi}
	if len(glyphs) == 0 {
		return line
	}
	line.Start = glyphs[0].pos
	line.End = glyphs[len(glyphs)-1].pos + glyphs[len(glyphs)-1].size

	cur := -1
	for i, g := range glyphs {
		newSeg := cur < 0 || g.run != glyphs[i-1].run || (split && glyphs[i-1].r == ' ' && g.r != ' ')
		if newSeg {
			line.Segments = append(line.Segments, Segment{Start: g.pos, X: line.Width, Attr: runs[g.run].Attr, Face: faces[g.run]})
			cur = len(line.Segments) - 1
		}
		seg := &line.Segments[cur]
		seg.End = g.pos + g.size
		seg.Width += g.adv
		line.Width += g.adv
	}
	for i := range line.Segments {
		seg := &line.Segments[i]
		seg.Text = string(text[seg.Start:seg.End])
	}
	return line
}

func justify(line *Line, width int) {
	gaps := 0
	for i := 0; i < len(line.Segments)-1; i++ {
		if endsWithSpace(line.Segments[i].Text) {
			gaps++
		}
	}
	extra := width - line.Width
	if gaps == 0 || extra <= 0 {
		return
	}
	shift, given := 0, 0
	for i := range line.Segments {
		line.Segments[i].X += shift
		if i < len(line.Segments)-1 && endsWithSpace(line.Segments[i].Text) {
			add := extra / gaps
			if given < extra%gaps {
				add++
			}
			given++
			shift += add
		}
	}
	line.Width += shift
}

func endsWithSpace(s string) bool {
	return len(s) > 0 && s[len(s)-1] == ' '
}

func alignOffset(align draftdoc.Align, width, lineW int) int {
	switch align {
	case draftdoc.AlignCenter:
		return max((width-lineW)/2, 0)
	case draftdoc.AlignRight:
		return max(width-lineW, 0)
	default:
		return 0
	}
}

func runIndexAt(runs []draftdoc.StyleRun, pos int) int {
	for i, r := range runs {
		if pos < int(r.End) {
			return i
		}
	}
	return len(runs) - 1
}

// xAt is the offset of byte pos from the line's left edge.
func (l *Line) xAt(pos int) int {
	if l.Image != nil {
		if pos > 0 {
			return l.Width
		}
		return 0
	}
	for _, seg := range l.Segments {
		if pos <= seg.Start {
			return seg.X
		}
		if pos < seg.End {
			return seg.X + Advance(seg.Face, seg.Text[:pos-seg.Start])
		}
	}
	if n := len(l.Segments); n > 0 {
		return l.Segments[n-1].X + l.Segments[n-1].Width
	}
	return 0
}

func (l *Line) holds(pos int) bool {
	if l.Image != nil {
		return true
	}
	return pos >= l.Start && (pos < l.End || !l.Wrapped)
}

// CaretRect returns where the caret for p is drawn, in document space.
func (d *DocLayout) CaretRect(p editor.Position) (render.Rect, bool) {
	for i := range d.Lines {
		l := &d.Lines[i]
		if l.Block != p.Block || !l.holds(p.Byte) {
			continue
		}
		return render.Rect{X: l.X + l.xAt(p.Byte), Y: l.Y, W: 1, H: l.Height}, true
	}
	return render.Rect{}, false
}

// HitTest maps a point in document space to a caret position.
func (d *DocLayout) HitTest(x, y int) editor.Position {
	if len(d.Lines) == 0 {
		return editor.Position{}
	}
	l := &d.Lines[len(d.Lines)-1]
	for i := range d.Lines {
		next := i + 1
		if next == len(d.Lines) || y < d.Lines[next].Y {
			l = &d.Lines[i]
			break
		}
	}
	if l.Image != nil {
		if x < l.X+l.Width/2 {
			return editor.Position{Block: l.Block, Byte: 0}
		}
		return editor.Position{Block: l.Block, Byte: 1}
	}
	return editor.Position{Block: l.Block, Byte: l.byteAtX(x - l.X)}
}

func (l *Line) byteAtX(relX int) int {
	lastStart := l.Start
	for _, seg := range l.Segments {
		if relX < seg.X {
			return seg.Start
		}
		runX, pos := seg.X, seg.Start
		for _, r := range seg.Text {
			adv := runeAdvance(seg.Face, r)
			if relX < runX+adv/2 {
				return pos
			}
			lastStart = pos
			runX += adv
			pos += utf8.RuneLen(r)
		}
	}
	if l.Wrapped {
		return lastStart
	}
	return l.End
}

// SelectionRects covers [start,end) line by line. Fully selected empty
// paragraphs get a narrow marker so that the selection stays visible.
func (d *DocLayout) SelectionRects(start, end editor.Position, marker int) []render.Rect {
	var out []render.Rect
	for i := range d.Lines {
		l := &d.Lines[i]
		if l.Block < start.Block || l.Block > end.Block {
			continue
		}
		if l.Image != nil {
			if (l.Block > start.Block || start.Byte == 0) && (l.Block < end.Block || end.Byte == 1) {
				out = append(out, render.Rect{X: l.X, Y: l.Y, W: l.Width, H: l.Height})
			}
			continue
		}
		from, to := l.Start, l.End
		if l.Block == start.Block {
			from = max(from, start.Byte)
		}
		if l.Block == end.Block {
			to = min(to, end.Byte)
		}
		x0, x1 := l.xAt(from), l.xAt(to)
		if to < from || (to == from && (l.Block == end.Block || from < l.End)) {
			continue
		}
		if x1-x0 < marker {
			x1 = x0 + marker
		}
		out = append(out, render.Rect{X: l.X + x0, Y: l.Y, W: x1 - x0, H: l.Height})
	}
	return out
}
