package editor

import (
	"sort"
	"unicode"
	"unicode/utf8"

	"draftpad/pkg/draftdoc"
)

func normalizeAttr(attr draftdoc.StyleAttr) draftdoc.StyleAttr {
	if attr.FontSizePt == 0 {
		attr.FontSizePt = draftdoc.DefaultFontSizePt
	}
	if attr.ColorRGBA == 0 {
		attr.ColorRGBA = draftdoc.DefaultColorRGBA
	}
	if !draftdoc.IsValidFontFamily(attr.FontFamily) {
		attr.FontFamily = draftdoc.FontFamilySans
	}
	if !draftdoc.IsValidAlign(attr.Align) {
		attr.Align = draftdoc.AlignLeft
	}
	return attr
}

// coverRuns returns runs that tile [0,textLen) in order with equal neighbours
// merged. Gaps take the default style with the paragraph's alignment. Empty
// text keeps a single zero-length run so its style survives.
func coverRuns(textLen int, runs []draftdoc.StyleRun) []draftdoc.StyleRun {
	clean := make([]draftdoc.StyleRun, 0, len(runs))
	for _, r := range runs {
		start := min(int(r.Start), textLen)
		end := min(int(r.End), textLen)
		if start > end {
			start, end = end, start
		}
		if start == end {
			continue
		}
		clean = append(clean, draftdoc.StyleRun{Start: uint32(start), End: uint32(end), Attr: r.Attr})
	}
	sort.Slice(clean, func(i, j int) bool {
		if clean[i].Start == clean[j].Start {
			return clean[i].End < clean[j].End
		}
		return clean[i].Start < clean[j].Start
	})

	fill := draftdoc.DefaultStyleAttr()
	switch {
	case len(clean) > 0:
		fill.Align = normalizeAttr(clean[0].Attr).Align
	case len(runs) > 0:
		fill = runs[0].Attr
	}
	if textLen == 0 {
		return []draftdoc.StyleRun{{Attr: normalizeAttr(fill)}}
	}

	out := make([]draftdoc.StyleRun, 0, len(clean)+1)
	pos := 0
	for _, r := range clean {
		start, end := int(r.Start), int(r.End)
		if end <= pos {
			continue
		}
		start = max(start, pos)
		if start > pos {
			out = appendRun(out, pos, start, fill)
		}
		out = appendRun(out, start, end, r.Attr)
		pos = end
	}
	if pos < textLen {
		out = appendRun(out, pos, textLen, fill)
	}
	return out
}

func appendRun(out []draftdoc.StyleRun, start, end int, attr draftdoc.StyleAttr) []draftdoc.StyleRun {
	attr = normalizeAttr(attr)
	if n := len(out); n > 0 && int(out[n-1].End) == start && out[n-1].Attr == attr {
		out[n-1].End = uint32(end)
		return out
	}
	return append(out, draftdoc.StyleRun{Start: uint32(start), End: uint32(end), Attr: attr})
}

// sliceRuns cuts [from,to) out of tb's runs and moves the result to start at
// shift. The result may be sparse and is meant to be passed to coverRuns.
func sliceRuns(tb *draftdoc.TextBlock, from, to, shift int) []draftdoc.StyleRun {
	if tb == nil {
		return nil
	}
	cov := coverRuns(len(tb.UTF8), tb.Runs)
	out := make([]draftdoc.StyleRun, 0, len(cov))
	for _, r := range cov {
		rs, re := max(int(r.Start), from), min(int(r.End), to)
		if rs >= re {
			continue
		}
		out = append(out, draftdoc.StyleRun{Start: uint32(rs - from + shift), End: uint32(re - from + shift), Attr: r.Attr})
	}
	return out
}

// attrAt returns the style of the rune starting at pos, or of the last rune
// when pos is at the end.
func attrAt(tb *draftdoc.TextBlock, pos int) draftdoc.StyleAttr {
	if tb == nil {
		return draftdoc.DefaultStyleAttr()
	}
	runs := coverRuns(len(tb.UTF8), tb.Runs)
	if len(tb.UTF8) == 0 {
		return runs[0].Attr
	}
	probe := min(max(pos, 0), len(tb.UTF8)-1)
	for _, r := range runs {
		if int(r.Start) <= probe && probe < int(r.End) {
			return r.Attr
		}
	}
	return draftdoc.DefaultStyleAttr()
}

// attrBefore is the style new text inherits when typed at pos.
func attrBefore(tb *draftdoc.TextBlock, pos int) draftdoc.StyleAttr {
	if tb == nil || pos <= 0 {
		return attrAt(tb, 0)
	}
	return attrAt(tb, previousRuneBoundary(tb.UTF8, pos))
}

func mutateRange(tb *draftdoc.TextBlock, start, end int, mut func(*draftdoc.StyleAttr)) {
	textLen := len(tb.UTF8)
	start, end = min(max(start, 0), textLen), min(max(end, 0), textLen)
	if start >= end {
		return
	}
	cov := coverRuns(textLen, tb.Runs)
	out := make([]draftdoc.StyleRun, 0, len(cov)+2)
	for _, r := range cov {
		rs, re := int(r.Start), int(r.End)
		if re <= start || rs >= end {
			out = append(out, r)
			continue
		}
		if rs < start {
			out = append(out, draftdoc.StyleRun{Start: uint32(rs), End: uint32(start), Attr: r.Attr})
			rs = start
		}
		attr := r.Attr
		mut(&attr)
		out = append(out, draftdoc.StyleRun{Start: uint32(rs), End: uint32(min(re, end)), Attr: attr})
		if re > end {
			out = append(out, draftdoc.StyleRun{Start: uint32(end), End: uint32(re), Attr: r.Attr})
		}
	}
	tb.Runs = coverRuns(textLen, out)
}

func clampToRuneBoundary(text []byte, pos int) int {
	if pos <= 0 {
		return 0
	}
	if pos >= len(text) {
		return len(text)
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}

func previousRuneBoundary(text []byte, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	if pos == 0 {
		return 0
	}
	_, size := utf8.DecodeLastRune(text[:pos])
	return pos - max(size, 1)
}

func nextRuneBoundary(text []byte, pos int) int {
	pos = clampToRuneBoundary(text, pos)
	if pos >= len(text) {
		return len(text)
	}
	_, size := utf8.DecodeRune(text[pos:])
	return pos + max(size, 1)
}

// scanBack moves left from pos over runes for which skip is true, then over
// the run of runes for which it is false.
func scanBack(text []byte, pos int, skip func(rune) bool) int {
	pos = clampToRuneBoundary(text, pos)
	for _, want := range []bool{true, false} {
		for pos > 0 {
			r, size := utf8.DecodeLastRune(text[:pos])
			if skip(r) != want {
				break
			}
			pos -= max(size, 1)
		}
	}
	return pos
}

func scanForward(text []byte, pos int, skip func(rune) bool) int {
	pos = clampToRuneBoundary(text, pos)
	for _, want := range []bool{true, false} {
		for pos < len(text) {
			r, size := utf8.DecodeRune(text[pos:])
			if skip(r) != want {
				break
			}
			pos += max(size, 1)
		}
	}
	return pos
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func notWordRune(r rune) bool { return !isWordRune(r) }

func comparePos(a, b Position) int {
	switch {
	case a.Block != b.Block:
		if a.Block < b.Block {
			return -1
		}
		return 1
	case a.Byte < b.Byte:
		return -1
	case a.Byte > b.Byte:
		return 1
	}
	return 0
}

func nextBlockID(blocks []draftdoc.Block) uint64 {
	var maxID uint64
	for _, b := range blocks {
		maxID = max(maxID, b.ID)
	}
	return maxID + 1
}
