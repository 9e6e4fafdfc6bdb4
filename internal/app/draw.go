package app

import (
	"fmt"
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/text"

	"draftpad/internal/editor"
	"draftpad/internal/render"
	"draftpad/internal/ui"
)

func (a *App) refreshLayout() {
	w, h := a.screenW, a.screenH
	if w <= 0 || h <= 0 {
		w, h = ebiten.WindowSize()
	}
	next := ui.ComputeLayout(w, h, a.theme, a.scale())
	if next.Content.W != a.layout.Content.W {
		a.docDirty = true
	}
	a.layout = next
}

// documentLayout returns the wrapped document, rebuilding it after edits or a
// width change.
func (a *App) documentLayout() *ui.DocLayout {
	if a.doc == nil || a.docDirty {
		width := a.layout.Content.W - a.layout.Dp(6)
		a.doc = ui.LayoutDocument(a.state.Doc, a.fonts, width, a.theme, a.scale())
		a.docDirty = false
		a.maxY = math.Max(0, float64(a.doc.Height-a.layout.Content.H))
		a.clampScroll()
	}
	return a.doc
}

func (a *App) caretPosition() editor.Position {
	return editor.Position{Block: a.state.CurrentBlock, Byte: a.state.CaretByte}
}

func (a *App) clampScroll() {
	a.scrollY = math.Min(math.Max(a.scrollY, 0), a.maxY)
}

// ensureCaretVisible scrolls the caret into view after it moves.
func (a *App) ensureCaretVisible() {
	p := a.caretPosition()
	if p == a.lastCaret && !a.caretMoved {
		return
	}
	a.lastCaret, a.caretMoved = p, false

	r, ok := a.documentLayout().CaretRect(p)
	if !ok {
		return
	}
	top, bottom := float64(r.Y), float64(r.Y+r.H)
	if top < a.scrollY {
		a.scrollY = top
	}
	if bottom > a.scrollY+float64(a.layout.Content.H) {
		a.scrollY = bottom - float64(a.layout.Content.H)
	}
	a.clampScroll()
}

// toScreen converts a document rectangle to window coordinates.
func (a *App) toScreen(r render.Rect) render.Rect {
	r.X += a.layout.Content.X
	r.Y += a.layout.Content.Y - int(a.scrollY)
	return r
}

func (a *App) Draw(screen *ebiten.Image) {
	a.refreshLayout()
	w, h := screen.Bounds().Dx(), screen.Bounds().Dy()
	if a.frameBuffer == nil || a.frameBuffer.W != w || a.frameBuffer.H != h {
		a.frameBuffer = render.NewFrameBuffer(w, h)
		a.canvas = ebiten.NewImage(w, h)
	}
	doc := a.documentLayout()

	pending := a.store.Pending()
	ui.DrawShell(a.frameBuffer, a.theme, a.layout, a.save.Indicator(a.theme, pending))
	a.drawHighlights(doc)
	a.drawSelectionAndCaret(doc)

	a.canvas.WritePixels(a.frameBuffer.Pixels)
	screen.DrawImage(a.canvas, nil)

	a.drawDocument(screen, doc)
	a.drawStatus(screen, pending)
	a.images.sweep(a.frameTick)
}

func (a *App) drawHighlights(doc *ui.DocLayout) {
	for _, l := range doc.Lines {
		for _, seg := range l.Segments {
			if !seg.Attr.Highlight || seg.Width == 0 {
				continue
			}
			r := a.toScreen(render.Rect{X: l.X + seg.X, Y: l.Y, W: seg.Width, H: l.Height})
			a.frameBuffer.FillRectClip(r, a.layout.Content, a.theme.Highlight)
		}
	}
}

func (a *App) drawSelectionAndCaret(doc *ui.DocLayout) {
	clip := a.layout.Content
	if start, end, ok := a.state.SelectionRange(); ok {
		for _, r := range doc.SelectionRects(start, end, a.layout.Dp(4)) {
			a.frameBuffer.BlendRect(a.toScreen(r), clip, a.theme.Selection)
		}
		if idx, _, ok := a.state.SelectedImage(); ok {
			for _, l := range doc.Lines {
				if l.Block == idx && l.Image != nil {
					a.strokeClipped(a.toScreen(render.Rect{X: l.X - 2, Y: l.Y - 2, W: l.Width + 4, H: l.Height + 4}), a.theme.ImageFrame)
				}
			}
		}
		return
	}
	if (a.frameTick/30)%2 != 0 {
		return
	}
	if r, ok := doc.CaretRect(a.caretPosition()); ok {
		r.W = max(1, a.layout.Dp(1))
		a.frameBuffer.FillRectClip(a.toScreen(r), clip, a.theme.Caret)
	}
}

func (a *App) strokeClipped(r render.Rect, c color.RGBA) {
	clip := a.layout.Content
	fb := a.frameBuffer
	fb.FillRectClip(render.Rect{X: r.X, Y: r.Y, W: r.W, H: 2}, clip, c)
	fb.FillRectClip(render.Rect{X: r.X, Y: r.Y + r.H - 2, W: r.W, H: 2}, clip, c)
	fb.FillRectClip(render.Rect{X: r.X, Y: r.Y, W: 2, H: r.H}, clip, c)
	fb.FillRectClip(render.Rect{X: r.X + r.W - 2, Y: r.Y, W: 2, H: r.H}, clip, c)
}

// drawDocument renders text and images onto an offscreen layer the size of
// the content area so that nothing spills onto the margins.
func (a *App) drawDocument(screen *ebiten.Image, doc *ui.DocLayout) {
	c := a.layout.Content
	if c.Empty() {
		return
	}
	if a.docLayer == nil || a.docLayer.Bounds().Dx() != c.W || a.docLayer.Bounds().Dy() != c.H {
		a.docLayer = ebiten.NewImage(c.W, c.H)
	}
	a.docLayer.Clear()

	scroll := int(a.scrollY)
	for _, l := range doc.Lines {
		top := l.Y - scroll
		if top+l.Height < 0 || top > c.H {
			continue
		}
		if l.Image != nil {
			a.drawImageLine(l, top)
			continue
		}
		baseline := l.Baseline() - scroll
		for _, seg := range l.Segments {
			if seg.Text == "" {
				continue
			}
			x := l.X + seg.X
			clr := rgbaFromUint32(seg.Attr.ColorRGBA)
			text.Draw(a.docLayer, seg.Text, seg.Face, x, baseline, clr)
			if seg.Attr.Underline {
				y := float64(baseline + max(1, seg.Face.Metrics().Descent.Round()/2))
				ebitenutil.DrawLine(a.docLayer, float64(x), y, float64(x+seg.Width), y, clr)
			}
		}
	}

	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(c.X), float64(c.Y))
	screen.DrawImage(a.docLayer, op)
}

func (a *App) drawImageLine(l ui.Line, top int) {
	img, err := a.images.get(l.Image, l.Width, l.Height, a.frameTick)
	if err != nil || img == nil {
		ebitenutil.DrawRect(a.docLayer, float64(l.X), float64(top), float64(l.Width), float64(l.Height), a.theme.Border)
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(l.X), float64(top))
	a.docLayer.DrawImage(img, op)
}

func (a *App) drawStatus(screen *ebiten.Image, pending bool) {
	face := a.fonts.UIFace(10, a.scale())
	s := a.layout.Status
	baseline := s.Y + (s.H+face.Metrics().Ascent.Round()-face.Metrics().Descent.Round())/2
	pad := a.layout.Dp(8)

	text.Draw(screen, a.save.Label(pending), face, s.X+pad, baseline, a.theme.StatusText)

	right := a.statusMessage()
	if right == "" {
		right = fmt.Sprintf("%s  |  %d/%d", ui.StyleSummary(a.state.CurrentStyleAttr()), a.state.CurrentBlock+1, a.state.BlockCount())
	}
	x := a.layout.Dot.X - pad - ui.Advance(face, right)
	text.Draw(screen, right, face, x, baseline, a.theme.StatusText)
}

func rgbaFromUint32(u uint32) color.RGBA {
	return color.RGBA{R: uint8(u >> 24), G: uint8(u >> 16), B: uint8(u >> 8), A: uint8(u)}
}
