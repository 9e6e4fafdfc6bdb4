package ui

import (
	"image/color"

	"draftpad/internal/render"
)

// Layout places the sheet of paper and the status bar inside the window.
type Layout struct {
	Scale   float32
	Paper   render.Rect
	Content render.Rect
	Status  render.Rect
	Dot     render.Rect
}

func (l Layout) Dp(v int) int { return dp(v, l.Scale) }

func dp(v int, scale float32) int {
	if scale <= 0 {
		scale = 1
	}
	return int(float32(v) * scale)
}

func ComputeLayout(w, h int, theme Theme, scale float32) Layout {
	if scale <= 0 {
		scale = 1
	}
	statusH := dp(theme.StatusHeightDp, scale)
	margin := dp(theme.MarginDp, scale)
	pad := dp(theme.PaddingDp, scale)

	paper := render.Rect{X: margin, Y: margin, W: w - margin*2, H: h - statusH - margin*2}
	paper.W = max(paper.W, dp(80, scale))
	paper.H = max(paper.H, dp(60, scale))

	content := render.Rect{X: paper.X + pad, Y: paper.Y + pad, W: paper.W - pad*2, H: paper.H - pad*2}
	content.W = max(content.W, 1)
	content.H = max(content.H, 1)

	status := render.Rect{X: 0, Y: h - statusH, W: w, H: statusH}
	dotSize := max(statusH/3, 4)
	dot := render.Rect{X: w - margin - dotSize, Y: status.Y + (statusH-dotSize)/2, W: dotSize, H: dotSize}

	return Layout{Scale: scale, Paper: paper, Content: content, Status: status, Dot: dot}
}

// DrawShell paints everything except the document: background, paper, status
// bar and the save indicator.
func DrawShell(fb *render.FrameBuffer, theme Theme, layout Layout, indicator color.RGBA) {
	fb.Clear(theme.Background)

	shadow := layout.Paper
	shadow.X += 2
	shadow.Y += 2
	fb.FillRect(shadow, theme.Border)
	fb.FillRect(layout.Paper, theme.Paper)
	fb.StrokeRect(layout.Paper, 1, theme.Border)

	fb.FillRect(layout.Status, theme.StatusBar)
	fb.FillRect(render.Rect{X: 0, Y: layout.Status.Y, W: layout.Status.W, H: 1}, theme.Border)
	fb.FillRect(layout.Dot, indicator)
}
