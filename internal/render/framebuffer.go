package render

import "image/color"

type Rect struct {
	X, Y, W, H int
}

func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

func (r Rect) Contains(x, y int) bool {
	return x >= r.X && y >= r.Y && x < r.X+r.W && y < r.Y+r.H
}

func (r Rect) Intersect(o Rect) Rect {
	x0, y0 := max(r.X, o.X), max(r.Y, o.Y)
	x1, y1 := min(r.X+r.W, o.X+o.W), min(r.Y+r.H, o.Y+o.H)
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// FrameBuffer is a CPU-side RGBA surface for the window chrome. It is uploaded
// to the screen once per frame.
type FrameBuffer struct {
	W      int
	H      int
	Pixels []uint8 // RGBA
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	return &FrameBuffer{W: w, H: h, Pixels: make([]uint8, w*h*4)}
}

func (fb *FrameBuffer) Bounds() Rect { return Rect{W: fb.W, H: fb.H} }

func (fb *FrameBuffer) Clear(c color.RGBA) {
	for i := 0; i < len(fb.Pixels); i += 4 {
		fb.Pixels[i+0] = c.R
		fb.Pixels[i+1] = c.G
		fb.Pixels[i+2] = c.B
		fb.Pixels[i+3] = c.A
	}
}

func (fb *FrameBuffer) FillRect(r Rect, c color.RGBA) {
	fb.fill(r.Intersect(fb.Bounds()), c, false)
}

// FillRectClip fills the part of r inside clip.
func (fb *FrameBuffer) FillRectClip(r, clip Rect, c color.RGBA) {
	fb.fill(r.Intersect(clip).Intersect(fb.Bounds()), c, false)
}

// BlendRect composites c over the existing pixels using c.A as coverage.
func (fb *FrameBuffer) BlendRect(r, clip Rect, c color.RGBA) {
	fb.fill(r.Intersect(clip).Intersect(fb.Bounds()), c, true)
}

func (fb *FrameBuffer) StrokeRect(r Rect, line int, c color.RGBA) {
	if line <= 0 {
		line = 1
	}
	fb.FillRect(Rect{X: r.X, Y: r.Y, W: r.W, H: line}, c)
	fb.FillRect(Rect{X: r.X, Y: r.Y + r.H - line, W: r.W, H: line}, c)
	fb.FillRect(Rect{X: r.X, Y: r.Y, W: line, H: r.H}, c)
	fb.FillRect(Rect{X: r.X + r.W - line, Y: r.Y, W: line, H: r.H}, c)
}

func (fb *FrameBuffer) At(x, y int) color.RGBA {
	if !fb.Bounds().Contains(x, y) {
		return color.RGBA{}
	}
	i := (y*fb.W + x) * 4
	return color.RGBA{R: fb.Pixels[i], G: fb.Pixels[i+1], B: fb.Pixels[i+2], A: fb.Pixels[i+3]}
}

func (fb *FrameBuffer) fill(r Rect, c color.RGBA, blend bool) {
	if r.Empty() {
		return
	}
	a := uint32(c.A)
	for row := 0; row < r.H; row++ {
		off := ((r.Y+row)*fb.W + r.X) * 4
		for col := 0; col < r.W; col++ {
			px := fb.Pixels[off+col*4 : off+col*4+4 : off+col*4+4]
			if !blend {
				px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
				continue
			}
			px[0] = mix(px[0], c.R, a)
			px[1] = mix(px[1], c.G, a)
			px[2] = mix(px[2], c.B, a)
			px[3] = 0xFF
		}
	}
}

func mix(dst, src uint8, a uint32) uint8 {
	return uint8((uint32(src)*a + uint32(dst)*(255-a) + 127) / 255)
}
