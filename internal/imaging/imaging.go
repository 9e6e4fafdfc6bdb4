// Package imaging sniffs attachment bytes and computes display sizes.
package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"draftpad/pkg/draftdoc"
)

const (
	MinFitWidth = 100
	MaxFitWidth = 600

	WidthSmall  = 200
	WidthMedium = 350
	WidthLarge  = 500
)

type Info struct {
	Format string
	Width  int
	Height int
}

type Size struct {
	W int
	H int
}

func DecodeInfo(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, fmt.Errorf("%w: %v", draftdoc.ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Info{}, fmt.Errorf("%w: empty image", draftdoc.ErrUnsupportedImage)
	}
	return Info{Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

func Decode(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", draftdoc.ErrUnsupportedImage, err)
	}
	return img, format, nil
}

// FitWidth returns the size an image is inserted at. Images narrower than the
// limit keep their size; wider ones shrink to it. The limit is maxWidth
// clamped to [MinFitWidth, MaxFitWidth].
func FitWidth(pixelW, pixelH, maxWidth int) Size {
	limit := max(MinFitWidth, min(maxWidth, MaxFitWidth))
	if pixelW <= limit {
		return Size{W: max(pixelW, 1), H: max(pixelH, 1)}
	}
	return ScaleToWidth(pixelW, pixelH, limit)
}

func ScaleToWidth(pixelW, pixelH, width int) Size {
	if pixelW <= 0 || pixelH <= 0 || width <= 0 {
		return Size{W: max(width, 1), H: 1}
	}
	h := int(math.Round(float64(width) * float64(pixelH) / float64(pixelW)))
	return Size{W: width, H: max(h, 1)}
}

func ScaleToHeight(pixelW, pixelH, height int) Size {
	if pixelW <= 0 || pixelH <= 0 || height <= 0 {
		return Size{W: 1, H: max(height, 1)}
	}
	w := int(math.Round(float64(height) * float64(pixelW) / float64(pixelH)))
	return Size{W: max(w, 1), H: height}
}

// Resample scales src to w x h with Catmull-Rom filtering.
func Resample(src image.Image, w, h int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)
	return dst
}
