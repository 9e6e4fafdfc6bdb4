package imaging

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"draftpad/pkg/draftdoc"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xFF})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeInfo(t *testing.T) {
	info, err := DecodeInfo(pngBytes(t, 40, 20))
	if err != nil {
		t.Fatalf("decode info failed: %v", err)
	}
	if info.Format != "png" || info.Width != 40 || info.Height != 20 {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestDecodeInfoRejectsGarbage(t *testing.T) {
	_, err := DecodeInfo([]byte("definitely not an image"))
	if !errors.Is(err, draftdoc.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage, got %v", err)
	}
	if _, _, err := Decode(nil); !errors.Is(err, draftdoc.ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage from Decode, got %v", err)
	}
}

func TestFitWidth(t *testing.T) {
	cases := []struct {
		w, h, max int
		want      Size
	}{
		{w: 300, h: 200, max: 600, want: Size{300, 200}},
		{w: 1200, h: 600, max: 600, want: Size{600, 300}},
		{w: 1200, h: 600, max: 2000, want: Size{600, 300}},
		{w: 1200, h: 600, max: 50, want: Size{100, 50}},
		{w: 800, h: 600, max: 400, want: Size{400, 300}},
		{w: 90, h: 10, max: 50, want: Size{90, 10}},
	}
	for _, tc := range cases {
		if got := FitWidth(tc.w, tc.h, tc.max); got != tc.want {
			t.Errorf("FitWidth(%d, %d, %d) = %+v, want %+v", tc.w, tc.h, tc.max, got, tc.want)
		}
	}
}

func TestScaleKeepsAspectRatio(t *testing.T) {
	if got := ScaleToWidth(800, 400, WidthMedium); got != (Size{350, 175}) {
		t.Errorf("ScaleToWidth = %+v", got)
	}
	if got := ScaleToHeight(800, 400, 100); got != (Size{200, 100}) {
		t.Errorf("ScaleToHeight = %+v", got)
	}
	if got := ScaleToWidth(1000, 1, WidthSmall); got.H != 1 {
		t.Errorf("height must not collapse to zero: %+v", got)
	}
}

func TestResample(t *testing.T) {
	src, _, err := Decode(pngBytes(t, 64, 32))
	if err != nil {
		t.Fatal(err)
	}
	dst := Resample(src, 16, 8)
	if b := dst.Bounds(); b.Dx() != 16 || b.Dy() != 8 {
		t.Fatalf("unexpected bounds %v", b)
	}
	if _, _, _, a := dst.At(8, 4).RGBA(); a == 0 {
		t.Fatalf("resampled pixel is transparent")
	}
}
