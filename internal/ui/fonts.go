package ui

import (
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/font/gofont/gomonobolditalic"
	"golang.org/x/image/font/gofont/gomonoitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"draftpad/pkg/draftdoc"
)

type fontKey struct {
	mono   bool
	size   int
	bold   bool
	italic bool
	scale  int
}

// FontBank caches faces for each style. The Go fonts have no serif cut, so
// serif text uses the proportional faces.
type FontBank struct {
	sans  [4]*opentype.Font
	mono  [4]*opentype.Font
	cache map[fontKey]font.Face
}

func NewFontBank() (*FontBank, error) {
	bank := &FontBank{cache: map[fontKey]font.Face{}}
	for i, ttf := range [][]byte{goregular.TTF, gobold.TTF, goitalic.TTF, gobolditalic.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, err
		}
		bank.sans[i] = f
	}
	for i, ttf := range [][]byte{gomono.TTF, gomonobold.TTF, gomonoitalic.TTF, gomonobolditalic.TTF} {
		f, err := opentype.Parse(ttf)
		if err != nil {
			return nil, err
		}
		bank.mono[i] = f
	}
	return bank, nil
}

// Face returns the face for attr at the given UI scale.
func (b *FontBank) Face(attr draftdoc.StyleAttr, scale float32) font.Face {
	size := int(attr.FontSizePt)
	if size <= 0 {
		size = int(draftdoc.DefaultFontSizePt)
	}
	return b.face(attr.FontFamily == draftdoc.FontFamilyMonospace, size, attr.Bold, attr.Italic, scale)
}

// UIFace is the face used for the status bar.
func (b *FontBank) UIFace(size int, scale float32) font.Face {
	return b.face(false, size, false, false, scale)
}

func (b *FontBank) face(mono bool, size int, bold, italic bool, scale float32) font.Face {
	if scale <= 0 {
		scale = 1
	}
	key := fontKey{mono: mono, size: size, bold: bold, italic: italic, scale: int(math.Round(float64(scale) * 1000))}
	if f, ok := b.cache[key]; ok {
		return f
	}
	idx := 0
	if bold {
		idx |= 1
	}
	if italic {
		idx |= 2
	}
	base := b.sans[idx]
	if mono {
		base = b.mono[idx]
	}
	if base == nil {
		return basicfont.Face7x13
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: float64(size) * float64(scale), DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return basicfont.Face7x13
	}
	b.cache[key] = face
	return face
}

// Advance is the width of s in whole pixels, summed glyph by glyph so that
// prefixes and whole strings always agree.
func Advance(face font.Face, s string) int {
	w := 0
	for _, r := range s {
		w += runeAdvance(face, r)
	}
	return w
}

func runeAdvance(face font.Face, r rune) int {
	adv, ok := face.GlyphAdvance(r)
	if !ok {
		adv, _ = face.GlyphAdvance('?')
	}
	return fixedPx(adv)
}

func fixedPx(v fixed.Int26_6) int {
	return max((int(v)+32)>>6, 0)
}
