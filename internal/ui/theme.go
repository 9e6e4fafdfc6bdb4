package ui

import "image/color"

type Theme struct {
	Background color.RGBA
	Paper      color.RGBA
	Border     color.RGBA
	StatusBar  color.RGBA
	StatusText color.RGBA
	Caret      color.RGBA
	Selection  color.RGBA
	ImageFrame color.RGBA
	Highlight  color.RGBA

	Saved   color.RGBA
	Pending color.RGBA
	Failed  color.RGBA

	StatusHeightDp int
	MarginDp       int
	PaddingDp      int
	LineGapDp      int
	BlockGapDp     int
}

func DefaultTheme() Theme {
	return Theme{
		Background: color.RGBA{0xE2, 0xE7, 0xEF, 0xFF},
		Paper:      color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:     color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		StatusBar:  color.RGBA{0xEA, 0xEF, 0xF6, 0xFF},
		StatusText: color.RGBA{0x2A, 0x38, 0x50, 0xFF},
		Caret:      color.RGBA{0x15, 0x54, 0xA4, 0xFF},
		Selection:  color.RGBA{0x5B, 0x8D, 0xEF, 0x60},
		ImageFrame: color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		Highlight:  color.RGBA{0xFF, 0xF4, 0xA8, 0xFF},

		Saved:   color.RGBA{0x3C, 0xA5, 0x5C, 0xFF},
		Pending: color.RGBA{0xE6, 0xA2, 0x3C, 0xFF},
		Failed:  color.RGBA{0xC6, 0x28, 0x28, 0xFF},

		StatusHeightDp: 22,
		MarginDp:       6,
		PaddingDp:      10,
		LineGapDp:      3,
		BlockGapDp:     6,
	}
}
