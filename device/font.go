package device

import (
	"image"

	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var face = basicfont.Face7x13

// Glyph cell size in dots at magnification 1.
var (
	FontWidth  = face.Advance
	FontHeight = face.Ascent + face.Descent
)

type glyph struct {
	mask image.Image
	at   image.Point
}

// lookupGlyph returns the bitmap for character code c. Codes 0x80-0xff are
// taken as Latin-1. Codes the font lacks come back blank.
func lookupGlyph(c uint8) glyph {
	_, mask, mp, _, ok := face.Glyph(fixed.P(0, face.Ascent), rune(c))
	if !ok {
		return glyph{}
	}
	return glyph{mask: mask, at: mp}
}

// dot reports whether the dot at col, row of the cell is lit.
func (g glyph) dot(col, row int) bool {
	if g.mask == nil || col >= face.Width {
		return false
	}
	_, _, _, a := g.mask.At(g.at.X+col, g.at.Y+row).RGBA()
	return a != 0
}
