package gowsi

import (
	"image"

	"github.com/reiver/go-endian"
)

// init verifies this host's native byte order matches the fixed
// little-endian BGRA layout every premultiplied ARGB32 buffer in this
// package uses. Byte order is never branched on elsewhere; this just
// asserts the assumption once rather than silently miscompositing on
// an exotic build target.
func init() {
	if endian.NativeEndianness() == endian.Big() {
		panic("gowsi: big-endian host unsupported (ARGB32 buffers are defined little-endian)")
	}
}

// toRGBAImage converts a premultiplied B,G,R,A Canvas into a standard
// library image.RGBA, whose Pix layout is always R,G,B,A premultiplied
// regardless of host byte order. Used by ReadTileFromSlide to hand a
// rendered region to ecosystem image code (imaging) instead of this
// module's own wire format.
func toRGBAImage(c *Canvas) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i := 0; i < c.Width*c.Height; i++ {
		so := i * 4
		b, g, r, a := c.Pix[so], c.Pix[so+1], c.Pix[so+2], c.Pix[so+3]
		img.Pix[so], img.Pix[so+1], img.Pix[so+2], img.Pix[so+3] = r, g, b, a
	}
	return img
}
