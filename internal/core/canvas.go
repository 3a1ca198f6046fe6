package core

import "image"

// Canvas is the destination surface paint_region writes into: a w×h
// buffer of premultiplied ARGB32 pixels, stored B,G,R,A per pixel in
// native (little-endian-host) byte order. gowsi.Canvas is a type
// alias onto this so the public package and the vendor-facing
// internal packages share one representation without an import
// cycle (vendor packages construct/paint Canvases; the root package
// only re-exports the name callers see).
type Canvas struct {
	Width  int
	Height int
	Pix    []byte
}

// NewCanvas allocates a fully transparent w×h canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{Width: w, Height: h, Pix: make([]byte, w*h*4)}
}

// BlitTile composites a tileW×tileH premultiplied-ARGB32 tile onto the
// canvas with its top-left corner at (originX, originY), rounded to
// the nearest destination pixel. Rounding rather than resampling
// keeps area seams within spec's one-pixel tolerance without pulling
// in a resampling kernel for what is, in practice, a sub-pixel nudge
// between adjacent areas. Pixels falling outside the canvas clip
// silently.
func (c *Canvas) BlitTile(tile []byte, tileW, tileH int, originX, originY float64) {
	ox := roundToInt(originX)
	oy := roundToInt(originY)

	for ty := 0; ty < tileH; ty++ {
		dy := oy + ty
		if dy < 0 || dy >= c.Height {
			continue
		}
		srcRow := ty * tileW * 4
		dstRow := dy * c.Width * 4
		for tx := 0; tx < tileW; tx++ {
			dx := ox + tx
			if dx < 0 || dx >= c.Width {
				continue
			}
			si := srcRow + tx*4
			di := dstRow + dx*4
			compositeOver(c.Pix[di:di+4], tile[si:si+4])
		}
	}
}

func compositeOver(dst, src []byte) {
	srcA := int(src[3])
	if srcA == 255 {
		dst[0], dst[1], dst[2], dst[3] = src[0], src[1], src[2], src[3]
		return
	}
	if srcA == 0 {
		return
	}
	inv := 255 - srcA
	for k := 0; k < 3; k++ {
		dst[k] = byte((int(src[k])*255 + int(dst[k])*inv) / 255)
	}
	dst[3] = byte((srcA*255 + int(dst[3])*inv) / 255)
}

func roundToInt(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return -int(-f + 0.5)
}

// ToNRGBA un-premultiplies c into a standard image.NRGBA, the form
// third-party image tooling (disintegration/imaging) expects.
func (c *Canvas) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, c.Width, c.Height))
	for i := 0; i < c.Width*c.Height; i++ {
		b, g, r, a := c.Pix[i*4], c.Pix[i*4+1], c.Pix[i*4+2], c.Pix[i*4+3]
		var nr, ng, nb byte
		if a != 0 {
			nr = byte(uint16(r) * 255 / uint16(a))
			ng = byte(uint16(g) * 255 / uint16(a))
			nb = byte(uint16(b) * 255 / uint16(a))
		}
		off := i * 4
		img.Pix[off], img.Pix[off+1], img.Pix[off+2], img.Pix[off+3] = nr, ng, nb, a
	}
	return img
}

// FromNRGBA re-premultiplies a standard image.NRGBA (as produced by
// disintegration/imaging transforms) back into a Canvas.
func FromNRGBA(img *image.NRGBA) *Canvas {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	c := NewCanvas(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			so := img.PixOffset(b.Min.X+x, b.Min.Y+y)
			r, g, bl, a := img.Pix[so], img.Pix[so+1], img.Pix[so+2], img.Pix[so+3]
			pr := byte(uint16(r) * uint16(a) / 255)
			pg := byte(uint16(g) * uint16(a) / 255)
			pb := byte(uint16(bl) * uint16(a) / 255)
			do := (y*w + x) * 4
			c.Pix[do], c.Pix[do+1], c.Pix[do+2], c.Pix[do+3] = pb, pg, pr, a
		}
	}
	return c
}
