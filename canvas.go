package gowsi

import "github.com/nrook/gowsi/internal/core"

// Canvas is the destination surface ReadRegion writes into: a w×h
// buffer of premultiplied ARGB32 pixels, stored B,G,R,A per pixel in
// little-endian host byte order. Defined once in internal/core so
// vendor decoders can paint one without importing this root package;
// this is a type alias, not a copy.
type Canvas = core.Canvas

// NewCanvas allocates a fully transparent w×h canvas.
func NewCanvas(w, h int) *Canvas {
	return core.NewCanvas(w, h)
}
