package core

import (
	"github.com/nrook/gowsi/internal/grid"
	"github.com/nrook/gowsi/internal/tiff"
	"github.com/nrook/gowsi/internal/tilecache"
)

// Area is a physical sub-rectangle of a level's canvas backed by one
// TIFF directory. OffsetXPixels/OffsetYPixels are pre-converted into
// this level's pixel coordinate system by the vendor decoder at open
// time (Leica: clicks_offset / clicks_per_pixel; generic: always
// zero), so the shared painter below never needs to know about clicks.
type Area struct {
	Owner         tilecache.Owner
	Decoder       *tiff.Decoder
	Dir           *tiff.Directory
	Grid          grid.SimpleGrid
	OffsetXPixels float64
	OffsetYPixels float64
}

// Level is one pyramid level: pixel dimensions, downsample relative
// to level 0, and the areas composited to paint it.
type Level struct {
	Width      int
	Height     int
	Downsample float64
	Areas      []Area
}

// AssociatedImage is a lazily-decoded non-pyramidal thumbnail.
type AssociatedImage struct {
	Width  int
	Height int
	Decode func() (*Canvas, error)
}

// QuickhashInput names what quickhash.Hasher should fingerprint: the
// raw tile bytes of one TIFF directory (DirIndex of Decoder). Kind is
// always QuickhashDirectory; hashing an explicit byte range of the
// file is not supported.
type QuickhashInput struct {
	Kind     QuickhashKind
	Label    string
	DirIndex int
	Decoder  *tiff.Decoder
}

type QuickhashKind int

const (
	QuickhashDirectory QuickhashKind = iota
)

// VendorState is the per-slide record a probe produces: an interface
// rather than a tagged enum plus function-pointer table, so each
// vendor's open-time state stays opaque to everything but its own
// package.
type VendorState interface {
	Levels() []Level
	Properties() *PropertyMap
	AssociatedImages() map[string]AssociatedImage
	QuickhashInput() QuickhashInput
	PaintRegion(cache *tilecache.Cache, cursor ReaderAt, canvas *Canvas, levelIdx int, x, y float64) error
	Close() error
}

// ReaderAt is the minimal interface PaintRegion decodes tiles
// through — satisfied by *fileio.File, kept narrow here so core
// doesn't need to import fileio just for this.
type ReaderAt interface {
	ReadAt(p []byte, off int64) (int, error)
}
