// Package grid maps a caller's rectangular region draw, expressed in
// level pixel coordinates, onto the set of tile reads that cover it.
// The "simple" grid (the only kind any vendor in this module needs)
// holds tiles_across × tiles_down cells of identical size; sub-pixel
// placement is handled by the caller's blit, not by this package,
// keeping rasterising separate from tile-rectangle bookkeeping.
package grid

import "math"

// ReadTileFunc is invoked once per tile intersecting the requested
// region, in row-major order. originX/originY are the fractional
// offset (in destination-surface pixels) at which the tile's
// top-left corner should be painted — negative when the region's
// corner falls inside the tile rather than on a tile boundary.
// Returning an error stops the paint and is propagated by PaintRegion.
type ReadTileFunc func(col, row int, originX, originY float64) error

// SimpleGrid is a uniform tile grid: tilesAcross × tilesDown cells of
// tileWidth × tileHeight pixels each.
type SimpleGrid struct {
	TilesAcross int
	TilesDown   int
	TileWidth   int
	TileHeight  int
}

// NewSimpleGrid builds a tile grid from the given tile geometry; the
// returned value is what PaintRegion dispatches draws through.
func NewSimpleGrid(tilesAcross, tilesDown, tileWidth, tileHeight int) SimpleGrid {
	return SimpleGrid{TilesAcross: tilesAcross, TilesDown: tilesDown, TileWidth: tileWidth, TileHeight: tileHeight}
}

// PaintRegion computes the tile-column and tile-row ranges
// intersecting [x, x+w) × [y, y+h) and invokes read for each, in
// row-major order, translating each call's origin to the position
// that tile's top-left corner should land at on the destination
// surface. Tiles outside the grid's bounds are skipped without
// calling read, clamping the requested range to the grid's own
// bounds.
func PaintRegion(g SimpleGrid, x, y float64, w, h int, read ReadTileFunc) error {
	if w <= 0 || h <= 0 {
		return nil
	}
	if g.TileWidth <= 0 || g.TileHeight <= 0 {
		return nil
	}

	colLo := int(math.Floor(x / float64(g.TileWidth)))
	colHi := int(math.Floor((x + float64(w) - 1) / float64(g.TileWidth)))
	rowLo := int(math.Floor(y / float64(g.TileHeight)))
	rowHi := int(math.Floor((y + float64(h) - 1) / float64(g.TileHeight)))

	if colLo < 0 {
		colLo = 0
	}
	if rowLo < 0 {
		rowLo = 0
	}
	if colHi > g.TilesAcross-1 {
		colHi = g.TilesAcross - 1
	}
	if rowHi > g.TilesDown-1 {
		rowHi = g.TilesDown - 1
	}

	for row := rowLo; row <= rowHi; row++ {
		for col := colLo; col <= colHi; col++ {
			originX := float64(col*g.TileWidth) - x
			originY := float64(row*g.TileHeight) - y
			if err := read(col, row, originX, originY); err != nil {
				return err
			}
		}
	}
	return nil
}
