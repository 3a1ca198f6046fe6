package core

import (
	"fmt"

	"github.com/nrook/gowsi/internal/grid"
	"github.com/nrook/gowsi/internal/tilecache"
)

// AreaBackedState is the shared VendorState implementation every
// TIFF-container vendor in this module (Leica, generic) builds on.
// Their region-painting algorithm is identical across them — only how
// Levels/Areas/Properties get populated at open time differs — so it
// lives here once rather than being copy-pasted into each vendor
// package.
type AreaBackedState struct {
	LevelList  []Level
	Props      *PropertyMap
	Assoc      map[string]AssociatedImage
	QHInput    QuickhashInput
	CloseFunc  func() error
}

func (s *AreaBackedState) Levels() []Level                             { return s.LevelList }
func (s *AreaBackedState) Properties() *PropertyMap                     { return s.Props }
func (s *AreaBackedState) AssociatedImages() map[string]AssociatedImage { return s.Assoc }
func (s *AreaBackedState) QuickhashInput() QuickhashInput               { return s.QHInput }

func (s *AreaBackedState) Close() error {
	if s.CloseFunc == nil {
		return nil
	}
	return s.CloseFunc()
}

// PaintRegion renders the requested rect of levelIdx: for each Area in
// the level, it computes the area-local pixel origin of the rect and
// runs a grid paint through the tile cache, decoding on miss.
func (s *AreaBackedState) PaintRegion(cache *tilecache.Cache, cursor ReaderAt, canvas *Canvas, levelIdx int, x, y float64) error {
	if levelIdx < 0 || levelIdx >= len(s.LevelList) {
		return fmt.Errorf("level %d out of range", levelIdx)
	}
	level := s.LevelList[levelIdx]

	for i := range level.Areas {
		area := &level.Areas[i]
		ax := x - area.OffsetXPixels
		ay := y - area.OffsetYPixels

		err := grid.PaintRegion(area.Grid, ax, ay, canvas.Width, canvas.Height, func(col, row int, originX, originY float64) error {
			return paintOneTile(cache, cursor, canvas, area, col, row, originX, originY)
		})
		if err != nil {
			return fmt.Errorf("couldn't paint area (directory %d): %w", area.Dir.Index, err)
		}
	}
	return nil
}

func paintOneTile(cache *tilecache.Cache, cursor ReaderAt, canvas *Canvas, area *Area, col, row int, originX, originY float64) error {
	key := tilecache.Key{Owner: area.Owner, Col: col, Row: row}

	if h, ok := cache.Get(key); ok {
		defer h.Release()
		canvas.BlitTile(h.Bytes(), area.Dir.TileWidth, area.Dir.TileHeight, originX, originY)
		return nil
	}

	buf := make([]byte, area.Dir.TileWidth*area.Dir.TileHeight*4)
	if err := area.Decoder.ReadTile(cursor, area.Dir, col, row, buf); err != nil {
		return fmt.Errorf("Cannot read TIFF tile (%d,%d): %w", col, row, err)
	}

	h := cache.Put(key, buf)
	defer h.Release()
	canvas.BlitTile(h.Bytes(), area.Dir.TileWidth, area.Dir.TileHeight, originX, originY)
	return nil
}
