package gowsi

import (
	"context"
	"errors"
	"image"
	"math"
	"strconv"
)

type (
	// DeepZoomGenerator renders a Slide as a Deep Zoom Image pyramid:
	// a sequence of power-of-two-downsampled levels, each tiled into
	// fixed-size squares with optional overlap, the way OpenSeadragon
	// and similar tiled viewers expect to consume a gigapixel image.
	DeepZoomGenerator struct {
		slide       *Slide
		tileSize    int
		overlap     int
		limitBounds bool

		deepZoomTileLevels []image.Point
		deepZoomLevels     []image.Point
		level0Offset       image.Point
		levels             []image.Point
		downsamples        []downsample
	}

	// Tile addresses one Deep Zoom tile by (level, col, row) plus the
	// source-slide region it renders from.
	Tile struct {
		Level int
		Row   int
		Col   int

		tileInfo
	}

	tileInfo struct {
		l0Location image.Point
		lSize      image.Point
		zSize      image.Point
		slideLevel int
	}
)

// Tile returns the tile object at (level, col, row).
func (dz *DeepZoomGenerator) Tile(level, col, row int) (Tile, error) {
	ti, err := dz.tileInfo(level, col, row)
	if err != nil {
		return Tile{}, err
	}

	return Tile{
		Level:    level,
		Row:      row,
		Col:      col,
		tileInfo: ti,
	}, nil
}

// Iter streams every tile across every Deep Zoom level, row-major
// within each level, stopping early if ctx is cancelled.
func (dz *DeepZoomGenerator) Iter(ctx context.Context) <-chan Tile {
	ch := make(chan Tile)
	go func() {
		defer close(ch)
		for level := 0; level < dz.LevelsCount(); level++ {
			cols, rows := dz.Level(level).X, dz.Level(level).Y
			for row := 0; row < rows; row++ {
				for col := 0; col < cols; col++ {
					tile, err := dz.Tile(level, col, row)
					if err != nil {
						continue
					}
					select {
					case <-ctx.Done():
						return
					case ch <- tile:
					}
				}
			}
		}
	}()
	return ch
}

func getDeepZoomLevels(zSize image.Point) []image.Point {
	zDimensions := []image.Point{zSize}
	for {
		if zSize.X <= 1 && zSize.Y <= 1 {
			break
		}
		zSize = image.Point{
			X: int(math.Max(1, math.Ceil(float64(zSize.X)/2))),
			Y: int(math.Max(1, math.Ceil(float64(zSize.Y)/2))),
		}
		zDimensions = append(zDimensions, zSize)
	}
	reverse(zDimensions)
	return zDimensions
}

func tileCount(tileSize, zLim int) int {
	return int(math.Ceil(float64(zLim) / float64(tileSize)))
}

func getDeepZoomTileLevels(tileSize int, dimensions []image.Point) (r []image.Point) {
	for _, d := range dimensions {
		r = append(r, image.Point{X: tileCount(tileSize, d.X), Y: tileCount(tileSize, d.Y)})
	}
	return r
}

type downsample struct {
	slideLevel          levelDownsample
	bestLevelDownsample float64
}

type levelDownsample struct {
	level      int
	downsample float64
	image.Point
}

func generateDownsamples(slide *Slide, dzLevelsCount int) ([]downsample, error) {
	var downsamples []downsample

	for dzLevel := 0; dzLevel < dzLevelsCount; dzLevel++ {
		l0ZDownsample := math.Pow(2, float64(dzLevelsCount)-float64(dzLevel)-1)
		bestLevel := slide.BestLevelForDownsample(l0ZDownsample)
		w, h, err := slide.LevelDimensions(bestLevel)
		if err != nil {
			return nil, err
		}
		bestDownsample, err := slide.LevelDownsample(bestLevel)
		if err != nil {
			return nil, err
		}
		downsamples = append(downsamples, downsample{
			slideLevel: levelDownsample{
				level:      bestLevel,
				downsample: bestDownsample,
				Point:      image.Point{X: w, Y: h},
			},
			bestLevelDownsample: l0ZDownsample / bestDownsample,
		})
	}
	return downsamples, nil
}

func propertyInt(slide *Slide, key string, fallback int) int {
	v, ok := slide.Properties().Get(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getLevel0Offset(slide *Slide, limitBounds bool) image.Point {
	if !limitBounds {
		return image.Point{}
	}
	return image.Point{
		X: propertyInt(slide, PropertyBoundsX, 0),
		Y: propertyInt(slide, PropertyBoundsY, 0),
	}
}

// NewDeepZoomGenerator builds a DeepZoomGenerator over slide. tileSize
// and overlap are in pixels; limitBounds scales level dimensions down
// to the vendor-reported bounds rectangle (openslide.bounds-*) when
// one is present, matching the upstream OpenSlide Python binding's
// DeepZoomGenerator option of the same name.
func NewDeepZoomGenerator(slide *Slide, tileSize int, overlap int, limitBounds bool) (*DeepZoomGenerator, error) {
	levels, err := getLevelDimensions(slide, limitBounds)
	if err != nil {
		return nil, err
	}
	deepZoomLevels := getDeepZoomLevels(levels[0])
	deepZoomTileLevels := getDeepZoomTileLevels(tileSize, deepZoomLevels)
	downsamples, err := generateDownsamples(slide, len(deepZoomTileLevels))
	if err != nil {
		return nil, err
	}
	return &DeepZoomGenerator{
		slide:              slide,
		tileSize:           tileSize,
		overlap:            overlap,
		deepZoomTileLevels: deepZoomTileLevels,
		deepZoomLevels:     deepZoomLevels,
		levels:             levels,
		level0Offset:       getLevel0Offset(slide, limitBounds),
		downsamples:        downsamples,
	}, nil
}

// Read renders the image.Image for one Deep Zoom tile.
func (dz *DeepZoomGenerator) Read(_ context.Context, t Tile) (image.Image, error) {
	return ReadTileFromSlide(t, dz.slide)
}

// LevelsCount is the number of Deep Zoom levels (not slide levels).
func (dz *DeepZoomGenerator) LevelsCount() int {
	return len(dz.downsamples)
}

// LevelTiles is the tile grid shape (columns, rows) for every Deep Zoom level.
func (dz *DeepZoomGenerator) LevelTiles() []image.Point {
	return dz.deepZoomTileLevels
}

// Level returns the tile grid shape for one Deep Zoom level.
func (dz *DeepZoomGenerator) Level(level int) image.Point {
	return dz.deepZoomTileLevels[level]
}

// LevelDimensions is the pixel dimensions of every Deep Zoom level.
func (dz *DeepZoomGenerator) LevelDimensions() []image.Point {
	return dz.deepZoomLevels
}

// TileCount is the total tile count across every Deep Zoom level.
func (dz *DeepZoomGenerator) TileCount() int {
	var sum int
	for _, dimension := range dz.deepZoomTileLevels {
		sum += dimension.X * dimension.Y
	}
	return sum
}

type deepZoomOverlap struct {
	top    int
	left   int
	bottom int
	right  int
}

func getDeepZoomOverlap(levelDimension image.Point, overlap, col, row int) deepZoomOverlap {
	return deepZoomOverlap{
		left:   overlap * boolToInt(col != 0),
		top:    overlap * boolToInt(row != 0),
		right:  overlap * boolToInt(col != levelDimension.X-1),
		bottom: overlap * boolToInt(row != levelDimension.Y-1),
	}
}

func (dz *DeepZoomGenerator) tileInfo(dzLevel, col, row int) (tileInfo, error) {
	if dzLevel < 0 || dzLevel >= len(dz.downsamples) {
		return tileInfo{}, errors.New("invalid Deep Zoom level")
	}
	if col < 0 || row < 0 {
		return tileInfo{}, errors.New("invalid address")
	}

	level := dz.downsamples[dzLevel]

	dzOverlap := getDeepZoomOverlap(dz.Level(dzLevel), dz.overlap, col, row)

	zSize := image.Point{
		X: int(math.Min(
			float64(dz.tileSize),
			float64(dz.deepZoomLevels[dzLevel].X-dz.tileSize*col),
		)) + dzOverlap.left + dzOverlap.right,
		Y: int(math.Min(
			float64(dz.tileSize),
			float64(dz.deepZoomLevels[dzLevel].Y-dz.tileSize*row),
		)) + dzOverlap.top + dzOverlap.bottom,
	}
	zLocation := image.Point{
		X: dz.tileSize * col,
		Y: dz.tileSize * row,
	}
	lLocation := [2]float64{
		level.bestLevelDownsample * (float64(zLocation.X) - float64(dzOverlap.left)),
		level.bestLevelDownsample * (float64(zLocation.Y) - float64(dzOverlap.top)),
	}
	l0Location := image.Point{
		X: int(level.slideLevel.downsample*lLocation[0] + float64(dz.level0Offset.X)),
		Y: int(level.slideLevel.downsample*lLocation[1] + float64(dz.level0Offset.Y)),
	}

	lSize := image.Point{
		X: int(math.Min(
			math.Ceil(level.bestLevelDownsample*float64(zSize.X)),
			float64(level.slideLevel.X)-math.Ceil(lLocation[0]),
		)),
		Y: int(math.Min(
			math.Ceil(level.bestLevelDownsample*float64(zSize.Y)),
			float64(level.slideLevel.Y)-math.Ceil(lLocation[1]),
		)),
	}

	return tileInfo{
		l0Location: l0Location,
		lSize:      lSize,
		zSize:      zSize,
		slideLevel: level.slideLevel.level,
	}, nil
}

func getLevelDimensions(slide *Slide, limitBounds bool) ([]image.Point, error) {
	lCount := slide.LevelCount()
	dimensions := make([]image.Point, 0, lCount)
	for i := 0; i < lCount; i++ {
		w, h, err := slide.LevelDimensions(i)
		if err != nil {
			return nil, err
		}
		dimensions = append(dimensions, image.Point{X: w, Y: h})
	}

	if !limitBounds {
		return dimensions, nil
	}

	l0width, l0height := dimensions[0].X, dimensions[0].Y
	boundsWidth := propertyInt(slide, PropertyBoundsWidth, l0width)
	boundsHeight := propertyInt(slide, PropertyBoundsHeight, l0height)
	xRatio := float64(boundsWidth) / float64(l0width)
	yRatio := float64(boundsHeight) / float64(l0height)
	for i := range dimensions {
		dimensions[i].X = int(math.Ceil(float64(dimensions[i].X) * xRatio))
		dimensions[i].Y = int(math.Ceil(float64(dimensions[i].Y) * yRatio))
	}

	return dimensions, nil
}
