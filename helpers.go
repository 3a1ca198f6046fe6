package gowsi

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ReadTileFromSlide renders t's source region from slide and resamples
// it to the Deep Zoom tile's exact pixel size, compositing over white
// first since Canvas regions with no area coverage come back
// transparent black rather than the opaque background a viewer
// expects.
func ReadTileFromSlide(t Tile, slide *Slide) (image.Image, error) {
	region, err := slide.ReadRegion(t.tileInfo.l0Location.X, t.tileInfo.l0Location.Y, t.tileInfo.slideLevel, t.tileInfo.lSize.X, t.tileInfo.lSize.Y)
	if err != nil {
		return nil, err
	}
	tile := toRGBAImage(region)

	bg := imaging.New(tile.Bounds().Dx(), tile.Bounds().Dy(), color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	composited := imaging.OverlayCenter(bg, tile, 1)

	if composited.Bounds().Dx() != t.tileInfo.zSize.X || composited.Bounds().Dy() != t.tileInfo.zSize.Y {
		composited = imaging.Thumbnail(composited, t.tileInfo.zSize.X, t.tileInfo.zSize.Y, imaging.Lanczos)
	}
	return composited, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func reverse[T comparable](a []T) {
	for i := len(a)/2 - 1; i >= 0; i-- {
		opp := len(a) - 1 - i
		a[i], a[opp] = a[opp], a[i]
	}
}
