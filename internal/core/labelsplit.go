package core

import (
	"image"

	"github.com/disintegration/imaging"
)

// LabelInMacroVendors names the vendor hints (sniffed loosely from
// directory 0's ImageDescription by the generic-tiff probe) whose
// macro image actually packs a rotated label strip alongside it.
var LabelInMacroVendors = map[string]struct{}{
	"hamamatsu": {},
	"ventana":   {},
}

// IsLabelInMacroVendor reports whether hint (already lower-cased by
// the caller) names a vendor known to pack its label into the macro
// image rather than shipping it as a separate directory.
func IsLabelInMacroVendor(hint string) bool {
	_, ok := LabelInMacroVendors[hint]
	return ok
}

// SplitLabelFromMacro crops the label or macro half out of a combined
// label+macro canvas. Portrait inputs are rotated 90° first so the
// label strip always ends up in the left portion of a landscape image,
// matching the Hamamatsu/Ventana layout convention.
func SplitLabelFromMacro(combined *Canvas, wantLabel bool) *Canvas {
	img := combined.ToNRGBA()
	width, height := img.Bounds().Dx(), img.Bounds().Dy()

	var rotated image.Image = img
	threshold := height
	if height > width {
		threshold = width
		rotated = imaging.Rotate(img, 90, image.Transparent)
	}

	b := rotated.Bounds()
	var cropped image.Image
	if wantLabel {
		cropped = imaging.Crop(rotated, image.Rect(0, 0, threshold, b.Dy()))
	} else {
		cropped = imaging.Crop(rotated, image.Rect(threshold, 0, b.Dx(), b.Dy()))
	}

	return FromNRGBA(imaging.Clone(cropped))
}
