package gowsi

import "github.com/nrook/gowsi/internal/core"

// Well-known property keys. Vendor modules add their own "<vendor>.*"
// raw-metadata keys on top of these.
const (
	PropertyVendor          = "openslide.vendor"
	PropertyQuickHash1      = "openslide.quickhash-1"
	PropertyBackgroundColor = "openslide.background-color"
	PropertyBoundsHeight    = "openslide.bounds-height"
	PropertyBoundsWidth     = "openslide.bounds-width"
	PropertyBoundsX         = "openslide.bounds-x"
	PropertyBoundsY         = "openslide.bounds-y"
	PropertyMPPX            = "openslide.mpp-x"
	PropertyMPPY            = "openslide.mpp-y"
	PropertyObjectivePower  = "openslide.objective-power"
	PropertyComment         = "openslide.comment"
	PropertyLevelCount      = "openslide.level-count"
)

// levelPropertyKey synthesizes the per-level
// "openslide.level[i].*" keys. These are never stored in the
// PropertyMap directly (Slide.Properties derives them from Level on
// read), so they stay consistent with the Level slice by construction.
func levelPropertyKey(i int, suffix string) string {
	return "openslide.level[" + itoa(i) + "]." + suffix
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

// PropertyMap is an ordered mapping from UTF-8 property name to UTF-8
// value. Keys are unique: a second Set on an existing key replaces the
// value in place without moving it to the end of iteration order.
// Defined once in internal/core so vendor packages can build one
// without importing this root package (which would cycle back into
// internal/vendor); this is a type alias, not a copy.
type PropertyMap = core.PropertyMap

// NewPropertyMap returns an empty PropertyMap.
func NewPropertyMap() *PropertyMap {
	return core.NewPropertyMap()
}
