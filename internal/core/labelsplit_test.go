package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func solidCanvas(w, h int, b, g, r, a byte) *Canvas {
	c := NewCanvas(w, h)
	for i := 0; i < w*h; i++ {
		off := i * 4
		c.Pix[off], c.Pix[off+1], c.Pix[off+2], c.Pix[off+3] = b, g, r, a
	}
	return c
}

func TestIsLabelInMacroVendor(t *testing.T) {
	assert.True(t, IsLabelInMacroVendor("hamamatsu"))
	assert.True(t, IsLabelInMacroVendor("ventana"))
	assert.False(t, IsLabelInMacroVendor("leica"))
	assert.False(t, IsLabelInMacroVendor(""))
}

func TestSplitLabelFromMacro_LandscapeInputIsNotRotated(t *testing.T) {
	combined := solidCanvas(20, 8, 1, 2, 3, 255)

	label := SplitLabelFromMacro(combined, true)
	macro := SplitLabelFromMacro(combined, false)

	assert.Equal(t, 8, label.Width)
	assert.Equal(t, 8, label.Height)
	assert.Equal(t, 12, macro.Width)
	assert.Equal(t, 8, macro.Height)
}

func TestSplitLabelFromMacro_PortraitInputIsRotatedFirst(t *testing.T) {
	combined := solidCanvas(8, 20, 1, 2, 3, 255)

	label := SplitLabelFromMacro(combined, true)
	macro := SplitLabelFromMacro(combined, false)

	// Rotated 90deg: becomes 20 wide x 8 tall before cropping, so the
	// shorter side (threshold) is still 8.
	assert.Equal(t, 8, label.Width)
	assert.Equal(t, 8, label.Height)
	assert.Equal(t, 12, macro.Width)
	assert.Equal(t, 8, macro.Height)
}

func TestSplitLabelFromMacro_SquareInputIsAllLabel(t *testing.T) {
	combined := solidCanvas(16, 16, 1, 2, 3, 255)

	label := SplitLabelFromMacro(combined, true)
	macro := SplitLabelFromMacro(combined, false)

	assert.Equal(t, 16, label.Width)
	assert.Equal(t, 16, label.Height)
	assert.Equal(t, 0, macro.Width)
	assert.Equal(t, 0, macro.Height)
}
