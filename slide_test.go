package gowsi

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nrook/gowsi/internal/tiff"
)

// --- minimal single-directory classic-TIFF builder carrying a Leica
// SCN ImageDescription, just enough for vendor.Probe to dispatch to
// leica and for Slide to have something real to query.

const (
	tTagImageWidth       = 256
	tTagImageHeight      = 257
	tTagCompression      = 259
	tTagPhotometric      = 262
	tTagImageDescription = 270
	tTagSamplesPerPixel  = 277
	tTagTileWidth        = 322
	tTagTileLength       = 323
	tTagTileOffsets      = 324
	tTagTileByteCounts   = 325

	tTypeShort = 3
	tTypeASCII = 2
	tTypeLong  = 4
)

type builtEntry struct {
	tag, typ uint16
	count    uint32
	inline   [4]byte
	external []byte
}

func shortE(tag uint16, v uint16) builtEntry {
	var e builtEntry
	e.tag, e.typ, e.count = tag, tTypeShort, 1
	binary.LittleEndian.PutUint16(e.inline[:], v)
	return e
}

func longE(tag uint16, v uint32) builtEntry {
	var e builtEntry
	e.tag, e.typ, e.count = tag, tTypeLong, 1
	binary.LittleEndian.PutUint32(e.inline[:], v)
	return e
}

func asciiE(tag uint16, s string) builtEntry {
	b := append([]byte(s), 0)
	e := builtEntry{tag: tag, typ: tTypeASCII, count: uint32(len(b))}
	if len(b) <= 4 {
		copy(e.inline[:], b)
	} else {
		e.external = b
	}
	return e
}

func buildSingleDirTIFF(t *testing.T, width, height int, imageDesc string, color [3]byte) []byte {
	t.Helper()
	const headerSize = 8

	entries := []builtEntry{
		shortE(tTagImageWidth, uint16(width)),
		shortE(tTagImageHeight, uint16(height)),
		shortE(tTagCompression, tiff.CompressionNone),
		shortE(tTagPhotometric, tiff.PhotometricRGB),
		shortE(tTagSamplesPerPixel, 3),
		shortE(tTagTileWidth, uint16(width)),
		shortE(tTagTileLength, uint16(height)),
		longE(tTagTileOffsets, 0),
		longE(tTagTileByteCounts, 0),
		asciiE(tTagImageDescription, imageDesc),
	}

	ifdSize := 2 + len(entries)*12 + 4
	cursor := headerSize + ifdSize

	externalOffsets := make([]int, len(entries))
	for i, e := range entries {
		externalOffsets[i] = -1
		if e.external != nil {
			externalOffsets[i] = cursor
			cursor += len(e.external)
		}
	}
	tileDataOffset := cursor

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(headerSize))

	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for i, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.typ)
		binary.Write(&buf, binary.LittleEndian, e.count)
		switch {
		case e.tag == tTagTileOffsets:
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(tileDataOffset))
			buf.Write(v[:])
		case e.tag == tTagTileByteCounts:
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(width*height*3))
			buf.Write(v[:])
		case e.external != nil:
			var v [4]byte
			binary.LittleEndian.PutUint32(v[:], uint32(externalOffsets[i]))
			buf.Write(v[:])
		default:
			buf.Write(e.inline[:])
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	require.Equal(t, headerSize+ifdSize, buf.Len())

	for _, e := range entries {
		if e.external != nil {
			buf.Write(e.external)
		}
	}
	for p := 0; p < width*height; p++ {
		buf.WriteByte(color[0])
		buf.WriteByte(color[1])
		buf.WriteByte(color[2])
	}

	return buf.Bytes()
}

func writeSlideFixture(t *testing.T, raw []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "slide.scn")
	require.NoError(t, os.WriteFile(p, raw, 0644))
	return p
}

const scnOneLevel = `<?xml version="1.0"?>
<scn xmlns="http://www.leica-microsystems.com/scn/2010/10/01">
  <collection sizeX="32" sizeY="32">
    <barcode>SLIDE-1</barcode>
    <image>
      <scanSettings>
        <illuminationSettings><illuminationSource>brightfield</illuminationSource></illuminationSettings>
        <objectiveSettings><objective>40</objective></objectiveSettings>
      </scanSettings>
      <view sizeX="32" sizeY="32" offsetX="1" offsetY="1"/>
      <pixels><dimension ifd="0" sizeX="32" sizeY="32" z="0"/></pixels>
    </image>
  </collection>
</scn>`

func openTestSlide(t *testing.T) *Slide {
	t.Helper()
	raw := buildSingleDirTIFF(t, 32, 32, scnOneLevel, [3]byte{10, 20, 30})
	path := writeSlideFixture(t, raw)
	slide, err := Open(path)
	require.NoError(t, err)
	return slide
}

func TestOpen_SucceedsAndReportsVendor(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	assert.Equal(t, "leica", slide.Vendor())
	assert.Equal(t, 1, slide.LevelCount())
}

func TestOpen_RejectsUnrecognisedFile(t *testing.T) {
	path := writeSlideFixture(t, []byte("not a tiff"))
	_, err := Open(path)
	assert.Error(t, err)
}

func TestLevelDimensions_OutOfRangeReturnsError(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, _, err := slide.LevelDimensions(5)
	assert.Error(t, err)

	w, h, err := slide.LevelDimensions(0)
	require.NoError(t, err)
	assert.Equal(t, 32, w)
	assert.Equal(t, 32, h)
}

func TestLevelDownsample_OutOfRangeReturnsError(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, err := slide.LevelDownsample(99)
	assert.Error(t, err)

	d, err := slide.LevelDownsample(0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d)
}

func TestBestLevelForDownsample_ReturnsZeroWhenOnlyOneLevel(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	assert.Equal(t, 0, slide.BestLevelForDownsample(16))
}

func TestReadRegion_RejectsNegativeDimensions(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, err := slide.ReadRegion(0, 0, 0, -1, 10)
	assert.Error(t, err)
}

func TestReadRegion_RejectsOutOfRangeLevel(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, err := slide.ReadRegion(0, 0, 7, 10, 10)
	assert.Error(t, err)
}

func TestReadRegion_StickyErrorPersistsAcrossCalls(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, err := slide.ReadRegion(0, 0, 7, 10, 10)
	require.Error(t, err)

	// A second, otherwise-valid call still returns the first error.
	_, err2 := slide.ReadRegion(0, 0, 0, 4, 4)
	assert.Equal(t, err, err2)
	assert.Equal(t, err, slide.Error())
}

func TestReadRegion_RendersRequestedSize(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	canvas, err := slide.ReadRegion(0, 0, 0, 8, 6)
	require.NoError(t, err)
	assert.Equal(t, 8, canvas.Width)
	assert.Equal(t, 6, canvas.Height)
}

func TestAssociatedImageNames_EmptyWhenNoneDeclared(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	assert.Empty(t, slide.AssociatedImageNames())
}

func TestReadAssociatedImage_UnknownNameReturnsError(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	_, err := slide.ReadAssociatedImage("thumbnail")
	assert.Error(t, err)
}

func TestProperties_IncludesLevelAndVendorKeys(t *testing.T) {
	slide := openTestSlide(t)
	defer slide.Close()

	props := slide.Properties()
	v, ok := props.Get(PropertyVendor)
	require.True(t, ok)
	assert.Equal(t, "leica", v)

	lc, ok := props.Get(PropertyLevelCount)
	require.True(t, ok)
	assert.Equal(t, "1", lc)

	qh, ok := props.Get(PropertyQuickHash1)
	require.True(t, ok)
	assert.Len(t, qh, 64)
}
