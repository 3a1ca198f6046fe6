package tiff

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDirEntry is one to-be-written IFD entry, either inline (fits in
// the 4-byte value field) or pointing at an externally appended blob.
type fakeDirEntry struct {
	tag       uint16
	fieldType uint16
	count     uint32
	inline    []byte // used when len(inline) <= 4
	external  []byte // used otherwise; offset patched in during assembly
}

func shortEntry(tag uint16, v uint16) fakeDirEntry {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, v)
	return fakeDirEntry{tag: tag, fieldType: typeShort, count: 1, inline: b}
}

func solidTile(w, h, spp int, r, g, b byte) []byte {
	out := make([]byte, w*h*spp)
	for i := 0; i < w*h; i++ {
		off := i * spp
		out[off] = r
		if spp > 1 {
			out[off+1] = g
		}
		if spp > 2 {
			out[off+2] = b
		}
	}
	return out
}

func buildTiledRGBTIFF(t *testing.T, width, height, tileW, tileH int, tiles [][]byte) []byte {
	t.Helper()
	n := len(tiles)
	spp := 3

	const headerSize = 8
	baseEntries := 9
	ifdSize := 2 + baseEntries*12 + 4
	externalStart := headerSize + ifdSize

	tileOffsetsArrSize := n * 4
	tileByteCountsArrSize := n * 4

	tileOffsetsOff := externalStart
	tileByteCountsOff := tileOffsetsOff + tileOffsetsArrSize
	tilesStart := tileByteCountsOff + tileByteCountsArrSize

	tileOffsets := make([]int64, n)
	cursor := tilesStart
	for i, td := range tiles {
		tileOffsets[i] = int64(cursor)
		cursor += len(td)
	}
	tileByteCounts := make([]int64, n)
	for i, td := range tiles {
		tileByteCounts[i] = int64(len(td))
	}

	entries := []fakeDirEntry{
		shortEntry(tagImageWidth, uint16(width)),
		shortEntry(tagImageHeight, uint16(height)),
		shortEntry(tagCompression, CompressionNone),
		shortEntry(tagPhotometric, PhotometricRGB),
		shortEntry(tagSamplesPerPixel, uint16(spp)),
		shortEntry(tagTileWidth, uint16(tileW)),
		shortEntry(tagTileLength, uint16(tileH)),
		{tag: tagTileOffsets, fieldType: typeLong, count: uint32(n)},
		{tag: tagTileByteCounts, fieldType: typeLong, count: uint32(n)},
	}

	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(42))
	binary.Write(&buf, binary.LittleEndian, uint32(headerSize))

	binary.Write(&buf, binary.LittleEndian, uint16(len(entries)))
	for _, e := range entries {
		binary.Write(&buf, binary.LittleEndian, e.tag)
		binary.Write(&buf, binary.LittleEndian, e.fieldType)
		binary.Write(&buf, binary.LittleEndian, e.count)
		switch e.tag {
		case tagTileOffsets:
			binary.Write(&buf, binary.LittleEndian, uint32(tileOffsetsOff))
		case tagTileByteCounts:
			binary.Write(&buf, binary.LittleEndian, uint32(tileByteCountsOff))
		default:
			buf.Write(e.inline)
		}
	}
	binary.Write(&buf, binary.LittleEndian, uint32(0))

	require.Equal(t, externalStart, buf.Len(), "external data must start exactly where predicted")

	for _, off := range tileOffsets {
		binary.Write(&buf, binary.LittleEndian, uint32(off))
	}
	for _, c := range tileByteCounts {
		binary.Write(&buf, binary.LittleEndian, uint32(c))
	}
	for _, td := range tiles {
		buf.Write(td)
	}

	return buf.Bytes()
}

func TestOpen_ParsesClassicTIFFGeometry(t *testing.T) {
	tiles := [][]byte{
		solidTile(16, 16, 3, 10, 20, 30),
		solidTile(16, 16, 3, 40, 50, 60),
		solidTile(16, 16, 3, 70, 80, 90),
		solidTile(16, 16, 3, 100, 110, 120),
	}
	raw := buildTiledRGBTIFF(t, 32, 32, 16, 16, tiles)

	dec, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	dirs := dec.Directories()
	require.Len(t, dirs, 1)

	d := dirs[0]
	assert.Equal(t, 32, d.Width)
	assert.Equal(t, 32, d.Height)
	assert.Equal(t, 16, d.TileWidth)
	assert.Equal(t, 16, d.TileHeight)
	assert.Equal(t, 2, d.TilesAcross())
	assert.Equal(t, 2, d.TilesDown())
	assert.EqualValues(t, CompressionNone, d.Compression)
	assert.EqualValues(t, PhotometricRGB, d.Photometric)
}

func TestReadTile_UncompressedRGBPacksToARGB(t *testing.T) {
	tiles := [][]byte{
		solidTile(16, 16, 3, 10, 20, 30),
		solidTile(16, 16, 3, 40, 50, 60),
		solidTile(16, 16, 3, 70, 80, 90),
		solidTile(16, 16, 3, 100, 110, 120),
	}
	raw := buildTiledRGBTIFF(t, 32, 32, 16, 16, tiles)
	dec, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	d := &dec.Directories()[0]

	dst := make([]byte, 16*16*4)
	require.NoError(t, dec.ReadTileSelf(d, 0, 0, dst))
	assert.Equal(t, byte(30), dst[0], "B")
	assert.Equal(t, byte(20), dst[1], "G")
	assert.Equal(t, byte(10), dst[2], "R")
	assert.Equal(t, byte(255), dst[3], "A")

	require.NoError(t, dec.ReadTileSelf(d, 1, 1, dst))
	assert.Equal(t, byte(120), dst[0])
	assert.Equal(t, byte(110), dst[1])
	assert.Equal(t, byte(100), dst[2])
}

func TestReadTile_RejectsWrongBufferSize(t *testing.T) {
	tiles := [][]byte{solidTile(16, 16, 3, 1, 2, 3)}
	raw := buildTiledRGBTIFF(t, 16, 16, 16, 16, tiles)
	dec, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	d := &dec.Directories()[0]

	err = dec.ReadTileSelf(d, 0, 0, make([]byte, 10))
	assert.Error(t, err)
}

func TestReadTile_RejectsOutOfRangeCoordinates(t *testing.T) {
	tiles := [][]byte{solidTile(16, 16, 3, 1, 2, 3)}
	raw := buildTiledRGBTIFF(t, 16, 16, 16, 16, tiles)
	dec, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	d := &dec.Directories()[0]

	dst := make([]byte, 16*16*4)
	err = dec.ReadTileSelf(d, 5, 5, dst)
	assert.Error(t, err)
}

func TestOpen_RejectsBadByteOrderMark(t *testing.T) {
	_, err := Open(bytes.NewReader([]byte{'X', 'X', 0, 0, 0, 0, 0, 0}))
	assert.Error(t, err)
}

func TestOpen_RejectsBadMagicNumber(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("II")
	binary.Write(&buf, binary.LittleEndian, uint16(99))
	binary.Write(&buf, binary.LittleEndian, uint32(8))
	_, err := Open(bytes.NewReader(buf.Bytes()))
	assert.Error(t, err)
}

func TestClipEdgeTile_ZeroesOutOfBoundsPortion(t *testing.T) {
	// 20x20 image with 16x16 tiles: a 2x2 grid of tiles covers a 32x32
	// area but only its top-left 20x20 is valid, so tile (1,1) is
	// almost entirely clipped.
	tiles := [][]byte{
		solidTile(16, 16, 3, 1, 1, 1),
		solidTile(16, 16, 3, 2, 2, 2),
		solidTile(16, 16, 3, 3, 3, 3),
		solidTile(16, 16, 3, 4, 4, 4),
	}
	raw := buildTiledRGBTIFF(t, 20, 20, 16, 16, tiles)
	dec, err := Open(bytes.NewReader(raw))
	require.NoError(t, err)
	d := &dec.Directories()[0]

	dst := make([]byte, 16*16*4)
	require.NoError(t, dec.ReadTileSelf(d, 1, 1, dst))

	// Valid region within tile (1,1) is only the first 4 columns/rows
	// (20 - 16 = 4). Anything beyond must be zeroed.
	lastRowOff := 15 * 16 * 4
	assert.Equal(t, byte(0), dst[lastRowOff], "row 15 is entirely out of bounds")
	firstRowFifthPixelOff := 4 * 4
	assert.Equal(t, byte(0), dst[firstRowFifthPixelOff], "column 4 onward is out of bounds in row 0")
}
