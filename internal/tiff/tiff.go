// Package tiff implements directory enumeration and tiled-pixel
// decode for classic TIFF and BigTIFF containers. It is the one
// format every vendor in internal/vendor reads through; codec work
// for individual compressions is delegated to narrow adapters in
// compression.go.
package tiff

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Directory is one IFD's geometry and metadata, the unit a vendor
// decoder builds a Level or Area from.
type Directory struct {
	Index            int
	Offset           int64
	Width            int
	Height           int
	TileWidth        int
	TileHeight       int
	Compression      uint16
	Photometric      uint16
	SamplesPerPixel  int
	BitsPerSample    []uint16
	Predictor        uint16
	ImageDescription string
	ICCProfile       []byte
	XResolution      float64
	YResolution      float64
	ResolutionUnit   uint16
	JPEGTables       []byte
	TileOffsets      []int64
	TileByteCounts   []int64

	tilesAcross int
	tilesDown   int
}

// TilesAcross and TilesDown report the tile grid shape, rounding up
// partial edge tiles the way every tiled-TIFF reader must.
func (d *Directory) TilesAcross() int { return d.tilesAcross }
func (d *Directory) TilesDown() int   { return d.tilesDown }

// Decoder enumerates directories in one TIFF container and decodes
// tiles on demand. Not safe for concurrent use by multiple goroutines
// against the same underlying reader's implicit position — callers
// arrange one Decoder per concurrent cursor (see fileio.HandlePool);
// ReadTile itself only does positioned reads, so the Decoder struct
// has no mutable cursor state beyond the cached directory list.
type Decoder struct {
	r       io.ReaderAt
	order   binary.ByteOrder
	bigTIFF bool
	dirs    []Directory
}

// Open parses the TIFF header and enumerates every IFD.
func Open(r io.ReaderAt) (*Decoder, error) {
	var hdr [8]byte
	if _, err := r.ReadAt(hdr[:], 0); err != nil {
		return nil, fmt.Errorf("couldn't read TIFF header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case hdr[0] == 'I' && hdr[1] == 'I':
		order = binary.LittleEndian
	case hdr[0] == 'M' && hdr[1] == 'M':
		order = binary.BigEndian
	default:
		return nil, fmt.Errorf("not a TIFF file: bad byte-order mark")
	}

	magic := order.Uint16(hdr[2:4])
	d := &Decoder{r: r, order: order}
	var firstOffset int64

	switch magic {
	case 42:
		firstOffset = int64(order.Uint32(hdr[4:8]))
	case 43:
		d.bigTIFF = true
		var bthdr [8]byte
		if _, err := r.ReadAt(bthdr[:], 8); err != nil {
			return nil, fmt.Errorf("couldn't read BigTIFF header: %w", err)
		}
		// bytesize-of-offsets (8) and a reserved word precede the
		// first IFD offset, which is itself 8 bytes in BigTIFF.
		firstOffset = int64(order.Uint64(bthdr[:]))
	default:
		return nil, fmt.Errorf("not a TIFF file: bad magic number %d", magic)
	}

	offset := firstOffset
	idx := 0
	for offset != 0 {
		dir, next, err := d.readIFD(offset, idx)
		if err != nil {
			return nil, fmt.Errorf("couldn't read TIFF directory %d: %w", idx, err)
		}
		d.dirs = append(d.dirs, dir)
		offset = next
		idx++
	}
	if len(d.dirs) == 0 {
		return nil, fmt.Errorf("TIFF file has no directories")
	}
	return d, nil
}

// Directories returns every enumerated IFD, in file order.
func (d *Decoder) Directories() []Directory { return d.dirs }

// ReadTileSelf decodes a tile using the Decoder's own enumeration-time
// reader, for one-off decodes (associated images, quickhash input)
// that don't go through a per-worker cursor from fileio.HandlePool.
func (d *Decoder) ReadTileSelf(dir *Directory, col, row int, dst []byte) error {
	return d.ReadTile(d.r, dir, col, row, dst)
}

type rawEntry struct {
	tag       uint16
	fieldType uint16
	count     uint64
	valBytes  []byte // count*fieldTypeSize bytes, resolved (external values already fetched)
}

func (d *Decoder) readIFD(offset int64, index int) (Directory, int64, error) {
	entrySize := 12
	countSize := 2
	offsetSize := 4
	if d.bigTIFF {
		entrySize = 20
		countSize = 8
		offsetSize = 8
	}

	cbuf := make([]byte, countSize)
	if _, err := d.r.ReadAt(cbuf, offset); err != nil {
		return Directory{}, 0, fmt.Errorf("couldn't read entry count: %w", err)
	}
	var numEntries uint64
	if d.bigTIFF {
		numEntries = d.order.Uint64(cbuf)
	} else {
		numEntries = uint64(d.order.Uint16(cbuf))
	}

	entriesOff := offset + int64(countSize)
	entries := make([]rawEntry, 0, numEntries)
	for i := uint64(0); i < numEntries; i++ {
		ebuf := make([]byte, entrySize)
		if _, err := d.r.ReadAt(ebuf, entriesOff+int64(i)*int64(entrySize)); err != nil {
			return Directory{}, 0, fmt.Errorf("couldn't read directory entry %d: %w", i, err)
		}
		tag := d.order.Uint16(ebuf[0:2])
		ftype := d.order.Uint16(ebuf[2:4])
		var count uint64
		if d.bigTIFF {
			count = d.order.Uint64(ebuf[4:12])
		} else {
			count = uint64(d.order.Uint32(ebuf[4:8]))
		}
		valField := ebuf[entrySize-offsetSize:]

		sz := fieldTypeSize(ftype)
		total := sz * int(count)
		var raw []byte
		if total <= offsetSize {
			raw = valField[:total]
		} else {
			var valOff int64
			if d.bigTIFF {
				valOff = int64(d.order.Uint64(valField))
			} else {
				valOff = int64(d.order.Uint32(valField))
			}
			raw = make([]byte, total)
			if _, err := d.r.ReadAt(raw, valOff); err != nil {
				return Directory{}, 0, fmt.Errorf("couldn't read value for tag %d: %w", tag, err)
			}
		}
		entries = append(entries, rawEntry{tag: tag, fieldType: ftype, count: count, valBytes: raw})
	}

	nextOffBuf := make([]byte, offsetSize)
	if _, err := d.r.ReadAt(nextOffBuf, entriesOff+int64(numEntries)*int64(entrySize)); err != nil {
		return Directory{}, 0, fmt.Errorf("couldn't read next-IFD offset: %w", err)
	}
	var next int64
	if d.bigTIFF {
		next = int64(d.order.Uint64(nextOffBuf))
	} else {
		next = int64(d.order.Uint32(nextOffBuf))
	}

	dir := Directory{Index: index, Offset: offset, Compression: CompressionNone, Photometric: PhotometricBlackIsZero, SamplesPerPixel: 1, ResolutionUnit: 2}
	for _, e := range entries {
		d.applyEntry(&dir, e)
	}
	dir.tilesAcross = ceilDiv(dir.Width, maxInt(dir.TileWidth, 1))
	dir.tilesDown = ceilDiv(dir.Height, maxInt(dir.TileHeight, 1))
	return dir, next, nil
}

func (d *Decoder) applyEntry(dir *Directory, e rawEntry) {
	switch e.tag {
	case tagImageWidth:
		dir.Width = int(d.uintAt(e, 0))
	case tagImageHeight:
		dir.Height = int(d.uintAt(e, 0))
	case tagBitsPerSample:
		dir.BitsPerSample = d.shorts(e)
	case tagCompression:
		dir.Compression = uint16(d.uintAt(e, 0))
	case tagPhotometric:
		dir.Photometric = uint16(d.uintAt(e, 0))
	case tagSamplesPerPixel:
		dir.SamplesPerPixel = int(d.uintAt(e, 0))
	case tagPredictor:
		dir.Predictor = uint16(d.uintAt(e, 0))
	case tagImageDescription:
		dir.ImageDescription = string(trimNul(e.valBytes))
	case tagXResolution:
		dir.XResolution = d.rationalAt(e, 0)
	case tagYResolution:
		dir.YResolution = d.rationalAt(e, 0)
	case tagResolutionUnit:
		dir.ResolutionUnit = uint16(d.uintAt(e, 0))
	case tagTileWidth:
		dir.TileWidth = int(d.uintAt(e, 0))
	case tagTileLength:
		dir.TileHeight = int(d.uintAt(e, 0))
	case tagTileOffsets:
		dir.TileOffsets = d.uints(e)
	case tagTileByteCounts:
		dir.TileByteCounts = d.uints(e)
	case tagJPEGTables:
		dir.JPEGTables = append([]byte(nil), e.valBytes...)
	case tagICCProfile:
		dir.ICCProfile = append([]byte(nil), e.valBytes...)
	}
}

func (d *Decoder) uintAt(e rawEntry, i int) uint64 {
	sz := fieldTypeSize(e.fieldType)
	b := e.valBytes[i*sz : i*sz+sz]
	switch sz {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(d.order.Uint16(b))
	case 4:
		return uint64(d.order.Uint32(b))
	case 8:
		return d.order.Uint64(b)
	}
	return 0
}

func (d *Decoder) uints(e rawEntry) []int64 {
	out := make([]int64, e.count)
	for i := range out {
		out[i] = int64(d.uintAt(e, i))
	}
	return out
}

func (d *Decoder) shorts(e rawEntry) []uint16 {
	out := make([]uint16, e.count)
	for i := range out {
		out[i] = uint16(d.uintAt(e, i))
	}
	return out
}

func (d *Decoder) rationalAt(e rawEntry, i int) float64 {
	if e.fieldType != typeRational && e.fieldType != typeSRational {
		return float64(d.uintAt(e, i))
	}
	num := d.order.Uint32(e.valBytes[i*8 : i*8+4])
	den := d.order.Uint32(e.valBytes[i*8+4 : i*8+8])
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func trimNul(b []byte) []byte {
	for i, c := range b {
		if c == 0 {
			return b[:i]
		}
	}
	return b
}

func ceilDiv(a, b int) int {
	if b <= 0 {
		return 0
	}
	return (a + b - 1) / b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
