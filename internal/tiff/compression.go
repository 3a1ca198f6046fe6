package tiff

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image/jpeg"
	"io"

	tifflzw "golang.org/x/image/tiff/lzw"
)

// ReadTile decodes tile (col, row) of dir into dst, an ARGB32
// premultiplied buffer of exactly TileWidth*TileHeight*4 bytes in
// little-endian host byte order (B,G,R,A). Edge tiles that extend
// past the directory's Width/Height are clipped: pixels outside the
// valid image area are left transparent black.
//
// r is the positioned reader to decode through — callers pass a
// private per-worker cursor (see fileio.HandlePool) rather than the
// Decoder's own enumeration-time reader, so concurrent PaintRegion
// calls never share read state.
func (d *Decoder) ReadTile(r io.ReaderAt, dir *Directory, col, row int, dst []byte) error {
	if dir.TileWidth == 0 || dir.TileHeight == 0 {
		return fmt.Errorf("directory %d is not tiled", dir.Index)
	}
	want := dir.TileWidth * dir.TileHeight * 4
	if len(dst) != want {
		return fmt.Errorf("tile buffer has wrong size: want %d, got %d", want, len(dst))
	}
	if col < 0 || row < 0 || col >= dir.tilesAcross || row >= dir.tilesDown {
		return fmt.Errorf("tile (%d,%d) out of range for directory %d", col, row, dir.Index)
	}

	idx := row*dir.tilesAcross + col
	if idx >= len(dir.TileOffsets) || idx >= len(dir.TileByteCounts) {
		return fmt.Errorf("directory %d has no offset for tile %d", dir.Index, idx)
	}

	raw := make([]byte, dir.TileByteCounts[idx])
	if _, err := r.ReadAt(raw, dir.TileOffsets[idx]); err != nil {
		return fmt.Errorf("couldn't read tile %d of directory %d: %w", idx, dir.Index, err)
	}

	samples, err := decodeCompressed(dir, raw)
	if err != nil {
		return fmt.Errorf("couldn't decode tile %d of directory %d: %w", idx, dir.Index, err)
	}

	if dir.Predictor == 2 {
		applyHorizontalPredictor(samples, dir.TileWidth, dir.TileHeight, dir.SamplesPerPixel)
	}

	packARGB(dst, samples, dir)
	clipEdgeTile(dst, dir, col, row)
	return nil
}

// decodeCompressed dispatches on the directory's compression tag and
// returns raw interleaved samples (SamplesPerPixel bytes per pixel,
// 8 bits per sample — the only bit depth this adapter supports).
func decodeCompressed(dir *Directory, raw []byte) ([]byte, error) {
	wantLen := dir.TileWidth * dir.TileHeight * dir.SamplesPerPixel

	switch dir.Compression {
	case CompressionNone:
		if len(raw) < wantLen {
			return nil, fmt.Errorf("short tile data: want %d bytes, got %d", wantLen, len(raw))
		}
		return raw[:wantLen], nil

	case CompressionDeflate, CompressionDeflateX:
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		defer zr.Close()
		out := make([]byte, wantLen)
		if _, err := io.ReadFull(zr, out); err != nil {
			return nil, fmt.Errorf("zlib: %w", err)
		}
		return out, nil

	case CompressionLZW:
		// TIFF LZW bumps its code width one code early relative to the
		// GIF/compress("lzw") convention, so it needs its own decoder
		// rather than stdlib compress/lzw.
		lr := tifflzw.NewReader(bytes.NewReader(raw), tifflzw.MSB)
		defer lr.Close()
		out := make([]byte, wantLen)
		if _, err := io.ReadFull(lr, out); err != nil {
			return nil, fmt.Errorf("lzw: %w", err)
		}
		return out, nil

	case CompressionPackBits:
		return decodePackBits(raw, wantLen)

	case CompressionJPEG, CompressionJPEGOld, CompressionJPEG2:
		return decodeJPEGTile(dir, raw, wantLen)

	default:
		return nil, fmt.Errorf("Unsupported TIFF compression: %d", dir.Compression)
	}
}

func decodeJPEGTile(dir *Directory, raw []byte, wantLen int) ([]byte, error) {
	stream := raw
	if len(dir.JPEGTables) > 2 {
		// JPEGTables holds a standalone SOI..EOI stream carrying the
		// shared quantization/Huffman tables; splice it in front of
		// the tile's own scan data, dropping the tables' EOI and the
		// tile's own SOI so the result is one valid JPEG stream.
		tables := dir.JPEGTables
		if len(tables) >= 2 && tables[len(tables)-2] == 0xFF && tables[len(tables)-1] == 0xD9 {
			tables = tables[:len(tables)-2]
		}
		tileScan := raw
		if len(tileScan) >= 2 && tileScan[0] == 0xFF && tileScan[1] == 0xD8 {
			tileScan = tileScan[2:]
		}
		combined := make([]byte, 0, len(tables)+len(tileScan))
		combined = append(combined, tables...)
		combined = append(combined, tileScan...)
		stream = combined
	}

	img, err := jpeg.Decode(bytes.NewReader(stream))
	if err != nil {
		return nil, fmt.Errorf("jpeg: %w", err)
	}
	b := img.Bounds()
	out := make([]byte, wantLen)
	sp := dir.SamplesPerPixel
	for y := 0; y < dir.TileHeight && y < b.Dy(); y++ {
		for x := 0; x < dir.TileWidth && x < b.Dx(); x++ {
			r, g, bl, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			off := (y*dir.TileWidth + x) * sp
			switch sp {
			case 1:
				out[off] = byte(r >> 8)
			default:
				out[off] = byte(r >> 8)
				if sp > 1 {
					out[off+1] = byte(g >> 8)
				}
				if sp > 2 {
					out[off+2] = byte(bl >> 8)
				}
			}
		}
	}
	return out, nil
}

func decodePackBits(raw []byte, wantLen int) ([]byte, error) {
	out := make([]byte, 0, wantLen)
	i := 0
	for i < len(raw) && len(out) < wantLen {
		n := int(int8(raw[i]))
		i++
		switch {
		case n >= 0:
			count := n + 1
			if i+count > len(raw) {
				return nil, fmt.Errorf("packbits: literal run overruns input")
			}
			out = append(out, raw[i:i+count]...)
			i += count
		case n != -128:
			count := -n + 1
			if i >= len(raw) {
				return nil, fmt.Errorf("packbits: repeat run overruns input")
			}
			b := raw[i]
			i++
			for k := 0; k < count; k++ {
				out = append(out, b)
			}
		default:
			// n == -128: no-op
		}
	}
	if len(out) < wantLen {
		out = append(out, make([]byte, wantLen-len(out))...)
	}
	return out[:wantLen], nil
}

func applyHorizontalPredictor(samples []byte, width, height, spp int) {
	rowStride := width * spp
	for y := 0; y < height; y++ {
		row := samples[y*rowStride : (y+1)*rowStride]
		for x := spp; x < len(row); x++ {
			row[x] = row[x] + row[x-spp]
		}
	}
}

// packARGB converts interleaved 8-bit samples (RGB or grayscale) into
// the destination tile's premultiplied-ARGB32 byte layout. Every tile
// this adapter produces is fully opaque (alpha 255): TIFF source
// pixels carry no alpha channel beyond ExtraSamples, which none of
// this module's vendors populate.
func packARGB(dst, samples []byte, dir *Directory) {
	spp := dir.SamplesPerPixel
	n := dir.TileWidth * dir.TileHeight
	for i := 0; i < n; i++ {
		so := i * spp
		do := i * 4
		var r, g, b byte
		switch {
		case dir.Photometric == PhotometricRGB && spp >= 3:
			r, g, b = samples[so], samples[so+1], samples[so+2]
		case spp >= 1:
			r = samples[so]
			g, b = r, r
			if dir.Photometric == PhotometricWhiteIsZero {
				r, g, b = 255-r, 255-g, 255-b
			}
		}
		dst[do+0] = b
		dst[do+1] = g
		dst[do+2] = r
		dst[do+3] = 255
	}
}

// clipEdgeTile zeroes (transparent black) the portion of a
// right/bottom edge tile that falls outside the directory's actual
// pixel dimensions.
func clipEdgeTile(dst []byte, dir *Directory, col, row int) {
	validW := dir.Width - col*dir.TileWidth
	if validW > dir.TileWidth {
		validW = dir.TileWidth
	}
	validH := dir.Height - row*dir.TileHeight
	if validH > dir.TileHeight {
		validH = dir.TileHeight
	}
	if validW >= dir.TileWidth && validH >= dir.TileHeight {
		return
	}
	for y := 0; y < dir.TileHeight; y++ {
		rowOff := y * dir.TileWidth * 4
		if y >= validH {
			clear(dst[rowOff : rowOff+dir.TileWidth*4])
			continue
		}
		if validW < dir.TileWidth {
			clear(dst[rowOff+validW*4 : rowOff+dir.TileWidth*4])
		}
	}
}

func clear(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
