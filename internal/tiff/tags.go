package tiff

// Tag IDs this adapter understands. Anything else is skipped during
// enumeration — this is the geometry and metadata a vendor decoder
// needs, not a general-purpose TIFF tag dictionary.
const (
	tagImageWidth                = 256
	tagImageHeight               = 257
	tagBitsPerSample             = 258
	tagCompression               = 259
	tagPhotometric               = 262
	tagFillOrder                 = 266
	tagImageDescription          = 270
	tagStripOffsets              = 273
	tagSamplesPerPixel           = 277
	tagStripByteCounts           = 279
	tagXResolution               = 282
	tagYResolution               = 283
	tagPlanarConfig              = 284
	tagResolutionUnit             = 296
	tagPredictor                 = 317
	tagTileWidth                 = 322
	tagTileLength                = 323
	tagTileOffsets               = 324
	tagTileByteCounts            = 325
	tagExtraSamples              = 338
	tagSampleFormat               = 339
	tagJPEGTables                = 347
	tagICCProfile                = 34675
)

// Field types, per the TIFF 6.0 spec plus BigTIFF's LONG8/SLONG8/IFD8.
const (
	typeByte      = 1
	typeASCII     = 2
	typeShort     = 3
	typeLong      = 4
	typeRational  = 5
	typeSByte     = 6
	typeUndefined = 7
	typeSShort    = 8
	typeSLong     = 9
	typeSRational = 10
	typeFloat     = 11
	typeDouble    = 12
	typeIFD       = 13
	typeLong8     = 16
	typeSLong8    = 17
	typeIFD8      = 18
)

// Compression IDs the adapter dispatches on. Anything else fails open
// with BadData("Unsupported TIFF compression: N").
const (
	CompressionNone     = 1
	CompressionLZW      = 5
	CompressionJPEGOld  = 6
	CompressionJPEG     = 7
	CompressionDeflateX = 8     // Adobe-registered Deflate
	CompressionPackBits = 32773
	CompressionDeflate  = 32946 // original (non-Adobe) Deflate tag value
	CompressionJPEG2    = 33005 // vendor-extended JPEG variant seen in scanner TIFFs
)

// Photometric interpretation IDs.
const (
	PhotometricWhiteIsZero = 0
	PhotometricBlackIsZero = 1
	PhotometricRGB         = 2
	PhotometricYCbCr       = 6
)

func fieldTypeSize(t uint16) int {
	switch t {
	case typeByte, typeASCII, typeSByte, typeUndefined:
		return 1
	case typeShort, typeSShort:
		return 2
	case typeLong, typeSLong, typeFloat, typeIFD:
		return 4
	case typeRational, typeSRational, typeDouble, typeLong8, typeSLong8, typeIFD8:
		return 8
	default:
		return 0
	}
}
