// Package gowsi is a read-only whole-slide-image library: open a
// gigapixel microscopy file, query its pyramid of downsampled levels,
// and render arbitrary rectangular regions into a premultiplied
// ARGB32 Canvas. See internal/vendor for the format probe chain and
// internal/vendor/leica for the canonical Leica SCN decoder.
package gowsi

import (
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/nrook/gowsi/internal/core"
	"github.com/nrook/gowsi/internal/fileio"
	"github.com/nrook/gowsi/internal/quickhash"
	"github.com/nrook/gowsi/internal/tiff"
	"github.com/nrook/gowsi/internal/tilecache"
	"github.com/nrook/gowsi/internal/vendor"
	"github.com/nrook/gowsi/internal/wlog"
)

const defaultCacheCapacityBytes int64 = 256 << 20

// Slide is the root handle onto one opened whole-slide image: an
// ordered pyramid of Levels, a PropertyMap, named associated images,
// and a sticky error state — once set, every further ReadRegion and
// ReadAssociatedImage call on this Slide returns it; the caller must
// Close and reopen to recover. The level, property and associated-image
// name queries do not consult it.
type Slide struct {
	path       string
	vendorName string
	state      core.VendorState
	pool       *fileio.HandlePool
	cache      *tilecache.Cache

	mu  sync.Mutex
	err error
}

// OpenOption configures Open.
type OpenOption func(*openConfig)

type openConfig struct {
	cacheCapacityBytes int64
	sharedCache        *tilecache.Cache
	handlePoolSize     int
}

// WithCacheCapacity bounds the tile cache's byte budget. Ignored if
// WithSharedCache is also given.
func WithCacheCapacity(bytes int64) OpenOption {
	return func(c *openConfig) { c.cacheCapacityBytes = bytes }
}

// WithSharedCache makes the slide use an existing, possibly
// already-shared cache instead of allocating a private one sized by
// WithCacheCapacity.
func WithSharedCache(cache *tilecache.Cache) OpenOption {
	return func(c *openConfig) { c.sharedCache = cache }
}

// WithHandlePoolSize bounds how many idle file cursors the slide
// keeps open between concurrent reads.
func WithHandlePoolSize(n int) OpenOption {
	return func(c *openConfig) { c.handlePoolSize = n }
}

// Open probes path through every registered vendor (internal/vendor)
// and, on acceptance, finalises the quickhash and returns a ready
// Slide.
func Open(path string, opts ...OpenOption) (*Slide, error) {
	cfg := openConfig{cacheCapacityBytes: defaultCacheCapacityBytes}
	for _, o := range opts {
		o(&cfg)
	}

	result, err := vendor.Probe(path)
	if err != nil {
		return nil, WithContext(fmt.Sprintf("Couldn't open %s", path), err)
	}

	qh, err := computeQuickhash(result.State.QuickhashInput())
	if err != nil {
		result.State.Close()
		return nil, WithContext("Couldn't compute quickhash", err)
	}
	result.State.Properties().Set(PropertyQuickHash1, qh)

	cache := cfg.sharedCache
	if cache == nil {
		cache = tilecache.New(cfg.cacheCapacityBytes)
	}

	wlog.L().Infow("opened slide", "path", path, "vendor", result.VendorName, "levels", len(result.State.Levels()))

	return &Slide{
		path:       path,
		vendorName: result.VendorName,
		state:      result.State,
		pool:       fileio.NewHandlePoolSize(path, cfg.handlePoolSize),
		cache:      cache,
	}, nil
}

// Close releases the slide's file cursors and vendor-held resources.
func (s *Slide) Close() error {
	var firstErr error
	if err := s.state.Close(); err != nil {
		firstErr = err
	}
	if err := s.pool.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Vendor returns the name of the vendor module that accepted this
// file ("leica", "generic-tiff", ...).
func (s *Slide) Vendor() string { return s.vendorName }

// LevelCount returns the number of pyramid levels, index 0 being the
// highest resolution.
func (s *Slide) LevelCount() int { return len(s.state.Levels()) }

// LevelDimensions returns level's pixel width and height.
func (s *Slide) LevelDimensions(level int) (width, height int, err error) {
	levels := s.state.Levels()
	if level < 0 || level >= len(levels) {
		return 0, 0, Failed("level %d out of range", level)
	}
	return levels[level].Width, levels[level].Height, nil
}

// LevelDownsample returns level's downsample factor relative to level 0.
func (s *Slide) LevelDownsample(level int) (float64, error) {
	levels := s.state.Levels()
	if level < 0 || level >= len(levels) {
		return 0, Failed("level %d out of range", level)
	}
	return levels[level].Downsample, nil
}

// BestLevelForDownsample returns the level with the largest downsample
// that is still ≤ downsample, or level 0 if every level exceeds it.
// Levels are constructed in increasing-downsample order by every
// vendor in this module, so one forward scan suffices.
func (s *Slide) BestLevelForDownsample(downsample float64) int {
	levels := s.state.Levels()
	best := 0
	for i, lvl := range levels {
		if lvl.Downsample <= downsample {
			best = i
		} else {
			break
		}
	}
	return best
}

// ReadRegion renders the w×h rectangle whose top-left corner is
// (x, y) in level-0 pixel coordinates, sampled at level, into a fresh
// Canvas. Out-of-canvas areas come back transparent black. A failure
// here sets the slide's sticky error; subsequent calls short-circuit
// with the same error until the slide is closed and reopened.
func (s *Slide) ReadRegion(x, y, level, w, h int) (*Canvas, error) {
	if err := s.checkErr(); err != nil {
		return nil, err
	}
	if w < 0 || h < 0 {
		return nil, s.setErr(BadData("negative width (%d) or negative height (%d) not allowed", w, h))
	}

	levels := s.state.Levels()
	if level < 0 || level >= len(levels) {
		return nil, s.setErr(Failed("level %d out of range", level))
	}
	lvl := levels[level]

	cursor, err := s.pool.Take()
	if err != nil {
		return nil, s.setErr(WithContext("Couldn't read region", err))
	}
	defer s.pool.Give(cursor)

	canvas := NewCanvas(w, h)
	xLevel := float64(x) / lvl.Downsample
	yLevel := float64(y) / lvl.Downsample
	if err := s.state.PaintRegion(s.cache, cursor, canvas, level, xLevel, yLevel); err != nil {
		return nil, s.setErr(WithContext("Couldn't read region", err))
	}
	return canvas, nil
}

// AssociatedImageNames lists the thumbnail names this slide exposes
// ("macro", "label", ...), sorted for deterministic output.
func (s *Slide) AssociatedImageNames() []string {
	assoc := s.state.AssociatedImages()
	names := make([]string, 0, len(assoc))
	for name := range assoc {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ReadAssociatedImage decodes and returns the named thumbnail.
func (s *Slide) ReadAssociatedImage(name string) (*Canvas, error) {
	if err := s.checkErr(); err != nil {
		return nil, err
	}
	img, ok := s.state.AssociatedImages()[name]
	if !ok {
		return nil, s.setErr(Failed("no associated image named %q", name))
	}
	canvas, err := img.Decode()
	if err != nil {
		return nil, s.setErr(WithContext(fmt.Sprintf("Couldn't read associated image %q", name), err))
	}
	return canvas, nil
}

// Properties returns the slide's property map, with the per-level
// "openslide.level[i].*" keys and "openslide.level-count" synthesized
// fresh from the current Level slice rather than stored — they can
// never drift out of sync with LevelDimensions/LevelDownsample this
// way.
func (s *Slide) Properties() *PropertyMap {
	out := NewPropertyMap()
	base := s.state.Properties()
	for _, k := range base.Keys() {
		v, _ := base.Get(k)
		out.Set(k, v)
	}

	levels := s.state.Levels()
	out.Set(PropertyLevelCount, strconv.Itoa(len(levels)))
	for i, lvl := range levels {
		out.Set(levelPropertyKey(i, "width"), strconv.Itoa(lvl.Width))
		out.Set(levelPropertyKey(i, "height"), strconv.Itoa(lvl.Height))
		out.Set(levelPropertyKey(i, "downsample"), strconv.FormatFloat(lvl.Downsample, 'g', -1, 64))
		if len(lvl.Areas) > 0 && lvl.Areas[0].Dir != nil {
			out.Set(levelPropertyKey(i, "tile-width"), strconv.Itoa(lvl.Areas[0].Dir.TileWidth))
			out.Set(levelPropertyKey(i, "tile-height"), strconv.Itoa(lvl.Areas[0].Dir.TileHeight))
		}
	}
	return out
}

// Error returns the slide's sticky error, if any.
func (s *Slide) Error() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Slide) checkErr() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// setErr records err as the sticky error if none is set yet, and
// always returns the (possibly earlier) sticky error — a slide can't
// be repaired by a later successful-looking call.
func (s *Slide) setErr(err error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
	return s.err
}

// computeQuickhash finalises the slide's digest: a canonical selection
// label followed by every tile of the vendor-chosen directory,
// row-major.
func computeQuickhash(in core.QuickhashInput) (string, error) {
	h := quickhash.New()
	h.AddSelection(in.Label)

	var dir *tiff.Directory
	for i, d := range in.Decoder.Directories() {
		if d.Index == in.DirIndex {
			dir = &in.Decoder.Directories()[i]
			break
		}
	}
	if dir == nil {
		return "", fmt.Errorf("quickhash: directory %d not found", in.DirIndex)
	}

	buf := make([]byte, dir.TileWidth*dir.TileHeight*4)
	for row := 0; row < dir.TilesDown(); row++ {
		for col := 0; col < dir.TilesAcross(); col++ {
			if err := in.Decoder.ReadTileSelf(dir, col, row, buf); err != nil {
				return "", err
			}
			if _, err := h.Write(buf); err != nil {
				return "", err
			}
		}
	}
	return h.HexDigest(), nil
}
