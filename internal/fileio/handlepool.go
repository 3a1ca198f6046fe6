package fileio

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultMaxIdle bounds how many idle cursors a pool keeps open at
// once. Past this, Give evicts the least-recently-returned cursor
// instead of growing the file-descriptor count without limit —
// concurrent renders still never block on Take, they just reopen a
// fresh cursor on the next miss.
const defaultMaxIdle = 32

// HandlePool is a bounded set of idle decoder cursors for one
// underlying file path. Take never blocks: it either reuses an idle
// cursor or opens a fresh one.
type HandlePool struct {
	mu       sync.Mutex
	path     string
	idle     *lru.Cache[int, *File]
	next     int
	given    int // outstanding count, for Stats
	closeErr error
}

// NewHandlePool returns a pool that opens cursors onto path on demand,
// keeping at most defaultMaxIdle of them open between uses.
func NewHandlePool(path string) *HandlePool {
	return NewHandlePoolSize(path, defaultMaxIdle)
}

// NewHandlePoolSize is NewHandlePool with an explicit idle-cursor cap.
// maxIdle<=0 uses defaultMaxIdle.
func NewHandlePoolSize(path string, maxIdle int) *HandlePool {
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdle
	}
	p := &HandlePool{path: path}
	// The evict callback only ever fires on an idle cursor (Take
	// removes an entry from idle before handing it out), so closing it
	// here never races a caller still reading through it. It only ever
	// runs synchronously from inside Take/Give/Close, all of which
	// already hold p.mu, so it must not try to acquire it itself. Take
	// detaches the OS handle before its Remove, so the cursor it hands
	// out stays open.
	cache, err := lru.NewWithEvict[int, *File](maxIdle, func(_ int, f *File) {
		if err := f.Close(); err != nil && p.closeErr == nil {
			p.closeErr = err
		}
	})
	if err != nil {
		// Only returned for a non-positive size, which maxIdle's guard
		// above already rules out.
		panic(err)
	}
	p.idle = cache
	return p
}

// Take returns an idle cursor or opens a new one.
func (p *HandlePool) Take() (*File, error) {
	p.mu.Lock()
	if key, f, ok := p.idle.GetOldest(); ok {
		// Remove runs the evict callback, which closes what it is given;
		// detach the handle so that Close is a no-op for this cursor.
		osf := f.f
		f.f = nil
		p.idle.Remove(key)
		f.f = osf
		p.given++
		p.mu.Unlock()
		return f, nil
	}
	p.given++
	p.mu.Unlock()

	f, err := Open(p.path)
	if err != nil {
		p.mu.Lock()
		p.given--
		p.mu.Unlock()
		return nil, err
	}
	return f, nil
}

// Give returns a cursor to the idle set. If the set is already at
// capacity, the least-recently-returned cursor is closed and evicted
// to make room.
func (p *HandlePool) Give(f *File) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.given--
	p.next++
	p.idle.Add(p.next, f)
}

// Stats reports outstanding (given out) and idle cursor counts.
func (p *HandlePool) Stats() (outstanding, idle int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.given, p.idle.Len()
}

// Close closes every idle cursor. Cursors still outstanding (taken but
// not given back) are the caller's responsibility; Close is called
// once at slide close, after every render in flight has returned its
// cursor.
func (p *HandlePool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.idle.Purge() // runs the evict callback for every idle cursor, closing it
	return p.closeErr
}
