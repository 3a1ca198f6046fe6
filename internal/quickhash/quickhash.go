// Package quickhash computes a stable per-slide digest derived from a
// vendor-chosen fingerprint subset of the file, exported as the
// openslide.quickhash-1 property. SHA-256 the way garfik-gigaview
// hashes its tile cache keys (crypto/sha256 + hex), applied here to
// file bytes instead of a cache key string.
package quickhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
)

// Hash accumulates a canonical selection-prefix plus the chosen
// fingerprint bytes, so two byte-identical files always produce the
// same digest and unrelated metadata never perturbs it.
type Hash struct {
	h hash.Hash
}

// New starts a fresh digest.
func New() *Hash {
	return &Hash{h: sha256.New()}
}

// AddSelection writes a canonical description of what's being hashed
// (e.g. "tiff-directory:2" or "byte-range:0-4096") before its bytes,
// so the same bytes selected for a different reason hash differently.
func (q *Hash) AddSelection(label string) {
	fmt.Fprintf(q.h, "\x00%s\x00", label)
}

// Write feeds fingerprint bytes into the digest.
func (q *Hash) Write(p []byte) (int, error) {
	return q.h.Write(p)
}

// ReadFrom reads r fully into the digest, for hashing a directory's
// worth of decoded pixel bytes without materializing them twice.
func (q *Hash) ReadFrom(r io.Reader) (int64, error) {
	return io.Copy(q.h, r)
}

// HexDigest finalizes and returns the lowercase hex digest.
func (q *Hash) HexDigest() string {
	return hex.EncodeToString(q.h.Sum(nil))
}
