// Package wlog holds the package-level logger every layer of the
// render pipeline logs through. Modeled on garfik-gigaview's
// renderer, which threads a *zap.Logger from a single construction
// point rather than each package building its own.
package wlog

import "go.uber.org/zap"

var log = zap.NewNop().Sugar()

// Set installs the logger used by gowsi and its internal packages.
// Passing nil restores the no-op default.
func Set(l *zap.Logger) {
	if l == nil {
		log = zap.NewNop().Sugar()
		return
	}
	log = l.Sugar()
}

// L returns the current package-level logger.
func L() *zap.SugaredLogger { return log }
