package topoplot

import "log"

// Logf is the package logger. It is used for locally recovered numerical
// problems and cache events, never on the per-cell evaluation path.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. A nil logger disables logging.
func SetLogger(logf func(format string, v ...any)) {
	if logf == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = logf
}
