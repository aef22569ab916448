// Package monitoring holds the diagnostic logger shared by the playback packages.
package monitoring

import "log"

// Logf receives dataset load warnings, range clamping notices and migration
// output. Swap it with SetLogger.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Warnf logs a recoverable condition, such as a clamped playback range.
func Warnf(format string, v ...interface{}) {
	Logf("[warn] "+format, v...)
}
