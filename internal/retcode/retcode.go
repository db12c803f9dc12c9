// Package retcode computes a deterministic POSIX process exit code
// (1-255) from a Go error, so a CLI's fatal-log entries don't all map
// to the generic "1" exit code, while staying a pure function of the
// error text (same error, same run -> same code every time).
package retcode

import "github.com/cespare/xxhash/v2"

// Calc returns 0 for a nil error, otherwise a value in [1, 255]
// derived from err's message.
func Calc(err error) int {
	if err == nil {
		return 0
	}
	h := xxhash.Sum64String(err.Error())
	return int(h%255) + 1
}
