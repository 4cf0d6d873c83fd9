// Package hashkey provides the deterministic string fingerprint used to
// build cache keys. It reproduces the classic Java/JavaScript string hash
// (h = h*31 + unit over UTF-16 code units with 32-bit wraparound) so keys
// stay compatible with entries persisted by earlier versions.
package hashkey

import (
	"strconv"
	"unicode/utf16"
)

// Sum returns the absolute value of the 32-bit string hash of s. The
// result is an int64 because |math.MinInt32| does not fit in an int32.
func Sum(s string) int64 {
	var h int32
	for _, unit := range utf16.Encode([]rune(s)) {
		h = h*31 + int32(unit)
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return v
}

// String renders Sum(s) in base-36, the compact form embedded in cache keys.
func String(s string) string {
	return strconv.FormatInt(Sum(s), 36)
}
