package helpers

import (
	"os"
	"path/filepath"
	"strings"
)

func HasWildcard(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[]{}")
}

// IsPathOverlap reports whether a and b are the same path or one contains the other.
func IsPathOverlap(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	if strings.HasPrefix(a, b+string(os.PathSeparator)) {
		return true
	}
	if strings.HasPrefix(b, a+string(os.PathSeparator)) {
		return true
	}
	return false
}
