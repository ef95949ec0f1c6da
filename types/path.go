package types

import (
	"path"
	"strings"

	"golang.org/x/text/cases"
)

// CleanPath returns the canonical slash-rooted form of p, equivalent to
// path.Clean("/" + p).
func CleanPath(p string) string {
	if p == "" || p[0] != '/' {
		p = "/" + p
	}
	return path.Clean(p)
}

// PathKey returns the index key for p. Paths are compared case-insensitively
// using Unicode simple case folding.
func PathKey(p string) string {
	return cases.Fold().String(CleanPath(p))
}

// IsAncestor reports whether ancestor is a proper ancestor of p.
func IsAncestor(ancestor, p string) bool {
	a, d := PathKey(ancestor), PathKey(p)
	if a == d {
		return false
	}
	if a == "/" {
		return true
	}
	return strings.HasPrefix(d, a+"/")
}

// SamePath reports whether a and b name the same resource.
func SamePath(a, b string) bool {
	return PathKey(a) == PathKey(b)
}

// Covers reports whether a lock on lockPath covers p. Equal paths always
// cover each other; an ancestor covers a descendant only when recursive.
func Covers(lockPath string, recursive bool, p string) bool {
	if SamePath(lockPath, p) {
		return true
	}
	return recursive && IsAncestor(lockPath, p)
}
