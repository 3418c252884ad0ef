// Package types holds the immutable value types shared by every relctx
// component: relationships, symbol definitions and references, per-file
// metadata, and dynamic-pattern warnings.
package types

import "strings"

// Sentinel prefixes used in place of a real filesystem path in a
// Relationship's TargetFile. A sentinel is never traversed by the staleness
// resolver and never denotes a real file on disk.
const (
	SentinelStdlib     = "stdlib"
	SentinelThirdParty = "third-party"
	SentinelBuiltin    = "builtin"
	SentinelUnresolved = "unresolved"
)

// Sentinel formats name as a sentinel path of the given kind, e.g.
// Sentinel(SentinelStdlib, "os.path") => "<stdlib:os.path>".
func Sentinel(kind, name string) string {
	return "<" + kind + ":" + name + ">"
}

// IsSentinel reports whether path has the sentinel grammar `<kind:name>`.
func IsSentinel(path string) bool {
	return strings.HasPrefix(path, "<") && strings.HasSuffix(path, ">") && len(path) > 2
}

// SentinelKind returns the kind portion of a sentinel path ("" if path is
// not a sentinel or has no ':' separator).
func SentinelKind(path string) string {
	if !IsSentinel(path) {
		return ""
	}
	inner := path[1 : len(path)-1]
	if idx := strings.IndexByte(inner, ':'); idx >= 0 {
		return inner[:idx]
	}
	return ""
}
