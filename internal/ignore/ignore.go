// Package ignore implements the watcher's ignore policy: a hard-coded
// directory denylist, a sensitive-file pattern list that is never
// watched or cached, and project-supplied glob patterns (typically
// loaded from a VCS-ignore file), any one of which suffices to exclude
// a path. "**" globs are matched with bmatcuk/doublestar.
package ignore

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// MaxPatternLength rejects gitignore-style lines longer than this.
const MaxPatternLength = 1000

// AlwaysIgnored is the hard-coded directory denylist (VCS dirs, build
// artifacts, caches).
var AlwaysIgnored = map[string]bool{
	".git": true, "__pycache__": true, ".venv": true, "venv": true,
	"env": true, "node_modules": true, ".tox": true, ".pytest_cache": true,
	".mypy_cache": true, ".ruff_cache": true, ".eggs": true,
	"dist": true, "build": true,
}

// SensitivePatterns never get watched or cached: key material,
// credentials, and similar files whose content must never flow through
// this system.
var SensitivePatterns = []string{
	".env", ".env.*", "credentials.json", "*.key", "*.pem", "*.p12",
	"*.pfx", "*_key", "*_secret", "*.jks", "*.keystore", "*.truststore",
	"*.cer", "*.crt", "id_rsa", "id_dsa", "id_ecdsa", "id_ed25519",
	"secrets.yaml", "secrets.yml", ".npmrc", ".pypirc", "gcloud.json",
	".aws",
}

// SupportedExtensions maps a file extension to the language it is parsed
// as. Only Python source is analyzed.
var SupportedExtensions = map[string]string{".py": "python"}

// Policy combines the three ignore sources and decides whether a path
// should be excluded.
type Policy struct {
	userPatterns []string
}

// New builds a Policy from project-supplied patterns (e.g. the contents
// of a .gitignore), dropping any line longer than MaxPatternLength.
func New(userPatterns []string) *Policy {
	p := &Policy{}
	for _, pattern := range userPatterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}
		if len(pattern) > MaxPatternLength {
			continue
		}
		p.userPatterns = append(p.userPatterns, pattern)
	}
	return p
}

// ShouldIgnore reports whether path should be excluded from watching and
// caching: any match among the hard-coded directories, the sensitive-file
// patterns, or the project patterns suffices.
func (p *Policy) ShouldIgnore(path string) bool {
	if matchesDirectory(path) {
		return true
	}
	if matchesSensitive(path) {
		return true
	}
	return p.matchesUserPattern(path)
}

// IsSupportedFile reports whether path's extension has a registered
// language.
func IsSupportedFile(path string) bool {
	_, ok := SupportedExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Language returns the language registered for path's extension, or ""
// if unsupported.
func Language(path string) string {
	return SupportedExtensions[strings.ToLower(filepath.Ext(path))]
}

func matchesDirectory(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if AlwaysIgnored[part] {
			return true
		}
	}
	return false
}

func matchesSensitive(path string) bool {
	base := filepath.Base(path)
	for _, pattern := range SensitivePatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// matchesUserPattern checks path (and each of its directory components)
// against every project-supplied pattern, supporting "**" recursive
// globs via doublestar.
func (p *Policy) matchesUserPattern(path string) bool {
	slashPath := filepath.ToSlash(path)
	base := filepath.Base(path)
	for _, pattern := range p.userPatterns {
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, slashPath); ok {
			return true
		}
		if !strings.Contains(pattern, "/") {
			continue
		}
		if ok, _ := doublestar.Match(pattern, strings.TrimPrefix(slashPath, "/")); ok {
			return true
		}
	}
	return false
}
