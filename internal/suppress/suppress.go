// Package suppress implements warning-suppression: four suppression
// sources combined most-specific-wins, with "*"/"**" project patterns
// matched the same way internal/ignore matches them (bmatcuk/doublestar).
package suppress

import (
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/relctx/relctx/pkg/types"
)

// Manager evaluates whether a DynamicPatternWarning should be
// suppressed, by four-level precedence: file+pattern-type > global
// pattern-type > file-level > directory-level.
type Manager struct {
	projectRoot               string
	suppressPatterns          []string
	globalPatternSuppressions map[string]bool
	fileSpecificSuppressions  map[string][]string
}

// FromConfig builds a Manager from a Config, dropping any pattern-type
// name outside types.ValidPatternTypes.
func FromConfig(projectRoot string, cfg *types.Config) *Manager {
	m := &Manager{projectRoot: projectRoot}
	if cfg == nil {
		return m
	}

	m.suppressPatterns = append([]string(nil), cfg.SuppressPatterns...)

	m.globalPatternSuppressions = make(map[string]bool)
	for k, v := range cfg.GlobalPatternSuppressions {
		if types.ValidPatternTypes[k] {
			m.globalPatternSuppressions[k] = v
		}
	}

	m.fileSpecificSuppressions = make(map[string][]string)
	for file, patterns := range cfg.FileSpecificSuppressions {
		var valid []string
		for _, p := range patterns {
			if types.ValidPatternTypes[p] {
				valid = append(valid, p)
			}
		}
		if len(valid) > 0 {
			m.fileSpecificSuppressions[file] = valid
		}
	}

	return m
}

// ShouldSuppress applies the four-level precedence to w.
func (m *Manager) ShouldSuppress(w types.DynamicPatternWarning) bool {
	if m.checkFileSpecific(w.File, w.Pattern) {
		return true
	}
	if m.globalPatternSuppressions[w.Pattern] {
		return true
	}
	if m.checkFileLevel(w.File) {
		return true
	}
	return m.checkDirectoryLevel(w.File)
}

// Filter returns warnings with every suppressed entry dropped.
func (m *Manager) Filter(warnings []types.DynamicPatternWarning) []types.DynamicPatternWarning {
	out := make([]types.DynamicPatternWarning, 0, len(warnings))
	for _, w := range warnings {
		if !m.ShouldSuppress(w) {
			out = append(out, w)
		}
	}
	return out
}

func (m *Manager) checkFileSpecific(file, patternType string) bool {
	if hasPattern(m.fileSpecificSuppressions[file], patternType) {
		return true
	}
	rel := m.relativePath(file)
	return hasPattern(m.fileSpecificSuppressions[rel], patternType)
}

func hasPattern(list []string, want string) bool {
	for _, p := range list {
		if p == want {
			return true
		}
	}
	return false
}

// checkFileLevel matches exact (non-glob) suppress_patterns entries
// against file or its project-relative form.
func (m *Manager) checkFileLevel(file string) bool {
	rel := m.relativePath(file)
	for _, pattern := range m.suppressPatterns {
		if isGlob(pattern) {
			continue
		}
		if pattern == file || pattern == rel {
			return true
		}
	}
	return false
}

// checkDirectoryLevel matches glob suppress_patterns entries (those
// containing *, ?, or [) against the project-relative path.
func (m *Manager) checkDirectoryLevel(file string) bool {
	rel := filepath.ToSlash(m.relativePath(file))
	for _, pattern := range m.suppressPatterns {
		if !isGlob(pattern) {
			continue
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return true
		}
	}
	return false
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[")
}

func (m *Manager) relativePath(file string) string {
	if m.projectRoot == "" {
		return file
	}
	rel, err := filepath.Rel(m.projectRoot, file)
	if err != nil {
		return file
	}
	return rel
}
