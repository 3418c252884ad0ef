package detector

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/relctx/relctx/pkg/types"
)

// Resolver centralizes import-path resolution, shared by the import
// detector and, for module-qualified names, by the function-call and
// class-inheritance detectors so they all agree on where a module
// lives.
type Resolver struct {
	ProjectRoot     string
	KnownThirdParty map[string]bool
}

// NewResolver builds a Resolver from a Config (nil-safe).
func NewResolver(projectRoot string, cfg *types.Config) *Resolver {
	r := &Resolver{ProjectRoot: projectRoot}
	if cfg != nil {
		r.KnownThirdParty = cfg.KnownThirdPartyPackages
	}
	return r
}

// ResolveAbsolute resolves a dotted absolute module path (e.g. "a.b.c")
// against the project tree, in fixed order: project-local file beats
// project-local package beats stdlib sentinel beats third-party
// sentinel (only if known-importable) beats unresolved.
func (r *Resolver) ResolveAbsolute(dotted string) string {
	if dotted == "" {
		return types.Sentinel(types.SentinelUnresolved, dotted)
	}

	segments := strings.Split(dotted, ".")

	if filePath, ok := r.findLocalFile(segments); ok {
		return filePath
	}
	if pkgPath, ok := r.findLocalPackage(segments); ok {
		return pkgPath
	}
	if isStdlib(dotted) {
		return types.Sentinel(types.SentinelStdlib, dotted)
	}
	if r.KnownThirdParty != nil && r.KnownThirdParty[segments[0]] {
		return types.Sentinel(types.SentinelThirdParty, dotted)
	}
	return types.Sentinel(types.SentinelUnresolved, dotted)
}

// ResolveRelative resolves a relative import (level >= 1) from fromFile,
// walking up level-1 parent package directories before applying the
// remaining dotted segments. Exceeding the package depth yields
// <unresolved:...>.
func (r *Resolver) ResolveRelative(fromFile string, level int, dotted string) string {
	base := filepath.Dir(fromFile)
	for i := 1; i < level; i++ {
		parent := filepath.Dir(base)
		if parent == base {
			return types.Sentinel(types.SentinelUnresolved, strings.Repeat(".", level)+dotted)
		}
		base = parent
	}

	if dotted == "" {
		initPath := filepath.Join(base, "__init__.py")
		if fileExists(initPath) {
			return initPath
		}
		return types.Sentinel(types.SentinelUnresolved, strings.Repeat(".", level))
	}

	segments := strings.Split(dotted, ".")
	filePath := filepath.Join(append([]string{base}, segments...)...) + ".py"
	if fileExists(filePath) {
		return filePath
	}
	pkgInit := filepath.Join(append(append([]string{base}, segments...), "__init__.py")...)
	if fileExists(pkgInit) {
		return pkgInit
	}
	return types.Sentinel(types.SentinelUnresolved, strings.Repeat(".", level)+dotted)
}

func (r *Resolver) findLocalFile(segments []string) (string, bool) {
	filePath := filepath.Join(append([]string{r.ProjectRoot}, segments...)...) + ".py"
	if fileExists(filePath) {
		return filePath, true
	}
	return "", false
}

func (r *Resolver) findLocalPackage(segments []string) (string, bool) {
	pkgInit := filepath.Join(append(append([]string{r.ProjectRoot}, segments...), "__init__.py")...)
	if fileExists(pkgInit) {
		return pkgInit, true
	}
	return "", false
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

func isStdlib(dotted string) bool {
	segments := strings.SplitN(dotted, ".", 2)
	head := segments[0]
	if stdlibModules[head] {
		if len(segments) == 1 {
			return true
		}
		return stdlibPrefixes[head]
	}
	return false
}

// ImportBinding records what a single import-introduced local name
// resolves to, for later consumption by the function-call and
// class-inheritance detectors.
type ImportBinding struct {
	ResolvedModule string
	ResolvedSymbol string // set for "from x import y" forms
	IsWildcard     bool
}

// fileCache is embedded by every detector that resolves names against
// local scope or imports. Whenever a call passes a file that differs
// from cachedFile, both caches are cleared and rebuilt from the module
// AST root. Detector instances are reused across files; this struct is
// what makes that invalidation automatic instead of hand-rolled per
// detector. See cache.go for the refresh logic.
type fileCache struct {
	cachedFile string
	localNames map[string]bool // top-level function/class names defined in the file
	importMap  map[string]ImportBinding
}
