// Package builder implements the relationship builder: the second phase
// of two-phase analysis, joining each file's FileSymbolData references
// against every file's definitions to resolve a reference's target
// line. Cross-file resolution is what a single-file pass cannot do.
package builder

import (
	"sync"

	"github.com/relctx/relctx/pkg/types"
)

// defKey identifies one definition for the reverse index: its name plus
// the file that defines it.
type defKey struct {
	name string
	file string
}

// Builder holds a forward map from filepath to its FileSymbolData, and
// a reverse index from symbol name to every (filepath, definition) pair
// introducing that name.
type Builder struct {
	mu       sync.RWMutex
	files    map[string]types.FileSymbolData
	byName   map[string][]defKey
	defsByID map[defKey]types.SymbolDefinition
}

func New() *Builder {
	return &Builder{
		files:    make(map[string]types.FileSymbolData),
		byName:   make(map[string][]defKey),
		defsByID: make(map[defKey]types.SymbolDefinition),
	}
}

// AddFile registers data for file, replacing any prior entry and
// maintaining both maps atomically.
func (b *Builder) AddFile(data types.FileSymbolData) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeFileLocked(data.Filepath)
	b.files[data.Filepath] = data
	for _, def := range data.Definitions {
		key := defKey{name: def.Name, file: data.Filepath}
		b.byName[def.Name] = append(b.byName[def.Name], key)
		b.defsByID[key] = def
	}
}

// RemoveFile drops file's data from both maps.
func (b *Builder) RemoveFile(file string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeFileLocked(file)
}

func (b *Builder) removeFileLocked(file string) {
	old, ok := b.files[file]
	if !ok {
		return
	}
	delete(b.files, file)
	for _, def := range old.Definitions {
		key := defKey{name: def.Name, file: file}
		delete(b.defsByID, key)
		keys := b.byName[def.Name]
		for i, k := range keys {
			if k == key {
				b.byName[def.Name] = append(keys[:i], keys[i+1:]...)
				break
			}
		}
		if len(b.byName[def.Name]) == 0 {
			delete(b.byName, def.Name)
		}
	}
}

// BuildFor produces the relationships for file's references: TargetFile
// is the reference's resolved module (possibly a sentinel), and
// TargetLine is the resolved definition's LineStart when lookup
// succeeds.
func (b *Builder) BuildFor(file string) []types.Relationship {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, ok := b.files[file]
	if !ok {
		return nil
	}

	var out []types.Relationship
	for _, ref := range data.References {
		rel := types.Relationship{
			SourceFile:       file,
			TargetFile:       ref.ResolvedModule,
			RelationshipType: relationshipTypeFor(ref.Kind),
			LineNumber:       ref.LineNumber,
			SourceSymbol:     ref.Name,
			TargetSymbol:     ref.ResolvedSymbol,
			Metadata:         ref.Metadata,
		}
		if def, found := b.lookupLocked(ref.ResolvedSymbol, ref.ResolvedModule); found {
			rel.TargetLine = def.LineStart
		}
		out = append(out, rel)
	}
	return out
}

// lookupLocked resolves by precedence: an exact (name, filepath) match
// first, else the unique definition for name across every file, else
// not-found.
func (b *Builder) lookupLocked(name, file string) (types.SymbolDefinition, bool) {
	if name == "" {
		return types.SymbolDefinition{}, false
	}
	if def, ok := b.defsByID[defKey{name: name, file: file}]; ok {
		return def, true
	}
	keys := b.byName[name]
	if len(keys) == 1 {
		return b.defsByID[keys[0]], true
	}
	return types.SymbolDefinition{}, false
}

func relationshipTypeFor(kind types.ReferenceKind) types.RelationshipType {
	switch kind {
	case types.ReferenceFunctionCall:
		return types.RelationshipFunctionCall
	case types.ReferenceClassReference:
		return types.RelationshipClassInheritance
	default:
		return types.RelationshipImport
	}
}
