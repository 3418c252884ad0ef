package types

// SymbolKind enumerates the kinds a SymbolDefinition may take.
type SymbolKind string

const (
	SymbolFunction SymbolKind = "function"
	SymbolClass    SymbolKind = "class"
	SymbolMethod   SymbolKind = "method"
	SymbolVariable SymbolKind = "variable"
)

// SymbolDefinition describes a name bound within a file: a function, class,
// method, or module-level variable.
type SymbolDefinition struct {
	Name        string     `json:"name"`
	Kind        SymbolKind `json:"kind"`
	LineStart   int        `json:"line_start"`
	LineEnd     int        `json:"line_end"` // >= LineStart
	Signature   string     `json:"signature,omitempty"`
	Docstring   string     `json:"docstring,omitempty"`
	Decorators  []string   `json:"decorators,omitempty"`
	Bases       []string   `json:"bases,omitempty"` // class inheritance list, source order
	ParentClass string     `json:"parent_class,omitempty"` // set for methods: the enclosing class's name
}

// ReferenceKind enumerates the kinds a SymbolReference may take.
type ReferenceKind string

const (
	ReferenceImport         ReferenceKind = "import"
	ReferenceFunctionCall   ReferenceKind = "function_call"
	ReferenceClassReference ReferenceKind = "class_reference"
)

// SymbolReference describes a use of a name: an import, a call, or a base
// class reference, as extracted by Phase 1 of two-phase analysis.
type SymbolReference struct {
	Name       string        `json:"name"`
	Kind       ReferenceKind `json:"kind"`
	LineNumber int           `json:"line_number"`

	ResolvedModule string            `json:"resolved_module,omitempty"` // file path or sentinel
	ResolvedSymbol string            `json:"resolved_symbol,omitempty"`
	ModuleName     string            `json:"module_name,omitempty"`
	IsRelative     bool              `json:"is_relative,omitempty"`
	RelativeLevel  int               `json:"relative_level,omitempty"`
	Alias          string            `json:"alias,omitempty"`
	IsWildcard     bool              `json:"is_wildcard,omitempty"`
	IsConditional  bool              `json:"is_conditional,omitempty"`
	IsMethodCall   bool              `json:"is_method_call,omitempty"`
	CallerContext  string            `json:"caller_context,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// FileSymbolData is the output of Phase 1 analysis for a single file: every
// definition it introduces and every reference it makes, plus parse
// diagnostics.
type FileSymbolData struct {
	Filepath    string             `json:"filepath"`
	Definitions []SymbolDefinition `json:"definitions,omitempty"`
	References  []SymbolReference  `json:"references,omitempty"`

	ParseTimeMillis int64  `json:"parse_time_ms"`
	IsValid         bool   `json:"is_valid"`
	ErrorMessage    string `json:"error_message,omitempty"`

	HasDynamicPatterns  bool     `json:"has_dynamic_patterns,omitempty"`
	DynamicPatternTypes []string `json:"dynamic_pattern_types,omitempty"`
}

// FileMetadata tracks per-file bookkeeping maintained by the analyzer and
// graph updater.
type FileMetadata struct {
	Filepath            string   `json:"filepath"`
	LastAnalyzed        int64    `json:"last_analyzed"` // unix nanos, monotonic within a process
	RelationshipCount   int      `json:"relationship_count"`
	HasDynamicPatterns  bool     `json:"has_dynamic_patterns,omitempty"`
	DynamicPatternTypes []string `json:"dynamic_pattern_types,omitempty"`
	IsUnparseable       bool     `json:"is_unparseable,omitempty"`
	Deleted             bool     `json:"deleted,omitempty"`
	DeletionTime        int64    `json:"deletion_time,omitempty"`

	// PendingRelationships is true while the file's outgoing relationships
	// are snapshotted outside the graph's indexes by the staleness
	// resolver and must be restored or regenerated by re-analysis.
	PendingRelationships bool `json:"pending_relationships,omitempty"`
}
