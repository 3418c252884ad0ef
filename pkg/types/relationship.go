package types

import "fmt"

// RelationshipType enumerates the relationship-producing detectors' output
// kinds. It is a closed set.
type RelationshipType string

const (
	RelationshipImport          RelationshipType = "import"
	RelationshipFunctionCall    RelationshipType = "function_call"
	RelationshipClassInheritance RelationshipType = "class_inheritance"
)

// Relationship is an immutable edge between a source file and a target
// file (or sentinel), discovered by a detector at a specific source line.
// Two relationships are equal for deduplication purposes when every field
// below compares equal (required and optional).
type Relationship struct {
	SourceFile       string           `json:"source_file"`
	TargetFile       string           `json:"target_file"`
	RelationshipType RelationshipType `json:"relationship_type"`
	LineNumber       int              `json:"line_number"` // 1-based, positive

	SourceSymbol string            `json:"source_symbol,omitempty"`
	TargetSymbol string            `json:"target_symbol,omitempty"`
	TargetLine   int               `json:"target_line,omitempty"` // 0 means "unresolved"
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Validate checks the invariants required before a Relationship may be
// added to the graph: non-empty paths, no parent-reference path segments,
// a positive line number, and a non-empty relationship type.
func (r Relationship) Validate() error {
	if r.SourceFile == "" || r.TargetFile == "" {
		return fmt.Errorf("relationship: empty path")
	}
	if containsParentReference(r.SourceFile) {
		return fmt.Errorf("relationship: path traversal segment in source")
	}
	if !IsSentinel(r.TargetFile) && containsParentReference(r.TargetFile) {
		return fmt.Errorf("relationship: path traversal segment in target")
	}
	if r.LineNumber <= 0 {
		return fmt.Errorf("relationship: line number must be positive, got %d", r.LineNumber)
	}
	if r.RelationshipType == "" {
		return fmt.Errorf("relationship: empty relationship type")
	}
	return nil
}

func containsParentReference(p string) bool {
	for i := 0; i+1 < len(p); i++ {
		if p[i] == '.' && p[i+1] == '.' {
			if (i == 0 || p[i-1] == '/') && (i+2 == len(p) || p[i+2] == '/') {
				return true
			}
		}
	}
	return false
}

// Equal reports whether r and o are duplicates for graph-insertion
// purposes: every required and optional field must match, including the
// contents of Metadata.
func (r Relationship) Equal(o Relationship) bool {
	if r.SourceFile != o.SourceFile || r.TargetFile != o.TargetFile ||
		r.RelationshipType != o.RelationshipType || r.LineNumber != o.LineNumber ||
		r.SourceSymbol != o.SourceSymbol || r.TargetSymbol != o.TargetSymbol ||
		r.TargetLine != o.TargetLine {
		return false
	}
	if len(r.Metadata) != len(o.Metadata) {
		return false
	}
	for k, v := range r.Metadata {
		if ov, ok := o.Metadata[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
