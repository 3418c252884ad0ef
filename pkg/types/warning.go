package types

// Severity classifies a DynamicPatternWarning.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Pattern-type names recognised by the dynamic-pattern detectors and the
// warning-suppression configuration.
const (
	PatternDynamicDispatch   = "dynamic_dispatch"
	PatternExecEval          = "exec_eval"
	PatternAttributeRebinding = "attribute_rebinding"
	PatternDecorator         = "decorator"
	PatternMetaclass         = "metaclass"
)

// ValidPatternTypes is the closed set of pattern-type names accepted by
// warning-suppression configuration.
var ValidPatternTypes = map[string]bool{
	PatternDynamicDispatch:    true,
	PatternExecEval:           true,
	PatternAttributeRebinding: true,
	PatternDecorator:          true,
	PatternMetaclass:          true,
}

// DynamicPatternWarning is emitted by a warning-only detector in place of
// a relationship, when the cross-file effect of a construct cannot be
// determined statically.
type DynamicPatternWarning struct {
	Type        string            `json:"type"`
	File        string            `json:"file"`
	Line        int               `json:"line"`
	Severity    Severity          `json:"severity"`
	Pattern     string            `json:"pattern"`
	Message     string            `json:"message"`
	Timestamp   int64             `json:"timestamp,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Column      int               `json:"column,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`

	// IsTestModule marks warnings originating from a file classified as a
	// test module, so callers may filter them separately.
	IsTestModule bool `json:"is_test_module,omitempty"`
}

// BrokenReferenceWarning describes a reference broken by a file deletion.
// It is always emitted as a warning, never an error.
type BrokenReferenceWarning struct {
	DependentFile string `json:"dependent_file"`
	DeletedFile   string `json:"deleted_file"`
	TargetSymbol  string `json:"target_symbol,omitempty"`
	SourceLine    int    `json:"source_line"`
	Timestamp     int64  `json:"timestamp"`
}
