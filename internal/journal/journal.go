// Package journal implements the append-only JSONL side-effect logs:
// date-rotated files under a configurable data root, one JSON object
// per line, flushed on every append. Logs are never mutated in place.
package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Category names the three log subdirectories: injections/, warnings/,
// session_metrics/.
type Category string

const (
	CategoryInjections     Category = "injections"
	CategoryWarnings       Category = "warnings"
	CategorySessionMetrics Category = "session_metrics"
)

// Journal writes append-only JSONL records under dataRoot, one open file
// handle per (category, date) pair, rotated at UTC midnight.
type Journal struct {
	mu        sync.Mutex
	dataRoot  string
	sessionID string
	handles   map[string]*os.File // key: category/filename
}

// New builds a Journal rooted at dataRoot, generating a fresh session id.
func New(dataRoot string) *Journal {
	return &Journal{
		dataRoot:  dataRoot,
		sessionID: uuid.NewString(),
		handles:   make(map[string]*os.File),
	}
}

// SessionID returns the session id embedded in every filename this
// Journal writes.
func (j *Journal) SessionID() string { return j.sessionID }

// Append writes record as one JSON line to the category's file for
// today's date, flushing immediately.
func (j *Journal) Append(category Category, record any) error {
	line, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("journal: marshal: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := j.handleLocked(category)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("journal: write: %w", err)
	}
	return f.Sync()
}

func (j *Journal) handleLocked(category Category) (*os.File, error) {
	filename := fmt.Sprintf("%s-%s.jsonl", time.Now().UTC().Format("2006-01-02"), j.sessionID)
	key := string(category) + "/" + filename
	if f, ok := j.handles[key]; ok {
		return f, nil
	}

	dir := filepath.Join(j.dataRoot, string(category))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("journal: mkdir %s: %w", dir, err)
	}

	f, err := os.OpenFile(filepath.Join(dir, filename), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", key, err)
	}
	j.handles[key] = f
	return f, nil
}

// Close releases every open file handle.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	var firstErr error
	for _, f := range j.handles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	j.handles = make(map[string]*os.File)
	return firstErr
}

// WarningRecord is the JSON shape written to the warnings/ category for
// both DynamicPatternWarning and BrokenReferenceWarning.
type WarningRecord struct {
	Kind        string            `json:"kind"`
	Type        string            `json:"type,omitempty"`
	File        string            `json:"file"`
	Line        int               `json:"line"`
	Severity    string            `json:"severity,omitempty"`
	Message     string            `json:"message,omitempty"`
	Explanation string            `json:"explanation,omitempty"`
	Timestamp   int64             `json:"timestamp"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// InjectionRecord is the JSON shape written to the injections/ category
// whenever read_with_context hands assembled context to a caller.
type InjectionRecord struct {
	Path           string `json:"path"`
	ContextChars   int    `json:"context_chars"`
	BudgetExceeded bool   `json:"budget_exceeded"`
	Timestamp      int64  `json:"timestamp"`
}

// SessionMetricsRecord is the JSON shape written to the
// session_metrics/ category once per meaningful operation (analyze,
// watch cycle, directory scan).
type SessionMetricsRecord struct {
	Operation   string `json:"operation"`
	FilesTouched int   `json:"files_touched"`
	ElapsedMs   int64  `json:"elapsed_ms"`
	Timestamp   int64  `json:"timestamp"`
}
