package suppress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/relctx/relctx/pkg/types"
)

func warn(file, pattern string) types.DynamicPatternWarning {
	return types.DynamicPatternWarning{File: file, Pattern: pattern}
}

func TestFileSpecificPatternBeatsGlobalFalse(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.FileSpecificSuppressions = map[string][]string{"a.py": {types.PatternExecEval}}
	m := FromConfig("", cfg)
	assert.True(t, m.ShouldSuppress(warn("a.py", types.PatternExecEval)))
	assert.False(t, m.ShouldSuppress(warn("b.py", types.PatternExecEval)))
}

func TestGlobalPatternSuppression(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.GlobalPatternSuppressions = map[string]bool{types.PatternDecorator: true}
	m := FromConfig("", cfg)
	assert.True(t, m.ShouldSuppress(warn("anything.py", types.PatternDecorator)))
}

func TestFileLevelExactMatch(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.SuppressPatterns = []string{"legacy/old.py"}
	m := FromConfig("/proj", cfg)
	assert.True(t, m.ShouldSuppress(warn("/proj/legacy/old.py", types.PatternMetaclass)))
	assert.False(t, m.ShouldSuppress(warn("/proj/legacy/new.py", types.PatternMetaclass)))
}

func TestDirectoryLevelGlob(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.SuppressPatterns = []string{"vendor/**"}
	m := FromConfig("/proj", cfg)
	assert.True(t, m.ShouldSuppress(warn("/proj/vendor/pkg/mod.py", types.PatternDynamicDispatch)))
	assert.False(t, m.ShouldSuppress(warn("/proj/src/mod.py", types.PatternDynamicDispatch)))
}

func TestInvalidPatternTypeIsDroppedAtConstruction(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.GlobalPatternSuppressions = map[string]bool{"not_a_real_pattern": true}
	m := FromConfig("", cfg)
	assert.False(t, m.ShouldSuppress(warn("a.py", "not_a_real_pattern")))
}

func TestFilterDropsOnlySuppressed(t *testing.T) {
	cfg := types.DefaultConfig()
	cfg.GlobalPatternSuppressions = map[string]bool{types.PatternExecEval: true}
	m := FromConfig("", cfg)
	out := m.Filter([]types.DynamicPatternWarning{
		warn("a.py", types.PatternExecEval),
		warn("a.py", types.PatternDecorator),
	})
	assert.Len(t, out, 1)
	assert.Equal(t, types.PatternDecorator, out[0].Pattern)
}
