package ignore

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldIgnoreHardCodedDirectories(t *testing.T) {
	p := New(nil)
	assert.True(t, p.ShouldIgnore("proj/.git/HEAD"))
	assert.True(t, p.ShouldIgnore("proj/node_modules/lib/index.py"))
	assert.True(t, p.ShouldIgnore("proj/__pycache__/a.pyc"))
	assert.False(t, p.ShouldIgnore("proj/src/main.py"))
}

func TestShouldIgnoreSensitiveFiles(t *testing.T) {
	p := New(nil)
	assert.True(t, p.ShouldIgnore("proj/.env"))
	assert.True(t, p.ShouldIgnore("proj/config/id_rsa"))
	assert.True(t, p.ShouldIgnore("proj/certs/server.key"))
	assert.False(t, p.ShouldIgnore("proj/config/settings.py"))
}

func TestShouldIgnoreUserPatterns(t *testing.T) {
	p := New([]string{"*.generated.py", "build/**"})
	assert.True(t, p.ShouldIgnore("proj/models.generated.py"))
	assert.True(t, p.ShouldIgnore("build/output/x.py"))
	assert.False(t, p.ShouldIgnore("proj/models.py"))
}

func TestNewDropsCommentsBlanksAndOverlongPatterns(t *testing.T) {
	overlong := strings.Repeat("a", MaxPatternLength+1)
	p := New([]string{"# a comment", "", "   ", overlong, "*.log"})
	assert.Len(t, p.userPatterns, 1)
	assert.Equal(t, "*.log", p.userPatterns[0])
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("a.py"))
	assert.True(t, IsSupportedFile("A.PY"))
	assert.False(t, IsSupportedFile("a.js"))
	assert.False(t, IsSupportedFile("a"))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, "python", Language("a.py"))
	assert.Equal(t, "", Language("a.rs"))
}
