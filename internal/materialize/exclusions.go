package materialize

import (
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/tyemirov/mktree/internal/treeparse"
	"github.com/tyemirov/mktree/internal/utils"
)

const directoryPathSuffix = "/"

// Exclusions matches structure paths against gitignore-style patterns.
type Exclusions struct {
	patterns []string
	matcher  *ignore.GitIgnore
}

// NewExclusions compiles patterns. It returns nil when no usable pattern remains.
func NewExclusions(patterns []string) *Exclusions {
	var cleaned []string
	for _, pattern := range utils.DeduplicatePatterns(patterns) {
		trimmed := strings.TrimSpace(pattern)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	return &Exclusions{
		patterns: cleaned,
		matcher:  ignore.CompileIgnoreLines(cleaned...),
	}
}

// Patterns returns the compiled patterns in their original order.
func (exclusions *Exclusions) Patterns() []string {
	if exclusions == nil {
		return nil
	}
	return append([]string(nil), exclusions.patterns...)
}

// Excludes reports whether the entry is covered by a pattern.
// Directory entries also match directory-only patterns such as "build/".
func (exclusions *Exclusions) Excludes(entry treeparse.Entry) bool {
	if exclusions == nil || exclusions.matcher == nil {
		return false
	}
	if exclusions.matcher.MatchesPath(entry.Path) {
		return true
	}
	return entry.Kind == treeparse.Directory && exclusions.matcher.MatchesPath(entry.Path+directoryPathSuffix)
}
