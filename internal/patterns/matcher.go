package patterns

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// DefaultVaultPatterns selects vault database files.
var DefaultVaultPatterns = []string{"*.db"}

// Matcher decides which files inside the watched directory are vault files
type Matcher struct {
	watchPatterns  []glob.Glob
	ignorePatterns []glob.Glob
	mu             sync.RWMutex
}

// NewMatcher creates an empty matcher. It matches nothing until watch
// patterns are set.
func NewMatcher() *Matcher {
	return &Matcher{
		watchPatterns:  make([]glob.Glob, 0),
		ignorePatterns: make([]glob.Glob, 0),
	}
}

// NewVaultMatcher creates a matcher with the given watch and ignore patterns.
// Empty watch patterns fall back to DefaultVaultPatterns.
func NewVaultMatcher(watch, ignore []string) (*Matcher, error) {
	if len(watch) == 0 {
		watch = DefaultVaultPatterns
	}

	m := NewMatcher()
	if err := m.SetWatchPatterns(watch); err != nil {
		return nil, err
	}
	if err := m.SetIgnorePatterns(ignore); err != nil {
		return nil, err
	}
	return m, nil
}

// SetWatchPatterns replaces the watch patterns
func (m *Matcher) SetWatchPatterns(patterns []string) error {
	compiled, err := compile(patterns)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.watchPatterns = compiled
	m.mu.Unlock()
	return nil
}

// SetIgnorePatterns replaces the ignore patterns
func (m *Matcher) SetIgnorePatterns(patterns []string) error {
	compiled, err := compile(patterns)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.ignorePatterns = compiled
	m.mu.Unlock()
	return nil
}

// compile skips blank lines and # comments, the same format as a
// .gitignore-style pattern file.
func compile(patterns []string) ([]glob.Glob, error) {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, pattern := range patterns {
		pattern = strings.TrimSpace(pattern)
		if pattern == "" || strings.HasPrefix(pattern, "#") {
			continue
		}

		g, err := glob.Compile(filepath.ToSlash(pattern))
		if err != nil {
			return nil, err
		}
		compiled = append(compiled, g)
	}
	return compiled, nil
}

// IsIgnored checks if a path matches any ignore pattern
func (m *Matcher) IsIgnored(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return matchAny(m.ignorePatterns, path)
}

// IsWatched checks if a path matches any watch pattern.
// Returns false if no watch patterns are defined (STRICT MODE)
func (m *Matcher) IsWatched(path string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.watchPatterns) == 0 {
		return false
	}
	return matchAny(m.watchPatterns, path)
}

// Matches reports whether path is watched and not ignored
func (m *Matcher) Matches(path string) bool {
	if path == "" {
		return false
	}
	return m.IsWatched(path) && !m.IsIgnored(path)
}

// matchAny checks the slash-normalized path and then its base name
func matchAny(globs []glob.Glob, path string) bool {
	normalized := filepath.ToSlash(path)
	base := filepath.Base(normalized)

	for _, g := range globs {
		if g.Match(normalized) || g.Match(base) {
			return true
		}
	}
	return false
}
