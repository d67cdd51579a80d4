package publisher

import (
	"fmt"

	"github.com/gobwas/glob"
)

// GlobFilter filters notifications by sender bundle ID using glob patterns
type GlobFilter struct {
	appGlobs []glob.Glob
}

// NewGlobFilter creates a new glob-based filter
// Empty patterns match everything
func NewGlobFilter(appPatterns []string) (*GlobFilter, error) {
	filter := &GlobFilter{
		appGlobs: make([]glob.Glob, 0, len(appPatterns)),
	}

	for _, pattern := range appPatterns {
		// '.' separates bundle ID components, so "com.apple.*" stops at one level
		g, err := glob.Compile(pattern, '.')
		if err != nil {
			return nil, fmt.Errorf("invalid app pattern %q: %w", pattern, err)
		}
		filter.appGlobs = append(filter.appGlobs, g)
	}

	return filter, nil
}

// Match returns true if bundleID matches any configured pattern.
// With no patterns everything matches, including notifications without a
// bundle ID; with patterns, those never match.
func (f *GlobFilter) Match(bundleID string) bool {
	if len(f.appGlobs) == 0 {
		return true
	}

	if bundleID == "" {
		return false
	}

	for _, g := range f.appGlobs {
		if g.Match(bundleID) {
			return true
		}
	}

	return false
}
