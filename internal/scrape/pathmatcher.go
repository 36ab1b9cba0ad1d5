package scrape

import (
	"net/url"
	"path"
	"strings"
)

// DefaultExcludePatterns skip pages that never describe the company.
var DefaultExcludePatterns = []string{
	"/wp-admin/*",
	"/wp-json/*",
	"/cart/*",
	"/checkout/*",
	"/account/*",
	"/login",
	"*.pdf",
	"*.zip",
	"*.jpg",
	"*.png",
}

// PathMatcher filters URLs against glob-style path patterns.
//
// A pattern starting with "/" is matched against the whole path, and one
// ending in "/*" also matches every deeper path under it. A pattern without
// a leading slash, such as "*.pdf", is matched against the last path
// segment only.
type PathMatcher struct {
	patterns []string
}

// NewPathMatcher creates a PathMatcher. A nil slice uses
// DefaultExcludePatterns; an empty non-nil slice excludes nothing.
func NewPathMatcher(patterns []string) *PathMatcher {
	if patterns == nil {
		patterns = DefaultExcludePatterns
	}
	lowered := make([]string, len(patterns))
	for i, p := range patterns {
		lowered[i] = strings.ToLower(strings.TrimSpace(p))
	}
	return &PathMatcher{patterns: lowered}
}

// Patterns returns the configured patterns.
func (m *PathMatcher) Patterns() []string {
	return m.patterns
}

// IsExcluded reports whether rawURL matches any pattern. Unparseable URLs
// are excluded.
func (m *PathMatcher) IsExcluded(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	return m.isPathExcluded(u.Path)
}

func (m *PathMatcher) isPathExcluded(urlPath string) bool {
	urlPath = strings.ToLower(urlPath)
	if urlPath == "" {
		urlPath = "/"
	}
	for _, pattern := range m.patterns {
		if pattern == "" {
			continue
		}
		if !strings.HasPrefix(pattern, "/") {
			if ok, _ := path.Match(pattern, path.Base(urlPath)); ok {
				return true
			}
			continue
		}
		if matchSegmented(pattern, urlPath) {
			return true
		}
	}
	return false
}

// matchSegmented lets "/blog/*" match "/blog", "/blog/post" and
// "/blog/2024/01/post".
func matchSegmented(pattern, urlPath string) bool {
	if ok, _ := path.Match(pattern, urlPath); ok {
		return true
	}
	if strings.HasSuffix(pattern, "/*") {
		prefix := strings.TrimSuffix(pattern, "/*")
		if urlPath == prefix || strings.HasPrefix(urlPath, prefix+"/") {
			return true
		}
	}
	return false
}
