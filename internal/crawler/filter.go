package crawler

import (
	"net/url"
	"path/filepath"
	"strings"
)

// allowed checks targetURL against the ignore and follow patterns.
//
//  1. A URL matching any ignore pattern is skipped.
//  2. If follow patterns are set, the URL must match one of them.
//  3. Otherwise the URL is allowed.
func allowed(targetURL string, ignore, follow []string) bool {
	if len(ignore) == 0 && len(follow) == 0 {
		return true
	}
	u, err := url.Parse(targetURL)
	if err != nil {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}

	for _, pattern := range ignore {
		if matchPattern(pattern, path) {
			return false
		}
	}
	if len(follow) == 0 {
		return true
	}
	for _, pattern := range follow {
		if matchPattern(pattern, path) {
			return true
		}
	}
	return false
}

// matchPattern reports whether path matches a glob pattern.
//
// Examples:
//   - "/wiki/Archive*" matches "/wiki/ArchiveOld"
//   - "/wiki/*" matches every wiki page
//   - "*.pdf" matches "/files/manual.pdf"
func matchPattern(pattern, path string) bool {
	if prefix, ok := strings.CutSuffix(pattern, "/*"); ok {
		if strings.HasPrefix(path, prefix+"/") || path == prefix {
			return true
		}
	}
	if ext, ok := strings.CutPrefix(pattern, "*"); ok && strings.HasPrefix(ext, ".") && strings.HasSuffix(path, ext) {
		return true
	}

	if matched, err := filepath.Match(pattern, path); err == nil && matched {
		return true
	}

	// Slash-free patterns also apply to the last path segment.
	if strings.Contains(pattern, "*") && !strings.Contains(pattern, "/") {
		if matched, err := filepath.Match(pattern, filepath.Base(path)); err == nil && matched {
			return true
		}
	}
	return false
}
