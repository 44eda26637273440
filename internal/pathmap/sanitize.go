package pathmap

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Untitled replaces names that sanitize to nothing.
const Untitled = "Untitled"

// MaxNameBytes bounds a sanitized name so that "<name>.md" and "<name>_N.md"
// stay under the 255 byte limit of common filesystems.
const MaxNameBytes = 200

// SanitizeFilename turns a page title into a single safe path segment.
//
// The name is NFC-normalized, control characters and <>:"/\|?* become
// underscores, runs of underscores or spaces collapse to one, and leading
// and trailing underscores and spaces are trimmed. Empty results and the
// special names "." and ".." become Untitled.
func SanitizeFilename(name string) string {
	name = norm.NFC.String(name)

	var b strings.Builder
	b.Grow(len(name))
	var last rune
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(`<>:"/\|?*`, r) || r == utf8.RuneError {
			r = '_'
		}
		if (r == '_' || r == ' ') && r == last {
			continue
		}
		b.WriteRune(r)
		last = r
	}

	out := truncate(strings.Trim(b.String(), "_ "), MaxNameBytes)
	out = strings.Trim(out, "_ ")
	if out == "" || out == "." || out == ".." {
		return Untitled
	}
	return out
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
