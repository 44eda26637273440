// Package wikiurl canonicalizes and compares wiki page URLs.
//
// Every other package compares URLs through this package, so the rules live
// in one place: fragments are dropped, everything else (scheme, host, path,
// raw query) is kept byte-for-byte. Query parameters are not reordered.
package wikiurl

import (
	"net/url"
	"strings"
)

// wikiSegment is the path marker shared by every wiki page URL.
const wikiSegment = "/wiki/"

// Normalize returns the URL with its fragment removed.
// Scheme, host, path and query are preserved verbatim, which makes the
// function idempotent. Input that does not parse is returned unchanged;
// use Validate to reject it.
func Normalize(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// Validate reports whether raw parses with both a scheme and a host.
func Validate(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme != "" && u.Host != ""
}

// SameDomain reports whether a and b have byte-equal host components.
// The port is part of the host; no case folding is applied.
func SameDomain(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return ua.Host == ub.Host
}

// Resolve resolves ref against base using RFC 3986 reference resolution.
func Resolve(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return b.ResolveReference(r).String(), nil
}

// IsWikiLink reports whether the URL contains the /wiki/ path marker.
func IsWikiLink(raw string) bool {
	return strings.Contains(raw, wikiSegment)
}

// WikiToken returns the path segment that follows "wiki", or "" when the
// URL has no such segment.
func WikiToken(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	parts := strings.Split(u.Path, "/")
	for i, part := range parts {
		if part == "wiki" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// PageURL builds the canonical page URL for a wiki token.
func PageURL(scheme, host, token string) string {
	return scheme + "://" + host + wikiSegment + token
}

// Origin returns the scheme and host of raw, e.g. "https://example.feishu.cn".
func Origin(raw string) (scheme, host string, err error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", "", err
	}
	return u.Scheme, u.Host, nil
}
