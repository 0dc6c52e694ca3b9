package models

import "strings"

// Identity returns the canonical identity for an item-like value.
//
// Precedence is jobID, then remoteFileID, then the url with its query string and fragment
// removed. Each candidate is trimmed and skipped when empty. An empty return means the value
// is unidentifiable: it is still rendered but never deduplicated or selected.
func Identity(jobID, remoteFileID, url string) string {
	if id := strings.TrimSpace(jobID); id != "" {
		return id
	}
	if id := strings.TrimSpace(remoteFileID); id != "" {
		return id
	}
	return StripQuery(url)
}

// StripQuery trims the url and drops everything from the first '?' or '#'.
//
// Signed CDN urls carry transient query parameters, so two urls for the same object only
// compare equal once stripped.
func StripQuery(url string) string {
	url = strings.TrimSpace(url)
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	return strings.TrimSpace(url)
}

// SameContent reports whether two urls point at the same content, ignoring query strings.
// Empty urls never match.
func SameContent(a, b string) bool {
	a, b = StripQuery(a), StripQuery(b)
	return a != "" && a == b
}
