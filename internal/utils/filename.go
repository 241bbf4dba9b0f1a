package utils

import (
	"net/url"
	"strings"
)

// SanitizeFilename replaces characters that are not allowed in common
// filesystems with a space and trims the result.
func SanitizeFilename(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if invalidFilenameChars[r] {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// FilenameFromURL returns the last path segment of rawURL. The segment is
// returned as is; callers sanitize it when it becomes a path.
func FilenameFromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	path := parsed.Path
	if path == "" || strings.HasSuffix(path, "/") {
		return "", false
	}
	segment := path[strings.LastIndex(path, "/")+1:]
	if segment == "" {
		return "", false
	}
	return segment, true
}
