package utils

import (
	"net/url"
	"strings"
)

// SafeRedirect returns next when it is a same-origin absolute path, else fallback.
// Scheme-relative ("//evil.com") and backslash tricks are rejected.
func SafeRedirect(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") {
		return fallback
	}

	if strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return fallback
	}

	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return fallback
	}

	return next
}
