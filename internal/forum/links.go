package forum

import (
	"net/url"
	"strings"
)

// ExtractHost extracts the lowercase hostname from an absolute URL string
func ExtractHost(urlStr string) (string, error) {
	// Handle protocol-relative URLs
	if strings.HasPrefix(urlStr, "//") {
		urlStr = "https:" + urlStr
	}

	// Relative URLs have no host of their own
	if !strings.Contains(urlStr, "://") {
		return "", nil
	}

	parsed, err := url.Parse(urlStr)
	if err != nil {
		return "", err
	}

	return strings.ToLower(parsed.Hostname()), nil
}

// SameForum reports whether two absolute URLs point at the same host
func SameForum(a, b string) bool {
	hostA, err := ExtractHost(a)
	if err != nil || hostA == "" {
		return false
	}
	hostB, err := ExtractHost(b)
	if err != nil {
		return false
	}
	return hostA == hostB
}

// navigable reports whether an href leads to another page
func navigable(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return false
	}
	lower := strings.ToLower(href)
	return !strings.HasPrefix(lower, "javascript:") && !strings.HasPrefix(lower, "mailto:")
}

// pageKey normalizes a page URL for loop detection (fragment dropped)
func pageKey(urlStr string) string {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return urlStr
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	parsed.Host = strings.ToLower(parsed.Host)
	return parsed.String()
}
