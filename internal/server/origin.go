// Package server normalizes and validates HTTP origins for WebSocket
// gateway requests to enforce configured access control.
package server

import (
	"net/url"
	"strings"
)

// normalizeOrigins lowercases and deduplicates the configured origins,
// reporting whether a wildcard entry allows all origins and which entries
// were invalid.
func normalizeOrigins(origins []string) (normalized map[string]struct{}, allowAll bool, invalid []string) {
	normalized = make(map[string]struct{}, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			allowAll = true
			continue
		}
		n, ok := normalizeOrigin(trimmed)
		if !ok {
			invalid = append(invalid, origin)
			continue
		}
		normalized[n] = struct{}{}
	}

	return normalized, allowAll, invalid
}

// normalizeOrigin reduces an origin to lowercase scheme://host form.
func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}
