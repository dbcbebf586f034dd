package debpkg

import "strings"

// splitURL splits raw into scheme, host, and path such that
// scheme+host+path reproduces raw exactly. scheme includes the trailing
// "://" and is empty if raw has none; host ends at the first "/" that
// follows the scheme; path is the remainder, including its leading "/",
// or empty if raw has no path.
func splitURL(raw string) (scheme, host, path string) {
	if idx := strings.Index(raw, "://"); idx >= 0 {
		scheme = raw[:idx+3]
		raw = raw[idx+3:]
	}

	if idx := strings.Index(raw, "/"); idx >= 0 {
		host = raw[:idx]
		path = raw[idx:]
		return scheme, host, path
	}

	return scheme, raw, ""
}
