package utils

// MakeMap creates a map[string]string containing a single key-value pair,
// mostly used for one-tag Sentry reports.
func MakeMap(key, value string) map[string]string {
	return map[string]string{key: value}
}
