package utils

import (
	"encoding/json"
	"fmt"
)

// DefaultMaxStringLength bounds payload previews in errors and logs.
const DefaultMaxStringLength = 500

// TruncateString shortens s to maxLen bytes and records the original length. A maxLen of
// zero or less falls back to DefaultMaxStringLength.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxStringLength
	}
	if len(s) <= maxLen {
		return s
	}
	return fmt.Sprintf("%s... (truncated, total: %d chars)", s[:maxLen], len(s))
}

// JSONToString renders value as compact JSON for display. Marshal failures come back as a
// JSON error object so the result is always printable.
func JSONToString(value any) string {
	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, "failed to marshal to JSON: "+err.Error())
	}
	return string(encoded)
}
