// Package shared provides common utility functions used across multiple
// packages in the alpine-chroot codebase.
package shared

import (
	"fmt"
	"strings"
)

// HTTPStatusError creates a formatted error for non-2xx HTTP responses.
func HTTPStatusError(status int, url string) error {
	return fmt.Errorf("status=%d url=%s", status, url)
}

// CommandError wraps a command execution error with its trimmed output
// for cleaner error messages.
func CommandError(output []byte, err error) error {
	return fmt.Errorf("%s: %w", strings.TrimSpace(string(output)), err)
}

// SplitList flattens list values that may mix comma-joined and
// whitespace-joined entries, dropping empties. Flag values arrive
// comma-split already; environment overrides commonly use spaces.
func SplitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			out = append(out, strings.Fields(part)...)
		}
	}
	return out
}
