// Package util provides small helpers shared across gpubench packages.
package util

import "strings"

// ShellQuote wraps a string in single quotes, escaping any existing single quotes.
// This is safe for use in shell commands where the string should be treated literally.
func ShellQuote(s string) string {
	// Replace ' with '\'' (end quote, escaped quote, start quote)
	escaped := strings.ReplaceAll(s, "'", "'\\''")
	return "'" + escaped + "'"
}

// QuoteArg returns s unchanged when every byte is shell-safe, and
// single-quoted otherwise. Host names and addresses normally pass through
// untouched so remote commands stay readable in logs.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	for i := 0; i < len(s); i++ {
		if !safeShellByte(s[i]) {
			return ShellQuote(s)
		}
	}
	return s
}

func safeShellByte(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("@%+=:,./-_[]", c) >= 0
}
