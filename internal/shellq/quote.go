// Package shellq quotes strings for POSIX shell command lines.
package shellq

import "strings"

// Quote quotes s for use as a single word in a POSIX shell. Strings made of
// common safe characters pass through untouched; anything else is wrapped in
// single quotes, with embedded single quotes escaped via the standard
// close-escape-reopen sequence ('\''). The empty string renders as ''.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	if strings.IndexFunc(s, unsafeRune) == -1 {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// QuoteAll quotes each argument.
func QuoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = Quote(a)
	}
	return out
}

func unsafeRune(r rune) bool {
	if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
		return false
	}
	switch r {
	case '@', '%', '+', '=', ':', ',', '.', '/', '_', '-':
		return false
	}
	return true
}
