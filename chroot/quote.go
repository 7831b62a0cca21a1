//go:build linux

package chroot

import (
	"errors"
	"strings"
)

// errUnquotable is wrapped into the ChrootError returned for tokens that
// cannot be represented as a shell word.
var errUnquotable = errors.New("token contains a NUL byte")

// shellQuote returns s as a single POSIX shell word: safe strings pass
// through unchanged, everything else is single-quoted with embedded single
// quotes rewritten to `'\''`. The result survives one round of word
// splitting by the inner `sh -c` as exactly one token.
//
// Tokens containing NUL cannot cross an execve boundary at all and are
// rejected.
func shellQuote(s string) (string, error) {
	if strings.ContainsRune(s, 0) {
		return "", errUnquotable
	}

	if s == "" {
		return "''", nil
	}

	if isShellSafe(s) {
		return s, nil
	}

	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'", nil
}

// isShellSafe reports whether every byte of s is in the conservative
// ASCII set that needs no quoting in any POSIX shell context.
func isShellSafe(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]

		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '_' || c == '@' || c == '%' || c == '+' || c == '=':
		case c == ':' || c == ',' || c == '.' || c == '/' || c == '-':
		default:
			return false
		}
	}

	return true
}
