// Package security holds input hygiene helpers for names that end up on disk.
package security

import (
	"path/filepath"
	"strings"
)

const maxFilenameLen = 128

// SanitizeFilename makes a safe file name stem from an arbitrary string.
// Characters other than ASCII letters, digits, dot, underscore and dash become
// an underscore, runs of underscores collapse, and the result is capped at
// 128 bytes. An input with nothing usable yields "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// OutputStem returns the sanitized base name of path without its extension.
// It is the stem every output file for an input is named after.
func OutputStem(path string) string {
	base := filepath.Base(path)
	return SanitizeFilename(strings.TrimSuffix(base, filepath.Ext(base)))
}

// SourceName returns the sanitized base name of a user-supplied source
// label, extension included.
func SourceName(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}
	return SanitizeFilename(filepath.Base(name))
}
