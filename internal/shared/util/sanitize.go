package util

import (
	"errors"
	"strings"
)

// SanitizeFileName replaces every character other than ASCII letters, digits,
// '.' and '-' with '_'. Names that are empty or consist only of dots are rejected.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" {
		return "", errors.New("invalid file name")
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if strings.Trim(out, ".") == "" {
		return "", errors.New("invalid file name")
	}
	return out, nil
}
