package store

import "strings"

// NormalizeName lowercases a tag or alias name, trims it and collapses inner whitespace.
func NormalizeName(name string) (string, error) {
	normalized := strings.Join(strings.Fields(strings.ToLower(name)), " ")
	if normalized == "" {
		return "", ErrInvalidName
	}
	if len(normalized) > MaxNameLength {
		return "", ErrInvalidName
	}
	return normalized, nil
}

// MaxNameLength matches the width of the name columns.
const MaxNameLength = 191

// escapeLike escapes LIKE wildcards so a prefix is matched literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
