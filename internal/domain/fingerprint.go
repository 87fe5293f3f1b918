package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// Normalize returns the fingerprint of a user query: case-folded, with every
// run of whitespace replaced by a single underscore. The fingerprint is used
// both as the cache key and as the dedupe key for in-flight tasks.
//
// Queries with repeated interior whitespace map to a different key than
// the older one-underscore-per-space scheme, so such cache entries written
// by that scheme are not found and are regenerated once.
func Normalize(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), "_")
}

// ObjectName maps a fingerprint onto a storage-safe MP3 object name.
// Letters, digits, '_' and '-' are kept; anything else becomes '-'.
func ObjectName(fingerprint string) string {
	return sanitizeObjectName(fingerprint) + ".mp3"
}

// UniqueObjectName is like ObjectName but suffixes the task ID, for
// deployments that do not want a later run to overwrite an earlier upload.
func UniqueObjectName(fingerprint string, taskID fmt.Stringer) string {
	return fmt.Sprintf("%s-%s.mp3", sanitizeObjectName(fingerprint), taskID)
}

func sanitizeObjectName(fingerprint string) string {
	name := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			return r
		}
		return '-'
	}, fingerprint)
	if name == "" {
		return "untitled"
	}
	return name
}
