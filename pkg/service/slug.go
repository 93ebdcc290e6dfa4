package service

import (
	"regexp"
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

const (
	slugSuffixLen  = 4
	maxSlugBaseLen = 100
)

var (
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9]+`)
	hexSlugAlphabet = "0123456789abcdef"
)

// Slugify lowercases s and collapses every run of characters outside
// [a-z0-9] into a single hyphen.
func Slugify(s string) string {
	s = nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}

// ValidSlug reports whether s is lowercase alphanumeric words joined by
// single hyphens.
func ValidSlug(s string) bool {
	return slugPattern.MatchString(s)
}

// GenerateSlug derives a slug from a display name plus a short random
// suffix.
func GenerateSlug(name string) string {
	base := Slugify(name)
	if len(base) > maxSlugBaseLen {
		base = strings.TrimRight(base[:maxSlugBaseLen], "-")
	}
	if base == "" {
		base = "product"
	}
	return base + "-" + shortuuid.NewWithAlphabet(hexSlugAlphabet)[:slugSuffixLen]
}
