package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Whey Protein 80%", "whey-protein-80"},
		{"  --Mass  Gainer--  ", "mass-gainer"},
		{"Pre-Workout: Blast!", "pre-workout-blast"},
		{"Протеин", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("whey-protein"))
	assert.True(t, ValidSlug("b12"))
	assert.False(t, ValidSlug("Whey"))
	assert.False(t, ValidSlug("whey--protein"))
	assert.False(t, ValidSlug("-whey"))
	assert.False(t, ValidSlug("whey_protein"))
	assert.False(t, ValidSlug(""))
}

func TestGenerateSlug(t *testing.T) {
	slug := GenerateSlug("Whey Protein Isolate")
	assert.Regexp(t, `^whey-protein-isolate-[0-9a-f]{4}$`, slug)
	assert.True(t, ValidSlug(slug))

	assert.Regexp(t, `^product-[0-9a-f]{4}$`, GenerateSlug("!!!"))

	long := GenerateSlug(strings.Repeat("a", 150))
	assert.Len(t, long, maxSlugBaseLen+1+slugSuffixLen)
	assert.True(t, ValidSlug(long))
}
