package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeAnswer(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "ACCRA", "accra"},
		{"collapses whitespace", "  new   york  ", "new york"},
		{"hyphen becomes space", "Mary-Ann", "mary ann"},
		{"apostrophe dropped", "O'Brien", "obrien"},
		{"dots dropped", "J.K. Rowling", "jk rowling"},
		{"accents stripped", "José Müller", "jose muller"},
		{"digits kept", "Flat 4B", "flat 4b"},
		{"empty", "", ""},
		{"only punctuation", "...!!!", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeAnswer(tc.input))
		})
	}
}

func TestAnswersMatch(t *testing.T) {
	assert.True(t, AnswersMatch("Mary-Ann O'Brien ", "MARY ANN OBRIEN"))
	assert.True(t, AnswersMatch("José", "jose"))
	assert.True(t, AnswersMatch("  accra  ", "Accra"))
	assert.False(t, AnswersMatch("accra", "kumasi"))
	assert.False(t, AnswersMatch("flat 4b", "flat 4c"))
}
