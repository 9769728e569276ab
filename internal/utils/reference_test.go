package utils

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateReference(t *testing.T) {
	ref := GenerateReference("CLM")

	parts := strings.Split(ref, "-")
	assert.Len(t, parts, 3)
	assert.Equal(t, "CLM", parts[0])
	assert.Equal(t, time.Now().Format("20060102"), parts[1])
	assert.Len(t, parts[2], 8)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		seen[GenerateReference("INV")] = true
	}
	assert.Greater(t, len(seen), 95, "references should rarely collide")
}
