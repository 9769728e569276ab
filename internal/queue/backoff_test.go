package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoffGrowsExponentially(t *testing.T) {
	// Jitter is ±20%, so check bands rather than exact values.
	bands := []struct {
		retry int
		base  float64
	}{
		{0, 5},
		{1, 10},
		{2, 20},
		{5, 160},
	}

	for _, tc := range bands {
		d := calculateBackoff(tc.retry)
		lower := time.Duration(tc.base*0.8-1) * time.Second
		upper := time.Duration(tc.base*1.2+1) * time.Second
		assert.GreaterOrEqual(t, d, lower, "retry %d below jitter band", tc.retry)
		assert.LessOrEqual(t, d, upper, "retry %d above jitter band", tc.retry)
	}
}

func TestCalculateBackoffIsCapped(t *testing.T) {
	for _, retry := range []int{12, 20, 100} {
		d := calculateBackoff(retry)
		assert.LessOrEqual(t, d, time.Duration(3600*1.2+1)*time.Second)
		assert.GreaterOrEqual(t, d, time.Duration(3600*0.8-1)*time.Second)
	}
}
