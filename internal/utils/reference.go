package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateReference generates a unique human-readable reference, used for
// claim and invoice numbers. Uniqueness is backed by the unique index on the
// receiving column; collisions surface as insert errors and are retried by
// the caller.
func GenerateReference(prefix string) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	result := make([]byte, 8)
	for i := range result {
		result[i] = charset[rand.Intn(len(charset))]
	}

	timestamp := time.Now().Format("20060102")
	return fmt.Sprintf("%s-%s-%s", prefix, timestamp, string(result))
}
