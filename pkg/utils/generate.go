package utils

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateReference creates a human-readable booking reference.
// Uniqueness is enforced by the store, callers retry on collision.
func GenerateReference() string {
	now := time.Now()

	// Format: TRV-YYYYMMDD-HHMMSS-RANDOM
	datePart := now.Format("20060102")
	timePart := now.Format("150405")
	randomPart := fmt.Sprintf("%04d", rand.Intn(10000))

	return fmt.Sprintf("TRV-%s-%s-%s", datePart, timePart, randomPart)
}
