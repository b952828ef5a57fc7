package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateID generates a unique ID for analysis requests
func GenerateID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}

// GenerateBatchID generates a batch identifier with a recognizable prefix
func GenerateBatchID() string {
	return fmt.Sprintf("batch_%s", GenerateID())
}
