package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// RandomID returns n characters drawn uniformly from [a-z0-9].
func RandomID(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("id length must be positive, got %d", n)
	}

	base := big.NewInt(int64(len(idAlphabet)))
	id := make([]byte, n)
	for i := range id {
		idx, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", fmt.Errorf("generate id: %w", err)
		}
		id[i] = idAlphabet[idx.Int64()]
	}
	return string(id), nil
}

// ValidID reports whether id has length n and uses only [a-z0-9].
func ValidID(id string, n int) bool {
	if len(id) != n {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return false
		}
	}
	return true
}
