package encryption

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// GenerateRandomString generates length random bytes, encoded as URL-safe
// base64. Used for OAuth state tokens, so the output must be unguessable
// and safe to carry in a query parameter.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(fmt.Errorf("failed to generate random string: %w", err))
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
