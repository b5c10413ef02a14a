package webhook

import (
	"crypto/rand"
	"encoding/base64"
)

// NewSecret returns a fresh shared secret in the "whsec_" format NewVerifier
// accepts.
func NewSecret() (string, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return "", err
	}
	return secretPrefix + base64.StdEncoding.EncodeToString(key), nil
}
