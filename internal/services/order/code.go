package order

import (
	"crypto/rand"
	"fmt"
)

// publicCodeAlphabet leaves out 0/O and 1/I so codes can be read aloud.
const publicCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const publicCodeLength = 6

// NewPublicCode returns a random customer-facing order code such as "K7QX2M".
func NewPublicCode() (string, error) {
	buf := make([]byte, publicCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = publicCodeAlphabet[int(b)%len(publicCodeAlphabet)]
	}
	return string(buf), nil
}
