// Package random provides the injected randomness capability used to
// mint codes, unique_ids and cache keys, instead of reading
// crypto/rand globally from call sites scattered across the server.
package random

import (
	"crypto/rand"
	"encoding/base64"
)

// Generator fills buf with random bytes. Implementations must be safe
// for concurrent use.
type Generator interface {
	FillBytes(buf []byte) error
}

// CryptoRand is the production Generator backed by crypto/rand.Reader.
type CryptoRand struct{}

// FillBytes fills buf using crypto/rand.Reader.
func (CryptoRand) FillBytes(buf []byte) error {
	_, err := rand.Read(buf)
	return err
}

// Token generates n random bytes with g and returns them base64url
// encoded without padding, the encoding used for codes, unique_ids and
// cache keys throughout the server.
func Token(g Generator, n int) (string, error) {
	buf := make([]byte, n)
	if err := g.FillBytes(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
