package tokenformat

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hooklift/oidc/internal/random"
	"github.com/hooklift/oidc/types"
)

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// ErrUsageMismatch is returned by Unprotect when the deserialized
// ticket's usage does not match the kind being deserialized.
var ErrUsageMismatch = errors.New("tokenformat: ticket usage does not match expected kind")

// wireTicket is the JSON shape sealed inside an opaque token. It keeps
// every claim (opaque tokens are never claim-filtered, unlike JWTs).
type wireTicket struct {
	Claims       []types.Claim     `json:"claims"`
	IssuedUTC    int64             `json:"iat"`
	ExpiresUTC   int64             `json:"exp"`
	Items        map[string]string `json:"items"`
	AuthScheme   string            `json:"auth_scheme"`
}

// Opaque implements Format with AES-256-GCM symmetric encryption over a
// JSON-encoded ticket. The nonce is prepended to the ciphertext.
type Opaque struct {
	aead cipher.AEAD
	rng  random.Generator
}

// NewOpaque builds an Opaque formatter from a 32-byte symmetric key.
// Nonces are drawn from rng rather than crypto/rand directly, so a
// test can drive Protect deterministically the same way codes and
// unique_ids already are.
func NewOpaque(key [32]byte, rng random.Generator) (*Opaque, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("tokenformat: building aes cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: building gcm: %w", err)
	}
	return &Opaque{aead: aead, rng: rng}, nil
}

// Protect seals the ticket and returns a base64url-encoded token.
func (o *Opaque) Protect(ticket *types.Ticket) (string, error) {
	wt := wireTicket{
		Claims:     ticket.Principal.Claims,
		IssuedUTC:  ticket.Properties.IssuedUTC.Unix(),
		ExpiresUTC: ticket.Properties.ExpiresUTC.Unix(),
		Items:      ticket.Properties.Items,
		AuthScheme: ticket.AuthScheme,
	}

	plaintext, err := json.Marshal(wt)
	if err != nil {
		return "", fmt.Errorf("tokenformat: marshaling ticket: %w", err)
	}

	nonce := make([]byte, o.aead.NonceSize())
	if err := o.rng.FillBytes(nonce); err != nil {
		return "", fmt.Errorf("tokenformat: generating nonce: %w", err)
	}

	sealed := o.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Unprotect reverses Protect, rejecting data that fails authentication
// or whose usage item doesn't match expectedUsage.
func (o *Opaque) Unprotect(data string, expectedUsage types.Usage) (*types.Ticket, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: decoding token: %w", err)
	}

	nonceSize := o.aead.NonceSize()
	if len(sealed) < nonceSize {
		return nil, errors.New("tokenformat: token too short")
	}

	nonce, ciphertext := sealed[:nonceSize], sealed[nonceSize:]
	plaintext, err := o.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: decrypting token: %w", err)
	}

	var wt wireTicket
	if err := json.Unmarshal(plaintext, &wt); err != nil {
		return nil, fmt.Errorf("tokenformat: unmarshaling ticket: %w", err)
	}

	props := types.Properties{
		IssuedUTC:  unixTime(wt.IssuedUTC),
		ExpiresUTC: unixTime(wt.ExpiresUTC),
		Items:      wt.Items,
	}

	ticket := &types.Ticket{
		Principal:  types.Principal{Claims: wt.Claims},
		Properties: props,
		AuthScheme: wt.AuthScheme,
	}

	if ticket.Properties.GetUsage() != expectedUsage {
		return nil, ErrUsageMismatch
	}

	return ticket, nil
}
