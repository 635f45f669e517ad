package types

// JWK mirrors the subset of RFC 7517 fields the JWKS endpoint emits.
// It is derived per request from the configured Signing Key Set and
// never carries private key material.
type JWK struct {
	Kty    string   `json:"kty"`
	Use    string   `json:"use,omitempty"`
	Alg    string   `json:"alg,omitempty"`
	Kid    string   `json:"kid,omitempty"`
	X5T    string   `json:"x5t,omitempty"`
	X5C    []string `json:"x5c,omitempty"`
	E      string   `json:"e,omitempty"`
	N      string   `json:"n,omitempty"`
	KeyOps []string `json:"key_ops,omitempty"`
}

// JWKSet is the document served at the JWKS endpoint.
type JWKSet struct {
	Keys []JWK `json:"keys"`
}
