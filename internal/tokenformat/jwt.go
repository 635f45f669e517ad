package tokenformat

import (
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v3"

	"github.com/hooklift/oidc/types"
)

// reservedClaims are the claim names the JWT formatter manages itself;
// any principal claim using one of these names is shadowed by the
// computed value rather than duplicated.
var reservedClaims = map[string]bool{
	"iss": true, "sub": true, "aud": true, "iat": true, "nbf": true, "exp": true,
	"usage": true, "scope": true, "azp": true, "confidential": true,
	"nonce": true, "at_hash": true, "c_hash": true, "name_identifier": true,
}

// JWT implements Format by signing/verifying a JSON Web Token. It is
// used for identity tokens always, and for access tokens when the host
// configures a signing handler for them.
//
// Deserialization validates the signature and issuer but deliberately
// disables audience and lifetime validation: lifetime is re-checked by
// each endpoint against the injected Clock instead.
type JWT struct {
	signer jose.Signer
	pub    *rsa.PublicKey
	issuer string
	kid    string
	x5t    string
}

// NewJWT builds a JWT formatter signing with priv under alg, and
// verifying with the corresponding pub. kid is always stamped into the
// JWS header; x5t only when non-empty.
func NewJWT(priv *rsa.PrivateKey, pub *rsa.PublicKey, alg jose.SignatureAlgorithm, issuer, kid, x5t string) (*JWT, error) {
	opts := (&jose.SignerOptions{}).WithHeader("kid", kid)
	if x5t != "" {
		opts = opts.WithHeader("x5t", x5t)
	}

	signer, err := jose.NewSigner(jose.SigningKey{Algorithm: alg, Key: priv}, opts)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: building jwt signer: %w", err)
	}

	return &JWT{signer: signer, pub: pub, issuer: issuer, kid: kid, x5t: x5t}, nil
}

func destinationFor(ticket *types.Ticket) string {
	if ticket.IsIDToken() {
		return types.DestinationIDToken
	}
	return types.DestinationAccessToken
}

// Protect signs the ticket's claims into a compact JWS.
func (j *JWT) Protect(ticket *types.Ticket) (string, error) {
	claims := map[string]interface{}{
		"iss": j.issuer,
		"iat": ticket.Properties.IssuedUTC.Unix(),
		"nbf": ticket.Properties.IssuedUTC.Unix(),
		"exp": ticket.Properties.ExpiresUTC.Unix(),
	}

	if sub := ticket.Principal.Subject(); sub != "" {
		claims["sub"] = sub
	}
	claims["usage"] = string(ticket.Properties.GetUsage())

	if scopes := ticket.Properties.Scopes(); len(scopes) > 0 {
		claims["scope"] = scopes
	}
	if auds := ticket.Properties.Audiences(); len(auds) > 0 {
		claims["aud"] = auds
	}
	if clientID := ticket.Properties.ClientID(); clientID != "" {
		claims["azp"] = clientID
	}
	if ticket.Properties.Confidential() {
		claims["confidential"] = true
	}

	if ticket.IsIDToken() {
		if nonce := ticket.Properties.Nonce(); nonce != "" {
			claims["nonce"] = nonce
		}
		if ah := ticket.Properties.AtHash(); ah != "" {
			claims["at_hash"] = ah
		}
		if ch := ticket.Properties.CHash(); ch != "" {
			claims["c_hash"] = ch
		}
	}

	destination := destinationFor(ticket)
	for _, c := range ticket.Principal.FilterFor(destination) {
		if c.Type == "name_identifier" || reservedClaims[c.Type] {
			continue
		}
		claims[c.Type] = c.Value
	}

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("tokenformat: marshaling claims: %w", err)
	}

	jws, err := j.signer.Sign(payload)
	if err != nil {
		return "", fmt.Errorf("tokenformat: signing jwt: %w", err)
	}

	return jws.CompactSerialize()
}

// Unprotect verifies the JWS signature and issuer (but not audience or
// lifetime) and reconstructs a ticket from its claims.
func (j *JWT) Unprotect(data string, expectedUsage types.Usage) (*types.Ticket, error) {
	jws, err := jose.ParseSigned(data)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: parsing jwt: %w", err)
	}

	payload, err := jws.Verify(j.pub)
	if err != nil {
		return nil, fmt.Errorf("tokenformat: verifying jwt signature: %w", err)
	}

	var claims map[string]interface{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("tokenformat: unmarshaling claims: %w", err)
	}
	if iss, _ := claims["iss"].(string); iss != j.issuer {
		return nil, fmt.Errorf("tokenformat: unexpected issuer %q", iss)
	}

	props := types.NewProperties()
	if nbf, ok := claims["nbf"]; ok {
		props.IssuedUTC = unixTime(int64(toFloat(nbf)))
	}
	if exp, ok := claims["exp"]; ok {
		props.ExpiresUTC = unixTime(int64(toFloat(exp)))
	}
	if v, ok := claims["usage"].(string); ok {
		props.SetUsage(types.Usage(v))
	}
	if v, ok := claims["azp"].(string); ok {
		props.SetClientID(v)
	}
	if v, ok := claims["confidential"].(bool); ok {
		props.SetConfidential(v)
	}
	if v, ok := claims["nonce"].(string); ok {
		props.SetNonce(v)
	}
	props.SetScope(pkgJoin(stringSlice(claims["scope"])))
	props.SetAudiences(stringSlice(claims["aud"]))

	principal := types.Principal{}
	if sub, ok := claims["sub"].(string); ok {
		principal.Add(types.Claim{Type: "sub", Value: sub})
	}
	for k, v := range claims {
		if reservedClaims[k] {
			continue
		}
		if s, ok := v.(string); ok {
			principal.Add(types.Claim{Type: k, Value: s})
		}
	}

	ticket := &types.Ticket{
		Principal:  principal,
		Properties: props,
		AuthScheme: "Bearer",
	}

	if ticket.Properties.GetUsage() != expectedUsage {
		return nil, ErrUsageMismatch
	}

	return ticket, nil
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0
	}
}

func stringSlice(v interface{}) []string {
	switch vv := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return vv
	default:
		return nil
	}
}

func pkgJoin(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += " "
		}
		out += s
	}
	return out
}

// ErrNoSigningKey is returned by key-selection helpers when no usable
// asymmetric signing credential is configured.
var ErrNoSigningKey = errors.New("tokenformat: no asymmetric signing credential configured")
