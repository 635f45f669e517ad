package oidc

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/internal/random"
	"github.com/hooklift/oidc/internal/tokenformat"
	"github.com/hooklift/oidc/metrics"
	"github.com/hooklift/oidc/types"
)

// serializer mints and reads back the four token kinds, choosing
// between the opaque and JWT wire formats per Options and handing
// authorization codes to the one-shot cache instead of returning them
// bare (codes are never self-contained: they are a lookup key into the
// stored ticket, so a stolen code string alone reveals nothing and a
// second redemption attempt is detectable).
type serializer struct {
	opts        *Options
	opaque      tokenformat.Format
	idToken     tokenformat.Format
	accessToken tokenformat.Format
	code        tokenformat.Format
}

func newSerializer(opts *Options) (*serializer, error) {
	opaque, err := tokenformat.NewOpaque(opts.SymmetricKey, opts.random())
	if err != nil {
		return nil, err
	}

	cred, err := opts.defaultSigningCredential()
	if err != nil {
		return nil, err
	}
	jwt, err := tokenformat.NewJWT(cred.PrivateKey, &cred.PrivateKey.PublicKey, cred.Algorithm, opts.Issuer, signingKeyID(cred), "")
	if err != nil {
		return nil, err
	}

	s := &serializer{opts: opts, opaque: opaque, idToken: jwt}
	s.accessToken = opaque
	if opts.AccessTokenFormat == FormatJWT {
		s.accessToken = jwt
	}
	s.code = opaque
	if opts.AuthorizationCodeFormat == FormatJWT {
		s.code = jwt
	}
	return s, nil
}

func (s *serializer) formatFor(usage types.Usage) tokenformat.Format {
	switch usage {
	case types.UsageIDToken:
		return s.idToken
	case types.UsageAccessToken:
		return s.accessToken
	case types.UsageRefreshToken:
		if s.opts.RefreshTokenFormat == FormatJWT {
			return s.idToken
		}
		return s.opaque
	default:
		return s.opaque
	}
}

// issue serializes ticket to its wire form. Authorization codes never
// reach this path directly from the wire: storeCode below is used
// instead, with the returned handle serving as the "code".
func (s *serializer) issue(ticket *types.Ticket) (string, error) {
	return s.formatFor(ticket.Properties.GetUsage()).Protect(ticket)
}

// read deserializes a wire token back into a ticket, verifying its
// usage matches expectedUsage.
func (s *serializer) read(data string, expectedUsage types.Usage) (*types.Ticket, error) {
	return s.formatFor(expectedUsage).Unprotect(data, expectedUsage)
}

// codeCache persists one-shot authorization code payloads: the code
// handed to the client is a random lookup key, and redeeming it at the
// token endpoint removes the entry so a replayed code is rejected, per
// http://tools.ietf.org/html/rfc6749#section-4.1.2.
type codeCache struct {
	backend cache.Cache
	rng     random.Generator
}

func codeCacheKey(handle string) string {
	return "code:" + handle
}

// storeCode seals ticket with the configured code format and stores it
// under a fresh random handle, returning the handle as the
// authorization code.
func (s *serializer) storeCode(ctx context.Context, cc codeCache, ticket *types.Ticket) (string, error) {
	handle, err := random.Token(cc.rng, 32)
	if err != nil {
		return "", fmt.Errorf("oidc: generating authorization code: %w", err)
	}

	sealed, err := s.code.Protect(ticket)
	if err != nil {
		return "", err
	}

	if err := cc.backend.Set(ctx, codeCacheKey(handle), []byte(sealed), ticket.Properties.ExpiresUTC); err != nil {
		return "", err
	}
	metrics.RecordCacheOp("code", "store")
	return handle, nil
}

// redeemCode looks up and deletes the ticket stored under handle. A
// second call for the same handle returns ok=false, implementing the
// one-shot semantics authorization codes require.
func (s *serializer) redeemCode(ctx context.Context, cc codeCache, handle string) (*types.Ticket, bool, error) {
	key := codeCacheKey(handle)
	raw, ok, err := cc.backend.Get(ctx, key)
	if err != nil || !ok {
		metrics.RecordCacheOp("code", "miss")
		return nil, false, err
	}
	if err := cc.backend.Remove(ctx, key); err != nil {
		return nil, false, err
	}

	ticket, err := s.code.Unprotect(string(raw), types.UsageCode)
	if err != nil {
		return nil, false, err
	}
	metrics.RecordCacheOp("code", "hit")
	return ticket, true, nil
}

// signingKeyID derives a JWKS/JWT `kid`: the explicit Kid, else the
// certificate's base64url SHA-1 thumbprint, else the first 40
// uppercase characters of base64url(modulus) for a plain RSA key. A
// credential with none of these gets the constant "default".
func signingKeyID(cred *SigningCredential) string {
	if cred.Kid != "" {
		return cred.Kid
	}
	if cred.Certificate != nil {
		sum := sha1.Sum(cred.Certificate.Raw)
		return base64.RawURLEncoding.EncodeToString(sum[:])
	}
	if cred.PrivateKey != nil {
		modulus := strings.ToUpper(base64.RawURLEncoding.EncodeToString(cred.PrivateKey.PublicKey.N.Bytes()))
		if len(modulus) > 40 {
			modulus = modulus[:40]
		}
		return modulus
	}
	return "default"
}
