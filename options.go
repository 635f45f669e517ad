// Package oidc implements the OpenID Connect 1.0 / OAuth 2.0
// authorization server protocol machinery — request decoding, endpoint
// dispatch, parameter validation, grant dispatch, token
// serialization and response rendering — leaving user authentication,
// client persistence and consent UI to the host application via the
// Provider interface.
//
// For details about the specs implemented please refer to
//   - https://tools.ietf.org/html/rfc6749
//   - https://tools.ietf.org/html/rfc6750
//   - https://tools.ietf.org/html/rfc7662
//   - https://openid.net/specs/openid-connect-core-1_0.html
//   - https://openid.net/specs/openid-connect-discovery-1_0.html
package oidc

import (
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/internal/clock"
	"github.com/hooklift/oidc/internal/random"
)

// SigningCredential pairs a private key with the public material
// needed to expose it at the JWKS endpoint and to stamp JWS headers.
type SigningCredential struct {
	// Algorithm this credential signs with. Only RS256/RS384/RS512 are
	// exposed at the JWKS endpoint; other algorithms are skipped there
	// but may still be used to sign if configured as the default.
	Algorithm jose.SignatureAlgorithm
	// PrivateKey used to sign.
	PrivateKey *rsa.PrivateKey
	// Certificate, when the key is backed by an X.509 certificate. When
	// nil, the plain RSA public key components (e, n) are exposed
	// instead.
	Certificate *x509.Certificate
	// Kid overrides the derived key id when non-empty.
	Kid string
}

// Options carries every piece of server configuration: enabled
// endpoints, lifetimes, the signing key set and the injected
// capabilities (clock, RNG).
type Options struct {
	// Endpoint paths. Empty disables the endpoint.
	AuthorizationEndpointPath string `validate:"omitempty"`
	TokenEndpointPath         string `validate:"omitempty"`
	ValidationEndpointPath    string `validate:"omitempty"`
	ProfileEndpointPath       string `validate:"omitempty"`
	LogoutEndpointPath        string `validate:"omitempty"`
	ConfigurationEndpointPath string `validate:"omitempty"`
	CryptographyEndpointPath  string `validate:"omitempty"`

	// Issuer identifies this server in discovery metadata and signed
	// tokens. Required.
	Issuer string `validate:"required,url"`

	// AllowInsecureHTTP disables the HTTPS requirement. Never set this
	// in production; it exists for local development and tests.
	AllowInsecureHTTP bool

	// Lifetimes for the four token kinds.
	AuthorizationCodeLifetime time.Duration `validate:"required"`
	AccessTokenLifetime       time.Duration `validate:"required"`
	IdentityTokenLifetime     time.Duration `validate:"required"`
	RefreshTokenLifetime      time.Duration `validate:"required"`

	// UseSlidingExpiration, when false, caps a rotated token's lifetime
	// at the refresh token's own expiration instead of granting it a
	// fresh full lifetime.
	UseSlidingExpiration bool

	// SigningCredentials are walked in order; the first one carrying a
	// PrivateKey is the default signer, all are exposed at the JWKS
	// endpoint (filtered to RS256/RS384/RS512).
	SigningCredentials []SigningCredential `validate:"required,min=1,dive"`

	// AccessTokenFormat and friends select "opaque" (default, AES-GCM
	// sealed) or "jwt". Identity tokens are always JWT, per OIDC Core.
	AccessTokenFormat       TokenFormatKind
	RefreshTokenFormat      TokenFormatKind
	AuthorizationCodeFormat TokenFormatKind

	// ApplicationCanDisplayErrors renders authorization errors that have
	// no redirect_uri to go to as a 400 JSON error body instead of the
	// native plain-text page. It applies only to errors raised after the
	// provider accepted a request that carries no redirect_uri; errors
	// raised earlier (TLS, client_id, redirect_uri checks, an expired
	// unique_id) always use the plain-text page. The error is not handed
	// to the host for rendering.
	ApplicationCanDisplayErrors bool

	// Cache stores continuation entries and one-shot code payloads.
	// Required.
	Cache cache.Cache `validate:"required"`

	// Clock and RNG are injected capabilities; defaults are the system
	// clock and crypto/rand when left nil.
	Clock  clock.Clock
	Random random.Generator

	// Logger receives structured request/error events. Defaults to a
	// no-op logger when left nil.
	Logger *zerolog.Logger

	// SymmetricKey seals opaque tokens with AES-256-GCM whenever any of
	// the three opaque formats above is in play (which is the default).
	// Neither Validate nor New checks it: the zero value is accepted as a
	// key.
	SymmetricKey [32]byte
}

// TokenFormatKind selects a token's wire serialization.
type TokenFormatKind string

const (
	// FormatOpaque seals the ticket with AES-256-GCM. Default.
	FormatOpaque TokenFormatKind = "opaque"
	// FormatJWT signs the ticket's claims as a JWS. Honored by
	// AccessTokenFormat, RefreshTokenFormat and AuthorizationCodeFormat;
	// identity tokens are always JWT regardless of this setting.
	FormatJWT TokenFormatKind = "jwt"
)

var validate = validator.New()

// Validate checks Options for the invariants the constructor can't
// express via struct tags alone, returning a single aggregated error so
// misconfiguration fails fast at startup instead of surfacing as a
// confusing runtime server_error.
func (o *Options) Validate() error {
	if err := validate.Struct(o); err != nil {
		return fmt.Errorf("oidc: invalid options: %w", err)
	}

	hasAsymmetric := false
	for _, c := range o.SigningCredentials {
		if c.PrivateKey != nil {
			hasAsymmetric = true
			break
		}
	}
	if !hasAsymmetric {
		return fmt.Errorf("oidc: invalid options: at least one signing credential must carry an RSA private key")
	}

	return nil
}

func (o *Options) clock() clock.Clock {
	if o.Clock != nil {
		return o.Clock
	}
	return clock.System{}
}

func (o *Options) random() random.Generator {
	if o.Random != nil {
		return o.Random
	}
	return random.CryptoRand{}
}

func (o *Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

func (o *Options) defaultSigningCredential() (*SigningCredential, error) {
	for i := range o.SigningCredentials {
		if o.SigningCredentials[i].PrivateKey != nil {
			return &o.SigningCredentials[i], nil
		}
	}
	return nil, fmt.Errorf("oidc: no asymmetric signing credential configured")
}
