package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/internal/cache"
)

func validOptions(t *testing.T) *Options {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	c, err := cache.NewLRU(16)
	require.NoError(t, err)

	return &Options{
		AuthorizationEndpointPath: "/authorize",
		TokenEndpointPath:         "/token",
		Issuer:                    "https://issuer.example.com",
		AuthorizationCodeLifetime: time.Minute,
		AccessTokenLifetime:       time.Hour,
		IdentityTokenLifetime:     time.Hour,
		RefreshTokenLifetime:      24 * time.Hour,
		SigningCredentials: []SigningCredential{{
			Algorithm:  jose.RS256,
			PrivateKey: key,
		}},
		Cache: c,
	}
}

func TestOptionsValidateRequiresIssuer(t *testing.T) {
	opts := validOptions(t)
	opts.Issuer = ""
	require.Error(t, opts.Validate())
}

func TestOptionsValidateRequiresAsymmetricSigningCredential(t *testing.T) {
	opts := validOptions(t)
	opts.SigningCredentials = []SigningCredential{{Algorithm: jose.RS256}}
	require.Error(t, opts.Validate())
}

func TestOptionsValidateRequiresCache(t *testing.T) {
	opts := validOptions(t)
	opts.Cache = nil
	require.Error(t, opts.Validate())
}

func TestOptionsValidateOK(t *testing.T) {
	opts := validOptions(t)
	require.NoError(t, opts.Validate())
}

func TestOptionsDefaults(t *testing.T) {
	opts := validOptions(t)
	require.NotNil(t, opts.clock())
	require.NotNil(t, opts.random())

	cred, err := opts.defaultSigningCredential()
	require.NoError(t, err)
	require.NotNil(t, cred.PrivateKey)
}
