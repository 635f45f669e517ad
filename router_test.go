package oidc

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/internal/cache"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	c, err := cache.NewLRU(64)
	require.NoError(t, err)

	var symKey [32]byte
	_, err = rand.Read(symKey[:])
	require.NoError(t, err)

	opts := &Options{
		AuthorizationEndpointPath: "/authorize",
		TokenEndpointPath:         "/token",
		ValidationEndpointPath:    "/introspect",
		ProfileEndpointPath:       "/userinfo",
		LogoutEndpointPath:        "/logout",
		ConfigurationEndpointPath: "/.well-known/openid-configuration",
		CryptographyEndpointPath:  "/.well-known/jwks.json",
		Issuer:                    "https://issuer.example.com",
		AllowInsecureHTTP:         true,
		AuthorizationCodeLifetime: time.Minute,
		AccessTokenLifetime:       time.Hour,
		IdentityTokenLifetime:     time.Hour,
		RefreshTokenLifetime:      24 * time.Hour,
		SigningCredentials: []SigningCredential{{
			Algorithm:  jose.RS256,
			PrivateKey: key,
		}},
		Cache:        c,
		SymmetricKey: symKey,
	}

	srv, err := New(opts, BaseProvider{})
	require.NoError(t, err)
	return srv
}

func TestNewRejectsNilProvider(t *testing.T) {
	opts := validOptions(t)
	_, err := New(opts, nil)
	require.Error(t, err)
}

func TestHandlerServesDiscovery(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/openid-configuration")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Equal(t, "https://issuer.example.com", doc["issuer"])
	require.Contains(t, doc, "token_endpoint")
}

func TestHandlerServesJWKS(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/.well-known/jwks.json")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var doc map[string][]map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
	require.Len(t, doc["keys"], 1)
	require.Equal(t, "RSA", doc["keys"][0]["kty"])
}

func TestHandlerFallsThroughToNext(t *testing.T) {
	srv := testServer(t)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts := httptest.NewServer(srv.Handler(next))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/unrelated")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusTeapot, resp.StatusCode)
}

func TestHandlerRejectsWrongMethod(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/token")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
