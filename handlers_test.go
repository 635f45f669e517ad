package oidc

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v3"
	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/types"
)

func testRSAKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func testLRUCache(t *testing.T) *cache.LRU {
	t.Helper()
	c, err := cache.NewLRU(64)
	require.NoError(t, err)
	return c
}

// TestIntrospectRejectsUnknownToken exercises the RFC 7662 contract
// that unrecognized tokens come back as 200 {"active":false}, never a
// protocol error.
func TestIntrospectRejectsUnknownToken(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.PostForm(ts.URL+"/introspect", url.Values{"token": {"not-a-real-token"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, false, body["active"])
}

// acceptingAuthProvider validates any client calling the token and
// introspection endpoints, the way a host backed by a real client
// registry would.
type acceptingAuthProvider struct {
	BaseProvider
}

func (acceptingAuthProvider) ValidateClientAuthentication(ctx context.Context, vc *ValidateClientAuthenticationContext) error {
	vc.Validated = true
	return nil
}

func testServerWithProvider(t *testing.T, provider Provider) *Server {
	t.Helper()
	key := testRSAKey(t)
	c := testLRUCache(t)

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
		SigningCredentials:        []SigningCredential{{Algorithm: jose.RS256, PrivateKey: key}},
		Cache:                     c,
	}
	srv, err := New(opts, provider)
	require.NoError(t, err)
	return srv
}

func TestIntrospectReportsActiveToken(t *testing.T) {
	srv := testServerWithProvider(t, acceptingAuthProvider{})
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	now := time.Now().UTC()
	ticket := types.NewTicket(types.UsageAccessToken, types.NewPrincipal(types.Claim{
		Type: "name_identifier", Value: "user-1",
	}), now, time.Hour)
	token, err := srv.ser.issue(ticket)
	require.NoError(t, err)

	resp, err := http.PostForm(ts.URL+"/introspect", url.Values{"token": {token}})
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, true, body["active"])
	require.Equal(t, "user-1", body["sub"])
}

func TestUserinfoRejectsMissingBearer(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/userinfo")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Bearer", resp.Header.Get("WWW-Authenticate"))
}

func TestUserinfoReturnsSubjectForValidToken(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	now := time.Now().UTC()
	principal := types.NewPrincipal(
		types.Claim{Type: "name_identifier", Value: "user-1"},
		types.Claim{Type: "email", Value: "user1@example.com"},
	)
	ticket := types.NewTicket(types.UsageAccessToken, principal, now, time.Hour)
	ticket.Properties.SetScope("openid email")
	token, err := srv.ser.issue(ticket)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/userinfo", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var claims map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&claims))
	require.Equal(t, "user-1", claims["sub"])
	require.Equal(t, "user1@example.com", claims["email"])
}

// acceptingLogoutProvider validates any post_logout_redirect_uri, so
// the logout flow can be exercised end to end.
type acceptingLogoutProvider struct {
	BaseProvider
}

func (acceptingLogoutProvider) ValidateClientLogoutRedirectURI(ctx context.Context, clientID, redirectURI string) (bool, error) {
	return true, nil
}

func TestLogoutRedirectsToValidatedURI(t *testing.T) {
	key := testRSAKey(t)
	c := testLRUCache(t)

	opts := &Options{
		LogoutEndpointPath:        "/logout",
		Issuer:                    "https://issuer.example.com",
		AllowInsecureHTTP:         true,
		AuthorizationCodeLifetime: time.Minute,
		AccessTokenLifetime:       time.Hour,
		IdentityTokenLifetime:     time.Hour,
		RefreshTokenLifetime:      24 * time.Hour,
		SigningCredentials:        []SigningCredential{{Algorithm: jose.RS256, PrivateKey: key}},
		Cache:                     c,
	}
	srv, err := New(opts, acceptingLogoutProvider{})
	require.NoError(t, err)

	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	httpc := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
	q := url.Values{"post_logout_redirect_uri": {"https://example.com/bye"}, "state": {"xyz"}}
	resp, err := httpc.Get(ts.URL + "/logout?" + q.Encode())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	require.Equal(t, "https://example.com/bye", loc.Scheme+"://"+loc.Host+loc.Path)
	require.Equal(t, "xyz", loc.Query().Get("state"))
}

func TestLogoutNoRedirectURIReturnsNoContent(t *testing.T) {
	srv := testServer(t)
	ts := httptest.NewServer(srv.Handler(http.NotFoundHandler()))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/logout")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestJWKFor(t *testing.T) {
	key := testRSAKey(t)
	jwk := jwkFor(SigningCredential{Algorithm: jose.RS256, PrivateKey: key})
	require.Equal(t, "RSA", jwk.Kty)
	require.Equal(t, "sig", jwk.Use)
	require.NotEmpty(t, jwk.N)
	require.NotEmpty(t, jwk.E)
}

func TestStatusForTokenError(t *testing.T) {
	require.Equal(t, http.StatusUnauthorized, statusForTokenError(types.ErrCodeInvalidClient))
	require.Equal(t, http.StatusBadRequest, statusForTokenError(types.ErrCodeInvalidRequest))
}
