// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

package memory

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc"
	"github.com/hooklift/oidc/types"
)

func TestValidateClientRedirectURIUnknownClient(t *testing.T) {
	p := New()
	ctx := context.Background()
	vc := &oidc.ValidateClientRedirectURIContext{Context: ctx, ClientID: "ghost"}
	require.NoError(t, p.ValidateClientRedirectURI(ctx, vc))
	require.True(t, vc.Rejected)
	require.Equal(t, types.ErrCodeInvalidRequest, vc.RejectCode)
}

func TestValidateClientRedirectURIAcceptsSoleRegisteredURI(t *testing.T) {
	p := New()
	p.RegisterClient(Client{ID: "client-1", RedirectURIs: []string{"https://example.com/cb"}})

	ctx := context.Background()
	vc := &oidc.ValidateClientRedirectURIContext{Context: ctx, ClientID: "client-1"}
	require.NoError(t, p.ValidateClientRedirectURI(ctx, vc))
	require.True(t, vc.Validated)
}

func TestValidateClientRedirectURIRejectsUnregistered(t *testing.T) {
	p := New()
	p.RegisterClient(Client{ID: "client-1", RedirectURIs: []string{"https://example.com/cb"}})

	ctx := context.Background()
	vc := &oidc.ValidateClientRedirectURIContext{Context: ctx, ClientID: "client-1", RedirectURI: "https://evil.example.com/cb"}
	require.NoError(t, p.ValidateClientRedirectURI(ctx, vc))
	require.True(t, vc.Rejected)
}

func TestValidateClientAuthenticationPublicClient(t *testing.T) {
	p := New()
	p.RegisterClient(Client{ID: "public-1"})

	ctx := context.Background()
	vc := &oidc.ValidateClientAuthenticationContext{Context: ctx, ClientID: "public-1"}
	require.NoError(t, p.ValidateClientAuthentication(ctx, vc))
	require.True(t, vc.Validated)
	require.False(t, vc.Confidential)
}

func TestValidateClientAuthenticationConfidentialClient(t *testing.T) {
	p := New()
	p.RegisterClient(Client{ID: "conf-1", Secret: "s3cr3t", Confidential: true})

	ctx := context.Background()
	bad := &oidc.ValidateClientAuthenticationContext{Context: ctx, ClientID: "conf-1", HasCredentials: true, ClientSecret: "wrong"}
	require.NoError(t, p.ValidateClientAuthentication(ctx, bad))
	require.True(t, bad.Rejected)

	good := &oidc.ValidateClientAuthenticationContext{Context: ctx, ClientID: "conf-1", HasCredentials: true, ClientSecret: "s3cr3t"}
	require.NoError(t, p.ValidateClientAuthentication(ctx, good))
	require.True(t, good.Validated)
	require.True(t, good.Confidential)
}

func TestAuthorizationEndpointRedirectsToLoginWhenUnauthenticated(t *testing.T) {
	p := New()
	p.Authenticate = func(r *http.Request) (types.Principal, bool) { return types.Principal{}, false }

	req := httptest.NewRequest(http.MethodGet, "/authorize?client_id=client-1", nil)
	w := httptest.NewRecorder()
	ctx := context.Background()
	ac := &oidc.AuthorizationEndpointContext{Context: ctx, Request: types.NewMessage(types.AuthenticationRequest), Writer: w, HTTPRequest: req}

	require.NoError(t, p.AuthorizationEndpoint(ctx, ac))
	require.False(t, ac.IsHandled())
	require.Equal(t, http.StatusFound, w.Code)
	require.Contains(t, w.Header().Get("Location"), "/login?return_to=")
}

func TestAuthorizationEndpointSignsInAuthenticatedCaller(t *testing.T) {
	p := New()
	p.Authenticate = func(r *http.Request) (types.Principal, bool) {
		return types.NewPrincipal(types.Claim{Type: "name_identifier", Value: "user-1"}), true
	}

	req := httptest.NewRequest(http.MethodGet, "/authorize?client_id=client-1&scope=openid", nil)
	w := httptest.NewRecorder()
	ctx := context.Background()
	msg := types.NewMessage(types.AuthenticationRequest)
	msg.Set("scope", "openid")
	ac := &oidc.AuthorizationEndpointContext{Context: ctx, Request: msg, Writer: w, HTTPRequest: req}

	require.NoError(t, p.AuthorizationEndpoint(ctx, ac))
	require.True(t, ac.IsHandled())
	require.NotNil(t, ac.Ticket())
}

func TestGrantResourceOwnerCredentialsRejectsBadPassword(t *testing.T) {
	p := New()
	p.RegisterUser(User{Subject: "sub-1", Username: "alice", Password: "hunter2"})

	ctx := context.Background()
	msg := types.NewMessage(types.TokenRequest)
	msg.Set("username", "alice")
	msg.Set("password", "wrong")
	gc := &oidc.GrantContext{Context: ctx, Request: msg, Ticket: types.NewTicket(types.UsageAccessToken, types.Principal{}, time.Now().UTC(), 0)}

	require.NoError(t, p.GrantResourceOwnerCredentials(ctx, gc))
	require.True(t, gc.IsHandled())
	require.Equal(t, types.ErrCodeInvalidGrant, gc.Err().Code)
}

func TestGrantResourceOwnerCredentialsAcceptsGoodPassword(t *testing.T) {
	p := New()
	p.RegisterUser(User{Subject: "sub-1", Username: "alice", Password: "hunter2"})

	ctx := context.Background()
	msg := types.NewMessage(types.TokenRequest)
	msg.Set("username", "alice")
	msg.Set("password", "hunter2")
	gc := &oidc.GrantContext{Context: ctx, Request: msg, Ticket: types.NewTicket(types.UsageAccessToken, types.Principal{}, time.Now().UTC(), 0)}

	require.NoError(t, p.GrantResourceOwnerCredentials(ctx, gc))
	require.True(t, gc.IsHandled())
	claim, ok := gc.Ticket.Principal.FindFirst("name_identifier")
	require.True(t, ok)
	require.Equal(t, "sub-1", claim.Value)
}

func TestValidateClientLogoutRedirectURI(t *testing.T) {
	p := New()
	p.RegisterClient(Client{ID: "client-1", RedirectURIs: []string{"https://example.com/bye"}})

	ok, err := p.ValidateClientLogoutRedirectURI(context.Background(), "client-1", "https://example.com/bye")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = p.ValidateClientLogoutRedirectURI(context.Background(), "client-1", "https://evil.example.com/bye")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestNewSubjectIsUnique(t *testing.T) {
	require.NotEqual(t, NewSubject(), NewSubject())
}
