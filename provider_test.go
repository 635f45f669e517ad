package oidc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/types"
)

func TestBaseProviderValidatesByDefault(t *testing.T) {
	ctx := context.Background()
	p := BaseProvider{}

	vc := &ValidateClientRedirectURIContext{Context: ctx}
	require.NoError(t, p.ValidateClientRedirectURI(ctx, vc))
	require.True(t, vc.Validated)

	vac := &ValidateAuthorizationRequestContext{Context: ctx}
	require.NoError(t, p.ValidateAuthorizationRequest(ctx, vac))
	require.True(t, vac.Validated)
}

func TestBaseProviderRejectsAuthorizationEndpoint(t *testing.T) {
	ctx := context.Background()
	p := BaseProvider{}

	ac := &AuthorizationEndpointContext{Context: ctx}
	require.NoError(t, p.AuthorizationEndpoint(ctx, ac))
	require.True(t, ac.IsHandled())
	require.Nil(t, ac.Ticket())
	require.Equal(t, types.ErrCodeServerError, ac.Err().Code)
}

func TestBaseProviderRejectsClientAuthentication(t *testing.T) {
	ctx := context.Background()
	p := BaseProvider{}

	vc := &ValidateClientAuthenticationContext{Context: ctx}
	require.NoError(t, p.ValidateClientAuthentication(ctx, vc))
	require.True(t, vc.Rejected)
	require.Equal(t, types.ErrCodeInvalidClient, vc.RejectErr.Code)
}

func TestBaseProviderGrantAuthorizationCodeEchoesTicket(t *testing.T) {
	ctx := context.Background()
	p := BaseProvider{}

	ticket := types.NewTicket(types.UsageAccessToken, types.Principal{}, time.Now().UTC(), 0)
	gc := &GrantContext{Context: ctx, Ticket: ticket}
	require.NoError(t, p.GrantAuthorizationCode(ctx, gc))
	require.True(t, gc.IsHandled())
	require.Equal(t, ticket, gc.Ticket)
}

func TestBaseProviderRejectsUnsupportedGrants(t *testing.T) {
	ctx := context.Background()
	p := BaseProvider{}

	gc := &GrantContext{Context: ctx}
	require.NoError(t, p.GrantResourceOwnerCredentials(ctx, gc))
	require.True(t, gc.IsHandled())
	require.Equal(t, types.ErrCodeUnsupportedGrantType, gc.Err().Code)

	gc2 := &GrantContext{Context: ctx}
	require.NoError(t, p.GrantCustomExtension(ctx, gc2))
	require.True(t, gc2.IsHandled())
}

func TestLogoutEndpointContextSignOut(t *testing.T) {
	lc := &LogoutEndpointContext{ValidatedRedirectURI: "https://example.com/post-logout"}
	require.False(t, lc.IsHandled())
	lc.SignOut(lc.ValidatedRedirectURI)
	require.True(t, lc.IsHandled())
	require.Equal(t, "https://example.com/post-logout", lc.PostLogoutRedirectURI())
}

func TestEndpointString(t *testing.T) {
	require.Equal(t, "authorize", EndpointAuthorization.String())
	require.Equal(t, "jwks", EndpointCryptography.String())
}
