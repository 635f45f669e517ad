// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package memory is a reference Provider implementation backed by
// in-process maps. It is meant for demos and integration tests, not
// for production use: registered clients and signed-in sessions are
// lost on restart and there is no locking beyond a single mutex.
package memory

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/hooklift/oidc"
	"github.com/hooklift/oidc/types"
)

// Client is a registered relying party.
type Client struct {
	ID           string
	Secret       string
	RedirectURIs []string
	Confidential bool
}

// User is a resource owner the provider can authenticate directly,
// used by the resource owner password credentials grant.
type User struct {
	Subject  string
	Username string
	Password string
	Claims   []types.Claim
}

// Provider is a self-contained authorization server backing store:
// client registry, user directory and the session lookup the
// authorization endpoint needs to decide whether a request can be
// completed without further interaction.
type Provider struct {
	oidc.BaseProvider

	mu      sync.Mutex
	clients map[string]Client
	users   map[string]User

	// Authenticate is consulted by AuthorizationEndpoint to resolve the
	// current HTTP request to a signed-in principal. A nil Authenticate
	// behaves like BaseProvider's (reject every request).
	Authenticate func(r *http.Request) (types.Principal, bool)
}

// New returns a Provider with an empty client and user registry.
func New() *Provider {
	return &Provider{
		clients: make(map[string]Client),
		users:   make(map[string]User),
	}
}

// RegisterClient adds or replaces a client registration.
func (p *Provider) RegisterClient(c Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clients[c.ID] = c
}

// RegisterUser adds or replaces a resource owner.
func (p *Provider) RegisterUser(u User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.Username] = u
}

func (p *Provider) client(id string) (Client, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.clients[id]
	return c, ok
}

// ValidateClientRedirectURI confirms redirectURI is one of the
// client's registered URIs, or accepts the client's sole registered
// URI when the request omitted one.
func (p *Provider) ValidateClientRedirectURI(ctx context.Context, vc *oidc.ValidateClientRedirectURIContext) error {
	c, ok := p.client(vc.ClientID)
	if !ok {
		vc.Rejected = true
		vc.RejectCode = types.ErrCodeInvalidRequest
		vc.RejectDescr = "unknown client_id"
		return nil
	}

	if vc.RedirectURI == "" {
		if len(c.RedirectURIs) != 1 {
			vc.Rejected = true
			vc.RejectCode = types.ErrCodeInvalidRequest
			vc.RejectDescr = "redirect_uri is required"
			return nil
		}
		vc.RedirectURI = c.RedirectURIs[0]
		vc.Validated = true
		return nil
	}

	for _, u := range c.RedirectURIs {
		if u == vc.RedirectURI {
			vc.Validated = true
			return nil
		}
	}
	vc.Rejected = true
	vc.RejectCode = types.ErrCodeInvalidRequest
	vc.RejectDescr = "redirect_uri is not registered for this client"
	return nil
}

// ValidateClientAuthentication checks client_id/client_secret against
// the registry. Clients registered with Confidential=false are accepted
// without checking credentials and are never marked Confidential.
func (p *Provider) ValidateClientAuthentication(ctx context.Context, vc *oidc.ValidateClientAuthenticationContext) error {
	c, ok := p.client(vc.ClientID)
	if !ok {
		vc.Rejected = true
		vc.RejectErr = types.NewError(types.ErrCodeInvalidClient, "unknown client_id")
		return nil
	}

	if !c.Confidential {
		vc.Validated = true
		return nil
	}

	if !vc.HasCredentials || vc.ClientSecret != c.Secret {
		vc.Rejected = true
		vc.RejectErr = types.NewError(types.ErrCodeInvalidClient, "invalid client credentials")
		return nil
	}

	vc.Validated = true
	vc.Confidential = true
	return nil
}

// AuthorizationEndpoint resolves the caller's session via Authenticate
// and signs in directly, granting whatever scope was requested. When
// Authenticate reports no session, it redirects to
// /login?return_to=<request URI> and leaves the request unresolved.
func (p *Provider) AuthorizationEndpoint(ctx context.Context, ac *oidc.AuthorizationEndpointContext) error {
	if p.Authenticate == nil {
		ac.Reject(types.NewError(types.ErrCodeServerError, "no authentication configured"))
		return nil
	}

	principal, ok := p.Authenticate(ac.HTTPRequest)
	if !ok {
		http.Redirect(ac.Writer, ac.HTTPRequest, "/login?return_to="+ac.HTTPRequest.URL.RequestURI(), http.StatusFound)
		return nil
	}

	props := types.NewProperties()
	props.SetScope(ac.Request.Scope())
	ac.SignIn(principal, &props)
	return nil
}

// GrantResourceOwnerCredentials authenticates username/password
// directly against the user directory.
func (p *Provider) GrantResourceOwnerCredentials(ctx context.Context, gc *oidc.GrantContext) error {
	p.mu.Lock()
	u, ok := p.users[gc.Request.Username()]
	p.mu.Unlock()

	if !ok || u.Password != gc.Request.Password() {
		gc.Reject(types.NewError(types.ErrCodeInvalidGrant, "invalid username or password"))
		return nil
	}

	ticket := gc.Ticket
	ticket.Principal = types.NewPrincipal(append(u.Claims, types.Claim{
		Type:         "name_identifier",
		Value:        u.Subject,
		Destinations: []string{types.DestinationAccessToken, types.DestinationIDToken},
	})...)
	gc.Handle(ticket)
	return nil
}

// GrantClientCredentials issues a ticket identifying the client itself
// as the principal, per RFC 6749 §4.4.
func (p *Provider) GrantClientCredentials(ctx context.Context, gc *oidc.GrantContext) error {
	ticket := gc.Ticket
	ticket.Principal = types.NewPrincipal(types.Claim{
		Type:         "name_identifier",
		Value:        ticket.Properties.ClientID(),
		Destinations: []string{types.DestinationAccessToken},
	})
	gc.Handle(ticket)
	return nil
}

// ValidateClientLogoutRedirectURI mirrors ValidateClientRedirectURI's
// registry check for the logout endpoint's post_logout_redirect_uri.
func (p *Provider) ValidateClientLogoutRedirectURI(ctx context.Context, clientID, redirectURI string) (bool, error) {
	c, ok := p.client(clientID)
	if !ok {
		return false, nil
	}
	for _, u := range c.RedirectURIs {
		if u == redirectURI {
			return true, nil
		}
	}
	return false, nil
}

// NewSubject mints a random subject identifier for a freshly
// registered user, the way a host's sign-up flow typically would.
func NewSubject() string {
	return uuid.NewString()
}
