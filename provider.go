package oidc

import (
	"context"
	"net/http"

	"github.com/hooklift/oidc/types"
)

// Endpoint identifies one of the seven well-known endpoints this
// package can serve.
type Endpoint int

const (
	EndpointAuthorization Endpoint = iota
	EndpointToken
	EndpointValidation
	EndpointProfile
	EndpointLogout
	EndpointConfiguration
	EndpointCryptography
	endpointNone
)

func (e Endpoint) String() string {
	switch e {
	case EndpointAuthorization:
		return "authorize"
	case EndpointToken:
		return "token"
	case EndpointValidation:
		return "introspect"
	case EndpointProfile:
		return "userinfo"
	case EndpointLogout:
		return "logout"
	case EndpointConfiguration:
		return "discovery"
	case EndpointCryptography:
		return "jwks"
	default:
		return "unknown"
	}
}

// MatchContext is passed to Provider.MatchEndpoint so a host can
// override the default path-based routing (virtual hosting,
// tenant-prefixed paths, etc).
type MatchContext struct {
	Request  *http.Request
	Endpoint Endpoint
	// Matched is true when the default path comparison already
	// considers this request to be for Endpoint. A provider may flip it
	// either way.
	Matched bool
}

// ValidateClientRedirectURIContext is raised once the TLS, client_id
// and redirect_uri syntax checks of the authorization request have
// passed, before response_type and the remaining parameters are
// validated.
type ValidateClientRedirectURIContext struct {
	Context     context.Context
	Request     *types.Message
	ClientID    string
	RedirectURI string
	// Validated must be set true by the provider once it confirms
	// RedirectURI (or the client's single registered URI, when the
	// request omitted one) is acceptable.
	Validated bool
	// Rejected, when set, short-circuits to an error response using
	// RejectCode as the OAuth error code (invalid_client when empty).
	Rejected    bool
	RejectCode  string
	RejectDescr string
}

// ValidateAuthorizationRequestContext lets the provider reject an
// otherwise well-formed authorization request (unknown scope, client
// not permitted to use a response_type, PKCE required but absent…).
type ValidateAuthorizationRequestContext struct {
	Context   context.Context
	Request   *types.Message
	Validated bool
	Rejected  bool
	RejectErr types.OAuthError
}

// AuthorizationEndpointContext asks the host to determine the outcome
// of an authorization request the protocol layer has already validated:
// is the user signed in, did they grant consent, should we show a
// prompt? The provider either calls exactly one of SignIn/Reject, or
// writes its own response to Writer and calls neither.
type AuthorizationEndpointContext struct {
	Context context.Context
	Request *types.Message
	// Writer and HTTPRequest are exposed so a provider that isn't ready
	// to resolve the request synchronously (no session yet) can write
	// its own response directly — typically a redirect to a login
	// page — without calling SignIn or Reject at all.
	Writer      http.ResponseWriter
	HTTPRequest *http.Request
	handled     bool
	ticket      *types.Ticket
	reject      types.OAuthError
}

// SignIn records that the user is authenticated as principal and grants
// the requested scopes; properties carries any additional ticket state
// (consent remembered, amr, auth_time…) the host wants propagated into
// issued tokens.
func (c *AuthorizationEndpointContext) SignIn(principal types.Principal, properties *types.Properties) {
	c.handled = true
	c.ticket = &types.Ticket{Principal: principal, AuthScheme: "Bearer"}
	if properties != nil {
		c.ticket.Properties = *properties
	} else {
		c.ticket.Properties = types.NewProperties()
	}
}

// Reject fails the authorization request with err (e.g. access_denied
// when the user declines consent).
func (c *AuthorizationEndpointContext) Reject(err types.OAuthError) {
	c.handled = true
	c.reject = err
}

// IsHandled reports whether the provider has called SignIn or Reject.
func (c *AuthorizationEndpointContext) IsHandled() bool { return c.handled }

// Ticket returns the ticket built by SignIn, or nil when the provider
// rejected the request instead.
func (c *AuthorizationEndpointContext) Ticket() *types.Ticket { return c.ticket }

// Err returns the error passed to Reject, the zero value when SignIn
// was called instead.
func (c *AuthorizationEndpointContext) Err() types.OAuthError { return c.reject }

// ValidateClientAuthenticationContext authenticates the calling client
// at the token and introspection endpoints.
type ValidateClientAuthenticationContext struct {
	Context      context.Context
	Request      *types.Message
	ClientID     string
	ClientSecret string
	// HasCredentials is true when either Basic auth or client_id/
	// client_secret form parameters were present.
	HasCredentials bool
	Validated      bool
	Confidential   bool
	Rejected       bool
	RejectErr      types.OAuthError
}

// ValidateTokenRequestContext lets the provider apply grant-specific
// checks (redirect_uri must match the one used at the authorization
// endpoint, refresh token belongs to this client, PKCE verifier
// matches…) after the protocol layer has decoded the grant.
type ValidateTokenRequestContext struct {
	Context   context.Context
	Request   *types.Message
	Ticket    *types.Ticket
	Validated bool
	Rejected  bool
	RejectErr types.OAuthError
}

// GrantContext is the common shape for the five grant hooks: the
// provider enriches/confirms the ticket that is about to be serialized
// into tokens.
type GrantContext struct {
	Context   context.Context
	Request   *types.Message
	// Ticket is pre-populated with what the protocol layer already
	// knows (client_id, scope, usage) and, for authorization_code and
	// refresh_token grants, the principal restored from the stored
	// code/refresh token. It is nil for custom extension grants.
	Ticket    *types.Ticket
	handled   bool
	rejectErr types.OAuthError
}

// Handle confirms the grant should proceed, optionally replacing Ticket
// with an enriched copy (additional claims, narrowed scope).
func (c *GrantContext) Handle(ticket *types.Ticket) {
	c.handled = true
	if ticket != nil {
		c.Ticket = ticket
	}
}

// Reject fails the grant (e.g. invalid_grant for a revoked refresh token).
func (c *GrantContext) Reject(err types.OAuthError) {
	c.handled = true
	c.rejectErr = err
}

func (c *GrantContext) IsHandled() bool { return c.handled }

// Err returns the error passed to Reject, the zero value otherwise.
func (c *GrantContext) Err() types.OAuthError { return c.rejectErr }

// ProfileEndpointContext lets the provider add claims to the userinfo
// response beyond what the access token's principal already carries.
type ProfileEndpointContext struct {
	Context   context.Context
	Ticket    *types.Ticket
	Claims    map[string]interface{}
	Rejected  bool
	RejectErr types.OAuthError
}

// ValidationEndpointContext lets the provider add claims to an
// introspection response, or force the result inactive.
type ValidationEndpointContext struct {
	Context context.Context
	Ticket  *types.Ticket
	Active  bool
	Claims  map[string]interface{}
}

// ConfigurationEndpointContext lets the provider amend the discovery
// document before it is serialized.
type ConfigurationEndpointContext struct {
	Context  context.Context
	Document map[string]interface{}
}

// CryptographyEndpointContext lets the provider amend the JWKS document
// (e.g. append keys held outside Options.SigningCredentials).
type CryptographyEndpointContext struct {
	Context context.Context
	Keys    *types.JWKSet
}

// LogoutEndpointContext asks the host to end the user's session.
type LogoutEndpointContext struct {
	Context     context.Context
	Request     *types.Message
	Writer      http.ResponseWriter
	HTTPRequest *http.Request
	// ValidatedRedirectURI is the post_logout_redirect_uri the protocol
	// layer already confirmed via ValidateClientLogoutRedirectURI, or
	// "" when none was supplied or it failed validation.
	ValidatedRedirectURI string
	handled               bool
	redirectURI           string
}

func (c *LogoutEndpointContext) SignOut(postLogoutRedirectURI string) {
	c.handled = true
	c.redirectURI = postLogoutRedirectURI
}

func (c *LogoutEndpointContext) IsHandled() bool { return c.handled }

// PostLogoutRedirectURI returns the URI passed to SignOut.
func (c *LogoutEndpointContext) PostLogoutRedirectURI() string { return c.redirectURI }

// Provider is the extensibility seam between the protocol machinery in
// this package and a host application: client/resource-owner
// persistence, session management and consent UI all live behind these
// methods. Embed BaseProvider to pick up no-op defaults for hooks the
// host doesn't need to customize.
type Provider interface {
	MatchEndpoint(ctx context.Context, mc *MatchContext) error

	ValidateClientRedirectURI(ctx context.Context, vc *ValidateClientRedirectURIContext) error
	ValidateAuthorizationRequest(ctx context.Context, vc *ValidateAuthorizationRequestContext) error
	AuthorizationEndpoint(ctx context.Context, ac *AuthorizationEndpointContext) error

	ValidateClientAuthentication(ctx context.Context, vc *ValidateClientAuthenticationContext) error
	ValidateTokenRequest(ctx context.Context, vc *ValidateTokenRequestContext) error

	GrantAuthorizationCode(ctx context.Context, gc *GrantContext) error
	GrantRefreshToken(ctx context.Context, gc *GrantContext) error
	GrantResourceOwnerCredentials(ctx context.Context, gc *GrantContext) error
	GrantClientCredentials(ctx context.Context, gc *GrantContext) error
	GrantCustomExtension(ctx context.Context, gc *GrantContext) error

	ProfileEndpoint(ctx context.Context, pc *ProfileEndpointContext) error
	ValidationEndpoint(ctx context.Context, vc *ValidationEndpointContext) error
	ConfigurationEndpoint(ctx context.Context, cc *ConfigurationEndpointContext) error
	CryptographyEndpoint(ctx context.Context, cc *CryptographyEndpointContext) error

	ValidateClientLogoutRedirectURI(ctx context.Context, clientID, redirectURI string) (bool, error)
	LogoutEndpoint(ctx context.Context, lc *LogoutEndpointContext) error
}

// BaseProvider implements Provider with defaults: it accepts redirect
// URIs, authorization requests and token requests as the protocol
// layer validated them, and echoes the ticket for the
// authorization_code, refresh_token and client_credentials grants. It
// rejects client authentication, every authorization request that
// reaches AuthorizationEndpoint, every non-empty
// post_logout_redirect_uri, the password grant and custom extension
// grants. Embed it and override only the methods that matter, the way
// net/http's http.Handler helpers are typically composed.
type BaseProvider struct{}

var _ Provider = BaseProvider{}

func (BaseProvider) MatchEndpoint(ctx context.Context, mc *MatchContext) error { return nil }

func (BaseProvider) ValidateClientRedirectURI(ctx context.Context, vc *ValidateClientRedirectURIContext) error {
	vc.Validated = true
	return nil
}

func (BaseProvider) ValidateAuthorizationRequest(ctx context.Context, vc *ValidateAuthorizationRequestContext) error {
	vc.Validated = true
	return nil
}

func (BaseProvider) AuthorizationEndpoint(ctx context.Context, ac *AuthorizationEndpointContext) error {
	ac.Reject(types.NewError(types.ErrCodeServerError, "no provider configured to authenticate the resource owner"))
	return nil
}

func (BaseProvider) ValidateClientAuthentication(ctx context.Context, vc *ValidateClientAuthenticationContext) error {
	vc.RejectErr = types.NewError(types.ErrCodeInvalidClient, "client authentication is not configured")
	vc.Rejected = true
	return nil
}

func (BaseProvider) ValidateTokenRequest(ctx context.Context, vc *ValidateTokenRequestContext) error {
	vc.Validated = true
	return nil
}

func (BaseProvider) GrantAuthorizationCode(ctx context.Context, gc *GrantContext) error {
	gc.Handle(gc.Ticket)
	return nil
}

func (BaseProvider) GrantRefreshToken(ctx context.Context, gc *GrantContext) error {
	gc.Handle(gc.Ticket)
	return nil
}

func (BaseProvider) GrantResourceOwnerCredentials(ctx context.Context, gc *GrantContext) error {
	gc.Reject(types.NewError(types.ErrCodeUnsupportedGrantType, "resource owner password credentials grant is not configured"))
	return nil
}

func (BaseProvider) GrantClientCredentials(ctx context.Context, gc *GrantContext) error {
	gc.Handle(gc.Ticket)
	return nil
}

func (BaseProvider) GrantCustomExtension(ctx context.Context, gc *GrantContext) error {
	gc.Reject(types.NewError(types.ErrCodeUnsupportedGrantType, "grant type is not supported"))
	return nil
}

func (BaseProvider) ProfileEndpoint(ctx context.Context, pc *ProfileEndpointContext) error { return nil }

func (BaseProvider) ValidationEndpoint(ctx context.Context, vc *ValidationEndpointContext) error {
	return nil
}

func (BaseProvider) ConfigurationEndpoint(ctx context.Context, cc *ConfigurationEndpointContext) error {
	return nil
}

func (BaseProvider) CryptographyEndpoint(ctx context.Context, cc *CryptographyEndpointContext) error {
	return nil
}

func (BaseProvider) ValidateClientLogoutRedirectURI(ctx context.Context, clientID, redirectURI string) (bool, error) {
	return redirectURI == "", nil
}

func (BaseProvider) LogoutEndpoint(ctx context.Context, lc *LogoutEndpointContext) error {
	lc.SignOut(lc.ValidatedRedirectURI)
	return nil
}
