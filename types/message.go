// Package types defines the wire-level data model shared by every
// endpoint: the parameter bag decoded from a request, the
// authentication ticket minted for issued tokens, protocol errors and
// the JSON Web Key shape exposed at the JWKS endpoint.
package types

// RequestType tags a Message with which endpoint produced it, so that
// accessors and validators know which parameters are meaningful.
type RequestType int

const (
	// AuthenticationRequest is a Message decoded at the authorization endpoint.
	AuthenticationRequest RequestType = iota
	// TokenRequest is a Message decoded at the token endpoint.
	TokenRequest
	// LogoutRequest is a Message decoded at the logout endpoint.
	LogoutRequest
)

func (rt RequestType) String() string {
	switch rt {
	case AuthenticationRequest:
		return "authentication_request"
	case TokenRequest:
		return "token_request"
	case LogoutRequest:
		return "logout_request"
	default:
		return "unknown_request"
	}
}

// Message is an ordered, string-keyed parameter bag decoded from an
// HTTP request's query string or form body. Keys are stored exactly
// as received; the accessors below read the lower-case names every
// OAuth2/OIDC parameter is defined with in the RFCs this server
// implements.
type Message struct {
	RequestType RequestType

	keys   []string
	values map[string]string
}

// NewMessage returns an empty Message tagged with the given request type.
func NewMessage(rt RequestType) *Message {
	return &Message{
		RequestType: rt,
		values:      make(map[string]string),
	}
}

// Set stores value under key, preserving first-seen insertion order.
func (m *Message) Set(key, value string) {
	if _, ok := m.values[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// SetIfAbsent stores value under key only when key is not already present.
// Used to overlay continuation-cache parameters onto a live request
// without clobbering values the client sent directly.
func (m *Message) SetIfAbsent(key, value string) {
	if _, ok := m.values[key]; ok {
		return
	}
	m.Set(key, value)
}

// Get returns the value stored under key, or "" when absent.
func (m *Message) Get(key string) string {
	return m.values[key]
}

// Has reports whether key was set, even to an empty value.
func (m *Message) Has(key string) bool {
	_, ok := m.values[key]
	return ok
}

// Keys returns parameter names in insertion order.
func (m *Message) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Parameters materializes the bag as an ordered slice of pairs, the
// shape persisted by the continuation cache frame.
func (m *Message) Parameters() []Parameter {
	out := make([]Parameter, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, Parameter{Name: k, Value: m.values[k]})
	}
	return out
}

// Parameter is one name/value pair of a Message.
type Parameter struct {
	Name  string
	Value string
}

// Well-known parameter accessors. Each simply reads the lower-cased
// parameter name from the bag; they exist so call sites don't
// sprinkle magic strings throughout the validation matrix.
func (m *Message) ClientID() string               { return m.Get("client_id") }
func (m *Message) ClientSecret() string            { return m.Get("client_secret") }
func (m *Message) RedirectURI() string             { return m.Get("redirect_uri") }
func (m *Message) ResponseType() string            { return m.Get("response_type") }
func (m *Message) ResponseMode() string             { return m.Get("response_mode") }
func (m *Message) Scope() string                   { return m.Get("scope") }
func (m *Message) Resource() string                { return m.Get("resource") }
func (m *Message) State() string                   { return m.Get("state") }
func (m *Message) Nonce() string                   { return m.Get("nonce") }
func (m *Message) GrantType() string               { return m.Get("grant_type") }
func (m *Message) Code() string                    { return m.Get("code") }
func (m *Message) RefreshToken() string            { return m.Get("refresh_token") }
func (m *Message) Username() string                { return m.Get("username") }
func (m *Message) Password() string                { return m.Get("password") }
func (m *Message) IDTokenHint() string             { return m.Get("id_token_hint") }
func (m *Message) AccessToken() string             { return m.Get("access_token") }
func (m *Message) Token() string                   { return m.Get("token") }
func (m *Message) TokenTypeHint() string            { return m.Get("token_type_hint") }
func (m *Message) PostLogoutRedirectURI() string   { return m.Get("post_logout_redirect_uri") }
func (m *Message) UniqueID() string                { return m.Get("unique_id") }

// Scopes splits the scope parameter on spaces, dropping empty entries.
func (m *Message) Scopes() []string {
	return splitSpace(m.Scope())
}

// HasScope reports whether scope s is present among the space-delimited
// scope parameter values.
func (m *Message) HasScope(s string) bool {
	for _, v := range m.Scopes() {
		if v == s {
			return true
		}
	}
	return false
}

func splitSpace(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ' ' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
