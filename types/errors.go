package types

// OAuthError models the `error`/`error_description`/`error_uri` triple
// returned by every endpoint, per
// http://tools.ietf.org/html/rfc6749#section-4.1.2.1 and the OIDC Core
// error sections that extend it. State is echoed back only on
// redirect-style (authorization/logout) errors.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	State       string `json:"-"`
}

func (e OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// Error codes defined by RFC 6749/7662 and OIDC Core.
const (
	ErrCodeInvalidRequest          = "invalid_request"
	ErrCodeInvalidClient           = "invalid_client"
	ErrCodeInvalidGrant            = "invalid_grant"
	ErrCodeUnauthorizedClient      = "unauthorized_client"
	ErrCodeUnsupportedGrantType    = "unsupported_grant_type"
	ErrCodeUnsupportedResponseType = "unsupported_response_type"
	ErrCodeRequestNotSupported     = "request_not_supported"
	ErrCodeRequestURINotSupported  = "request_uri_not_supported"
	ErrCodeInvalidScope            = "invalid_scope"
	ErrCodeAccessDenied            = "access_denied"
	ErrCodeServerError             = "server_error"
)

// NewError builds an OAuthError with the given code and description.
func NewError(code, description string) OAuthError {
	return OAuthError{Code: code, Description: description}
}

// WithState returns a copy of e carrying state, for redirect-style
// errors that must echo the client's state parameter.
func (e OAuthError) WithState(state string) OAuthError {
	e.State = state
	return e
}
