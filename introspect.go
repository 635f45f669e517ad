package oidc

import (
	"net/http"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// handleIntrospect implements token introspection per RFC 7662. Per
// §2.3 of that RFC, failures never surface as protocol errors: every
// path that can't prove the token active responds 200 {"active":false}.
func handleIntrospect(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()
	inactive := func() {
		render.JSON(w, render.Options{Data: map[string]interface{}{"active": false}, Logger: &logger})
	}

	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "TLS is required"))
		return
	}

	msg, err := decode(req, types.TokenRequest)
	if err != nil {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "malformed request"))
		return
	}

	token := msg.Token()
	if token == "" {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "token is required"))
		return
	}

	clientID, clientSecret, hasCreds := clientCredentials(req, msg)
	vcac := &ValidateClientAuthenticationContext{Context: ctx, Request: msg, ClientID: clientID, ClientSecret: clientSecret, HasCredentials: hasCreds}
	if err := s.provider.ValidateClientAuthentication(ctx, vcac); err != nil {
		inactive()
		return
	}
	if vcac.Rejected {
		inactive()
		return
	}

	ticket := lookupToken(s, token, msg.TokenTypeHint())
	if ticket == nil {
		inactive()
		return
	}

	now := s.opts.clock().UtcNow()
	if ticket.Expired(now) {
		inactive()
		return
	}
	if ticket.Properties.Confidential() && !vcac.Validated {
		inactive()
		return
	}

	isAudienceMember := func() bool {
		if clientID == "" {
			return false
		}
		for _, a := range ticket.Properties.Audiences() {
			if a == clientID {
				return true
			}
		}
		return false
	}

	switch {
	case ticket.IsAccessToken() || ticket.IsIDToken():
		if len(ticket.Properties.Audiences()) > 0 && !isAudienceMember() {
			inactive()
			return
		}
	case ticket.IsRefreshToken():
		if ticket.Properties.ClientID() != "" && ticket.Properties.ClientID() != clientID {
			inactive()
			return
		}
	}

	vc := &ValidationEndpointContext{Context: ctx, Ticket: ticket, Active: true, Claims: map[string]interface{}{}}
	if err := s.provider.ValidationEndpoint(ctx, vc); err != nil {
		inactive()
		return
	}
	if !vc.Active {
		inactive()
		return
	}

	resp := map[string]interface{}{
		"active":     true,
		"token_type": string(ticket.Properties.GetUsage()),
		"iat":        ticket.Properties.IssuedUTC.Unix(),
		"exp":        ticket.Properties.ExpiresUTC.Unix(),
		"nbf":        ticket.Properties.IssuedUTC.Unix(),
		"iss":        s.opts.Issuer,
	}
	if scope := ticket.Properties.Scope(); scope != "" {
		resp["scope"] = scope
	}
	if sub := ticket.Principal.Subject(); sub != "" {
		resp["sub"] = sub
		resp["username"] = sub
	}
	if len(ticket.Properties.Audiences()) > 0 {
		resp["aud"] = ticket.Properties.Audiences()
	}
	if isAudienceMember() {
		for k, v := range vc.Claims {
			resp[k] = v
		}
	}

	render.JSON(w, render.Options{Data: resp, Logger: &logger})
}

// lookupToken tries to deserialize token against the hinted usage
// first, then falls back to access_token, id_token, refresh_token in
// that order.
func lookupToken(s *Server, token, hint string) *types.Ticket {
	order := []types.Usage{types.UsageAccessToken, types.UsageIDToken, types.UsageRefreshToken}
	switch hint {
	case "access_token":
		order = []types.Usage{types.UsageAccessToken, types.UsageIDToken, types.UsageRefreshToken}
	case "id_token":
		order = []types.Usage{types.UsageIDToken, types.UsageAccessToken, types.UsageRefreshToken}
	case "refresh_token":
		order = []types.Usage{types.UsageRefreshToken, types.UsageAccessToken, types.UsageIDToken}
	}
	for _, usage := range order {
		if t, err := s.ser.read(token, usage); err == nil {
			return t
		}
	}
	return nil
}
