package oidc

import (
	"net/http"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// handleLogout implements the OIDC Session Management RP-initiated
// logout endpoint.
func handleLogout(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()

	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		render.Plain(w, render.Options{Params: []render.Param{
			{Name: "error", Value: types.ErrCodeInvalidRequest},
			{Name: "error_description", Value: "TLS is required"},
		}, Logger: &logger})
		return
	}

	msg, err := decode(req, types.LogoutRequest)
	if err != nil {
		render.Plain(w, render.Options{Params: []render.Param{
			{Name: "error", Value: types.ErrCodeInvalidRequest},
			{Name: "error_description", Value: "malformed request"},
		}, Logger: &logger})
		return
	}

	redirectURI := msg.PostLogoutRedirectURI()
	if redirectURI != "" {
		ok, verr := s.provider.ValidateClientLogoutRedirectURI(ctx, msg.ClientID(), redirectURI)
		if verr != nil || !ok {
			redirectURI = ""
		}
	}

	lc := &LogoutEndpointContext{Context: ctx, Request: msg, Writer: w, HTTPRequest: req, ValidatedRedirectURI: redirectURI}
	if err := s.provider.LogoutEndpoint(ctx, lc); err != nil {
		render.Plain(w, render.Options{Params: []render.Param{
			{Name: "error", Value: types.ErrCodeServerError},
		}, Logger: &logger})
		return
	}
	if !lc.IsHandled() {
		// The provider wrote its own response directly to lc.Writer.
		return
	}

	target := lc.PostLogoutRedirectURI()
	if target == "" {
		target = redirectURI
	}
	if target == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	params := make([]render.Param, 0, len(msg.Keys()))
	for _, k := range msg.Keys() {
		if k == "post_logout_redirect_uri" {
			continue
		}
		params = append(params, render.Param{Name: k, Value: msg.Get(k)})
	}
	render.Redirect(w, req, render.Options{RedirectURI: target, Params: params, Logger: &logger}, render.ModeQuery)
}
