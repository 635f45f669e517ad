package oidc

import (
	"net/http"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// authorizationErrorParams turns an OAuthError into the ordered
// parameter list every error-rendering path at the authorization
// endpoint needs, state included.
func authorizationErrorParams(err types.OAuthError) []render.Param {
	return []render.Param{
		{Name: "error", Value: err.Code},
		{Name: "error_description", Value: err.Description},
		{Name: "error_uri", Value: err.URI},
		{Name: "state", Value: err.State},
	}
}

// renderAuthorizationError ships err as a redirect/form_post to
// redirectURI when one is set; otherwise as a 400 JSON body when
// ApplicationCanDisplayErrors is set, or else as the native plain-text
// page, per
// http://tools.ietf.org/html/rfc6749#section-4.1.2.1.
func (s *Server) renderAuthorizationError(w http.ResponseWriter, req *http.Request, redirectURI string, mode render.RedirectMode, useFormPost bool, err types.OAuthError) {
	params := authorizationErrorParams(err)
	logger := s.opts.logger()

	if redirectURI == "" {
		if s.opts.ApplicationCanDisplayErrors {
			render.JSON(w, render.Options{Status: http.StatusBadRequest, Data: err, Logger: &logger})
			return
		}
		render.Plain(w, render.Options{Params: params, Logger: &logger})
		return
	}

	if useFormPost {
		render.FormPost(w, render.Options{RedirectURI: redirectURI, Params: params, Logger: &logger})
		return
	}
	render.Redirect(w, req, render.Options{RedirectURI: redirectURI, Params: params, Logger: &logger}, mode)
}

// renderTokenError renders err as the JSON body RFC 6749 section 5.2
// defines for the token endpoint, using statusForTokenError to pick the
// HTTP status.
func (s *Server) renderTokenError(w http.ResponseWriter, err types.OAuthError) {
	logger := s.opts.logger()
	render.JSON(w, render.Options{Status: statusForTokenError(err.Code), Data: err, Logger: &logger})
}

func statusForTokenError(code string) int {
	if code == types.ErrCodeInvalidClient {
		return http.StatusUnauthorized
	}
	return http.StatusBadRequest
}
