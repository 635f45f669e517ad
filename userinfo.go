package oidc

import (
	"net/http"
	"strings"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// handleUserinfo implements the OIDC Core userinfo endpoint.
func handleUserinfo(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()

	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		unauthorized(w)
		return
	}

	token := bearerToken(req)
	if token == "" {
		if err := req.ParseForm(); err == nil {
			token = req.Form.Get("access_token")
		}
	}
	if token == "" {
		unauthorized(w)
		return
	}

	ticket, err := s.ser.read(token, types.UsageAccessToken)
	if err != nil {
		unauthorized(w)
		return
	}
	if ticket.Expired(s.opts.clock().UtcNow()) {
		unauthorized(w)
		return
	}

	sub := ticket.Principal.Subject()
	if sub == "" {
		render.JSON(w, render.Options{Status: http.StatusInternalServerError, Data: types.NewError(types.ErrCodeServerError, "ticket has no subject"), Logger: &logger})
		return
	}

	claims := map[string]interface{}{"sub": sub}
	scopes := ticket.Properties.Scopes()
	addIfScoped := func(scope string, claimTypes ...string) {
		if !containsString(scopes, scope) {
			return
		}
		for _, t := range claimTypes {
			if c, ok := ticket.Principal.FindFirst(t); ok {
				claims[t] = c.Value
			}
		}
	}
	addIfScoped("profile", "family_name", "given_name", "birthdate")
	addIfScoped("email", "email")
	addIfScoped("phone", "phone_number")

	pc := &ProfileEndpointContext{Context: ctx, Ticket: ticket, Claims: claims}
	if err := s.provider.ProfileEndpoint(ctx, pc); err != nil {
		render.JSON(w, render.Options{Status: http.StatusInternalServerError, Data: types.NewError(types.ErrCodeServerError, "internal error"), Logger: &logger})
		return
	}
	if pc.Rejected {
		unauthorized(w)
		return
	}

	render.JSON(w, render.Options{Data: pc.Claims, Logger: &logger})
}

func bearerToken(req *http.Request) string {
	auth := req.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(auth, "Bearer ")
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer`)
	w.WriteHeader(http.StatusUnauthorized)
}

func containsString(ss []string, s string) bool {
	for _, v := range ss {
		if v == s {
			return true
		}
	}
	return false
}
