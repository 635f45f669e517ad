package oidc

import (
	"net/http"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/types"
)

// handleDiscovery implements /.well-known/openid-configuration.
func handleDiscovery(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()

	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		render.JSON(w, render.Options{Status: http.StatusBadRequest, Data: types.NewError(types.ErrCodeInvalidRequest, "TLS is required"), Logger: &logger})
		return
	}

	doc := map[string]interface{}{
		"issuer":                 s.opts.Issuer,
		"response_modes_supported": []string{"form_post", "fragment", "query"},
		"subject_types_supported":  []string{"public"},
		"scopes_supported":         []string{"openid"},
		"id_token_signing_alg_values_supported": []string{"RS256"},
	}

	if p := s.opts.AuthorizationEndpointPath; p != "" {
		doc["authorization_endpoint"] = s.opts.Issuer + p
	}
	tokenEnabled := s.opts.TokenEndpointPath != ""
	if tokenEnabled {
		doc["token_endpoint"] = s.opts.Issuer + s.opts.TokenEndpointPath
	}
	if p := s.opts.ValidationEndpointPath; p != "" {
		doc["introspection_endpoint"] = s.opts.Issuer + p
	}
	if p := s.opts.ProfileEndpointPath; p != "" {
		doc["userinfo_endpoint"] = s.opts.Issuer + p
	}
	if p := s.opts.LogoutEndpointPath; p != "" {
		doc["end_session_endpoint"] = s.opts.Issuer + p
	}
	if p := s.opts.CryptographyEndpointPath; p != "" {
		doc["jwks_uri"] = s.opts.Issuer + p
	}

	grantTypes := []string{}
	if s.opts.AuthorizationEndpointPath != "" && tokenEnabled {
		grantTypes = append(grantTypes, "authorization_code")
	}
	if tokenEnabled {
		grantTypes = append(grantTypes, "refresh_token", "client_credentials", "password")
	}
	doc["grant_types_supported"] = grantTypes

	responseTypes := []string{"none"}
	if s.opts.AuthorizationEndpointPath != "" {
		words := []string{"code", "token", "id_token"}
		responseTypes = append(responseTypes, allNonEmptySubsets(words)...)
		if !tokenEnabled {
			responseTypes = removeContaining(responseTypes, "code")
		}
	}
	doc["response_types_supported"] = responseTypes

	cc := &ConfigurationEndpointContext{Context: ctx, Document: doc}
	if err := s.provider.ConfigurationEndpoint(ctx, cc); err != nil {
		render.JSON(w, render.Options{Status: http.StatusInternalServerError, Data: types.NewError(types.ErrCodeServerError, "internal error"), Logger: &logger})
		return
	}

	render.JSON(w, render.Options{Data: cc.Document, Logger: &logger})
}

// allNonEmptySubsets returns the space-joined string for every
// non-empty subset of words, in bitmask order (for code, token,
// id_token: "code", "token", "code token", "id_token", ...), each
// subset's words kept in the order they appear in words.
func allNonEmptySubsets(words []string) []string {
	n := len(words)
	var out []string
	for mask := 1; mask < (1 << n); mask++ {
		var combo []string
		for i, w := range words {
			if mask&(1<<i) != 0 {
				combo = append(combo, w)
			}
		}
		out = append(out, joinWords(combo))
	}
	return out
}

func joinWords(words []string) string {
	out := ""
	for i, w := range words {
		if i > 0 {
			out += " "
		}
		out += w
	}
	return out
}

func removeContaining(items []string, substr string) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		if !containsWord(it, substr) {
			out = append(out, it)
		}
	}
	return out
}

func containsWord(s, word string) bool {
	for _, w := range splitWords(s) {
		if w == word {
			return true
		}
	}
	return false
}

func splitWords(s string) []string {
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
