package oidc

import (
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/metrics"
	"github.com/hooklift/oidc/pkg"
	"github.com/hooklift/oidc/types"
)

// handleToken implements the token endpoint per
// http://tools.ietf.org/html/rfc6749#section-3.2.
func handleToken(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()

	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "TLS is required"))
		return
	}

	msg, err := decode(req, types.TokenRequest)
	if err != nil {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "malformed request"))
		return
	}

	grantType := msg.GrantType()
	if grantType == "" {
		s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "grant_type is required"))
		return
	}

	switch grantType {
	case "authorization_code":
		if msg.Code() == "" {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "code is required"))
			return
		}
	case "refresh_token":
		if msg.RefreshToken() == "" {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "refresh_token is required"))
			return
		}
	case "password":
		if msg.Username() == "" || msg.Password() == "" {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidRequest, "username and password are required"))
			return
		}
	}

	clientID, clientSecret, hasCreds := clientCredentials(req, msg)
	vcac := &ValidateClientAuthenticationContext{
		Context: ctx, Request: msg,
		ClientID: clientID, ClientSecret: clientSecret, HasCredentials: hasCreds,
	}
	if err := s.provider.ValidateClientAuthentication(ctx, vcac); err != nil {
		s.renderTokenError(w, types.NewError(types.ErrCodeServerError, "internal error"))
		return
	}
	if vcac.Rejected || (grantType == "client_credentials" && !vcac.Validated) {
		errv := vcac.RejectErr
		if errv.Code == "" {
			errv = types.NewError(types.ErrCodeInvalidClient, "client authentication failed")
		}
		s.renderTokenError(w, errv)
		return
	}

	var ticket *types.Ticket
	var oneShotCode string

	switch grantType {
	case "authorization_code":
		oneShotCode = msg.Code()
		t, ok, rerr := s.ser.redeemCode(ctx, s.codes, oneShotCode)
		if rerr != nil || !ok {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "authorization code is invalid or expired"))
			return
		}
		ticket = t
	case "refresh_token":
		t, rerr := s.ser.read(msg.RefreshToken(), types.UsageRefreshToken)
		if rerr != nil {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "refresh token is invalid or expired"))
			return
		}
		ticket = t
	}

	now := s.opts.clock().UtcNow()
	if ticket != nil {
		if ticket.Expired(now) {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "token is expired"))
			return
		}
		if ticket.Properties.Confidential() && !vcac.Validated {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidClient, "client authentication is required"))
			return
		}
		if ticket.Properties.ClientID() != "" && clientID != "" && ticket.Properties.ClientID() != clientID {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "client_id does not match"))
			return
		}
		if grantType == "authorization_code" && (ticket.Properties.ClientID() == "" || clientID == "") {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "client_id is required"))
			return
		}
		if grantType == "authorization_code" && ticket.Properties.RedirectURI() != "" && ticket.Properties.RedirectURI() != msg.RedirectURI() {
			s.renderTokenError(w, types.NewError(types.ErrCodeInvalidGrant, "redirect_uri does not match"))
			return
		}

		if requestedScope := msg.Scopes(); len(requestedScope) > 0 {
			if !pkg.ScopeSubset(requestedScope, ticket.Properties.Scopes()) {
				s.renderTokenError(w, types.NewError(types.ErrCodeInvalidScope, "requested scope exceeds the original grant"))
				return
			}
			ticket.Properties.SetScope(pkg.StringifyScopes(requestedScope))
		}
		if requestedResource := msg.Resource(); requestedResource != "" {
			if !pkg.ScopeSubset([]string{requestedResource}, []string{ticket.Properties.Resource()}) {
				s.renderTokenError(w, types.NewError(types.ErrCodeInvalidScope, "requested resource exceeds the original grant"))
				return
			}
			ticket.Properties.SetResource(requestedResource)
		}
	}

	vtr := &ValidateTokenRequestContext{Context: ctx, Request: msg, Ticket: ticket}
	if err := s.provider.ValidateTokenRequest(ctx, vtr); err != nil {
		s.renderTokenError(w, types.NewError(types.ErrCodeServerError, "internal error"))
		return
	}
	if vtr.Rejected || !vtr.Validated {
		errv := vtr.RejectErr
		if errv.Code == "" {
			errv = types.NewError(types.ErrCodeInvalidGrant, "")
		}
		s.renderTokenError(w, errv)
		return
	}

	gc := &GrantContext{Context: ctx, Request: msg, Ticket: ticket}
	var grantErr error
	switch grantType {
	case "authorization_code":
		grantErr = s.provider.GrantAuthorizationCode(ctx, gc)
	case "refresh_token":
		grantErr = s.provider.GrantRefreshToken(ctx, gc)
	case "password":
		gc.Ticket = types.NewTicket(types.UsageAccessToken, types.Principal{}, now, s.opts.AccessTokenLifetime)
		gc.Ticket.Properties.SetClientID(clientID)
		gc.Ticket.Properties.SetScope(pkg.StringifyScopes(msg.Scopes()))
		grantErr = s.provider.GrantResourceOwnerCredentials(ctx, gc)
	case "client_credentials":
		gc.Ticket = types.NewTicket(types.UsageAccessToken, types.Principal{}, now, s.opts.AccessTokenLifetime)
		gc.Ticket.Properties.SetClientID(clientID)
		gc.Ticket.Properties.SetScope(pkg.StringifyScopes(msg.Scopes()))
		gc.Ticket.Properties.SetConfidential(true)
		grantErr = s.provider.GrantClientCredentials(ctx, gc)
	default:
		grantErr = s.provider.GrantCustomExtension(ctx, gc)
	}
	if grantErr != nil {
		metrics.RecordGrant(grantType, "error")
		s.renderTokenError(w, types.NewError(types.ErrCodeServerError, "internal error"))
		return
	}
	if !gc.IsHandled() || gc.Ticket == nil {
		metrics.RecordGrant(grantType, "rejected")
		errv := gc.Err()
		if errv.Code == "" {
			errv = types.NewError(types.ErrCodeUnsupportedGrantType, "")
		}
		s.renderTokenError(w, errv)
		return
	}
	metrics.RecordGrant(grantType, "granted")

	grantTicket := gc.Ticket
	// A grant handler that returned the same ticket it was given (same
	// lifetime bounds) wants fresh lifetimes computed instead of
	// inheriting the input ticket's.
	if ticket != nil && grantTicket.Properties.IssuedUTC.Equal(ticket.Properties.IssuedUTC) &&
		grantTicket.Properties.ExpiresUTC.Equal(ticket.Properties.ExpiresUTC) {
		grantTicket.Properties.IssuedUTC = now
	}

	issueAccessToken := msg.ResponseType() == "" || strings.Contains(msg.ResponseType(), "token")
	issueIDToken := grantTicket.Properties.HasScope("openid") && (msg.ResponseType() == "" || strings.Contains(msg.ResponseType(), "id_token"))
	issueRefreshToken := grantTicket.Properties.HasScope("offline_access") && (msg.ResponseType() == "" || strings.Contains(msg.ResponseType(), "refresh_token"))

	capAt := time.Time{}
	if !s.opts.UseSlidingExpiration && grantType == "refresh_token" && ticket != nil {
		capAt = ticket.Properties.ExpiresUTC
	}

	respond := map[string]interface{}{
		"token_type": "Bearer",
	}

	if issueAccessToken {
		at := cloneTicket(grantTicket, types.UsageAccessToken, now, s.opts.AccessTokenLifetime, capAt)
		tok, terr := s.ser.issue(at)
		if terr != nil {
			s.renderTokenError(w, types.NewError(types.ErrCodeServerError, ""))
			return
		}
		respond["access_token"] = tok
		if secs, ok := at.ExpiresInSeconds(now); ok {
			respond["expires_in"] = secs
		}
	}

	if issueIDToken {
		it := cloneTicket(grantTicket, types.UsageIDToken, now, s.opts.IdentityTokenLifetime, capAt)
		if accessToken, ok := respond["access_token"].(string); ok {
			it.Properties.SetAtHash(pkg.LeftHash(accessToken))
		}
		if oneShotCode != "" {
			it.Properties.SetCHash(pkg.LeftHash(oneShotCode))
		}
		tok, terr := s.ser.issue(it)
		if terr != nil {
			s.renderTokenError(w, types.NewError(types.ErrCodeServerError, ""))
			return
		}
		respond["id_token"] = tok
	}

	if issueRefreshToken {
		rt := cloneTicket(grantTicket, types.UsageRefreshToken, now, s.opts.RefreshTokenLifetime, capAt)
		tok, terr := s.ser.issue(rt)
		if terr != nil {
			s.renderTokenError(w, types.NewError(types.ErrCodeServerError, ""))
			return
		}
		respond["refresh_token"] = tok
	}

	logger := s.opts.logger()
	render.JSON(w, render.Options{Data: respond, Logger: &logger})
}

// cloneTicket builds a fresh ticket of usage carrying src's principal
// and protocol properties, with its own lifetime. When cap is
// non-zero, the new ticket's expiration is capped at cap instead of
// getting a full fresh lifetime (use_sliding_expiration=false).
func cloneTicket(src *types.Ticket, usage types.Usage, now time.Time, lifetime time.Duration, capAt time.Time) *types.Ticket {
	t := types.NewTicket(usage, src.Principal, now, lifetime)
	t.Properties.SetClientID(src.Properties.ClientID())
	t.Properties.SetRedirectURI(src.Properties.RedirectURI())
	t.Properties.SetResource(src.Properties.Resource())
	t.Properties.SetScope(src.Properties.Scope())
	t.Properties.SetAudiences(src.Properties.Audiences())
	t.Properties.SetConfidential(src.Properties.Confidential())
	if !capAt.IsZero() && t.Properties.ExpiresUTC.After(capAt) {
		t.Properties.ExpiresUTC = capAt
	}
	return t
}

// clientCredentials extracts client_id/client_secret from the
// Authorization: Basic header when present, falling back to the
// client_id/client_secret form parameters.
func clientCredentials(req *http.Request, msg *types.Message) (id, secret string, ok bool) {
	if auth := req.Header.Get("Authorization"); strings.HasPrefix(auth, "Basic ") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
		if err == nil {
			if i := strings.IndexByte(string(raw), ':'); i >= 0 {
				return string(raw[:i]), string(raw[i+1:]), true
			}
		}
	}
	if msg.ClientID() != "" {
		return msg.ClientID(), msg.ClientSecret(), true
	}
	return "", "", false
}

