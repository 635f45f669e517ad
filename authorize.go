package oidc

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hooklift/oidc/internal/render"
	"github.com/hooklift/oidc/pkg"
	"github.com/hooklift/oidc/types"
)

// responseFlow is the parsed, order-independent shape of a
// response_type parameter.
type responseFlow struct {
	code    bool
	token   bool
	idToken bool
	none    bool
	ok      bool
}

func parseResponseFlow(rt string) responseFlow {
	words := strings.Fields(rt)
	if len(words) == 0 {
		return responseFlow{}
	}
	if len(words) == 1 && words[0] == "none" {
		return responseFlow{none: true, ok: true}
	}

	f := responseFlow{ok: true}
	seen := map[string]bool{}
	for _, w := range words {
		if seen[w] {
			return responseFlow{}
		}
		seen[w] = true
		switch w {
		case "code":
			f.code = true
		case "token":
			f.token = true
		case "id_token":
			f.idToken = true
		default:
			return responseFlow{}
		}
	}
	return f
}

// isImplicitOrHybrid reports whether the flow issues a token directly
// from the authorization endpoint (implicit or hybrid), as opposed to
// the pure authorization_code flow or response_type=none.
func (f responseFlow) isImplicitOrHybrid() bool {
	return f.token || f.idToken
}

func defaultResponseMode(f responseFlow) string {
	if f.isImplicitOrHybrid() {
		return "fragment"
	}
	return "query"
}

// handleAuthorize implements the authorization endpoint per
// http://tools.ietf.org/html/rfc6749#section-3.1 and the OIDC Core
// authentication request extensions.
func handleAuthorize(s *Server, w http.ResponseWriter, req *http.Request) {
	ctx := req.Context()
	logger := s.opts.logger()

	msg, err := decode(req, types.AuthenticationRequest)
	if err != nil {
		render.Plain(w, render.Options{Params: []render.Param{
			{Name: "error", Value: types.ErrCodeInvalidRequest},
			{Name: "error_description", Value: "malformed request"},
		}, Logger: &logger})
		return
	}

	if uid := msg.UniqueID(); uid != "" {
		if err := loadContinuation(ctx, s.opts.Cache, msg, uid); err != nil {
			render.Plain(w, render.Options{Params: []render.Param{
				{Name: "error", Value: types.ErrCodeInvalidRequest},
				{Name: "error_description", Value: "timeout expired"},
			}, Logger: &logger})
			return
		}
	}

	nativeFail := func(code, description string) {
		render.Plain(w, render.Options{Params: []render.Param{
			{Name: "error", Value: code},
			{Name: "error_description", Value: description},
		}, Logger: &logger})
	}

	// 1. HTTPS check.
	if !s.opts.AllowInsecureHTTP && !isSecure(req) {
		nativeFail(types.ErrCodeInvalidRequest, "TLS is required")
		return
	}

	// 2. client_id present.
	clientID := msg.ClientID()
	if clientID == "" {
		nativeFail(types.ErrCodeInvalidRequest, "client_id is required")
		return
	}

	// 3. redirect_uri required when scope contains openid; syntax checks.
	redirectURI := msg.RedirectURI()
	wantsOpenID := msg.HasScope("openid")
	if redirectURI == "" && wantsOpenID {
		nativeFail(types.ErrCodeInvalidRequest, "redirect_uri is required")
		return
	}
	if redirectURI != "" {
		u, perr := url.Parse(redirectURI)
		if perr != nil || !u.IsAbs() || u.Fragment != "" {
			nativeFail(types.ErrCodeInvalidRequest, "redirect_uri must be an absolute URI without a fragment")
			return
		}
		if u.Scheme != "https" && !s.opts.AllowInsecureHTTP {
			nativeFail(types.ErrCodeInvalidRequest, "redirect_uri must use https")
			return
		}
	}

	// 4. Provider validates client owns redirect_uri.
	vc := &ValidateClientRedirectURIContext{Context: ctx, Request: msg, ClientID: clientID, RedirectURI: redirectURI}
	if err := s.provider.ValidateClientRedirectURI(ctx, vc); err != nil {
		nativeFail(types.ErrCodeServerError, "internal error")
		return
	}
	if vc.Rejected || !vc.Validated {
		code := vc.RejectCode
		if code == "" {
			code = types.ErrCodeInvalidClient
		}
		nativeFail(code, vc.RejectDescr)
		return
	}
	if vc.RedirectURI != "" {
		redirectURI = vc.RedirectURI
	}

	// From here on, redirect_uri is trusted: errors become redirect-style.
	flow := parseResponseFlow(msg.ResponseType())
	mode := defaultResponseMode(flow)
	useFormPost := false
	if rm := msg.ResponseMode(); rm != "" {
		mode = rm
	}

	fail := func(oerr types.OAuthError) {
		oerr = oerr.WithState(msg.State())
		s.renderAuthorizationError(w, req, redirectURI, modeOf(mode), useFormPost, oerr)
	}

	// 5. request/request_uri are not supported.
	if msg.Has("request") {
		fail(types.NewError(types.ErrCodeRequestNotSupported, "the request parameter is not supported"))
		return
	}
	if msg.Has("request_uri") {
		fail(types.NewError(types.ErrCodeRequestURINotSupported, "the request_uri parameter is not supported"))
		return
	}

	// 6. response_type present.
	if msg.ResponseType() == "" {
		fail(types.NewError(types.ErrCodeInvalidRequest, "response_type is required"))
		return
	}

	// 7. flow detection.
	if !flow.ok {
		fail(types.NewError(types.ErrCodeUnsupportedResponseType, "unsupported response_type"))
		return
	}

	// 8. response_mode validity and query+token prohibition.
	if rm := msg.ResponseMode(); rm != "" {
		switch rm {
		case "query", "fragment":
		case "form_post":
			useFormPost = true
		default:
			fail(types.NewError(types.ErrCodeInvalidRequest, "unsupported response_mode"))
			return
		}
	}
	if mode == "query" && !useFormPost && flow.isImplicitOrHybrid() {
		fail(types.NewError(types.ErrCodeInvalidRequest, "response_mode=query cannot be used to return tokens"))
		return
	}

	// 9. nonce required for implicit/hybrid + openid.
	if wantsOpenID && flow.isImplicitOrHybrid() && msg.Nonce() == "" {
		fail(types.NewError(types.ErrCodeInvalidRequest, "nonce is required"))
		return
	}

	// 10. id_token response type requires openid scope.
	if flow.idToken && !wantsOpenID {
		fail(types.NewError(types.ErrCodeInvalidRequest, "id_token response type requires the openid scope"))
		return
	}

	// 11. code response type requires a token endpoint.
	if flow.code && s.opts.TokenEndpointPath == "" {
		fail(types.NewError(types.ErrCodeUnsupportedResponseType, "the token endpoint is not enabled"))
		return
	}

	// 12. provider validates the rest of the request.
	avc := &ValidateAuthorizationRequestContext{Context: ctx, Request: msg}
	if err := s.provider.ValidateAuthorizationRequest(ctx, avc); err != nil {
		fail(types.NewError(types.ErrCodeServerError, "internal error"))
		return
	}
	if avc.Rejected || !avc.Validated {
		if avc.RejectErr.Code != "" {
			fail(avc.RejectErr)
		} else {
			fail(types.NewError(types.ErrCodeAccessDenied, ""))
		}
		return
	}

	// 13. mint and persist unique_id when absent.
	uid := msg.UniqueID()
	if uid == "" {
		var merr error
		uid, merr = s.newUniqueIDOfLength(32)
		if merr != nil {
			fail(types.NewError(types.ErrCodeServerError, "internal error"))
			return
		}
		msg.Set("unique_id", uid)
		if err := storeContinuation(ctx, s.opts.Cache, s.opts.clock(), msg, uid); err != nil {
			fail(types.NewError(types.ErrCodeServerError, "internal error"))
			return
		}
	}

	// 14. host resolves the request.
	ac := &AuthorizationEndpointContext{Context: ctx, Request: msg, Writer: w, HTTPRequest: req}
	if err := s.provider.AuthorizationEndpoint(ctx, ac); err != nil {
		fail(types.NewError(types.ErrCodeServerError, "internal error"))
		return
	}
	if !ac.IsHandled() {
		// The provider wrote its own response (e.g. a redirect to a
		// login page) directly to ac.Writer.
		return
	}
	if ac.Ticket() == nil {
		fail(ac.Err())
		return
	}

	completeAuthorization(s, w, req, msg, ac.Ticket(), flow, clientID, redirectURI, mode, useFormPost)
}

// completeAuthorization mints the response tokens in the order c_hash/
// at_hash requires (code, then access_token, then id_token) and
// renders the authorization response.
func completeAuthorization(s *Server, w http.ResponseWriter, req *http.Request, msg *types.Message, signedIn *types.Ticket, flow responseFlow, clientID, redirectURI, mode string, useFormPost bool) {
	ctx := req.Context()
	now := s.opts.clock().UtcNow()
	logger := s.opts.logger()

	newTicket := func(usage types.Usage, lifetime time.Duration) types.Ticket {
		t := types.NewTicket(usage, signedIn.Principal, now, lifetime)
		t.Properties.SetClientID(clientID)
		t.Properties.SetRedirectURI(redirectURI)
		t.Properties.SetResource(msg.Resource())
		t.Properties.SetScope(pkg.StringifyScopes(msg.Scopes()))
		t.Properties.SetAudiences([]string{clientID})
		if signedIn.Properties.Confidential() {
			t.Properties.SetConfidential(true)
		}
		return *t
	}

	fail := func() {
		s.renderAuthorizationError(w, req, redirectURI, modeOf(mode), useFormPost, types.NewError(types.ErrCodeServerError, "").WithState(msg.State()))
	}

	var codeStr, accessTokenStr, idTokenStr string
	var expiresIn int64
	var hasExpiresIn bool

	if flow.code {
		codeTicket := newTicket(types.UsageCode, s.opts.AuthorizationCodeLifetime)
		var err error
		codeStr, err = s.ser.storeCode(ctx, s.codes, &codeTicket)
		if err != nil {
			logger.Error().Err(err).Msg("oidc: storing authorization code")
			fail()
			return
		}
	}

	if flow.token {
		accessTicket := newTicket(types.UsageAccessToken, s.opts.AccessTokenLifetime)
		var err error
		accessTokenStr, err = s.ser.issue(&accessTicket)
		if err != nil {
			logger.Error().Err(err).Msg("oidc: issuing access token")
			fail()
			return
		}
		if secs, ok := accessTicket.ExpiresInSeconds(now); ok {
			expiresIn, hasExpiresIn = secs, true
		}
	}

	if flow.idToken {
		idTicket := newTicket(types.UsageIDToken, s.opts.IdentityTokenLifetime)
		idTicket.Properties.SetNonce(msg.Nonce())
		if codeStr != "" {
			idTicket.Properties.SetCHash(pkg.LeftHash(codeStr))
		}
		if accessTokenStr != "" {
			idTicket.Properties.SetAtHash(pkg.LeftHash(accessTokenStr))
		}
		var err error
		idTokenStr, err = s.ser.issue(&idTicket)
		if err != nil {
			logger.Error().Err(err).Msg("oidc: issuing identity token")
			fail()
			return
		}
	}

	if uid := msg.UniqueID(); uid != "" {
		_ = removeContinuation(ctx, s.opts.Cache, uid)
	}

	params := []render.Param{
		{Name: "code", Value: codeStr},
		{Name: "access_token", Value: accessTokenStr},
		{Name: "id_token", Value: idTokenStr},
		{Name: "state", Value: msg.State()},
	}
	if accessTokenStr != "" {
		params = append(params, render.Param{Name: "token_type", Value: "Bearer"})
		if hasExpiresIn {
			params = append(params, render.Param{Name: "expires_in", Value: strconv.FormatInt(expiresIn, 10)})
		}
	}

	renderOpts := render.Options{RedirectURI: redirectURI, Params: params, Logger: &logger}
	if useFormPost {
		render.FormPost(w, renderOpts)
		return
	}
	render.Redirect(w, req, renderOpts, modeOf(mode))
}

func modeOf(mode string) render.RedirectMode {
	if mode == "fragment" {
		return render.ModeFragment
	}
	return render.ModeQuery
}

func isSecure(req *http.Request) bool {
	if req.TLS != nil {
		return true
	}
	return strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "https")
}
