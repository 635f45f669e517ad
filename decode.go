package oidc

import (
	"errors"
	"net/http"
	"strings"

	"github.com/hooklift/oidc/types"
)

// errUnsupportedContentType is returned by decode when a POST body
// doesn't carry an application/x-www-form-urlencoded Content-Type (a
// trailing `; charset=...` is tolerated); callers render it the same
// way they render any other malformed request.
var errUnsupportedContentType = errors.New("oidc: decode: POST body must be application/x-www-form-urlencoded")

// decode reads the request's query string (GET) or
// application/x-www-form-urlencoded body (POST) into an ordered
// Message.
func decode(req *http.Request, rt types.RequestType) (*types.Message, error) {
	if req.Method == http.MethodPost {
		ct := req.Header.Get("Content-Type")
		if !strings.HasPrefix(strings.ToLower(ct), "application/x-www-form-urlencoded") {
			return nil, errUnsupportedContentType
		}
		if err := req.ParseForm(); err != nil {
			return nil, err
		}
	} else if err := req.ParseForm(); err != nil {
		// ParseForm also parses the query string for GET, so a single
		// call covers both supported methods.
		return nil, err
	}

	msg := types.NewMessage(rt)
	for key, values := range req.Form {
		if len(values) == 0 {
			continue
		}
		msg.Set(key, values[0])
	}
	return msg, nil
}
