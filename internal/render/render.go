// This Source Code Form is subject to the terms of the Mozilla Public
// License, version 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package render renders the four response shapes the server ever
// produces: a JSON payload, a native plain-text error page, a redirect
// carrying parameters in the query string or URL fragment, and an
// auto-submitting HTML form (response_mode=form_post).
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
)

// Options represents the set of values to pass when rendering content.
type Options struct {
	// HTTP status to return.
	Status int
	// Content to serialize as JSON. Only JSON reads it.
	Data interface{}
	// Params carries the ordered parameters for Plain, Redirect and FormPost.
	Params []Param
	// RedirectURI is the base URI for Redirect.
	RedirectURI string
	// Logger receives rendering failures. A nil Logger discards them.
	Logger *zerolog.Logger
}

// Param is a single name/value pair rendered into an error page,
// redirect or auto-posting form.
type Param struct {
	Name  string
	Value string
}

func (o Options) logger() zerolog.Logger {
	if o.Logger != nil {
		return *o.Logger
	}
	return zerolog.Nop()
}

func noCache(headers http.Header) {
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Pragma", "no-cache")
	headers.Set("Expires", "-1")
}

// JSON renders a JSON payload with the no-cache headers every
// token/introspection/userinfo response carries.
func JSON(w http.ResponseWriter, opts Options) error {
	headers := w.Header()
	headers.Set("Content-Type", "application/json;charset=UTF-8")
	noCache(headers)

	jsonBytes, err := json.Marshal(opts.Data)
	if err != nil {
		opts.logger().Error().Err(err).Msg("render: marshaling json payload")
		return err
	}

	if opts.Status <= 0 {
		opts.Status = http.StatusOK
	}

	headers.Set("Content-Length", strconv.Itoa(len(jsonBytes)))
	w.WriteHeader(opts.Status)
	_, err = w.Write(jsonBytes)
	return err
}

// Plain renders the native, plain-text error page produced for
// authorization errors that occur before a valid redirect_uri has been
// established: one `key: value` line per parameter, 400 Bad Request.
func Plain(w http.ResponseWriter, opts Options) error {
	headers := w.Header()
	headers.Set("Content-Type", "text/plain;charset=UTF-8")
	noCache(headers)

	if opts.Status <= 0 {
		opts.Status = http.StatusBadRequest
	}

	var buf bytes.Buffer
	for _, p := range opts.Params {
		if p.Value == "" {
			continue
		}
		fmt.Fprintf(&buf, "%s: %s\n", p.Name, p.Value)
	}

	headers.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(opts.Status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RedirectMode selects where response parameters are encoded.
type RedirectMode int

const (
	// ModeQuery appends parameters to the redirect_uri's query string.
	ModeQuery RedirectMode = iota
	// ModeFragment appends parameters after a `#` delimiter.
	ModeFragment
)

// Redirect issues a 302 to opts.RedirectURI carrying opts.Params either
// in the query string or the URL fragment. redirect_uri itself is never
// one of the emitted parameters.
func Redirect(w http.ResponseWriter, req *http.Request, opts Options, mode RedirectMode) error {
	u, err := url.Parse(opts.RedirectURI)
	if err != nil {
		opts.logger().Error().Err(err).Msg("render: parsing redirect_uri")
		return err
	}

	values := url.Values{}
	for _, p := range opts.Params {
		if p.Name == "redirect_uri" {
			continue
		}
		if p.Value == "" {
			continue
		}
		values.Set(p.Name, p.Value)
	}

	switch mode {
	case ModeFragment:
		u.Fragment = values.Encode()
	default:
		q := u.Query()
		for k, vs := range values {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	http.Redirect(w, req, u.String(), http.StatusFound)
	return nil
}

var formPostTemplate = template.Must(template.New("form_post").Parse(`<!DOCTYPE html>
<html>
<head><title>Submit</title></head>
<body onload="document.forms[0].submit()">
<form method="post" action="{{.Action}}">
{{range .Fields}}<input type="hidden" name="{{.Name}}" value="{{.Value}}">
{{end}}<noscript><input type="submit" value="Continue"></noscript>
</form>
</body>
</html>
`))

type formPostData struct {
	Action string
	Fields []Param
}

// FormPost renders the auto-submitting HTML document used for
// response_mode=form_post: every name and value is HTML-escaped by
// html/template, and redirect_uri itself is never one of the fields.
func FormPost(w http.ResponseWriter, opts Options) error {
	headers := w.Header()
	headers.Set("Content-Type", "text/html;charset=UTF-8")
	noCache(headers)

	fields := make([]Param, 0, len(opts.Params))
	for _, p := range opts.Params {
		if p.Name == "redirect_uri" || p.Value == "" {
			continue
		}
		fields = append(fields, p)
	}
	var buf bytes.Buffer
	data := formPostData{Action: opts.RedirectURI, Fields: fields}
	if err := formPostTemplate.Execute(&buf, data); err != nil {
		opts.logger().Error().Err(err).Msg("render: executing form_post template")
		return err
	}

	if opts.Status <= 0 {
		opts.Status = http.StatusOK
	}

	headers.Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(opts.Status)
	_, err := w.Write(buf.Bytes())
	return err
}
