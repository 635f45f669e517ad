package render

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSONNoCacheHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	err := JSON(w, Options{Data: map[string]string{"active": "true"}})
	require.NoError(t, err)
	require.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	require.Equal(t, "application/json;charset=UTF-8", w.Header().Get("Content-Type"))
}

func TestPlainRendersKeyValueLines(t *testing.T) {
	w := httptest.NewRecorder()
	err := Plain(w, Options{Params: []Param{
		{Name: "error", Value: "invalid_request"},
		{Name: "error_description", Value: "client_id is required"},
	}})
	require.NoError(t, err)
	require.Equal(t, 400, w.Code)
	require.Contains(t, w.Body.String(), "error: invalid_request\n")
	require.Contains(t, w.Body.String(), "error_description: client_id is required\n")
}

func TestRedirectQueryOmitsRedirectURI(t *testing.T) {
	req := httptest.NewRequest("GET", "https://as.example.com/authorize", nil)
	w := httptest.NewRecorder()
	err := Redirect(w, req, Options{
		RedirectURI: "https://app.example.com/cb",
		Params: []Param{
			{Name: "code", Value: "abc123"},
			{Name: "state", Value: "xyz"},
			{Name: "redirect_uri", Value: "https://app.example.com/cb"},
		},
	}, ModeQuery)
	require.NoError(t, err)
	loc := w.Header().Get("Location")
	require.Contains(t, loc, "code=abc123")
	require.Contains(t, loc, "state=xyz")
	require.NotContains(t, loc, "redirect_uri=")
}

func TestRedirectFragment(t *testing.T) {
	req := httptest.NewRequest("GET", "https://as.example.com/authorize", nil)
	w := httptest.NewRecorder()
	err := Redirect(w, req, Options{
		RedirectURI: "https://app.example.com/cb",
		Params: []Param{
			{Name: "access_token", Value: "tok"},
		},
	}, ModeFragment)
	require.NoError(t, err)
	loc := w.Header().Get("Location")
	require.Contains(t, loc, "#access_token=tok")
}

func TestFormPostEscapesAndOmitsRedirectURI(t *testing.T) {
	w := httptest.NewRecorder()
	err := FormPost(w, Options{
		RedirectURI: "https://app.example.com/cb",
		Params: []Param{
			{Name: "id_token", Value: "<script>"},
			{Name: "redirect_uri", Value: "https://app.example.com/cb"},
		},
	})
	require.NoError(t, err)
	body := w.Body.String()
	require.Contains(t, body, "&lt;script&gt;")
	require.NotContains(t, body, `name="redirect_uri"`)
	require.Contains(t, body, `action="https://app.example.com/cb"`)
}
