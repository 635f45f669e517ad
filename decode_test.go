package oidc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/types"
)

func TestDecodeGet(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/authorize?client_id=abc&response_type=code", nil)
	msg, err := decode(req, types.AuthenticationRequest)
	require.NoError(t, err)
	require.Equal(t, "abc", msg.ClientID())
	require.Equal(t, "code", msg.ResponseType())
}

func TestDecodePostForm(t *testing.T) {
	body := strings.NewReader("grant_type=authorization_code&code=xyz")
	req := httptest.NewRequest(http.MethodPost, "/token", body)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	msg, err := decode(req, types.TokenRequest)
	require.NoError(t, err)
	require.Equal(t, "authorization_code", msg.GrantType())
	require.Equal(t, "xyz", msg.Code())
}
