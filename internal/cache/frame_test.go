package cache

import (
	"testing"

	"github.com/hooklift/oidc/types"
	"github.com/stretchr/testify/require"
)

func TestContinuationFrameRoundTrip(t *testing.T) {
	params := []types.Parameter{
		{Name: "client_id", Value: "abc123"},
		{Name: "scope", Value: "openid profile"},
		{Name: "redirect_uri", Value: "https://app.example.com/cb"},
	}

	frame := EncodeContinuationFrame(params)
	got, err := DecodeContinuationFrame(frame)
	require.NoError(t, err)
	require.Equal(t, params, got)
}

func TestContinuationFrameEmpty(t *testing.T) {
	frame := EncodeContinuationFrame(nil)
	got, err := DecodeContinuationFrame(frame)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDecodeContinuationFrameMalformed(t *testing.T) {
	_, err := DecodeContinuationFrame([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrMalformedFrame)

	_, err = DecodeContinuationFrame([]byte{0, 0, 0, 2, 0, 0, 0, 0})
	require.ErrorIs(t, err, ErrMalformedFrame)
}
