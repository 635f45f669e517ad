package oidc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/internal/clock"
	"github.com/hooklift/oidc/types"
)

func TestContinuationStoreLoadRemove(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewLRU(16)
	require.NoError(t, err)
	clk := &clock.Fixed{Now: time.Now().UTC()}

	original := types.NewMessage(types.AuthenticationRequest)
	original.Set("client_id", "client-1")
	original.Set("redirect_uri", "https://example.com/cb")

	require.NoError(t, storeContinuation(ctx, c, clk, original, "uid-1"))

	resumed := types.NewMessage(types.AuthenticationRequest)
	resumed.Set("client_id", "client-1-live")
	require.NoError(t, loadContinuation(ctx, c, resumed, "uid-1"))

	// client_id was already present on the live request and must not be
	// clobbered by the parked value.
	require.Equal(t, "client-1-live", resumed.ClientID())
	// redirect_uri was absent on the live request and gets overlaid.
	require.Equal(t, "https://example.com/cb", resumed.RedirectURI())

	require.NoError(t, removeContinuation(ctx, c, "uid-1"))
	err = loadContinuation(ctx, c, types.NewMessage(types.AuthenticationRequest), "uid-1")
	require.Error(t, err)
}

func TestContinuationLoadMissingFails(t *testing.T) {
	ctx := context.Background()
	c, err := cache.NewLRU(16)
	require.NoError(t, err)

	err = loadContinuation(ctx, c, types.NewMessage(types.AuthenticationRequest), "no-such-id")
	require.Error(t, err)
}
