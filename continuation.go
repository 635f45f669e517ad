package oidc

import (
	"context"
	"fmt"
	"time"

	"github.com/hooklift/oidc/internal/cache"
	"github.com/hooklift/oidc/internal/clock"
	"github.com/hooklift/oidc/metrics"
	"github.com/hooklift/oidc/types"
)

// continuationTTL bounds how long an in-flight authorization request
// can be parked under unique_id while the host collects a sign-in or
// consent decision. One hour comfortably covers an interactive login
// form without letting abandoned requests linger.
const continuationTTL = time.Hour

func continuationKey(uniqueID string) string {
	return "continuation:" + uniqueID
}

// storeContinuation persists req's parameters under the caller-minted
// uniqueID for continuationTTL.
func storeContinuation(ctx context.Context, c cache.Cache, clk clock.Clock, req *types.Message, uniqueID string) error {
	frame := cache.EncodeContinuationFrame(req.Parameters())
	metrics.RecordCacheOp("continuation", "store")
	return c.Set(ctx, continuationKey(uniqueID), frame, clk.UtcNow().Add(continuationTTL))
}

// loadContinuation restores a parked authorization request by its
// unique_id, overlaying its parameters onto req without clobbering
// values the live request already supplies (a resumed request may
// carry a fresher prompt/login_hint the host wants to win).
func loadContinuation(ctx context.Context, c cache.Cache, req *types.Message, uniqueID string) error {
	raw, ok, err := c.Get(ctx, continuationKey(uniqueID))
	if err != nil {
		return fmt.Errorf("oidc: loading continuation: %w", err)
	}
	if !ok {
		metrics.RecordCacheOp("continuation", "miss")
		return fmt.Errorf("oidc: continuation %q not found or expired", uniqueID)
	}
	metrics.RecordCacheOp("continuation", "hit")

	params, err := cache.DecodeContinuationFrame(raw)
	if err != nil {
		return fmt.Errorf("oidc: decoding continuation: %w", err)
	}

	for _, p := range params {
		req.SetIfAbsent(p.Name, p.Value)
	}
	return nil
}

// removeContinuation deletes a parked request once it has been
// consumed, so a replayed unique_id can't be resumed twice.
func removeContinuation(ctx context.Context, c cache.Cache, uniqueID string) error {
	return c.Remove(ctx, continuationKey(uniqueID))
}
