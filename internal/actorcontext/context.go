// Package actorcontext carries request-scoped actor metadata into the
// activity ledger without widening every service signature.
package actorcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type (
	requestIDKey struct{}
	ipAddressKey struct{}
	userAgentKey struct{}
	actorKey     struct{}
)

func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, ipAddressKey{}, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ipAddressKey{}).(string); ok {
		return v
	}
	return ""
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	if ua == "" {
		return ctx
	}
	return context.WithValue(ctx, userAgentKey{}, ua)
}

func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userAgentKey{}).(string); ok {
		return v
	}
	return ""
}

// WithActor records the authenticated principal performing the request.
func WithActor(ctx context.Context, userID snowflake.ID) context.Context {
	if userID == 0 {
		return ctx
	}
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the acting principal, if one is attached.
func ActorFromContext(ctx context.Context) (snowflake.ID, bool) {
	if v, ok := ctx.Value(actorKey{}).(snowflake.ID); ok && v != 0 {
		return v, true
	}
	return 0, false
}
