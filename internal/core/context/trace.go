// Package context carries request scoped values: the trace ids and the
// authenticated user.
package context

import (
	"context"

	"github.com/google/uuid"
)

// TraceContext correlates the log lines of one request. TraceID may come
// from the caller; RequestID identifies this hop.
type TraceContext struct {
	TraceID   string
	RequestID string
}

type traceContextKey struct{}

func WithTrace(ctx context.Context, trace *TraceContext) context.Context {
	return context.WithValue(ctx, traceContextKey{}, trace)
}

func GetTrace(ctx context.Context) *TraceContext {
	if v, ok := ctx.Value(traceContextKey{}).(*TraceContext); ok {
		return v
	}
	return nil
}

// NewTraceContext fills empty ids with fresh UUIDs.
func NewTraceContext(traceID, requestID string) *TraceContext {
	if traceID == "" {
		traceID = uuid.NewString()
	}
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &TraceContext{TraceID: traceID, RequestID: requestID}
}

// Detached returns a background context keeping the trace and user of
// ctx, for follow-up work that must not be cancelled with the request.
func Detached(ctx context.Context) context.Context {
	out := context.Background()
	if t := GetTrace(ctx); t != nil {
		out = WithTrace(out, t)
	}
	if u := GetUser(ctx); u != nil {
		out = WithUser(out, u)
	}
	return out
}
