package session

import "context"

type sessionContextKey struct{}

// ContextWith stores the security context in ctx.
func ContextWith(ctx context.Context, sctx *Context) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sctx)
}

// FromContext extracts the security context from ctx, or nil.
func FromContext(ctx context.Context) *Context {
	sctx, _ := ctx.Value(sessionContextKey{}).(*Context)
	return sctx
}
