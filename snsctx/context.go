// Package snsctx carries per-invocation switches through context.
package snsctx

import "context"

type verboseKey struct{}

// IsVerbose reports whether transports should dump raw transfers.
func IsVerbose(ctx context.Context) bool {
	v, _ := ctx.Value(verboseKey{}).(bool)
	return v
}

func SetVerbose(ctx context.Context, value bool) context.Context {
	return context.WithValue(ctx, verboseKey{}, value)
}
