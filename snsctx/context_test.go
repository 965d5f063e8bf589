package snsctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbose(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))

	ctx = SetVerbose(ctx, true)
	assert.True(t, IsVerbose(ctx))

	child, cancel := context.WithCancel(ctx)
	defer cancel()
	assert.True(t, IsVerbose(child))
	assert.False(t, IsVerbose(SetVerbose(child, false)))
}
