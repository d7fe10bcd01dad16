package util

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	assert.Empty(t, RequestIDFromContext(ctx))

	ctx = ContextWithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))
}

func TestStartTimeContext(t *testing.T) {
	t.Parallel()

	_, ok := StartTimeFromContext(context.Background())
	assert.False(t, ok)

	now := time.Now()
	ctx := ContextWithStartTime(context.Background(), now)
	got, ok := StartTimeFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, now, got)
}

func TestRouteHolder_VisibleAcrossDerivedContexts(t *testing.T) {
	t.Parallel()

	base := ContextWithRouteHolder(context.Background())
	assert.Empty(t, RouteFromContext(base))

	// A handler deeper in the chain sets the route on a derived
	// context; the outer context observes it.
	derived := context.WithValue(base, ctxKey("unrelated"), "x")
	SetRoute(derived, "users")

	assert.Equal(t, "users", RouteFromContext(base))
}

func TestSetRoute_NoHolderIsNoop(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	SetRoute(ctx, "users")
	assert.Empty(t, RouteFromContext(ctx))
}

func TestPathParamsContext(t *testing.T) {
	t.Parallel()

	assert.Nil(t, PathParamsFromContext(context.Background()))

	params := map[string]string{"id": "42"}
	ctx := ContextWithPathParams(context.Background(), params)
	assert.Equal(t, params, PathParamsFromContext(ctx))
}
