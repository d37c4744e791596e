package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	t.Run("returns injected time", func(t *testing.T) {
		fixed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		ctx := WithTime(context.Background(), fixed)
		assert.Equal(t, fixed, Now(ctx))
	})

	t.Run("falls back to wall clock", func(t *testing.T) {
		assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
	})
}

func TestRequestMetadata(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithClientMetadata(ctx, "10.0.0.1", "test-agent")

	assert.Equal(t, "req-1", RequestID(ctx))
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "test-agent", UserAgent(ctx))
	assert.Empty(t, RequestID(context.Background()))
}
