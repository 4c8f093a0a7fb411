package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_Connects(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()

	err := client.Ping(ctx).Err()
	require.NoError(t, err)
}

func TestNewClient_InvalidURL(t *testing.T) {
	_, err := NewClient(context.Background(), "not-a-redis-url")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse redis URL")
}

func TestNewClient_UnreachableReportsDialFailure(t *testing.T) {
	obs := &mockCommandObserver{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// Port 1 on loopback refuses connections immediately.
	_, err := NewClient(ctx, "redis://127.0.0.1:1/0", NewMetricsHook(obs))
	require.Error(t, err)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	assert.Positive(t, obs.dialErrs)
}
