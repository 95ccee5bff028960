package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewStatsCacheRejectsBadURL(t *testing.T) {
	_, err := NewStatsCache(context.Background(), "not-a-redis-url", time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse Redis URL")
}

type invoiceStats struct {
	Total int64  `json:"total"`
	TTC   string `json:"ttc"`
}

// Runs against a real server when TEST_REDIS_URL is set.
func TestStatsCacheRoundTripAndInvalidate(t *testing.T) {
	_ = godotenv.Load("../../.env")
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	c, err := NewStatsCache(ctx, url, time.Minute)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.Invalidate(ctx))

	var got invoiceStats
	hit, err := c.Get(ctx, "invoices", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "invoices", invoiceStats{Total: 3, TTC: "1785.00"}))
	hit, err = c.Get(ctx, "invoices", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, invoiceStats{Total: 3, TTC: "1785.00"}, got)

	require.NoError(t, c.Invalidate(ctx))
	hit, err = c.Get(ctx, "invoices", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}
