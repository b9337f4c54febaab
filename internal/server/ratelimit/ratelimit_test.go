package ratelimit

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLimiter(configs []EndpointConfig) *Limiter {
	return NewLimiter(&Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		EndpointConfigs: configs,
	})
}

func TestLimiterBurstThenDeny(t *testing.T) {
	l := testLimiter([]EndpointConfig{
		{Path: "/api/jobs", Method: "POST", Limit: 10, Window: time.Hour, Burst: 3},
	})
	defer l.Stop()

	for i := 0; i < 3; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/api/jobs", "POST")
		assert.True(t, allowed, "request %d within burst", i)
	}

	allowed, info := l.Allow("1.2.3.4", "/api/jobs", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 10, info.Limit)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
}

func TestLimiterIsolatesClients(t *testing.T) {
	l := testLimiter([]EndpointConfig{
		{Path: "/api/jobs", Method: "POST", Limit: 10, Window: time.Hour, Burst: 1},
	})
	defer l.Stop()

	allowed, _ := l.Allow("1.1.1.1", "/api/jobs", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("1.1.1.1", "/api/jobs", "POST")
	require.False(t, allowed, "first client exhausted")

	allowed, _ = l.Allow("2.2.2.2", "/api/jobs", "POST")
	assert.True(t, allowed, "second client has its own bucket")
}

func TestLimiterRefills(t *testing.T) {
	// 20 tokens/second so the bucket visibly refills within the test.
	l := testLimiter([]EndpointConfig{
		{Path: "/api/jobs", Method: "POST", Limit: 20, Window: time.Second, Burst: 1},
	})
	defer l.Stop()

	allowed, _ := l.Allow("1.2.3.4", "/api/jobs", "POST")
	require.True(t, allowed)
	allowed, _ = l.Allow("1.2.3.4", "/api/jobs", "POST")
	require.False(t, allowed)

	time.Sleep(100 * time.Millisecond)
	allowed, _ = l.Allow("1.2.3.4", "/api/jobs", "POST")
	assert.True(t, allowed, "bucket refilled after waiting")
}

func TestLimiterDisabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()

	for i := 0; i < 100; i++ {
		allowed, _ := l.Allow("1.2.3.4", "/api/jobs", "POST")
		require.True(t, allowed)
	}
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	tests := []struct {
		path, method string
		wantPath     string
		unlimited    bool
	}{
		{"/health", "GET", "", true},
		{"/api/jobs", "POST", "/api/jobs", false},
		{"/api/jobs/b6e9/regenerate", "POST", "/api/jobs/", false},
		{"/api/jobs/b6e9/status", "GET", "/api/jobs/", false},
		{"/api/auth/login", "POST", "/api/auth/", false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			require.NotNil(t, got)
			if tt.unlimited {
				assert.LessOrEqual(t, got.Limit, 0)
				return
			}
			assert.Equal(t, tt.wantPath, got.Path)
		})
	}

	assert.Nil(t, MatchEndpoint("/api/unknown", "DELETE", configs),
		"unmatched routes fall back to the default budget")
}
