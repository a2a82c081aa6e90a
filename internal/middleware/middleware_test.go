package middleware

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/akolanti/KnowledgeAPI/internal/config"
)

func TestWrap_InjectsTrace(t *testing.T) {
	chain := New(config.ServerSettings{})

	var seen any
	h := chain.Wrap(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Context().Value(config.TRACE_ID_KEY)
		w.WriteHeader(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Trace-Id", "trace-123")
	rec := httptest.NewRecorder()
	h(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "trace-123", seen)
	assert.Equal(t, "trace-123", rec.Header().Get("X-Trace-Id"))

	rec = httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	generated, ok := seen.(string)
	require.True(t, ok)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rec.Header().Get("X-Trace-Id"))
}

func TestWrap_RateLimit(t *testing.T) {
	chain := New(config.ServerSettings{RateLimitEnabled: true, RateLimitPerSec: 0.001, RateLimitBurst: 2})

	calls := 0
	h := chain.Wrap(func(w http.ResponseWriter, r *http.Request) {
		calls++
	})

	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	assert.Equal(t, 2, calls)

	// other clients keep their own budget
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestWrap_RateLimitDisabled(t *testing.T) {
	chain := New(config.ServerSettings{RateLimitEnabled: false, RateLimitBurst: 0})
	h := chain.Wrap(func(w http.ResponseWriter, r *http.Request) {})

	for range 20 {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestIPRateLimiter_PrunesIdleClients(t *testing.T) {
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewIPRateLimiter(rate.Limit(1), 1)
	l.now = func() time.Time { return clock }

	first := l.GetLimiter("10.0.0.1")
	assert.Same(t, first, l.GetLimiter("10.0.0.1"))

	for n := 0; len(l.ips) < maxTrackedIPs; n++ {
		l.GetLimiter(fmt.Sprintf("192.168.%d.%d", n/256, n%256))
	}

	clock = clock.Add(idleIPTimeout + time.Second)
	l.GetLimiter("10.0.0.99")

	assert.Len(t, l.ips, 1)
	assert.NotSame(t, first, l.GetLimiter("10.0.0.1"))
}
