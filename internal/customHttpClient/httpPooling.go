package customHttpClient

import (
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/KnowledgeAPI/internal/config"
)

var (
	transportOnce   sync.Once
	customTransport *http.Transport
)

// sharedTransport is reused by every SDK client so embedding and completion calls
// keep their connections warm.
func sharedTransport() *http.Transport {
	transportOnce.Do(func() {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.MaxIdleConns = config.MaxIdleConns
		t.MaxIdleConnsPerHost = config.MaxIdleConnsPerHost
		t.IdleConnTimeout = config.IdleConnTimeout
		customTransport = t
	})
	return customTransport
}

// NewPooledClient returns a client on the shared transport. A zero timeout leaves
// deadlines to the request context.
func NewPooledClient(timeout time.Duration) *http.Client {
	return &http.Client{Transport: sharedTransport(), Timeout: timeout}
}
