package middleware

import (
	"net/http"
	"strconv"

	"github.com/akolanti/KnowledgeAPI/internal/config"
	"github.com/akolanti/KnowledgeAPI/internal/metrics"
	"github.com/akolanti/KnowledgeAPI/pkg/logger_i"
	"golang.org/x/time/rate"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
}

// Chain runs every API request through trace injection and the optional per IP
// rate limiter, and records the response status.
type Chain struct {
	limiter *IPRateLimiter
}

func New(settings config.ServerSettings) *Chain {
	c := &Chain{}
	if settings.RateLimitEnabled {
		c.limiter = NewIPRateLimiter(rate.Limit(settings.RateLimitPerSec), settings.RateLimitBurst)
	}
	return c
}

func (c *Chain) Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := c.processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}

		metrics.HttpRequestsTotal.WithLabelValues(r.URL.Path, strconv.Itoa(rec.Status)).Inc() //metrics
	}
}

// Handler adapts Wrap for routes mounted as http.Handler.
func (c *Chain) Handler(next http.Handler) http.Handler {
	return c.Wrap(next.ServeHTTP)
}

func (c *Chain) processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Debug("New request received")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	if c.limiter != nil {
		re = rateLimiter(re, c.limiter)
	}
	return re
}
