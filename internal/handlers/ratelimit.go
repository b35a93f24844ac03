package handlers

import (
	"net/http"

	"github.com/lookatme/backend/internal/middleware"
)

// RateLimiter is the minimal interface required to guard sensitive endpoints.
type RateLimiter = middleware.RateLimiter

func allowRequest(limiter RateLimiter, r *http.Request, scope string) bool {
	if limiter == nil {
		return true
	}
	return limiter.Allow(middleware.RateLimitKey(r, scope))
}
