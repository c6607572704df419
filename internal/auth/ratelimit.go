package auth

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ulule/limiter/v3"

	"github.com/kasirku/backend-pos/internal/common"
)

// LoginLimiter throttles PIN guessing. The bucket key combines client IP and
// the attempted username so one busy terminal cannot lock out another, and a
// distributed guess against one account still hits the cap.
type LoginLimiter struct {
	Limiter *limiter.Limiter
}

// Middleware enforces the limit on the login endpoint.
func (ll LoginLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ll.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, 4096))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request payload", nil)
			return
		}
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))

		var probe struct {
			Username string `json:"username"`
		}
		_ = json.Unmarshal(body, &probe)
		key := "login:" + common.ClientIP(r) + ":" + strings.ToLower(strings.TrimSpace(probe.Username))

		lctx, err := ll.Limiter.Get(r.Context(), key)
		if err != nil {
			// a broken limiter store must not take the terminal offline
			next.ServeHTTP(w, r)
			return
		}
		w.Header().Set("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		if lctx.Reached {
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many login attempts, try again later", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
