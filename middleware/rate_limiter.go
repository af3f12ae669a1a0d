package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"strings"

	"reclaimAPI/internal/logger"
	"reclaimAPI/internal/throttle"
)

// RateLimitMiddleware applies a per-client-IP request budget. A limiter
// backend error lets the request through; room entry has its own fail-closed
// throttle. X-Forwarded-For is only read when the peer is a trusted proxy.
func RateLimitMiddleware(limiter throttle.Limiter, trusted []netip.Prefix, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trusted)

			allowed, err := limiter.Allow(r.Context(), "ip:"+ip)
			if err != nil {
				log.Warn("rate limiter unavailable", "ip", ip, "error", err)
				allowed = true
			}
			if !allowed {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP walks X-Forwarded-For from the nearest hop back and returns the
// first address that is not a trusted proxy.
func clientIP(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(peer, trusted) {
		return peer
	}

	hops := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		if !isTrusted(hop, trusted) {
			return hop
		}
		peer = hop
	}
	return peer
}

func isTrusted(ip string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
