package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Cache-Control directives applied per route group with CachePolicy.
const (
	// CacheNoStore is for responses carrying credentials (register/login
	// tokens, the current user).
	CacheNoStore = "no-store"
	// CacheRevalidate lets clients keep a private copy of task data but
	// forces an If-None-Match round trip before reuse.
	CacheRevalidate = "private, no-cache"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
//
// HSTS is only emitted for HTTPS requests, and only when EnableHSTS is set;
// leave it off unless the hop between proxy and app is HTTPS too.
// HSTSMaxAge defaults to 180 days.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	EnablePolicy bool // Permissions-Policy and X-Permitted-Cross-Domain-Policies
}

// SecurityHeaders sets the response hardening headers shared by every
// route. The API only serves JSON, so no Content-Security-Policy is sent.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		c.Next()
	}
}

// CachePolicy sets Cache-Control for every response of a route group,
// error envelopes included. CacheNoStore also sends the HTTP/1.0
// Pragma/Expires pair.
//
//	user := api.Group("/user", envelope.Group("user"), middleware.CachePolicy(middleware.CacheNoStore))
func CachePolicy(directive string) gin.HandlerFunc {
	noStore := strings.Contains(directive, CacheNoStore)
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Cache-Control", directive)
		if noStore {
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		}
		c.Next()
	}
}

// isHTTPS reports whether the request arrived over TLS, directly or behind a
// proxy that set X-Forwarded-Proto.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
