// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file covers the start and the failure end of the request lifecycle:
//
//   - BeginRequest() binds a fresh correlation ID to the request before any
//     handler runs (reqctx) and echoes it as X-Request-ID.
//   - Recovery() turns a panic anywhere below it into an error envelope. A
//     panicked apperr.Failure keeps its code; any other value becomes a
//     server_error whose debug detail names the panic's runtime type.
//   - LoggerFrom() returns the request-scoped zerolog.Logger.
//
// Recommended order: BeginRequest → RedactingLogger → Recovery, so panics
// and access logs carry the correlation ID.
package middleware

import (
	"context"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
	"github.com/tbourn/go-task-backend/internal/reqctx"
)

const (
	// correlationIDKey mirrors the correlation ID into the Gin context.
	correlationIDKey = "correlationID"
	// requestIDHeader exposes the correlation ID to clients.
	requestIDHeader = "X-Request-ID"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// BeginRequest creates the per-request state. It must run before any
// handler logic; everything downstream reads the ID through reqctx.
func BeginRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, rc := reqctx.Begin(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Set(correlationIDKey, rc.CorrelationID)
		c.Writer.Header().Set(requestIDHeader, rc.CorrelationID)
		c.Next()
	}
}

// CorrelationID returns the ID bound by BeginRequest or reqctx.Unknown.
func CorrelationID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return reqctx.Unknown
	}
	return reqctx.CorrelationID(c.Request.Context())
}

// Recovery intercepts panics, logs the stack trace, and renders a
// server_error envelope through the shared builder.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if rec := recover(); rec != nil {
				LoggerFrom(c).Error().
					Interface("panic", rec).
					Bytes("stack", debug.Stack()).
					Msg("panic recovered")

				if err, ok := rec.(error); ok {
					envelope.Fail(c, apperr.Normalize(err))
					return
				}
				envelope.Fail(c, apperr.FromFault(rec))
			}
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger. Callers can use the
// result without nil checks.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if c == nil || c.Request == nil {
		return reqctx.Logger(context.Background())
	}
	return reqctx.Logger(c.Request.Context())
}

// truncate returns s unchanged when within max length, otherwise it truncates
// s to max bytes and appends an ellipsis. A max <= 0 disables truncation.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
