package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
)

// ErrorRenderer renders the last error attached with c.Error when nothing
// has been written yet. Handlers and middleware that prefer c.Error over
// envelope.Fail still produce a canonical envelope.
func ErrorRenderer() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() || len(c.Errors) == 0 {
			return
		}
		envelope.Fail(c, apperr.Normalize(c.Errors.Last().Err))
	}
}

// NoRoute renders unknown paths as a transport failure (not_found_error).
func NoRoute() gin.HandlerFunc {
	return func(c *gin.Context) {
		envelope.Fail(c, apperr.FromHTTPStatus(http.StatusNotFound, "not found"))
	}
}

// NoMethod renders known paths with a disallowed method. 405 has no
// taxonomy row, so it surfaces as server_error with the status in the debug
// detail.
func NoMethod() gin.HandlerFunc {
	return func(c *gin.Context) {
		envelope.Fail(c, apperr.FromHTTPStatus(http.StatusMethodNotAllowed, "method not allowed"))
	}
}

// BodyLimit caps request bodies at n bytes. Reads past the cap fail with
// *http.MaxBytesError, which handlers report through TooLarge.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// TooLarge reports whether err came from a body exceeding BodyLimit and, if
// so, returns it as a transport failure.
func TooLarge(err error) (*apperr.StatusError, bool) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return apperr.Transport(http.StatusRequestEntityTooLarge, "request body too large"), true
	}
	return nil, false
}
