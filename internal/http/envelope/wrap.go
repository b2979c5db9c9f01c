package envelope

import (
	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/apperr"
)

// Result is what a wrapped handler produces on success.
// A nil Metadata is rendered as {}.
type Result struct {
	Data     any
	Metadata map[string]any
}

// Data returns a Result without metadata.
func Data(v any) Result { return Result{Data: v} }

// WithMeta returns a Result carrying metadata.
func WithMeta(v any, meta map[string]any) Result { return Result{Data: v, Metadata: meta} }

// HandlerFunc is a route handler that leaves envelope formatting to Wrap.
type HandlerFunc func(c *gin.Context) (Result, error)

// Wrap adapts h into a gin handler. Message and status are fixed per route.
//
// On success the Result is rendered with OK. On error the error is
// classified with apperr.Normalize and rendered with Fail. If h already
// aborted the request (e.g. a 304 Not Modified), nothing else is written.
func Wrap(message string, status int, h HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := h(c)
		if err != nil {
			Fail(c, apperr.Normalize(err))
			return
		}
		if c.IsAborted() {
			return
		}
		OK(c, res.Data, message, status, res.Metadata)
	}
}
