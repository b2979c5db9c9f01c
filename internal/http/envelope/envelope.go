// Package envelope renders every API response, success or failure, into one
// canonical JSON shape.
//
// Success:
//
//	{
//	  "success": true,
//	  "api_version": "v1",
//	  "route_group": "task",
//	  "timestamp": "2025-07-20T10:30:45.123456Z",
//	  "correlation_id": "req_20250720_103045_abc123",
//	  "message": "Task created",
//	  "data": { ... },
//	  "metadata": { ... },
//	  "status_code": 201
//	}
//
// Error:
//
//	{
//	  "success": false,
//	  "error_id": "req_20250720_103045_abc123",
//	  "api_version": "v1",
//	  "route_group": "user",
//	  "timestamp": "2025-07-20T10:30:45.123456Z",
//	  "error_detail": {
//	    "error_code": "conflict_error",
//	    "error_type": "validation",
//	    "error_message": "User with this username or email already exists",
//	    "debug_message": "Registration failed for user: bob"
//	  },
//	  "status_code": 409
//	}
//
// The correlation ID comes from reqctx; the route group from the gin context
// (see Group). Both have fixed fallbacks so rendering never fails.
package envelope

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/reqctx"
)

const (
	// APIVersion is echoed in every envelope.
	APIVersion = "v1"
	// DefaultRouteGroup is reported when the request has no route group.
	DefaultRouteGroup = "app"
	// TimestampLayout renders UTC instants with a literal Z suffix.
	TimestampLayout = "2006-01-02T15:04:05.000000Z"

	routeGroupKey = "envelope.route_group"
	rendererKey   = "envelope.renderer"
)

// SuccessEnvelope is the body of every successful response.
type SuccessEnvelope struct {
	Success       bool           `json:"success"`
	APIVersion    string         `json:"api_version"`
	RouteGroup    string         `json:"route_group"`
	Timestamp     string         `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
	Message       string         `json:"message"`
	Data          any            `json:"data"`
	Metadata      map[string]any `json:"metadata"`
	StatusCode    int            `json:"status_code"`
}

// ErrorEnvelope is the body of every failed response.
type ErrorEnvelope struct {
	Success     bool          `json:"success"`
	ErrorID     string        `json:"error_id"`
	APIVersion  string        `json:"api_version"`
	RouteGroup  string        `json:"route_group"`
	Timestamp   string        `json:"timestamp"`
	ErrorDetail apperr.Detail `json:"error_detail"`
	StatusCode  int           `json:"status_code"`
}

// Renderer builds envelopes. The zero value is not usable; use NewRenderer.
type Renderer struct {
	// Now returns the current instant; overridable in tests.
	Now func() time.Time
	// IncludeDebug controls whether error_detail.debug_message is emitted.
	IncludeDebug bool
}

// NewRenderer returns a Renderer using the wall clock.
func NewRenderer(includeDebug bool) *Renderer {
	return &Renderer{Now: time.Now, IncludeDebug: includeDebug}
}

var defaultRenderer = NewRenderer(true)

// Success renders a success envelope. A nil metadata map is rendered as {}.
func (r *Renderer) Success(c *gin.Context, data any, message string, status int, metadata map[string]any) (SuccessEnvelope, int) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	return SuccessEnvelope{
		Success:       true,
		APIVersion:    APIVersion,
		RouteGroup:    RouteGroup(c),
		Timestamp:     r.timestamp(),
		CorrelationID: correlationID(c),
		Message:       message,
		Data:          data,
		Metadata:      metadata,
		StatusCode:    status,
	}, status
}

// Error renders an error envelope. The emitted status is f.Status().
func (r *Renderer) Error(c *gin.Context, f apperr.Failure) (ErrorEnvelope, int) {
	detail := f.Render()
	if !r.IncludeDebug {
		detail.DebugMessage = ""
	}
	status := f.Status()
	return ErrorEnvelope{
		Success:     false,
		ErrorID:     correlationID(c),
		APIVersion:  APIVersion,
		RouteGroup:  RouteGroup(c),
		Timestamp:   r.timestamp(),
		ErrorDetail: detail,
		StatusCode:  status,
	}, status
}

func (r *Renderer) timestamp() string {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	return now().UTC().Format(TimestampLayout)
}

// Use installs r for every request passing through the returned middleware.
func Use(r *Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(rendererKey, r)
		c.Next()
	}
}

// From returns the Renderer installed by Use, or a default one that
// includes debug detail.
func From(c *gin.Context) *Renderer {
	if c != nil {
		if v, ok := c.Get(rendererKey); ok {
			if r, ok := v.(*Renderer); ok && r != nil {
				return r
			}
		}
	}
	return defaultRenderer
}

// Group tags every request of a router group with name.
//
//	users := api.Group("/user", envelope.Group("user"))
func Group(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(routeGroupKey, name)
		c.Next()
	}
}

// RouteGroup returns the group set by Group, or DefaultRouteGroup.
func RouteGroup(c *gin.Context) string {
	if c != nil {
		if v, ok := c.Get(routeGroupKey); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return DefaultRouteGroup
}

func correlationID(c *gin.Context) string {
	if c == nil || c.Request == nil {
		return reqctx.Unknown
	}
	return reqctx.CorrelationID(c.Request.Context())
}

// OK writes a success envelope.
func OK(c *gin.Context, data any, message string, status int, metadata map[string]any) {
	env, code := From(c).Success(c, data, message, status, metadata)
	c.JSON(code, env)
}

// Fail writes an error envelope for f and aborts the chain. If a response
// was already written it only aborts, so a request never carries two bodies.
func Fail(c *gin.Context, f apperr.Failure) {
	env, status := From(c).Error(c, f)
	observeError(env.ErrorDetail, status)
	logFailure(c, f, env)

	if c.Writer.Written() {
		c.Abort()
		return
	}
	if status == http.StatusUnauthorized && c.Writer.Header().Get("WWW-Authenticate") == "" {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(status, env)
}

// logFailure logs 5xx at error level with the full debug detail (even when it
// is redacted from the body) and everything else at debug level.
func logFailure(c *gin.Context, f apperr.Failure, env ErrorEnvelope) {
	ctx := context.Background()
	if c != nil && c.Request != nil {
		ctx = c.Request.Context()
	}
	lg := reqctx.Logger(ctx)
	full := f.Render()
	ev := lg.Debug()
	if env.StatusCode >= http.StatusInternalServerError {
		ev = lg.Error()
	}
	ev.Str("error_id", env.ErrorID).
		Str("route_group", env.RouteGroup).
		Int("status", env.StatusCode).
		Str("code", string(full.Code)).
		Str("category", string(full.Type)).
		Str("message", full.Message).
		Str("debug", full.DebugMessage).
		Msg("api error")
}
