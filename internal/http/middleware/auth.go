package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-task-backend/internal/apperr"
	"github.com/tbourn/go-task-backend/internal/auth"
	"github.com/tbourn/go-task-backend/internal/http/envelope"
)

// UserIDKey holds the authenticated user's ID (decimal string) in the Gin
// context. Rate limiting and idempotency key their state on it.
const UserIDKey = "userID"

// TokenVerifier resolves an access token to a user ID.
type TokenVerifier interface {
	Verify(token string) (uint, error)
}

// Authenticate identifies the caller when the request carries a valid access
// token and lets every request through. Mounted ahead of rate limiting and
// idempotency so both can key on the user.
func Authenticate(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		_ = identify(c, v)
		c.Next()
	}
}

// RequireAuth rejects requests without a valid access token with an
// unauthorized_error envelope. On success the caller's ID is stored under
// UserIDKey and added to the request-scoped logger. A caller already
// identified by Authenticate is not verified twice.
func RequireAuth(v TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userIDFromCtx(c) != "" {
			c.Next()
			return
		}
		if err := identify(c, v); err != nil {
			envelope.Fail(c, apperr.Unauthorized("Authentication required", authReason(err)))
			return
		}
		c.Next()
	}
}

func identify(c *gin.Context, v TokenVerifier) error {
	tok, err := auth.ExtractToken(c.Request)
	if err != nil {
		return err
	}
	uid, err := v.Verify(tok)
	if err != nil {
		return err
	}
	id := strconv.FormatUint(uint64(uid), 10)
	c.Set(UserIDKey, id)
	LoggerFrom(c).UpdateContext(func(zc zerolog.Context) zerolog.Context {
		return zc.Str("user_id", id)
	})
	return nil
}

func authReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		return "missing access token"
	case errors.Is(err, auth.ErrTokenExpired):
		return "access token expired"
	default:
		return "invalid access token"
	}
}

// UserID returns the authenticated user's ID set by RequireAuth.
func UserID(c *gin.Context) (uint, bool) {
	s := userIDFromCtx(c)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// userIDFromCtx returns the raw user ID stored under UserIDKey, or "".
func userIDFromCtx(c *gin.Context) string {
	if v, ok := c.Get(UserIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
