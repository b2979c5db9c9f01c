// Package reqctx holds per-request state that downstream code reads without
// having it passed through every call: the correlation ID assigned when the
// request starts and the request-scoped logger.
//
// State lives in the request's context.Context, so it is visible only to the
// goroutine chain serving that request and is discarded with it.
package reqctx

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Unknown is reported when no correlation ID was bound to the request.
const Unknown = "unknown"

// idLayout is the UTC timestamp portion of a correlation ID.
const idLayout = "20060102_150405"

// Request is the immutable state bound at the start of a request.
type Request struct {
	CorrelationID string
}

type requestKey struct{}

// Test seams.
var (
	nowFn    = time.Now
	suffixFn = randomSuffix
)

// NewCorrelationID formats req_<YYYYMMDD_HHMMSS>_<suffix> using the UTC
// form of now.
func NewCorrelationID(now time.Time, suffix string) string {
	return "req_" + now.UTC().Format(idLayout) + "_" + suffix
}

// GenerateID returns a fresh correlation ID. Uniqueness is probabilistic:
// second-resolution timestamp plus 24 random bits.
func GenerateID() string {
	return NewCorrelationID(nowFn(), suffixFn())
}

// randomSuffix returns 6 lowercase hex characters taken from a random UUID.
func randomSuffix() string {
	u := uuid.New()
	return hex.EncodeToString(u[:3])
}

// Begin creates the request state and returns a derived context carrying it.
func Begin(ctx context.Context) (context.Context, Request) {
	r := Request{CorrelationID: GenerateID()}
	return With(ctx, r), r
}

// With returns a copy of ctx carrying r.
func With(ctx context.Context, r Request) context.Context {
	return context.WithValue(ctx, requestKey{}, r)
}

// From returns the request state bound to ctx, if any.
func From(ctx context.Context) (Request, bool) {
	if ctx == nil {
		return Request{}, false
	}
	r, ok := ctx.Value(requestKey{}).(Request)
	return r, ok
}

// CorrelationID returns the ID bound to ctx or Unknown.
func CorrelationID(ctx context.Context) string {
	if r, ok := From(ctx); ok && r.CorrelationID != "" {
		return r.CorrelationID
	}
	return Unknown
}

// WithLogger attaches a request-scoped logger to ctx.
func WithLogger(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// Logger returns the request-scoped logger, falling back to the global
// logger when none was attached.
func Logger(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
			return l
		}
	}
	l := log.Logger
	return &l
}
