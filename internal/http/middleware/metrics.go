package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-task-backend/internal/http/envelope"
)

// unmatchedRoute labels requests that no route served (404/405), so raw
// URLs never become label values.
const unmatchedRoute = "unmatched"

// Request metrics are labelled by envelope route group ("user", "task",
// "default", or "app" for everything else) and by registered route.
var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by route group, route, method and status.",
		},
		[]string{"group", "route", "method", "status"},
	)

	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"group", "route", "method"},
	)

	httpInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests by method.",
		},
		[]string{"method"},
	)

	// Task pages are the largest payloads; bucket up to the 1 MiB body cap.
	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Size of HTTP response bodies in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 7),
		},
		[]string{"group"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize)
}

// Metrics instruments every request except those whose path is in skip
// (typically the scrape endpoint itself).
//
// The group label is read after the handler chain ran, so it reflects the
// envelope.Group the request was routed through. Error envelopes are
// additionally counted by code in api_errors_total (package envelope).
func Metrics(skip ...string) gin.HandlerFunc {
	skipped := make(map[string]struct{}, len(skip))
	for _, p := range skip {
		skipped[p] = struct{}{}
	}
	return func(c *gin.Context) {
		if _, ok := skipped[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		method := c.Request.Method
		inflight := httpInflight.WithLabelValues(method)
		inflight.Inc()
		defer inflight.Dec()

		start := time.Now()
		c.Next()

		group := envelope.RouteGroup(c)
		route := routeLabel(c)
		httpReqs.WithLabelValues(group, route, method, strconv.Itoa(c.Writer.Status())).Inc()
		httpLat.WithLabelValues(group, route, method).Observe(time.Since(start).Seconds())
		// 304s and other body-less responses report -1.
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(group).Observe(float64(size))
		}
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return unmatchedRoute
}
