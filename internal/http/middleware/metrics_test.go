package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tbourn/go-task-backend/internal/http/envelope"
)

func metricsEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(BeginRequest(), Metrics("/metrics"))
	r.NoRoute(NoRoute())
	r.NoMethod(NoMethod())

	tasks := r.Group("/api/tasks", envelope.Group("task"))
	tasks.GET("/:id", func(c *gin.Context) {
		envelope.OK(c, gin.H{"id": c.Param("id")}, "Task retrieved", http.StatusOK, nil)
	})
	tasks.GET("", func(c *gin.Context) {
		c.AbortWithStatus(http.StatusNotModified)
	})
	r.GET("/metrics", func(c *gin.Context) { c.String(http.StatusOK, "scrape") })
	return r
}

func serve(r http.Handler, method, path string) int {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w.Code
}

func TestMetrics_LabelsByGroupAndRoute(t *testing.T) {
	r := metricsEngine()

	taskOK := httpReqs.WithLabelValues("task", "/api/tasks/:id", "GET", "200")
	taskNM := httpReqs.WithLabelValues("task", "/api/tasks", "GET", "304")
	miss := httpReqs.WithLabelValues(envelope.DefaultRouteGroup, unmatchedRoute, "GET", "404")
	baseOK, baseNM, baseMiss := testutil.ToFloat64(taskOK), testutil.ToFloat64(taskNM), testutil.ToFloat64(miss)

	if code := serve(r, http.MethodGet, "/api/tasks/1"); code != http.StatusOK {
		t.Fatalf("GET /api/tasks/1 = %d", code)
	}
	if code := serve(r, http.MethodGet, "/api/tasks/2"); code != http.StatusOK {
		t.Fatalf("GET /api/tasks/2 = %d", code)
	}
	if code := serve(r, http.MethodGet, "/api/tasks"); code != http.StatusNotModified {
		t.Fatalf("GET /api/tasks = %d", code)
	}
	if code := serve(r, http.MethodGet, "/random/abc123"); code != http.StatusNotFound {
		t.Fatalf("GET /random/abc123 = %d", code)
	}

	// Both ids collapse into the route template.
	if got := testutil.ToFloat64(taskOK); got != baseOK+2 {
		t.Fatalf("task 200 counter = %v, want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(taskNM); got != baseNM+1 {
		t.Fatalf("task 304 counter = %v, want %v", got, baseNM+1)
	}
	// Unknown paths never leak into labels.
	if got := testutil.ToFloat64(miss); got != baseMiss+1 {
		t.Fatalf("unmatched 404 counter = %v, want %v", got, baseMiss+1)
	}
	if n := testutil.CollectAndCount(httpReqs, "http_requests_total"); n == 0 {
		t.Fatalf("no series collected")
	}
	if v := testutil.ToFloat64(httpInflight.WithLabelValues("GET")); v != 0 {
		t.Fatalf("inflight = %v, want 0", v)
	}
}

func TestMetrics_MethodNotAllowedIsUnmatched(t *testing.T) {
	r := metricsEngine()
	c := httpReqs.WithLabelValues(envelope.DefaultRouteGroup, unmatchedRoute, "DELETE", "500")
	base := testutil.ToFloat64(c)

	if code := serve(r, http.MethodDelete, "/api/tasks"); code != http.StatusInternalServerError {
		t.Fatalf("DELETE /api/tasks = %d", code)
	}
	if got := testutil.ToFloat64(c); got != base+1 {
		t.Fatalf("405 counter = %v, want %v", got, base+1)
	}
}

func TestMetrics_SkipsScrapePath(t *testing.T) {
	r := metricsEngine()
	c := httpReqs.WithLabelValues(envelope.DefaultRouteGroup, "/metrics", "GET", "200")
	base := testutil.ToFloat64(c)

	if code := serve(r, http.MethodGet, "/metrics"); code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", code)
	}
	if got := testutil.ToFloat64(c); got != base {
		t.Fatalf("scrape requests must not be counted: %v -> %v", base, got)
	}
}
