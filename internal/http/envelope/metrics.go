package envelope

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tbourn/go-task-backend/internal/apperr"
)

// apiErrors counts rendered error envelopes. Labels come from the closed
// taxonomy, so cardinality is bounded by the number of codes.
var apiErrors = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "api_errors_total",
		Help: "Total number of error envelopes rendered, by error code.",
	},
	[]string{"code", "category", "status"},
)

func init() {
	prometheus.MustRegister(apiErrors)
}

func observeError(d apperr.Detail, status int) {
	apiErrors.WithLabelValues(string(d.Code), string(d.Type), strconv.Itoa(status)).Inc()
}
