package broker

import (
	"fmt"
	"net/http"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "groupfetch_requests_total",
			Help: "Number of requests received, by api.",
		},
		[]string{"api"},
	)
	errorResponsesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groupfetch_error_responses_total",
			Help: "Number of synthesized error responses sent.",
		},
	)
	connectionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "groupfetch_connection_failures_total",
			Help: "Number of connections dropped on unanswerable requests.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal, errorResponsesTotal, connectionFailures)
}

// StartMetricsServer exposes the prometheus registry on /metrics.
func StartMetricsServer(port int, logger hclog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	addr := fmt.Sprintf(":%d", port)
	logger.Info("metrics endpoint available", "addr", addr+"/metrics")
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
}
