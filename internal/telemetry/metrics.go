package telemetry

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/exporters/prometheus"

	"github.com/datachainlab/grandpa-relayer/log"
)

// NewPrometheusExporter serves /metrics on addr and returns the reader
// feeding it.
func NewPrometheusExporter(addr string) (*prometheus.Exporter, error) {
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", otelhttp.NewHandler(promhttp.Handler(), "metrics"))
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger := log.GetLogger().WithModule("telemetry")
			logger.Fatal("Prometheus exporter server failed", err, "addr", addr)
		}
	}()

	exporter, err := prometheus.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create the Prometheus Exporter")
	}

	return exporter, nil
}
