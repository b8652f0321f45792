package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const tracerName = "github.com/iamwavecut/whosent"

// Tracer returns the tracer used for update spans.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Telemetry owns the tracer provider and the /metrics endpoint.
type Telemetry struct {
	addr     string
	registry *prometheus.Registry
	provider *sdktrace.TracerProvider
	server   *http.Server
	logger   *zap.Logger
}

// NewTelemetry prepares telemetry; an empty addr disables the metrics endpoint.
func NewTelemetry(addr string) *Telemetry {
	return &Telemetry{
		addr:     addr,
		registry: prometheus.NewRegistry(),
	}
}

func (t *Telemetry) Start(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	t.logger = logger.Named("metrics")

	t.provider = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(t.provider)

	registerMetrics(t.registry)
	if t.addr == "" {
		log.Debug("metrics endpoint disabled")
		return nil
	}

	listener, err := net.Listen("tcp", t.addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(t.registry, promhttp.HandlerOpts{}))
	t.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(t.logger),
	}
	go func() {
		if err := t.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
	log.WithField("addr", listener.Addr().String()).Info("metrics endpoint started")
	return nil
}

func (t *Telemetry) Stop(ctx context.Context) error {
	var stopErr error
	if t.server != nil {
		stopErr = multierr.Append(stopErr, t.server.Shutdown(ctx))
	}
	if t.provider != nil {
		stopErr = multierr.Append(stopErr, t.provider.Shutdown(ctx))
	}
	if t.logger != nil {
		_ = t.logger.Sync()
	}
	return stopErr
}
