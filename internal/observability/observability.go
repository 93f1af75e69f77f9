package observability

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/propagation"
	otelmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total requests by service, endpoint, method, and status.",
		},
		[]string{"service", "endpoint", "method", "status"},
	)
	scanCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switcher_scans_total",
			Help: "Discovery scans by outcome.",
		},
		[]string{"outcome"},
	)
	commandCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "switcher_breeze_commands_total",
			Help: "Breeze thermostat commands by outcome.",
		},
		[]string{"outcome"},
	)
	devicesSeen = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "switcher_devices_seen_total",
			Help: "Device announcements delivered to scan consumers.",
		},
	)
)

func init() {
	prometheus.MustRegister(requestCounter, scanCounter, commandCounter, devicesSeen)
}

// RecordScan counts one finished discovery scan.
func RecordScan(outcome string) {
	scanCounter.WithLabelValues(outcome).Inc()
}

// RecordBreezeCommand counts one finished thermostat command.
func RecordBreezeCommand(outcome string) {
	commandCounter.WithLabelValues(outcome).Inc()
}

// RecordDeviceSeen counts one announcement handed to a consumer.
func RecordDeviceSeen() {
	devicesSeen.Inc()
}

func SetupObservability(serviceName string) (shutdown func(), promHandler http.Handler, tracer oteltrace.Tracer) {
	propagator := propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{})
	otel.SetTextMapPropagator(propagator)

	promExporter, err := otelprom.New()
	if err != nil {
		slog.Error("failed to create prometheus exporter", "error", err)
		os.Exit(1)
	}
	meterProvider := otelmetric.NewMeterProvider(otelmetric.WithReader(promExporter))
	otel.SetMeterProvider(meterProvider)

	res, err := resource.New(context.Background(), resource.WithAttributes(attribute.String("service.name", serviceName)))
	if err != nil {
		slog.Error("failed to create otel resource", "error", err)
		os.Exit(1)
	}

	otlpURL := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	var tp *trace.TracerProvider
	if otlpURL != "" {
		exp, err := otlptracehttp.New(context.Background(), otlptracehttp.WithEndpointURL(otlpURL))
		if err != nil {
			slog.Error("failed to create otlp exporter", "error", err)
			os.Exit(1)
		}
		tp = trace.NewTracerProvider(trace.WithBatcher(exp), trace.WithResource(res))
	} else {
		tp = trace.NewTracerProvider(trace.WithResource(res))
	}
	otel.SetTracerProvider(tp)

	shutdown = func() { _ = tp.Shutdown(context.Background()) }
	promHandler = promhttp.Handler()
	tracer = otel.Tracer(serviceName)
	return shutdown, promHandler, tracer
}

func MetricsAndTracingMiddleware(tracer oteltrace.Tracer, serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			endpoint := r.URL.Path
			method := r.Method
			ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			// chi's wrapper keeps Hijacker/Flusher passthroughs intact, so
			// websocket upgrades survive the middleware.
			rw := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			ctx, span := tracer.Start(ctx, method+" "+endpoint)
			span.SetAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", endpoint),
				attribute.String("service.name", serviceName),
			)
			if rid := middleware.GetReqID(ctx); rid != "" {
				span.SetAttributes(attribute.String("http.request_id", rid))
			}
			w.Header().Set("Trace-ID", span.SpanContext().TraceID().String())

			next.ServeHTTP(rw, r.WithContext(ctx))

			status := rw.Status()
			if status == 0 {
				// Hijacked connections never write a status; the upgrade
				// handshake reported 101.
				status = http.StatusSwitchingProtocols
			}
			span.SetAttributes(attribute.Int("http.status_code", status))
			requestCounter.WithLabelValues(serviceName, endpoint, method, strconv.Itoa(status)).Inc()
			span.End()
		})
	}
}
