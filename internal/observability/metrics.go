package observability

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/matheus3301/hookchat/internal/webhook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookchat_http_requests_total",
			Help: "Total number of HTTP requests processed by the relay.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hookchat_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	relayForwardTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookchat_relay_forward_total",
			Help: "Total number of relay forwards by outcome.",
		},
		[]string{"outcome"},
	)
	grpcServerHandledTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grpc_server_handled_total",
			Help: "Total number of gRPC requests handled by the server.",
		},
		[]string{"grpc_service", "grpc_method", "grpc_code"},
	)
	sendsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hookchat_sends_total",
			Help: "Total number of outbound messages by transport result.",
		},
		[]string{"result"},
	)
	pollTicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookchat_poll_ticks_total",
			Help: "Total number of poll ticks.",
		},
	)
	inboundMergedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hookchat_inbound_merged_total",
			Help: "Total number of inbound messages merged into local state.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		relayForwardTotal,
		grpcServerHandledTotal,
		sendsTotal,
		pollTicksTotal,
		inboundMergedTotal,
	)
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func HTTPMetricsMiddleware() mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			route := r.URL.Path
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					route = tpl
				}
			}
			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		})
	}
}

func GRPCServerMetricsUnaryInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		resp, err := handler(ctx, req)
		statusInfo := status.Convert(err)
		service, method := splitFullMethod(info.FullMethod)
		grpcServerHandledTotal.WithLabelValues(service, method, statusInfo.Code().String()).Inc()
		return resp, err
	}
}

func splitFullMethod(fullMethod string) (string, string) {
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 3 {
		return "unknown", "unknown"
	}
	return parts[1], parts[2]
}

func IncRelayForward(outcome string) {
	relayForwardTotal.WithLabelValues(outcome).Inc()
}

// SyncMetrics records synchronizer outcomes.
type SyncMetrics struct{}

func (SyncMetrics) SendResult(kind webhook.FailureKind) {
	result := string(kind)
	if kind == webhook.FailureNone {
		result = "ok"
	}
	sendsTotal.WithLabelValues(result).Inc()
}

func (SyncMetrics) PollTick(merged int) {
	pollTicksTotal.Inc()
	inboundMergedTotal.Add(float64(merged))
}
