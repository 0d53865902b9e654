// Package relay implements the HTTP service that forwards webhook calls
// verbatim to a configured remote URL.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/matheus3301/hookchat/internal/observability"
	"github.com/rs/cors"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 30 * time.Second
	maxBodyBytes   = 1 << 20

	WebhookPath = "/api/relay/webhook"
)

var availableRoutes = []string{
	"GET /",
	"GET /health",
	"POST " + WebhookPath,
	"GET /metrics",
}

// Handler holds relay dependencies
type Handler struct {
	Config Config
	Client *http.Client
	Logger *zap.Logger
	Now    func() time.Time
}

// New creates a new Handler with the given configuration
func New(cfg Config, logger *zap.Logger) *Handler {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Config: cfg,
		Client: &http.Client{},
		Logger: logger.Named("relay"),
		Now:    time.Now,
	}
}

// SetupRouter configures and returns the HTTP router
func (h *Handler) SetupRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.Use(observability.HTTPMetricsMiddleware())

	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc(WebhookPath, h.Forward).Methods("POST")
	r.Handle("/metrics", observability.Handler()).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)
	return r
}

// HTTPHandler returns the router wrapped with CORS handling.
func (h *Handler) HTTPHandler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: h.Config.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	})
	return c.Handler(h.SetupRouter())
}

// Root lists the relay's capabilities.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "Relay server is running",
		"endpoints": map[string]string{
			"health":  "GET /health",
			"relay":   "POST " + WebhookPath,
			"metrics": "GET /metrics",
		},
		"timestamp": h.timestamp(),
	})
}

// Health reports liveness and whether a target URL is configured.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	target := "configured"
	if h.Config.TargetURL == "" {
		target = "missing"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": h.timestamp(),
		"targetUrl": target,
	})
}

// Forward posts the request body to the target URL and copies the target's
// status and body back unchanged.
func (h *Handler) Forward(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{
				"error":   "Payload too large",
				"message": err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body", "message": err.Error()})
		return
	}
	if !json.Valid(body) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error":   "Invalid request body",
			"message": "body must be valid JSON",
		})
		return
	}

	if h.Config.TargetURL == "" {
		h.Logger.Error("relay target not configured")
		observability.IncRelayForward("misconfigured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Proxy error",
			"message": "RELAY_TARGET_URL not configured",
		})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.Config.TargetURL, bytes.NewReader(body))
	if err != nil {
		observability.IncRelayForward("misconfigured")
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Proxy error",
			"message": err.Error(),
		})
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.Client.Do(req)
	if err != nil {
		h.Logger.Warn("relay target unreachable", zap.Error(err))
		observability.IncRelayForward("unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "Service unavailable",
			"message": "Could not reach remote server",
			"details": err.Error(),
		})
		return
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		observability.IncRelayForward("unreachable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error":   "Service unavailable",
			"message": "Could not read remote response",
			"details": err.Error(),
		})
		return
	}

	outcome := "ok"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "remote_error"
	}
	observability.IncRelayForward(outcome)
	h.Logger.Info("relayed",
		zap.Int("status", resp.StatusCode),
		zap.Int("request_bytes", len(body)),
		zap.Int("response_bytes", len(respBody)))

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	w.Header().Set("Content-Type", ct)
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(respBody)
}

// NotFound answers unmatched routes with the list of available routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("route not found", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	writeJSON(w, http.StatusNotFound, map[string]any{
		"error":           "Not found",
		"message":         "Route " + r.Method + " " + r.URL.Path + " does not exist",
		"availableRoutes": availableRoutes,
	})
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		h.Logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.String("ip", observability.IPFromRequest(r)),
			zap.String("request_id", observability.RequestIDFromRequest(r)),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *Handler) timestamp() string {
	return h.Now().UTC().Format(time.RFC3339)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
