package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/matheus3301/hookchat/internal/webhook"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestSplitFullMethod(t *testing.T) {
	svc, method := splitFullMethod("/hookchat.v1.ChatService/SendText")
	assert.Equal(t, "hookchat.v1.ChatService", svc)
	assert.Equal(t, "SendText", method)

	svc, method = splitFullMethod("bogus")
	assert.Equal(t, "unknown", svc)
	assert.Equal(t, "unknown", method)
}

func TestSyncMetrics(t *testing.T) {
	okBefore := testutil.ToFloat64(sendsTotal.WithLabelValues("ok"))
	remoteBefore := testutil.ToFloat64(sendsTotal.WithLabelValues("remote"))
	mergedBefore := testutil.ToFloat64(inboundMergedTotal)

	var m SyncMetrics
	m.SendResult(webhook.FailureNone)
	m.SendResult(webhook.FailureRemote)
	m.PollTick(3)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(sendsTotal.WithLabelValues("ok")))
	assert.Equal(t, remoteBefore+1, testutil.ToFloat64(sendsTotal.WithLabelValues("remote")))
	assert.Equal(t, mergedBefore+3, testutil.ToFloat64(inboundMergedTotal))
}

func TestHTTPMetricsMiddlewareUsesRouteTemplate(t *testing.T) {
	r := mux.NewRouter()
	r.Use(HTTPMetricsMiddleware())
	r.HandleFunc("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	counter := httpRequestsTotal.WithLabelValues(http.MethodGet, "/items/{id}", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestIPFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", IPFromRequest(req))

	req.Header.Set("X-Forwarded-For", "1.2.3.4, 10.0.0.1")
	assert.Equal(t, "1.2.3.4", IPFromRequest(req))
}
