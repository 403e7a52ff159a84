package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/identity-service/identity-service/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// histogramCount returns the sample count of hv for the given labels, or 0.
func histogramCount(t *testing.T, hv *prometheus.HistogramVec, labels prometheus.Labels) uint64 {
	t.Helper()
	obs, err := hv.GetMetricWith(labels)
	if err != nil {
		t.Fatalf("GetMetricWith: %v", err)
	}
	var m dto.Metric
	if err := obs.(prometheus.Metric).Write(&m); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return m.GetHistogram().GetSampleCount()
}

func newMetricsRouter() *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/users/:userId", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/api/organisations", func(c *gin.Context) { c.Status(http.StatusCreated) })
	return r
}

func TestMetricsMiddleware_UsesRouteTemplate(t *testing.T) {
	r := newMetricsRouter()
	labels := prometheus.Labels{"method": "GET", "path": "/api/users/:userId", "status": "200"}
	before := telemetry.CounterValue(telemetry.HTTPRequestsTotal, labels)
	histBefore := histogramCount(t, telemetry.HTTPRequestDuration, prometheus.Labels{"method": "GET", "path": "/api/users/:userId"})

	for _, id := range []string{"a", "b", "c"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/"+id, nil))
	}

	if got := telemetry.CounterValue(telemetry.HTTPRequestsTotal, labels) - before; got != 3 {
		t.Errorf("counter delta = %v, want 3", got)
	}
	histAfter := histogramCount(t, telemetry.HTTPRequestDuration, prometheus.Labels{"method": "GET", "path": "/api/users/:userId"})
	if histAfter-histBefore != 3 {
		t.Errorf("histogram delta = %d, want 3", histAfter-histBefore)
	}
}

func TestMetricsMiddleware_NoRoute(t *testing.T) {
	r := newMetricsRouter()
	labels := prometheus.Labels{"method": "GET", "path": noRoute, "status": "404"}
	before := telemetry.CounterValue(telemetry.HTTPRequestsTotal, labels)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if got := telemetry.CounterValue(telemetry.HTTPRequestsTotal, labels) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}

func TestLoggerMiddleware_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggerMiddleware())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/health?token=secret", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	r.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	for _, want := range []string{`"msg":"http request"`, `"path":"/health"`, `"status":200`, `"request_id":"req-42"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line missing %s: %s", want, line)
		}
	}
	if strings.Contains(line, "secret") {
		t.Errorf("query string leaked into log: %s", line)
	}
}

func TestLoggerMiddleware_LevelFollowsStatus(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	r := gin.New()
	r.Use(LoggerMiddleware())
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/deny", func(c *gin.Context) { c.Status(http.StatusForbidden) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/deny", nil))

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"level":"WARN"`) {
		t.Errorf("unexpected levels: %s", out)
	}
}
