package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avaenvelope/internal/observability"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func observedLogger() (observability.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return observability.NewLoggerFromZap(zap.New(core)), logs
}

func perform(router *gin.Engine, method, path string, body io.Reader, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestID(t *testing.T) {
	t.Parallel()

	var fromGin, fromContext string
	router := gin.New()
	router.Use(RequestID())
	router.GET("/id", func(c *gin.Context) {
		fromGin = GetRequestID(c)
		fromContext = observability.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	w := perform(router, http.MethodGet, "/id", nil, nil)
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, fromGin)
	assert.Equal(t, generated, fromContext)

	w = perform(router, http.MethodGet, "/id", nil, map[string]string{RequestIDHeader: "req-123"})
	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", fromGin)
}

func TestGetRequestID_Missing(t *testing.T) {
	t.Parallel()

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetRequestID(c))
	assert.Nil(t, GetSpan(c))
}

func TestLogging(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		path      string
		status    int
		wantLevel zapcore.Level
		wantLog   bool
	}{
		{name: "success is info", path: "/ok", status: http.StatusOK, wantLevel: zapcore.InfoLevel, wantLog: true},
		{name: "client error is warn", path: "/bad", status: http.StatusUnprocessableEntity, wantLevel: zapcore.WarnLevel, wantLog: true},
		{name: "server error is error", path: "/fail", status: http.StatusInternalServerError, wantLevel: zapcore.ErrorLevel, wantLog: true},
		{name: "health check skipped", path: "/healthz", status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			logger, logs := observedLogger()
			router := gin.New()
			router.Use(RequestID(), Logging(logger))
			router.GET(tt.path, func(c *gin.Context) {
				c.Status(tt.status)
			})

			perform(router, http.MethodGet, tt.path, nil, map[string]string{RequestIDHeader: "log-1"})

			entries := logs.FilterMessage("request completed").All()
			if !tt.wantLog {
				assert.Empty(t, entries)
				return
			}
			require.Len(t, entries, 1)
			assert.Equal(t, tt.wantLevel, entries[0].Level)

			fields := entries[0].ContextMap()
			assert.Equal(t, tt.path, fields["path"])
			assert.Equal(t, int64(tt.status), fields["status"])
			assert.Equal(t, "log-1", fields["request_id"])
		})
	}
}

func TestLoggingWithConfig_SkipPaths(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	router := gin.New()
	router.Use(LoggingWithConfig(LoggingConfig{Logger: logger, SkipPaths: []string{"/quiet"}}))
	router.GET("/quiet", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodGet, "/quiet", nil, nil)
	assert.Zero(t, logs.Len())

	perform(router, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, 1, logs.Len(), "health checks are logged unless skipped")
}

func TestRecovery(t *testing.T) {
	t.Parallel()

	logger, logs := observedLogger()
	router := gin.New()
	router.Use(Recovery(logger))
	router.GET("/panic", func(*gin.Context) {
		panic("boom")
	})

	w := perform(router, http.MethodGet, "/panic", nil, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error","message":"An unexpected error occurred"}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "boom")
	require.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
}

func TestTracing(t *testing.T) {
	t.Parallel()

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	var traceID string
	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{
		TracerProvider: tp,
		ServiceName:    "test",
		SkipPaths:      []string{"/healthz"},
	}))
	router.GET("/items/:id", func(c *gin.Context) {
		traceID = observability.TraceIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})
	router.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodGet, "/items/7", nil, nil)
	perform(router, http.MethodGet, "/broken", nil, nil)
	perform(router, http.MethodGet, "/healthz", nil, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	assert.Equal(t, "GET /items/:id", spans[0].Name)
	assert.Equal(t, spans[0].SpanContext.TraceID().String(), traceID)
	attrs := make(map[string]any)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	assert.Equal(t, int64(http.StatusOK), attrs["http.status_code"])
	assert.Equal(t, "/items/:id", attrs["http.route"])
	assert.Contains(t, attrs, "request.id")

	assert.Equal(t, "GET /broken", spans[1].Name)
	assert.Equal(t, codes.Error, spans[1].Status.Code)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	m := observability.NewMetrics("mwtest")
	router := gin.New()
	router.Use(Metrics(m))
	router.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })

	perform(router, http.MethodGet, "/items/1", nil, nil)
	perform(router, http.MethodGet, "/items/2", nil, nil)
	perform(router, http.MethodGet, "/nowhere", nil, nil)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	counts := make(map[string]float64)
	for _, family := range families {
		if family.GetName() != "mwtest_http_requests_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := make(map[string]string)
			for _, l := range metric.GetLabel() {
				labels[l.GetName()] = l.GetValue()
			}
			counts[labels["route"]+" "+labels["status"]] = metric.GetCounter().GetValue()
		}
	}

	assert.Equal(t, float64(2), counts["/items/:id 200"])
	assert.Equal(t, float64(1), counts["unmatched 404"])
}

func TestBodyLimit(t *testing.T) {
	t.Parallel()

	router := gin.New()
	router.Use(BodyLimit(8))
	router.POST("/upload", func(c *gin.Context) {
		data, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.String(http.StatusOK, string(data))
	})

	w := perform(router, http.MethodPost, "/upload", strings.NewReader("small"), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "small", w.Body.String())

	w = perform(router, http.MethodPost, "/upload", strings.NewReader("far too large"), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
