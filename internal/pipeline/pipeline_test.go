package pipeline

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vyrodovalexey/avaenvelope/internal/casing"
	"github.com/vyrodovalexey/avaenvelope/internal/envelope"
	"github.com/vyrodovalexey/avaenvelope/internal/normalize"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type note struct {
	Title     string
	CreatedAt string
	Version   int `json:"__v"`
}

const genericError = `{"error":"Internal Server Error","message":"An unexpected error occurred"}`

func serve(t *testing.T, p *Pipeline, h Handler, opts RouteOptions) *httptest.ResponseRecorder {
	t.Helper()

	router := gin.New()
	router.GET("/test", p.Handle(h, opts))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func returning(v any) Handler {
	return func(*gin.Context) (any, error) {
		return v, nil
	}
}

func TestHandle_Bodies(t *testing.T) {
	t.Parallel()

	page := envelope.PageResult[note]{
		Docs:        []note{{Title: "a", CreatedAt: "x", Version: 1}},
		TotalDocs:   3,
		Page:        1,
		TotalPages:  3,
		Limit:       1,
		HasNextPage: true,
	}

	tests := []struct {
		name     string
		value    any
		opts     RouteOptions
		wantBody string
	}{
		{
			name:     "flat map",
			value:    map[string]any{"ok": true, "userId": "u1"},
			opts:     DefaultRouteOptions(),
			wantBody: `{"ok":true,"user_id":"u1"}`,
		},
		{
			name:     "struct wrapped and normalized",
			value:    note{Title: "Hi", CreatedAt: "x", Version: 4},
			opts:     DefaultRouteOptions(),
			wantBody: `{"data":{"title":"Hi","created_at":"x"}}`,
		},
		{
			name:     "slice wrapped",
			value:    []note{{Title: "a"}, {Title: "b"}},
			opts:     DefaultRouteOptions(),
			wantBody: `{"data":[{"title":"a","created_at":""},{"title":"b","created_at":""}]}`,
		},
		{
			name:  "paginated and normalized",
			value: page,
			opts:  RouteOptions{Paginate: true, Envelope: true, Normalize: true},
			wantBody: `{"data":[{"title":"a","created_at":"x"}],"pagination":{"total":3,"current_page":1,` +
				`"total_page":3,"size":1,"has_next_page":true,"has_prev_page":false}}`,
		},
		{
			name:  "paginated without normalization",
			value: page,
			opts:  RouteOptions{Paginate: true, Envelope: true},
			wantBody: `{"data":[{"Title":"a","CreatedAt":"x","__v":1}],"pagination":{"total":3,"currentPage":1,` +
				`"totalPage":3,"size":1,"hasNextPage":true,"hasPrevPage":false}}`,
		},
		{
			name:     "normalize only",
			value:    map[string]any{"UserName": "ann", "__v": 0},
			opts:     RouteOptions{Normalize: true},
			wantBody: `{"user_name":"ann"}`,
		},
		{
			name:     "envelope only",
			value:    note{Title: "Hi"},
			opts:     RouteOptions{Envelope: true},
			wantBody: `{"data":{"Title":"Hi","CreatedAt":"","__v":0}}`,
		},
		{
			name:     "explicit null",
			value:    envelope.Null,
			opts:     DefaultRouteOptions(),
			wantBody: `null`,
		},
		{
			name:     "scalar",
			value:    "hello",
			opts:     DefaultRouteOptions(),
			wantBody: `"hello"`,
		},
		{
			name:     "number",
			value:    42,
			opts:     DefaultRouteOptions(),
			wantBody: `42`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			w := serve(t, New(), returning(tt.value), tt.opts)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestHandle_UndefinedWritesEmptyBody(t *testing.T) {
	t.Parallel()

	for _, opts := range []RouteOptions{
		DefaultRouteOptions(),
		{Paginate: true, Envelope: true, Normalize: true},
		{Envelope: true},
		{Normalize: true},
		{},
	} {
		w := serve(t, New(), returning(nil), opts)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "", w.Body.String())
		assert.NotEqual(t, "null", w.Body.String())
		assert.Equal(t, "text/plain; charset=utf-8", w.Header().Get("Content-Type"))
	}
}

func TestHandle_Errors(t *testing.T) {
	t.Parallel()

	cyclic := map[string]any{}
	cyclic["self"] = cyclic

	tests := []struct {
		name       string
		handler    Handler
		opts       RouteOptions
		wantStatus int
		wantBody   string
		wantLevel  zapcore.Level
	}{
		{
			name:       "missing payload",
			handler:    returning((*note)(nil)),
			opts:       DefaultRouteOptions(),
			wantStatus: http.StatusUnprocessableEntity,
			wantBody:   `{"error":"Unprocessable Entity","message":"The response data is missing"}`,
			wantLevel:  zapcore.WarnLevel,
		},
		{
			name:       "contract violation",
			handler:    returning(map[string]any{"docs": []any{1}, "total": 1}),
			opts:       RouteOptions{Paginate: true, Envelope: true, Normalize: true},
			wantStatus: http.StatusInternalServerError,
			wantBody:   genericError,
			wantLevel:  zapcore.ErrorLevel,
		},
		{
			name:       "unserializable result",
			handler:    returning(make(chan int)),
			opts:       DefaultRouteOptions(),
			wantStatus: http.StatusInternalServerError,
			wantBody:   genericError,
			wantLevel:  zapcore.ErrorLevel,
		},
		{
			name:       "depth exceeded",
			handler:    returning(cyclic),
			opts:       DefaultRouteOptions(),
			wantStatus: http.StatusInternalServerError,
			wantBody:   genericError,
			wantLevel:  zapcore.ErrorLevel,
		},
		{
			name: "handler client error",
			handler: func(*gin.Context) (any, error) {
				return nil, util.NewHTTPError(http.StatusNotFound, "note not found")
			},
			opts:       DefaultRouteOptions(),
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":"Not Found","message":"note not found"}`,
			wantLevel:  zapcore.WarnLevel,
		},
		{
			name: "handler internal error is not leaked",
			handler: func(*gin.Context) (any, error) {
				return nil, errors.New("connection refused: db-primary:27017")
			},
			opts:       DefaultRouteOptions(),
			wantStatus: http.StatusInternalServerError,
			wantBody:   genericError,
			wantLevel:  zapcore.ErrorLevel,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			core, logs := observer.New(zapcore.DebugLevel)
			p := New(WithLogger(observability.NewLoggerFromZap(zap.New(core))))

			w := serve(t, p, tt.handler, tt.opts)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
			assert.NotContains(t, w.Body.String(), "pagination")
			assert.NotContains(t, w.Body.String(), "db-primary")

			entries := logs.FilterLevelExact(tt.wantLevel).All()
			require.NotEmpty(t, entries)
			assert.Equal(t, "/test", entries[len(entries)-1].ContextMap()["path"])
		})
	}
}

func TestProcess_NoPartialResult(t *testing.T) {
	t.Parallel()

	p := New()
	out, err := p.Process(context.Background(), note{Title: "x"}, RouteOptions{Paginate: true, Envelope: true})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, util.ErrContractViolation))
}

func TestProcess_CustomNormalizer(t *testing.T) {
	t.Parallel()

	p := New(WithNormalizer(normalize.New(normalize.WithConvention(casing.Camel))))
	assert.Equal(t, casing.Camel, p.Normalizer().Convention())

	out, err := p.Process(context.Background(), map[string]any{"created_at": 1, "__v": 2}, RouteOptions{Normalize: true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"createdAt": 1}, out)
}

func TestProcess_NoStages(t *testing.T) {
	t.Parallel()

	value := note{Title: "raw"}
	out, err := New().Process(context.Background(), value, RouteOptions{})
	require.NoError(t, err)
	assert.Equal(t, value, out)
}

func TestProcess_NilWithoutEnvelope(t *testing.T) {
	t.Parallel()

	for _, opts := range []RouteOptions{{}, {Normalize: true}, {Paginate: true, Normalize: true}} {
		out, err := New().Process(context.Background(), nil, opts)
		require.NoError(t, err)
		assert.Equal(t, "", out)
	}
}

// TestPipeline_OTELSpans is not parallel because it replaces the global
// tracer provider.
func TestPipeline_OTELSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	oldTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	pipelineTracer = otel.Tracer(tracerName)
	defer func() {
		otel.SetTracerProvider(oldTP)
		pipelineTracer = otel.Tracer(tracerName)
	}()

	p := New()

	_, err := p.Process(context.Background(), note{Title: "x"}, DefaultRouteOptions())
	require.NoError(t, err)

	_, err = p.Process(context.Background(), "text", RouteOptions{Paginate: true, Envelope: true})
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	assert.Equal(t, "pipeline.envelope", spans[0].Name)
	attrs := make(map[string]any)
	for _, a := range spans[0].Attributes {
		attrs[string(a.Key)] = a.Value.AsInterface()
	}
	assert.Equal(t, "wrapped", attrs["envelope.kind"])
	assert.Equal(t, false, attrs["envelope.paginate"])

	assert.Equal(t, "pipeline.normalize", spans[1].Name)

	assert.Equal(t, "pipeline.envelope", spans[2].Name)
	assert.Equal(t, codes.Error, spans[2].Status.Code)
	assert.NotEmpty(t, spans[2].Events)
}

func TestMetrics(t *testing.T) {
	m := GetMetrics()
	assert.Same(t, m, GetMetrics())

	registry := prometheus.NewRegistry()
	m.MustRegister(registry)
	m.Init()

	before := testutil.ToFloat64(m.errorsTotal.WithLabelValues(StageEnvelope, "contract_violation"))
	beforeFlat := testutil.ToFloat64(m.stagesTotal.WithLabelValues(StageEnvelope, "flat"))

	p := New(WithMetrics(m))
	_, err := p.Process(context.Background(), 1, RouteOptions{Paginate: true, Envelope: true})
	require.Error(t, err)
	_, err = p.Process(context.Background(), map[string]any{"a": 1}, RouteOptions{Envelope: true})
	require.NoError(t, err)

	assert.Equal(t, before+1, testutil.ToFloat64(m.errorsTotal.WithLabelValues(StageEnvelope, "contract_violation")))
	assert.Equal(t, beforeFlat+1, testutil.ToFloat64(m.stagesTotal.WithLabelValues(StageEnvelope, "flat")))

	count, err := testutil.GatherAndCount(registry, "envelope_pipeline_stage_duration_seconds")
	require.NoError(t, err)
	assert.Positive(t, count)
}

func TestErrorType(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "missing_payload", errorType(util.NewPayloadError("map")))
	assert.Equal(t, "contract_violation", errorType(util.NewContractError("paginate", "int")))
	assert.Equal(t, "depth_exceeded", errorType(util.NewDepthError(3)))
	assert.Equal(t, "general", errorType(errors.New("boom")))
}
