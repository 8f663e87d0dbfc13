package pipeline

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaenvelope/internal/envelope"
	"github.com/vyrodovalexey/avaenvelope/internal/normalize"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

const tracerName = "avaenvelope/pipeline"

var pipelineTracer = otel.Tracer(tracerName)

// Handler produces the raw response value of a route. Returning nil means
// the handler produced nothing and yields an empty body.
type Handler func(c *gin.Context) (any, error)

// RouteOptions selects the stages applied to a route's result.
type RouteOptions struct {
	// Paginate requires the result to implement envelope.Paginated.
	Paginate bool

	// Envelope runs the envelope stage.
	Envelope bool

	// Normalize runs the normalization stage.
	Normalize bool
}

// DefaultRouteOptions returns the options used by most routes: enveloped
// and normalized, without pagination.
func DefaultRouteOptions() RouteOptions {
	return RouteOptions{
		Envelope:  true,
		Normalize: true,
	}
}

// ErrorResponse is the body written for failed requests.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Option is a functional option for configuring the Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for the pipeline.
func WithLogger(logger observability.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithNormalizer sets the normalizer used by the normalization stage.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Pipeline) {
		p.normalizer = n
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline runs handler results through the response stages.
type Pipeline struct {
	logger     observability.Logger
	normalizer *normalize.Normalizer
	metrics    *Metrics
}

// New creates a new Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = observability.NopLogger()
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(normalize.WithLogger(p.logger))
	}
	if p.metrics == nil {
		p.metrics = GetMetrics()
	}

	return p
}

// Normalizer returns the normalizer of the pipeline.
func (p *Pipeline) Normalizer() *normalize.Normalizer {
	return p.normalizer
}

// Handle returns a gin handler that runs h and writes its processed result.
func (p *Pipeline) Handle(h Handler, opts RouteOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := h(c)
		if err != nil {
			p.fail(c, err)
			return
		}

		out, err := p.Process(c.Request.Context(), value, opts)
		if err != nil {
			p.fail(c, err)
			return
		}

		write(c, out)
	}
}

// Process runs the stages selected by opts on value. It never returns a
// partially built body together with an error. A nil value yields the empty
// body whichever stages run.
func (p *Pipeline) Process(ctx context.Context, value any, opts RouteOptions) (any, error) {
	out := value
	if value == nil && !opts.Envelope {
		out = ""
	}

	if opts.Envelope {
		var err error
		out, err = p.envelope(ctx, out, opts.Paginate)
		if err != nil {
			return nil, err
		}
	}

	if opts.Normalize {
		var err error
		out, err = p.normalize(ctx, out)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (p *Pipeline) envelope(ctx context.Context, value any, paginate bool) (any, error) {
	kind := envelope.Classify(value)
	if paginate && kind != envelope.KindUndefined {
		kind = envelope.KindPage
	}

	_, span := pipelineTracer.Start(ctx, "pipeline.envelope",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.Bool("envelope.paginate", paginate),
			attribute.String("envelope.kind", kind.String()),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := envelope.Transform(value, paginate)
	if err != nil {
		p.recordFailure(span, StageEnvelope, err, start)
		return nil, err
	}

	p.metrics.RecordStage(StageEnvelope, kind.String(), time.Since(start))
	return out, nil
}

func (p *Pipeline) normalize(ctx context.Context, value any) (any, error) {
	_, span := pipelineTracer.Start(ctx, "pipeline.normalize",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("normalize.convention", string(p.normalizer.Convention())),
		),
	)
	defer span.End()

	start := time.Now()
	out, err := p.normalizer.Normalize(value)
	if err != nil {
		p.recordFailure(span, StageNormalize, err, start)
		return nil, err
	}

	p.metrics.RecordStage(StageNormalize, "success", time.Since(start))
	return out, nil
}

func (p *Pipeline) recordFailure(span trace.Span, stage string, err error, start time.Time) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	p.metrics.RecordStage(stage, "error", time.Since(start))
	p.metrics.RecordError(stage, errorType(err))
}

// fail writes the error response for err. Server errors never expose the
// cause to the client.
func (p *Pipeline) fail(c *gin.Context, err error) {
	status := util.StatusCode(err)
	_ = c.Error(err)

	logger := p.logger.WithContext(c.Request.Context())
	fields := []observability.Field{
		observability.String("method", c.Request.Method),
		observability.String("path", c.Request.URL.Path),
		observability.Int("status", status),
		observability.String("error_type", errorType(err)),
		observability.Error(err),
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: util.PublicMessage(err),
	})
}

// write serializes the processed result. The empty string is written as an
// empty body, never as a JSON string.
func write(c *gin.Context, out any) {
	if s, ok := out.(string); ok && s == "" {
		c.Data(http.StatusOK, "text/plain; charset=utf-8", nil)
		return
	}
	c.JSON(http.StatusOK, out)
}

func errorType(err error) string {
	switch {
	case errors.Is(err, util.ErrMissingPayload):
		return "missing_payload"
	case errors.Is(err, util.ErrContractViolation):
		return "contract_violation"
	case errors.Is(err, util.ErrDepthExceeded):
		return "depth_exceeded"
	default:
		return "general"
	}
}
