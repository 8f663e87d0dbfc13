package config

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/vyrodovalexey/avaenvelope/internal/casing"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodPatch:  true,
	http.MethodDelete: true,
}

// Validator validates the server configuration.
type Validator struct {
	errors *util.ValidationError
}

// NewValidator creates a new configuration validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateConfig validates a configuration.
func ValidateConfig(config *Config) error {
	return NewValidator().Validate(config)
}

// Validate validates the configuration. All problems are reported in one
// *util.ValidationError.
func (v *Validator) Validate(config *Config) error {
	v.errors = util.NewValidationError("invalid configuration")

	if config == nil {
		v.addError("", "configuration is nil")
		return v.errors
	}

	v.validateServer(&config.Server)
	v.validateLogging(&config.Logging)
	v.validateMetrics(&config.Metrics)
	v.validateTracing(&config.Tracing)
	v.validateResponse(&config.Response)
	v.validateRoutes(config.Routes)

	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}

func (v *Validator) validateServer(server *ServerConfig) {
	if err := util.ValidatePort(server.Port); err != nil {
		v.addError("server.port", err.Error())
	}

	durations := map[string]Duration{
		"server.readTimeout":     server.ReadTimeout,
		"server.writeTimeout":    server.WriteTimeout,
		"server.idleTimeout":     server.IdleTimeout,
		"server.shutdownTimeout": server.ShutdownTimeout,
	}
	for field, d := range durations {
		if err := util.ValidateDuration(d.Duration()); err != nil {
			v.addError(field, err.Error())
		}
	}

	if server.MaxBodySize < 0 {
		v.addError("server.maxBodySize", "maxBodySize cannot be negative")
	}
}

func (v *Validator) validateLogging(logging *LoggingConfig) {
	if _, err := observability.ParseLevel(logging.Level); err != nil {
		v.addError("logging.level", fmt.Sprintf("unknown log level %q", logging.Level))
	}
	switch logging.Format {
	case "json", "console":
	default:
		v.addError("logging.format", "format must be 'json' or 'console'")
	}
}

func (v *Validator) validateMetrics(metrics *MetricsConfig) {
	if !metrics.Enabled {
		return
	}
	if !strings.HasPrefix(metrics.Path, "/") {
		v.addError("metrics.path", "path must start with '/'")
	}
	if metrics.Namespace == "" {
		v.addError("metrics.namespace", "namespace is required")
	}
}

func (v *Validator) validateTracing(tracing *TracingConfig) {
	if tracing.SamplingRate < 0 || tracing.SamplingRate > 1 {
		v.addError("tracing.samplingRate", "samplingRate must be between 0 and 1")
	}
	if tracing.Enabled && tracing.ServiceName == "" {
		v.addError("tracing.serviceName", "serviceName is required when tracing is enabled")
	}
}

func (v *Validator) validateResponse(response *ResponseConfig) {
	if _, err := casing.ParseConvention(response.Casing); err != nil {
		v.addError("response.casing", err.Error())
	}
	if strings.TrimSpace(response.ReservedField) == "" {
		v.addError("response.reservedField", "reservedField is required")
	}
	if response.MaxDepth < 0 {
		v.addError("response.maxDepth", "maxDepth cannot be negative")
	}
}

func (v *Validator) validateRoutes(routes []RouteConfig) {
	seen := make(map[string]int, len(routes))

	for i, route := range routes {
		prefix := fmt.Sprintf("routes[%d]", i)

		if err := util.ValidateRoutePath(route.Path); err != nil {
			v.addError(prefix+".path", err.Error())
		}

		method := route.HTTPMethod()
		if !allowedMethods[method] {
			v.addError(prefix+".method", fmt.Sprintf("unsupported method %q", route.Method))
		}

		if route.File == "" {
			v.addError(prefix+".file", "file is required")
		}

		if route.Paginate && !route.EnvelopeEnabled() {
			v.addError(prefix+".paginate", "paginate requires envelope")
		}

		key := method + " " + route.Path
		if first, ok := seen[key]; ok {
			v.addError(prefix, fmt.Sprintf("duplicate route %s, first declared at routes[%d]", key, first))
			continue
		}
		seen[key] = i
	}
}

func (v *Validator) addError(field, message string) {
	if field == "" {
		field = "config"
	}
	v.errors.AddField(field, message)
}
