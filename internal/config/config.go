package config

import (
	"net/http"
	"time"
)

// Config is the root configuration of the envelope server.
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing" json:"tracing"`
	Response ResponseConfig `yaml:"response" json:"response"`
	Routes   []RouteConfig  `yaml:"routes" json:"routes"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Address         string   `yaml:"address" json:"address"`
	Port            int      `yaml:"port" json:"port"`
	ReadTimeout     Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout     Duration `yaml:"idleTimeout" json:"idleTimeout"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout" json:"shutdownTimeout"`

	// MaxBodySize limits request bodies in bytes. Zero disables the limit.
	MaxBodySize int64 `yaml:"maxBodySize" json:"maxBodySize"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	Path      string `yaml:"path" json:"path"`
	Namespace string `yaml:"namespace" json:"namespace"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
	Insecure     bool    `yaml:"insecure" json:"insecure"`
}

// ResponseConfig configures the response stages.
type ResponseConfig struct {
	// Casing is the external key convention: snake, camel, kebab or none.
	Casing string `yaml:"casing" json:"casing"`

	// ReservedField is the internal name of the field stripped from every
	// response object.
	ReservedField string `yaml:"reservedField" json:"reservedField"`

	// MaxDepth bounds the nesting of response trees. Zero disables the
	// limit.
	MaxDepth int `yaml:"maxDepth" json:"maxDepth"`
}

// RouteConfig declares a route served from a fixture file.
type RouteConfig struct {
	Path     string `yaml:"path" json:"path"`
	Method   string `yaml:"method,omitempty" json:"method,omitempty"`
	File     string `yaml:"file" json:"file"`
	Paginate bool   `yaml:"paginate,omitempty" json:"paginate,omitempty"`

	// Envelope and Normalize default to true when omitted.
	Envelope  *bool `yaml:"envelope,omitempty" json:"envelope,omitempty"`
	Normalize *bool `yaml:"normalize,omitempty" json:"normalize,omitempty"`
}

// Default values.
const (
	DefaultAddress         = "0.0.0.0"
	DefaultPort            = 8080
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMaxBodySize     = 1 << 20 // 1MB
	DefaultMetricsPath     = "/metrics"
	DefaultNamespace       = "envelope"
	DefaultServiceName     = "envelope-server"
	DefaultCasing          = "snake"
	DefaultReservedField   = "__v"
	DefaultMaxDepth        = 1024
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         DefaultAddress,
			Port:            DefaultPort,
			ReadTimeout:     Duration(DefaultReadTimeout),
			WriteTimeout:    Duration(DefaultWriteTimeout),
			IdleTimeout:     Duration(DefaultIdleTimeout),
			ShutdownTimeout: Duration(DefaultShutdownTimeout),
			MaxBodySize:     DefaultMaxBodySize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Path:      DefaultMetricsPath,
			Namespace: DefaultNamespace,
		},
		Tracing: TracingConfig{
			ServiceName:  DefaultServiceName,
			SamplingRate: 1.0,
		},
		Response: ResponseConfig{
			Casing:        DefaultCasing,
			ReservedField: DefaultReservedField,
			MaxDepth:      DefaultMaxDepth,
		},
	}
}

// HTTPMethod returns the route method, GET when omitted.
func (r RouteConfig) HTTPMethod() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}

// EnvelopeEnabled reports whether the envelope stage runs for the route.
func (r RouteConfig) EnvelopeEnabled() bool {
	return r.Envelope == nil || *r.Envelope
}

// NormalizeEnabled reports whether the normalization stage runs for the
// route.
func (r RouteConfig) NormalizeEnabled() bool {
	return r.Normalize == nil || *r.Normalize
}
