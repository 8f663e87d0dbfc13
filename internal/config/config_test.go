package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()

	assert.Equal(t, DefaultAddress, cfg.Server.Address)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout.Duration())
	assert.Equal(t, 15*time.Second, cfg.Server.ShutdownTimeout.Duration())
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodySize)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Equal(t, "snake", cfg.Response.Casing)
	assert.Equal(t, "__v", cfg.Response.ReservedField)
	assert.Equal(t, 1024, cfg.Response.MaxDepth)
	assert.Empty(t, cfg.Routes)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestRouteConfig_Defaults(t *testing.T) {
	t.Parallel()

	enabled, disabled := true, false

	tests := []struct {
		name          string
		route         RouteConfig
		wantMethod    string
		wantEnvelope  bool
		wantNormalize bool
	}{
		{
			name:          "omitted flags",
			route:         RouteConfig{Path: "/notes"},
			wantMethod:    http.MethodGet,
			wantEnvelope:  true,
			wantNormalize: true,
		},
		{
			name:          "explicit flags",
			route:         RouteConfig{Path: "/raw", Method: http.MethodPost, Envelope: &disabled, Normalize: &enabled},
			wantMethod:    http.MethodPost,
			wantEnvelope:  false,
			wantNormalize: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.wantMethod, tt.route.HTTPMethod())
			assert.Equal(t, tt.wantEnvelope, tt.route.EnvelopeEnabled())
			assert.Equal(t, tt.wantNormalize, tt.route.NormalizeEnabled())
		})
	}
}
