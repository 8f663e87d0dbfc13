package main

import (
	"context"
	"fmt"

	"github.com/vyrodovalexey/avaenvelope/internal/casing"
	"github.com/vyrodovalexey/avaenvelope/internal/config"
	"github.com/vyrodovalexey/avaenvelope/internal/fixture"
	"github.com/vyrodovalexey/avaenvelope/internal/health"
	"github.com/vyrodovalexey/avaenvelope/internal/normalize"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/pipeline"
	"github.com/vyrodovalexey/avaenvelope/internal/server"
)

// application holds all application components.
type application struct {
	server   *server.Server
	pipeline *pipeline.Pipeline
	router   *fixture.Router
	health   *health.Checker
	metrics  *observability.Metrics
	tracer   *observability.Tracer
	config   *config.Config
	logger   observability.Logger
}

// initApplication initializes all application components.
func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := initMetrics(cfg)

	tracer, err := observability.NewTracer(context.Background(), observability.TracerConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
		Insecure:       cfg.Tracing.Insecure,
		Enabled:        cfg.Tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	normalizer, err := newNormalizer(cfg.Response, logger)
	if err != nil {
		return nil, err
	}

	pipe := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithNormalizer(normalizer),
		pipeline.WithMetrics(pipeline.GetMetrics()),
	)

	table, err := fixture.BuildTable(cfg.Routes)
	if err != nil {
		return nil, fmt.Errorf("failed to load fixture routes: %w", err)
	}
	router := fixture.NewRouter(pipe, table, fixture.WithLogger(logger))

	checker := health.NewChecker(version)
	checker.RegisterCheck("fixtures", fixtureCheck(router))

	srv := server.New(serverConfig(cfg),
		server.WithLogger(logger),
		server.WithMetrics(metrics),
		server.WithHealthChecker(checker),
	)
	srv.Engine().Use(pipe.DecodeRequestKeys())
	srv.Engine().NoRoute(router.Handler())

	return &application{
		server:   srv,
		pipeline: pipe,
		router:   router,
		health:   checker,
		metrics:  metrics,
		tracer:   tracer,
		config:   cfg,
		logger:   logger,
	}, nil
}

// fixtureCheck reports a degraded service while no fixture route is
// loaded.
func fixtureCheck(router *fixture.Router) health.CheckFunc {
	return func() health.Check {
		if router.Table().Len() == 0 {
			return health.Check{Status: health.StatusDegraded, Message: "no fixture routes loaded"}
		}
		return health.Check{Status: health.StatusHealthy}
	}
}

// initMetrics creates the metrics registry with the pipeline collectors
// attached. It returns nil when metrics are disabled.
func initMetrics(cfg *config.Config) *observability.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}

	metrics := observability.NewMetrics(cfg.Metrics.Namespace)
	metrics.SetBuildInfo(version, gitCommit, buildTime)

	stageMetrics := pipeline.GetMetrics()
	stageMetrics.MustRegister(metrics.Registry())
	stageMetrics.Init()

	return metrics
}

// newNormalizer builds the normalizer from the response settings.
func newNormalizer(cfg config.ResponseConfig, logger observability.Logger) (*normalize.Normalizer, error) {
	convention, err := casing.ParseConvention(cfg.Casing)
	if err != nil {
		return nil, fmt.Errorf("invalid response casing: %w", err)
	}

	return normalize.New(
		normalize.WithConvention(convention),
		normalize.WithReservedField(cfg.ReservedField),
		normalize.WithMaxDepth(cfg.MaxDepth),
		normalize.WithLogger(logger),
	), nil
}

// serverConfig maps the server section of the configuration.
func serverConfig(cfg *config.Config) server.Config {
	srvCfg := server.DefaultConfig()
	srvCfg.Address = cfg.Server.Address
	srvCfg.Port = cfg.Server.Port
	srvCfg.ReadTimeout = cfg.Server.ReadTimeout.Duration()
	srvCfg.WriteTimeout = cfg.Server.WriteTimeout.Duration()
	srvCfg.IdleTimeout = cfg.Server.IdleTimeout.Duration()
	srvCfg.MaxBodySize = cfg.Server.MaxBodySize
	srvCfg.MetricsPath = cfg.Metrics.Path
	srvCfg.ServiceName = cfg.Tracing.ServiceName
	return srvCfg
}

// reload applies a changed configuration. Fixture routes are swapped in
// place. Other sections are compared with the startup configuration and
// need a restart.
func (app *application) reload(newCfg *config.Config) {
	app.logger.Info("configuration changed, reloading")

	if err := app.router.Reload(newCfg.Routes); err != nil {
		return
	}

	if app.config.Response != newCfg.Response {
		app.logger.Warn("response settings changed, restart to apply")
	}
	if app.config.Server != newCfg.Server ||
		app.config.Metrics != newCfg.Metrics ||
		app.config.Tracing != newCfg.Tracing {
		app.logger.Warn("server or observability settings changed, restart to apply")
	}
}
