// Package config provides configuration types and loading for the envelope
// server.
//
// # Features
//
//   - YAML configuration file loading on top of defaults
//   - Environment variable substitution with ${VAR:-default} syntax
//   - Validation with field-level error reporting
//   - File watching for hot-reload of the route table
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfig("envelope.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := config.ValidateConfig(cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// # File Watching
//
//	watcher, err := config.NewWatcher(path, func(cfg *config.Config) {
//	    // apply the new routes
//	}, config.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = watcher.Start(ctx)
package config
