// Package fixture serves documents from YAML or JSON files through the
// response pipeline.
//
// Routes are declared in the service configuration. Each route file is
// loaded once into a Table; the Router dispatches requests against the
// current table, which the configuration watcher swaps atomically on
// reload. Paginated routes slice a list document with Paginate, driven by
// the page and size query parameters.
package fixture
