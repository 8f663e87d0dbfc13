package fixture

import (
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/avaenvelope/internal/config"
	"github.com/vyrodovalexey/avaenvelope/internal/observability"
	"github.com/vyrodovalexey/avaenvelope/internal/pipeline"
	"github.com/vyrodovalexey/avaenvelope/internal/server/middleware"
	"github.com/vyrodovalexey/avaenvelope/internal/util"
)

// Query parameters of paginated routes.
const (
	PageParam = "page"
	SizeParam = "size"
)

// Route is a loaded fixture route.
type Route struct {
	Method  string
	Path    string
	File    string
	Options pipeline.RouteOptions
	Data    any
}

// Table is an immutable set of routes keyed by method and path.
type Table struct {
	routes map[string]*Route
}

// BuildTable loads the file of every configured route. Paginated routes
// must hold a list document.
func BuildTable(routes []config.RouteConfig) (*Table, error) {
	t := &Table{routes: make(map[string]*Route, len(routes))}

	for i, rc := range routes {
		data, err := Load(rc.File)
		if err != nil {
			return nil, fmt.Errorf("routes[%d]: %w", i, err)
		}

		if rc.Paginate {
			if _, ok := data.([]any); !ok {
				return nil, fmt.Errorf("routes[%d]: paginated fixture %s is not a list", i, rc.File)
			}
		}

		route := &Route{
			Method: rc.HTTPMethod(),
			Path:   rc.Path,
			File:   rc.File,
			Options: pipeline.RouteOptions{
				Paginate:  rc.Paginate,
				Envelope:  rc.EnvelopeEnabled(),
				Normalize: rc.NormalizeEnabled(),
			},
			Data: data,
		}
		t.routes[routeKey(route.Method, route.Path)] = route
	}

	return t, nil
}

// Lookup returns the route for method and path.
func (t *Table) Lookup(method, path string) (*Route, bool) {
	route, ok := t.routes[routeKey(method, path)]
	return route, ok
}

// Len returns the number of routes.
func (t *Table) Len() int {
	return len(t.routes)
}

func routeKey(method, path string) string {
	return method + " " + path
}

// RouterOption is a functional option for configuring the Router.
type RouterOption func(*Router)

// WithLogger sets the logger for the router.
func WithLogger(logger observability.Logger) RouterOption {
	return func(r *Router) {
		r.logger = logger
	}
}

// Router dispatches requests to the routes of the current table.
type Router struct {
	pipeline *pipeline.Pipeline
	logger   observability.Logger
	current  atomic.Pointer[Table]
}

// NewRouter creates a router serving table through p.
func NewRouter(p *pipeline.Pipeline, table *Table, opts ...RouterOption) *Router {
	r := &Router{pipeline: p}

	for _, opt := range opts {
		opt(r)
	}

	if r.logger == nil {
		r.logger = observability.NopLogger()
	}
	if table == nil {
		table = &Table{routes: map[string]*Route{}}
	}
	r.current.Store(table)

	return r
}

// Swap replaces the route table. In-flight requests finish on the table
// they started with.
func (r *Router) Swap(table *Table) {
	r.current.Store(table)
	r.logger.Info("fixture routes updated", observability.Int("routes", table.Len()))
}

// Table returns the current route table.
func (r *Router) Table() *Table {
	return r.current.Load()
}

// Reload rebuilds the table from routes and swaps it in. The current
// table is kept when any fixture fails to load.
func (r *Router) Reload(routes []config.RouteConfig) error {
	table, err := BuildTable(routes)
	if err != nil {
		r.logger.Error("failed to reload fixture routes", observability.Error(err))
		return err
	}
	r.Swap(table)
	return nil
}

// Handler returns the gin handler that serves unrouted requests from the
// route table. It is meant to be installed with gin's NoRoute.
func (r *Router) Handler() gin.HandlerFunc {
	notFound := r.pipeline.Handle(func(c *gin.Context) (any, error) {
		return nil, util.NewHTTPError(http.StatusNotFound, "route not found")
	}, pipeline.RouteOptions{})

	return func(c *gin.Context) {
		route, ok := r.current.Load().Lookup(c.Request.Method, c.Request.URL.Path)
		if !ok {
			notFound(c)
			return
		}

		c.Set(middleware.RouteKey, route.Path)
		r.pipeline.Handle(route.handler(), route.Options)(c)
	}
}

func (route *Route) handler() pipeline.Handler {
	if !route.Options.Paginate {
		return func(*gin.Context) (any, error) {
			return route.Data, nil
		}
	}

	return func(c *gin.Context) (any, error) {
		page, err := queryInt(c, PageParam, 1)
		if err != nil {
			return nil, err
		}
		size, err := queryInt(c, SizeParam, DefaultLimit)
		if err != nil {
			return nil, err
		}

		items, _ := route.Data.([]any)
		return Paginate(items, page, size), nil
	}
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, util.NewHTTPErrorWithCause(http.StatusBadRequest,
			fmt.Sprintf("query parameter %s must be an integer", name), err)
	}
	return v, nil
}
