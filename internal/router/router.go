package router

import (
	"cmp"
	"net/http"
	"slices"

	"github.com/dukerupert/tally/internal/domain"
	"github.com/dukerupert/tally/internal/handler"
)

var errRouteNotFound = &domain.Error{Code: domain.ENOTFOUND, Message: "Route not found"}

// Middleware is a function that wraps an http.Handler
type Middleware func(http.Handler) http.Handler

// Route is a registered method and pattern. Method is empty when the
// route accepts any method.
type Route struct {
	Method  string
	Pattern string
}

// Router registers handlers on an http.ServeMux behind a middleware chain.
// Patterns use the mux syntax ("/api/invoices/{id}") and handlers read
// wildcards with r.PathValue. Groups share the mux and route table with
// the router they came from.
type Router struct {
	mux   *http.ServeMux
	chain []Middleware
	table *routeTable
}

type routeTable struct {
	routes   []Route
	methods  []string
	notFound http.Handler
}

// New creates a Router whose middleware wraps every route and the
// not-found response.
func New(middleware ...Middleware) *Router {
	r := &Router{
		mux:   http.NewServeMux(),
		chain: middleware,
		table: &routeTable{},
	}
	r.table.notFound = wrap(http.HandlerFunc(notFound), middleware)
	return r
}

// ServeHTTP dispatches to the mux. Paths no route matches get a domain
// not-found error, JSON for API callers. A path registered under another
// method is left to the mux, which answers 405 with an Allow header.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	if _, pattern := r.mux.Handler(req); pattern == "" && !r.otherMethodMatches(req) {
		r.table.notFound.ServeHTTP(w, req)
		return
	}
	r.mux.ServeHTTP(w, req)
}

func (r *Router) Get(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodGet, pattern, h, middleware...)
}

func (r *Router) Post(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPost, pattern, h, middleware...)
}

func (r *Router) Patch(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodPatch, pattern, h, middleware...)
}

func (r *Router) Delete(pattern string, h http.HandlerFunc, middleware ...Middleware) {
	r.Handle(http.MethodDelete, pattern, h, middleware...)
}

// Handle registers h for method and pattern. An empty method matches any
// method, which /metrics and /healthz rely on for HEAD checks.
func (r *Router) Handle(method, pattern string, h http.Handler, middleware ...Middleware) {
	key := pattern
	if method != "" {
		key = method + " " + pattern
		if !slices.Contains(r.table.methods, method) {
			r.table.methods = append(r.table.methods, method)
		}
	}
	r.mux.Handle(key, wrap(h, r.chain, middleware))
	r.table.routes = append(r.table.routes, Route{Method: method, Pattern: pattern})
}

// Group returns a router that registers on the same mux with middleware
// appended to the current chain.
func (r *Router) Group(middleware ...Middleware) *Router {
	return &Router{
		mux:   r.mux,
		chain: slices.Concat(r.chain, middleware),
		table: r.table,
	}
}

// Routes lists every registered route ordered by pattern, then method.
func (r *Router) Routes() []Route {
	out := slices.Clone(r.table.routes)
	slices.SortFunc(out, func(a, b Route) int {
		return cmp.Or(cmp.Compare(a.Pattern, b.Pattern), cmp.Compare(a.Method, b.Method))
	})
	return out
}

func (r *Router) otherMethodMatches(req *http.Request) bool {
	for _, m := range r.table.methods {
		if m == req.Method {
			continue
		}
		alt := *req
		alt.Method = m
		if _, pattern := r.mux.Handler(&alt); pattern != "" {
			return true
		}
	}
	return false
}

// wrap applies the middleware stacks so the first one listed runs
// outermost.
func wrap(h http.Handler, stacks ...[]Middleware) http.Handler {
	for i := len(stacks) - 1; i >= 0; i-- {
		for j := len(stacks[i]) - 1; j >= 0; j-- {
			h = stacks[i][j](h)
		}
	}
	return h
}

func notFound(w http.ResponseWriter, r *http.Request) {
	handler.ErrorResponse(w, r, errRouteNotFound)
}
