package router

import (
	"fmt"
	"net/http"

	"github.com/vyrodovalexey/gymgw/internal/config"
	"github.com/vyrodovalexey/gymgw/internal/util"
)

// Router matches requests against an ordered, immutable route table.
// Routes are evaluated in declaration order and the first match wins.
// A Router is safe for concurrent use.
type Router struct {
	routes   []*CompiledRoute
	routeMap map[string]*CompiledRoute
}

// CompiledRoute is a pre-compiled route for efficient matching.
type CompiledRoute struct {
	Name          string
	Config        config.Route
	PathMatcher   PathMatcher
	MethodMatcher *MethodMatcher
	Rewriter      *Rewriter
}

// MatchResult contains the result of a route match.
type MatchResult struct {
	Route *CompiledRoute

	// PathParams holds named captures from the match pattern and the
	// rewrite regex. Rewrite captures win on conflicts.
	PathParams map[string]string

	// RewrittenPath is the backend-facing path.
	RewrittenPath string
}

// New compiles routes into a router.
func New(routes []config.Route) (*Router, error) {
	r := &Router{
		routes:   make([]*CompiledRoute, 0, len(routes)),
		routeMap: make(map[string]*CompiledRoute, len(routes)),
	}

	for i := range routes {
		route := routes[i]
		if _, exists := r.routeMap[route.Name]; exists {
			return nil, fmt.Errorf("duplicate route name: %s", route.Name)
		}

		compiled, err := compileRoute(route)
		if err != nil {
			return nil, fmt.Errorf("failed to compile route %s: %w", route.Name, err)
		}

		r.routes = append(r.routes, compiled)
		r.routeMap[route.Name] = compiled
	}

	return r, nil
}

func compileRoute(route config.Route) (*CompiledRoute, error) {
	pathMatcher, err := NewPathMatcher(route.Match.Exact, route.Match.Path, route.Match.Regex)
	if err != nil {
		return nil, fmt.Errorf("failed to create path matcher: %w", err)
	}

	compiled := &CompiledRoute{
		Name:        route.Name,
		Config:      route,
		PathMatcher: pathMatcher,
	}

	if len(route.Match.Methods) > 0 {
		compiled.MethodMatcher = NewMethodMatcher(route.Match.Methods)
	}

	if route.Rewrite != nil {
		compiled.Rewriter, err = NewRewriter(route.Rewrite.Regex, route.Rewrite.Replacement)
		if err != nil {
			return nil, fmt.Errorf("failed to compile rewrite: %w", err)
		}
	}

	return compiled, nil
}

// Match finds the first route matching method and path.
// It returns a *util.RouteNotFoundError when nothing matches.
func (r *Router) Match(method, path string) (*MatchResult, error) {
	for _, route := range r.routes {
		if !route.MethodMatcher.Match(method) {
			continue
		}

		params := map[string]string(nil)
		if route.PathMatcher != nil {
			matched, p := route.PathMatcher.Match(path)
			if !matched {
				continue
			}
			params = p
		}

		rewritten, rewriteParams := route.Rewriter.Rewrite(path)
		for k, v := range rewriteParams {
			if params == nil {
				params = make(map[string]string, len(rewriteParams))
			}
			params[k] = v
		}

		return &MatchResult{
			Route:         route,
			PathParams:    params,
			RewrittenPath: rewritten,
		}, nil
	}

	return nil, util.NewRouteNotFoundError(method, path)
}

// MatchRequest matches an HTTP request by method and URL path.
func (r *Router) MatchRequest(req *http.Request) (*MatchResult, error) {
	return r.Match(req.Method, req.URL.Path)
}

// GetRoute returns a route by name.
func (r *Router) GetRoute(name string) (*CompiledRoute, bool) {
	route, exists := r.routeMap[name]
	return route, exists
}

// GetRoutes returns all routes in declaration order.
func (r *Router) GetRoutes() []*CompiledRoute {
	routes := make([]*CompiledRoute, len(r.routes))
	copy(routes, r.routes)
	return routes
}
