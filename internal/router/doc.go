// Package router provides HTTP routing functionality for the
// gateway.
//
// This package implements the route table: an ordered list of compiled
// routes built once from configuration and matched first-match-wins.
//
// # Features
//
//   - Exact, glob (*, **, {name}) and regex path matching
//   - Named captures from glob parameters and regex groups
//   - HTTP method filtering
//   - Regex path rewrite with ${name} templates
//
// # Usage
//
//	r, err := router.New(cfg.Spec.Routes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	result, err := r.Match(http.MethodGet, "/api/clases/foo")
//	if err != nil {
//	    // util.RouteNotFoundError
//	}
//	// result.RewrittenPath == "/foo"
package router
