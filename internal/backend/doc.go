// Package backend issues outbound HTTP calls to the gym services.
//
// A Resolver maps a logical service name such as "pagos-service" to an
// instance address. The shipped RoundRobinResolver cycles through the
// instances listed in configuration.
//
// The Client performs one bounded call and classifies its outcome:
//
//	resp, err := client.Call(ctx, backend.Request{
//	    Service: "miembros-service",
//	    Method:  http.MethodGet,
//	    Path:    "/miembros/42",
//	})
//	var callErr *backend.CallError
//	if errors.As(err, &callErr) {
//	    switch callErr.Kind {
//	    case backend.Timeout, backend.ConnectionError:
//	        // no usable response
//	    case backend.HTTPError:
//	        // callErr.Response holds the non-2xx reply
//	    case backend.Canceled:
//	        // the inbound request went away first
//	    }
//	}
package backend
