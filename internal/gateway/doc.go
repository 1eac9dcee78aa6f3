// Package gateway runs the HTTP listeners of the gym gateway.
//
// All client traffic is served by a gin engine that forwards every
// request to the route handler, normally the request pipeline wrapped
// in middleware. An optional second listener exposes Prometheus
// metrics and a health document.
//
//	gw, err := gateway.New(cfg,
//	    gateway.WithLogger(logger),
//	    gateway.WithRouteHandler(handler),
//	    gateway.WithOpsHandler(gateway.OpsHandler(metrics, "/metrics", breakers.States)),
//	)
//	if err != nil {
//	    return err
//	}
//
//	if err := gw.Start(ctx); err != nil {
//	    return err
//	}
//	defer gw.Stop(context.Background())
package gateway
