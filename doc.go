// Package switchyard wires the dispatch engine into a servable application.
//
// An App embeds a dispatch.Dispatcher, so routes, filters and status routes are
// registered on it directly, and adds what a deployed service needs around it:
// Prometheus metrics with an optional endpoint, OpenTelemetry spans, WebSocket
// results, static files, mounting on a chi router and graceful shutdown.
//
//	app := switchyard.New(switchyard.Config{
//	    DevMode: os.Getenv("ENV") != "production",
//	    Metrics: switchyard.MetricsConfig{Enabled: true, Path: "/metrics"},
//	})
//	app.Before(requireAuth)
//	app.Get("/orders/:id", func(c *dispatch.Context) (any, error) {
//	    return orders.Find(c.StdContext(), repository.NewQuery(repository.Eq("id", c.Param("id"))))
//	})
//	app.Static("/assets", "public", switchyard.CacheControlProduction)
//	log.Fatal(app.Run(":8080"))
//
// The same settings can come from switchyard.json through ConfigFromFile; the
// switchyard command does that for its serve subcommand.
package switchyard
