// Package metrics provides a Prometheus metrics server with an isolated
// registry, default runtime collectors, and an HTTP endpoint for scraping.
//
// The package owns the exposition side of observability: it creates the
// registry, labels every metric with the service name, and serves the
// /metrics endpoint. Components report into the registry through the
// operation observer returned by Metrics.Observer, which records one
// counter and two histogram samples per completed operation.
//
// # Direct Usage (Without FX)
//
//	metricsInstance := metrics.NewMetrics(metrics.Config{
//	    Address:                 ":9090",
//	    ServiceName:             "session-store",
//	    EnableDefaultCollectors: true,
//	})
//
//	go metricsInstance.Server.ListenAndServe()
//	defer metricsInstance.Server.Shutdown(context.Background())
//
//	client, err := cluster.NewClient(clusterCfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client = client.WithObserver(metricsInstance.Observer())
//
// # FX Module Integration
//
//	app := fx.New(
//	    logger.FXModule,
//	    metrics.FXModule,
//	    cluster.FXModule,
//	    fx.Provide(
//	        func() metrics.Config { return metricsCfg },
//	        func() cluster.Config { return clusterCfg },
//	    ),
//	)
//	app.Run()
//
// Custom metrics beyond the built-in operation samples are registered
// through CreateCounter, CreateHistogram, and CreateGauge; all of them
// carry the service label automatically.
package metrics
