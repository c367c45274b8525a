// Package server runs the HTTP listener with graceful shutdown.
//
//	srv, err := server.NewFromConfig(cfg, server.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(func() error { return srv.Run(ctx, handler) })
//
// When the context ends, in-flight requests get ShutdownTimeout to finish.
// TLS is enabled when both certificate and key files are configured.
package server
