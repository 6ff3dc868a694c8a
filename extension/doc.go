// Package extension provides the Forge extension for mounting Conduit.
//
// The extension integrates Conduit into the Forge application framework by:
//   - Initializing the relay engine with a configured store
//   - Running database migrations on registration
//   - Mounting admin API routes with OpenAPI metadata under a configurable prefix
//   - Starting the delivery engine on application start
//   - Gracefully stopping the engine on application shutdown
//   - Providing health checks via store.Ping
//
// Usage:
//
//	ext := extension.New(
//	    extension.WithStore(postgresStore),
//	    extension.WithPrefix("/webhooks"),
//	)
//	if err := ext.Register(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	ext.Mount(router, logger)
//	ext.Start(ctx)
//	defer ext.Stop(ctx)
package extension
