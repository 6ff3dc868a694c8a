// Package conduit provides a composable webhook relay engine for Go.
//
// Conduit is a library — not a service. Import it into your application to
// receive webhooks on behalf of subscriptions, verify their HMAC-SHA256
// signatures, and forward them to their targets with at-least-once delivery
// and a full per-attempt ledger.
//
// Key features:
//   - Signature verification on intake (constant-time, fail closed)
//   - Durable events with optional per-subscription JSON Schema validation
//   - Fixed backoff retries with a bounded attempt budget
//   - A contiguous attempt ledger per event, including response excerpts
//   - Composable store pattern with multiple backends (Postgres, Bun,
//     SQLite, Mongo, Redis, Memory)
//   - Forge-native with standalone fallback
//
// Quick start:
//
//	c, err := conduit.New(
//	    conduit.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	c.Start(ctx)
//
//	sub, _ := c.Subscriptions().Create(ctx, subscription.Input{
//	    URL:    "https://example.com/hook",
//	    Secret: "helloworld",
//	})
//
//	evt, err := c.Ingest(ctx, sub.ID, body, r.Header.Get("X-Hub-Signature-256"))
package conduit
