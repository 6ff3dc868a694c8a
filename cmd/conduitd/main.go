// Command conduitd runs the Conduit webhook relay as a standalone service:
// the ingest and admin HTTP API plus the delivery engine, with graceful
// shutdown.
//
// Configuration is taken from the environment:
//
//	PORT                  listen port (default 8080)
//	CONDUIT_STORE         "memory" or "postgres" (default memory)
//	CONDUIT_DATABASE_URL  Postgres DSN, required for the postgres store
//	CONDUIT_CONCURRENCY   delivery worker count
//
// Redis, Mongo, and grove-managed SQL stores are for embedding: their
// constructors take the host application's grove handles.
package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	gumetrics "github.com/xraph/go-utils/metrics"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/api"
	"github.com/xraph/conduit/observability"
	"github.com/xraph/conduit/store"
	"github.com/xraph/conduit/store/bunstore"
	"github.com/xraph/conduit/store/memory"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if err := run(logger); err != nil {
		logger.Error("conduitd exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	st, err := buildStore(logger)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	opts := []conduit.Option{
		conduit.WithStore(st),
		conduit.WithLogger(logger),
		conduit.WithMetrics(observability.NewMetrics(gumetrics.NewMetricsCollector("conduit"))),
	}
	if v := os.Getenv("CONDUIT_CONCURRENCY"); v != "" {
		n, convErr := strconv.Atoi(v)
		if convErr != nil {
			return errors.New("CONDUIT_CONCURRENCY must be an integer")
		}
		opts = append(opts, conduit.WithConcurrency(n))
	}

	c, err := conduit.New(opts...)
	if err != nil {
		return err
	}

	c.Start(ctx)
	defer c.Stop(context.Background())

	addr := ":8080"
	if v := os.Getenv("PORT"); v != "" {
		addr = ":" + v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.NewHandler(c, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("conduitd listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return nil
}

func buildStore(logger *slog.Logger) (store.Store, error) {
	switch kind := os.Getenv("CONDUIT_STORE"); kind {
	case "", "memory":
		logger.Info("using in-memory store; events do not survive restarts")
		return memory.New(), nil

	case "postgres":
		dsn := os.Getenv("CONDUIT_DATABASE_URL")
		if dsn == "" {
			return nil, errors.New("CONDUIT_DATABASE_URL is required for the postgres store")
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db := bun.NewDB(sqldb, pgdialect.New())
		return bunstore.New(db), nil

	default:
		return nil, errors.New("unknown CONDUIT_STORE: " + kind)
	}
}
