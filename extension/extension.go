package extension

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/xraph/forge"

	"github.com/xraph/conduit"
	"github.com/xraph/conduit/api"
)

// Extension is the Forge extension for Conduit.
type Extension struct {
	config  Config
	opts    []conduit.Option
	conduit *conduit.Conduit
	logger  *slog.Logger
}

// New creates a new Conduit Forge extension.
func New(opts ...ExtOption) *Extension {
	ext := &Extension{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(ext)
	}
	return ext
}

// Register initializes the Conduit engine and runs store migrations.
// It must be called before Mount, Handler, or Start.
func (ext *Extension) Register(ctx context.Context) error {
	opts := append(ext.config.ToConduitOptions(), conduit.WithLogger(ext.logger))
	opts = append(opts, ext.opts...)

	c, err := conduit.New(opts...)
	if err != nil {
		return fmt.Errorf("extension: create conduit: %w", err)
	}

	if !ext.config.DisableMigrations {
		if err := c.Store().Migrate(ctx); err != nil {
			return fmt.Errorf("extension: migrate store: %w", err)
		}
	}

	ext.conduit = c
	return nil
}

// Mount registers the admin API routes on a Forge router with OpenAPI
// metadata. Raw ingest routes are not mounted here; use Handler for the
// full surface including signature-verified ingest.
func (ext *Extension) Mount(router forge.Router, log forge.Logger) {
	if ext.config.DisableRoutes {
		return
	}
	api.NewForgeAPI(ext.conduit, log).RegisterRoutes(router)
}

// Handler returns the full HTTP API, ingest routes included. This can be
// used standalone without Forge route integration.
func (ext *Extension) Handler() http.Handler {
	return api.NewHandler(ext.conduit, ext.logger)
}

// Start begins the delivery engine.
func (ext *Extension) Start(ctx context.Context) {
	ext.conduit.Start(ctx)
}

// Stop gracefully shuts down the delivery engine.
func (ext *Extension) Stop(ctx context.Context) {
	ext.conduit.Stop(ctx)
}

// HealthCheck verifies store connectivity.
func (ext *Extension) HealthCheck(ctx context.Context) error {
	if ext.conduit == nil {
		return conduit.ErrNoStore
	}
	return ext.conduit.Store().Ping(ctx)
}

// Conduit returns the underlying engine, or nil before Register.
func (ext *Extension) Conduit() *conduit.Conduit {
	return ext.conduit
}

// BasePath returns the configured URL prefix.
func (ext *Extension) BasePath() string {
	return ext.config.BasePath
}
