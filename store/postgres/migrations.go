package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the Conduit store.
// It can be registered with the grove extension for orchestrated migration
// management (locking, version tracking, rollback support).
var Migrations = migrate.NewGroup("conduit")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_conduit_subscriptions",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conduit_subscriptions (
    id             TEXT PRIMARY KEY,
    url            TEXT NOT NULL DEFAULT '',
    description    TEXT NOT NULL DEFAULT '',
    secret         TEXT NOT NULL DEFAULT '',
    secret_hash    TEXT NOT NULL DEFAULT '',
    salt           TEXT NOT NULL DEFAULT '',
    payload_schema JSONB,
    headers        JSONB NOT NULL DEFAULT '{}',
    metadata       JSONB NOT NULL DEFAULT '{}',
    created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conduit_subscriptions`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_conduit_events",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conduit_events (
    id              TEXT PRIMARY KEY,
    subscription_id TEXT NOT NULL DEFAULT '',
    payload         JSONB,
    received_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_conduit_events_subscription ON conduit_events (subscription_id);
CREATE INDEX IF NOT EXISTS idx_conduit_events_received ON conduit_events (received_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conduit_events`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_conduit_attempts",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conduit_attempts (
    id              TEXT PRIMARY KEY,
    event_id        TEXT NOT NULL DEFAULT '',
    subscription_id TEXT NOT NULL DEFAULT '',
    attempt_number  INT NOT NULL DEFAULT 0,
    status          TEXT NOT NULL DEFAULT 'in_progress',
    status_code     INT NOT NULL DEFAULT 0,
    error_message   TEXT NOT NULL DEFAULT '',
    response_body   TEXT NOT NULL DEFAULT '',
    completed_at    TIMESTAMPTZ,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_conduit_attempts_event_number ON conduit_attempts (event_id, attempt_number);
CREATE INDEX IF NOT EXISTS idx_conduit_attempts_subscription ON conduit_attempts (subscription_id);
CREATE INDEX IF NOT EXISTS idx_conduit_attempts_status ON conduit_attempts (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conduit_attempts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_conduit_jobs",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS conduit_jobs (
    event_id   TEXT NOT NULL,
    attempt    INT NOT NULL,
    run_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (event_id, attempt)
);

CREATE INDEX IF NOT EXISTS idx_conduit_jobs_run_at ON conduit_jobs (run_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS conduit_jobs`)
				return err
			},
		},
	)
}
