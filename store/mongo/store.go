// Package mongo implements store.Store on MongoDB via Grove ORM. A
// unique compound index on (event_id, attempt_number) enforces the
// duplicate-attempt guard, and the job queue claims work with
// FindOneAndDelete so concurrent pollers never see the same job.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/conduit/store"
)

// Collection name constants.
const (
	colSubscriptions = "conduit_subscriptions"
	colEvents        = "conduit_events"
	colAttempts      = "conduit_attempts"
	colJobs          = "conduit_jobs"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all conduit collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}

		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("conduit/mongo: migrate %s indexes: %w", col, err)
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// migrationIndexes returns the index definitions for all conduit collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSubscriptions: {
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		colEvents: {
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "received_at", Value: -1}}},
			{Keys: bson.D{{Key: "received_at", Value: -1}}},
		},
		colAttempts: {
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "attempt_number", Value: -1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "subscription_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		colJobs: {
			{
				Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "attempt", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "run_at", Value: 1}}},
		},
	}
}
