package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/conduit/queue"
)

// EnqueueJob schedules a job to surface after delay. Upserting on the
// (event, attempt) pair reschedules an already-pending job instead of
// duplicating it.
func (s *Store) EnqueueJob(ctx context.Context, job queue.Job, delay time.Duration) error {
	t := now()

	filter := bson.M{
		"event_id": job.EventID.String(),
		"attempt":  job.Attempt,
	}

	update := bson.M{
		"$set": bson.M{
			"run_at":     t.Add(delay),
			"updated_at": t,
		},
		"$setOnInsert": bson.M{
			"event_id":   job.EventID.String(),
			"attempt":    job.Attempt,
			"created_at": t,
		},
	}

	_, err := s.mdb.Collection(colJobs).
		UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("conduit/mongo: enqueue job: %w", err)
	}

	return nil
}

// DequeueJobs atomically claims up to limit due jobs. FindOneAndDelete is
// the claim, so a job surfaces to exactly one poller.
func (s *Store) DequeueJobs(ctx context.Context, limit int) ([]queue.Job, error) {
	jobs := make([]queue.Job, 0, limit)
	t := now()
	col := s.mdb.Collection(colJobs)

	for range limit {
		filter := bson.M{"run_at": bson.M{"$lte": t}}

		opts := options.FindOneAndDelete().
			SetSort(bson.D{{Key: "run_at", Value: 1}})

		var m jobModel

		err := col.FindOneAndDelete(ctx, filter, opts).Decode(&m)
		if err != nil {
			if errors.Is(err, mongod.ErrNoDocuments) {
				break
			}

			return nil, fmt.Errorf("conduit/mongo: dequeue job: %w", err)
		}

		job, err := fromJobModel(&m)
		if err != nil {
			return nil, err
		}

		jobs = append(jobs, job)
	}

	return jobs, nil
}

// CountPendingJobs returns the number of jobs not yet claimed.
func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	count, err := s.mdb.NewFind((*jobModel)(nil)).
		Filter(bson.M{}).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("conduit/mongo: count pending jobs: %w", err)
	}

	return count, nil
}
