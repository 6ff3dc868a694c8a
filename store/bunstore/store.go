// Package bunstore implements store.Store on the Bun ORM, for embedding
// Conduit into applications that already run Bun against Postgres.
package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/conduit/attempt"
	"github.com/xraph/conduit/event"
	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/queue"
	conduitstore "github.com/xraph/conduit/store"
	"github.com/xraph/conduit/subscription"
)

// compile-time interface check
var _ conduitstore.Store = (*Store)(nil)

// Store implements store.Store using the Bun ORM.
type Store struct {
	db *bun.DB
}

// New creates a new Bun-backed store.
func New(db *bun.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying Bun database for direct access.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the required tables using Bun's CreateTable.
func (s *Store) Migrate(ctx context.Context) error {
	models := []any{
		(*subscriptionModel)(nil),
		(*eventModel)(nil),
		(*attemptModel)(nil),
		(*jobModel)(nil),
	}
	for _, model := range models {
		if _, err := s.db.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx); err != nil {
			return err
		}
	}

	// Create indexes.
	indexes := []string{
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_conduit_attempts_event_number ON conduit_attempts (event_id, attempt_number)",
		"CREATE INDEX IF NOT EXISTS idx_conduit_attempts_subscription ON conduit_attempts (subscription_id)",
		"CREATE INDEX IF NOT EXISTS idx_conduit_attempts_status ON conduit_attempts (status)",
		"CREATE INDEX IF NOT EXISTS idx_conduit_events_subscription ON conduit_events (subscription_id)",
		"CREATE INDEX IF NOT EXISTS idx_conduit_events_received ON conduit_events (received_at)",
		"CREATE INDEX IF NOT EXISTS idx_conduit_jobs_run_at ON conduit_jobs (run_at)",
	}
	for _, ddl := range indexes {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}

	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Subscription Store ====================

func (s *Store) CreateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error) {
	m := new(subscriptionModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", subID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subscription.ErrNotFound
		}
		return nil, err
	}
	return fromSubscriptionModel(m)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub *subscription.Subscription) error {
	m := toSubscriptionModel(sub)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().
		Model(m).
		WherePK().
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteSubscription(ctx context.Context, subID id.ID) error {
	res, err := s.db.NewDelete().
		Model((*subscriptionModel)(nil)).
		Where("id = ?", subID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return subscription.ErrNotFound
	}
	return nil
}

func (s *Store) ListSubscriptions(ctx context.Context, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	var models []subscriptionModel
	q := s.db.NewSelect().Model(&models)
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.Order("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*subscription.Subscription, len(models))
	for i := range models {
		sub, err := fromSubscriptionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sub
	}
	return result, nil
}

// ==================== Event Store ====================

func (s *Store) CreateEvent(ctx context.Context, evt *event.Event) error {
	m := toEventModel(evt)
	_, err := s.db.NewInsert().Model(m).Exec(ctx)
	return err
}

func (s *Store) GetEvent(ctx context.Context, evtID id.ID) (*event.Event, error) {
	m := new(eventModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", evtID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, event.ErrNotFound
		}
		return nil, err
	}
	return fromEventModel(m)
}

func (s *Store) ListEvents(ctx context.Context, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.db.NewSelect().Model(&models)
	q = applyEventOpts(q, opts)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return collectEvents(models)
}

func (s *Store) ListEventsBySubscription(ctx context.Context, subID id.ID, opts event.ListOpts) ([]*event.Event, error) {
	var models []eventModel
	q := s.db.NewSelect().Model(&models).Where("subscription_id = ?", subID.String())
	q = applyEventOpts(q, opts)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return collectEvents(models)
}

func applyEventOpts(q *bun.SelectQuery, opts event.ListOpts) *bun.SelectQuery {
	if opts.From != nil {
		q = q.Where("received_at >= ?", *opts.From)
	}
	if opts.To != nil {
		q = q.Where("received_at <= ?", *opts.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q.Order("received_at DESC")
}

func collectEvents(models []eventModel) ([]*event.Event, error) {
	result := make([]*event.Event, len(models))
	for i := range models {
		evt, err := fromEventModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = evt
	}
	return result, nil
}

// ==================== Attempt Store ====================

func (s *Store) CreateAttempt(ctx context.Context, att *attempt.Attempt) error {
	m := toAttemptModel(att)

	res, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (event_id, attempt_number) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return attempt.ErrDuplicate
	}
	return nil
}

func (s *Store) UpdateAttempt(ctx context.Context, att *attempt.Attempt) error {
	m := toAttemptModel(att)
	m.UpdatedAt = time.Now().UTC()
	res, err := s.db.NewUpdate().Model(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return attempt.ErrNotFound
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, attID id.ID) (*attempt.Attempt, error) {
	m := new(attemptModel)
	err := s.db.NewSelect().
		Model(m).
		Where("id = ?", attID.String()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, attempt.ErrNotFound
		}
		return nil, err
	}
	return fromAttemptModel(m)
}

func (s *Store) ListAttemptsByEvent(ctx context.Context, evtID id.ID) ([]*attempt.Attempt, error) {
	var models []attemptModel
	if err := s.db.NewSelect().
		Model(&models).
		Where("event_id = ?", evtID.String()).
		Order("attempt_number DESC").
		Scan(ctx); err != nil {
		return nil, err
	}
	return collectAttempts(models)
}

func (s *Store) ListAttemptsBySubscription(ctx context.Context, subID id.ID, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	var models []attemptModel
	q := s.db.NewSelect().Model(&models).Where("subscription_id = ?", subID.String())
	q = applyAttemptOpts(q, opts)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return collectAttempts(models)
}

func (s *Store) ListAttempts(ctx context.Context, opts attempt.ListOpts) ([]*attempt.Attempt, error) {
	var models []attemptModel
	q := s.db.NewSelect().Model(&models)
	q = applyAttemptOpts(q, opts)

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return collectAttempts(models)
}

func applyAttemptOpts(q *bun.SelectQuery, opts attempt.ListOpts) *bun.SelectQuery {
	if opts.Status != nil {
		q = q.Where("status = ?", string(*opts.Status))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	return q.Order("created_at DESC")
}

func collectAttempts(models []attemptModel) ([]*attempt.Attempt, error) {
	result := make([]*attempt.Attempt, len(models))
	for i := range models {
		att, err := fromAttemptModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = att
	}
	return result, nil
}

func (s *Store) LatestAttemptNumber(ctx context.Context, evtID id.ID) (int, error) {
	var models []attemptModel
	err := s.db.NewSelect().
		Model(&models).
		Where("event_id = ?", evtID.String()).
		Order("attempt_number DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, err
	}
	if len(models) == 0 {
		return 0, nil
	}
	return models[0].Number, nil
}

func (s *Store) CountAttemptsByStatus(ctx context.Context, status attempt.Status) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*attemptModel)(nil)).
		Where("status = ?", string(status)).
		Count(ctx)
	return int64(count), err
}

// ==================== Queue Store ====================

func (s *Store) EnqueueJob(ctx context.Context, job queue.Job, delay time.Duration) error {
	now := time.Now().UTC()
	m := &jobModel{
		EventID:   job.EventID.String(),
		Attempt:   job.Attempt,
		RunAt:     now.Add(delay),
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.NewInsert().
		Model(m).
		On("CONFLICT (event_id, attempt) DO UPDATE").
		Set("run_at = EXCLUDED.run_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *Store) DequeueJobs(ctx context.Context, limit int) ([]queue.Job, error) {
	var models []jobModel
	err := s.db.NewRaw(`
		DELETE FROM conduit_jobs
		WHERE (event_id, attempt) IN (
			SELECT event_id, attempt FROM conduit_jobs
			WHERE run_at <= NOW()
			ORDER BY run_at ASC
			LIMIT ?
			FOR UPDATE SKIP LOCKED
		)
		RETURNING *
	`, limit).Scan(ctx, &models)
	if err != nil {
		return nil, err
	}

	jobs := make([]queue.Job, 0, len(models))
	for i := range models {
		job, err := fromJobModel(&models[i])
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	count, err := s.db.NewSelect().
		Model((*jobModel)(nil)).
		Count(ctx)
	return int64(count), err
}
