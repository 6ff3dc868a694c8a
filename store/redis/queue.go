package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/conduit/id"
	"github.com/xraph/conduit/queue"
)

// dequeueScript atomically claims due jobs from the pending sorted set.
// KEYS[1] = conduit:z:job:pending
// ARGV[1] = current unix timestamp (score threshold)
// ARGV[2] = limit
var dequeueScript = goredis.NewScript(`
local members = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
if #members == 0 then return {} end
for i, member in ipairs(members) do
    redis.call('ZREM', KEYS[1], member)
end
return members
`)

// jobMember encodes a job as a sorted set member. The member identifies
// the (event, attempt) pair, so re-enqueueing the same pair replaces the
// existing entry instead of duplicating it.
func jobMember(job queue.Job) string {
	return job.EventID.String() + "|" + strconv.Itoa(job.Attempt)
}

func parseJobMember(member string, runAt time.Time) (queue.Job, error) {
	evtStr, attStr, ok := strings.Cut(member, "|")
	if !ok {
		return queue.Job{}, fmt.Errorf("conduit/redis: malformed job member %q", member)
	}
	evtID, err := id.ParseEventID(evtStr)
	if err != nil {
		return queue.Job{}, fmt.Errorf("conduit/redis: parse job event ID %q: %w", evtStr, err)
	}
	n, err := strconv.Atoi(attStr)
	if err != nil {
		return queue.Job{}, fmt.Errorf("conduit/redis: parse job attempt %q: %w", attStr, err)
	}
	return queue.Job{EventID: evtID, Attempt: n, RunAt: runAt}, nil
}

func (s *Store) EnqueueJob(ctx context.Context, job queue.Job, delay time.Duration) error {
	job.RunAt = now().Add(delay)
	err := s.rdb.ZAdd(ctx, zJobPending, goredis.Z{
		Score:  scoreFromTime(job.RunAt),
		Member: jobMember(job),
	}).Err()
	if err != nil {
		return fmt.Errorf("conduit/redis: enqueue job: %w", err)
	}
	return nil
}

func (s *Store) DequeueJobs(ctx context.Context, limit int) ([]queue.Job, error) {
	claimedAt := now()
	nowScore := fmt.Sprintf("%f", scoreFromTime(claimedAt))
	members, err := dequeueScript.Run(ctx, s.rdb, []string{zJobPending}, nowScore, limit).StringSlice()
	if err != nil {
		if isRedisNil(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("conduit/redis: dequeue script: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	jobs := make([]queue.Job, 0, len(members))
	for _, member := range members {
		job, err := parseJobMember(member, claimedAt)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func (s *Store) CountPendingJobs(ctx context.Context) (int64, error) {
	count, err := s.rdb.ZCard(ctx, zJobPending).Result()
	if err != nil {
		return 0, fmt.Errorf("conduit/redis: count pending jobs: %w", err)
	}
	return count, nil
}
