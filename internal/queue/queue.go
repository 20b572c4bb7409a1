// Package queue is a Redis-backed delayed job queue. Jobs are stored as JSON
// in a hash and ordered in a sorted set by schedule time and priority.
package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	jobsKey  = "teamplan:jobs"
	queueKey = "teamplan:job_queue"
)

var ErrJobNotFound = errors.New("job not found")

type Queue struct {
	client *redis.Client
}

func NewQueue(redisAddr string) (*Queue, error) {
	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Queue{client: client}, nil
}

func score(job *Job) float64 {
	invertedPriority := float64(PriorityHigh - job.Priority)
	return float64(job.ScheduledAt.Unix())*1000 + invertedPriority
}

func (q *Queue) Enqueue(ctx context.Context, job *Job) error {
	jobJSON, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, jobsKey, job.ID, jobJSON)
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: score(job), Member: job.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// Dequeue pops the next due job. It returns nil, nil when nothing is due or
// when another consumer claimed the candidate first.
func (q *Queue) Dequeue(ctx context.Context) (*Job, error) {
	maxScore := float64(time.Now().Unix())*1000 + float64(PriorityHigh-PriorityLow)

	results, err := q.client.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   fmt.Sprintf("%f", maxScore),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read job queue: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	jobID := results[0]
	removed, err := q.client.ZRem(ctx, queueKey, jobID).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim job %s: %w", jobID, err)
	}
	if removed == 0 {
		return nil, nil
	}

	return q.GetJob(ctx, jobID)
}

func (q *Queue) UpdateJob(ctx context.Context, job *Job) error {
	jobJSON, err := job.ToJSON()
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	return q.client.HSet(ctx, jobsKey, job.ID, jobJSON).Err()
}

func (q *Queue) GetJob(ctx context.Context, jobID string) (*Job, error) {
	jobJSON, err := q.client.HGet(ctx, jobsKey, jobID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, jobID)
	}
	if err != nil {
		return nil, err
	}

	return JobFromJSON(jobJSON)
}

// GetAllJobs returns every stored job. Undecodable entries are skipped.
func (q *Queue) GetAllJobs(ctx context.Context) ([]*Job, error) {
	jobMap, err := q.client.HGetAll(ctx, jobsKey).Result()
	if err != nil {
		return nil, err
	}

	jobs := make([]*Job, 0, len(jobMap))
	for _, jobJSON := range jobMap {
		job, err := JobFromJSON(jobJSON)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

// Pending returns the number of jobs waiting in the sorted set, due or not.
func (q *Queue) Pending(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, queueKey).Result()
}

func (q *Queue) Close() error {
	return q.client.Close()
}
