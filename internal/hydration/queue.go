package hydration

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/dariomedina/shelfrival-backend/pkg/errors"
	"github.com/dariomedina/shelfrival-backend/pkg/redis"
)

// Job is one pending competitor hydration: fetch the ASIN's product data and
// attach it to the comparison. Attempts counts deliveries so a poisoned job
// eventually drops instead of cycling forever.
type Job struct {
	ComparisonID uuid.UUID `json:"comparison_id"`
	ASIN         string    `json:"asin"`
	Marketplace  string    `json:"marketplace"`
	Attempts     int       `json:"attempts"`
}

// ErrEmptyQueue signals a blocking pop that found no work.
var ErrEmptyQueue = redis.ErrEmptyQueue

// Queue is the hydration job transport.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Dequeue(ctx context.Context, timeout time.Duration) (*Job, error)
	Depth(ctx context.Context) (int64, error)
}

type redisQueue struct {
	client *redis.Client
	name   string
}

// NewQueue builds the redis-list-backed job queue.
func NewQueue(client *redis.Client, name string) Queue {
	return &redisQueue{client: client, name: name}
}

func (q *redisQueue) Enqueue(ctx context.Context, job Job) error {
	if job.ASIN == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "job asin is required")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding hydration job")
	}
	return q.client.Enqueue(ctx, q.name, string(payload))
}

func (q *redisQueue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	payload, err := q.client.Dequeue(ctx, q.name, timeout)
	if errors.Is(err, redis.ErrEmptyQueue) {
		return nil, ErrEmptyQueue
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decoding hydration job")
	}
	return &job, nil
}

func (q *redisQueue) Depth(ctx context.Context) (int64, error) {
	return q.client.QueueDepth(ctx, q.name)
}
