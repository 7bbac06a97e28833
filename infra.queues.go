package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Predefinied Queue IDs. Each one matches a book event kind.
const (
	CreateQueue = "created"
	UpdateQueue = "updated"
	DeleteQueue = "deleted"
	BorrowQueue = "borrowed"
	ReturnQueue = "returned"
)

// Ensure *redisQueue implements Queuer.
var _ Queuer = (*redisQueue)(nil)

// BookEvent describes a change applied to a book.
type BookEvent struct {
	Kind string    `json:"kind"`
	Book Book      `json:"book"`
	At   time.Time `json:"at"`
}

// Queuer describes a queue.
type Queuer interface {
	Push(ctx context.Context, qid string, event BookEvent) error
	Pop(ctx context.Context, qids ...string) (string, BookEvent, error)
}

// redisQueue represents a queue which implements the Queuer interface.
type redisQueue struct {
	client *redis.Client
	prefix string
}

// NewRedisQueue provides a redis lists based queue. Every queue
// id is namespaced with the prefix to form the list key.
func NewRedisQueue(client *redis.Client, prefix string) Queuer {
	return &redisQueue{client: client, prefix: prefix}
}

// Push enqueues a book event onto the queue identified by qid.
func (q *redisQueue) Push(ctx context.Context, qid string, event BookEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.prefix+qid, eventBytes).Err()
}

// Pop returns the first dequeued book event from the list of queue ids.
// It blocks until an event is available or the context is done.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, BookEvent, error) {
	var event BookEvent
	var qid string
	keys := make([]string, len(qids))
	for i, id := range qids {
		keys[i] = q.prefix + id
	}
	infos, err := q.client.BLPop(ctx, 0*time.Second, keys...).Result()
	if err != nil {
		return qid, event, err
	}

	if err = json.Unmarshal([]byte(infos[1]), &event); err != nil {
		return qid, event, err
	}
	qid = infos[0][len(q.prefix):]
	return qid, event, nil
}
