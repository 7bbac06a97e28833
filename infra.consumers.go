package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// consumerRetryDelay is the pause after a failed queue pop.
const consumerRetryDelay = time.Second

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

type journalConsumer struct {
	logger     *zap.Logger
	queue      Queuer
	journal    BookJournal
	retryDelay time.Duration
}

// NewJournalConsumer provides a consumer which records every
// dequeued book event into the journal.
func NewJournalConsumer(logger *zap.Logger, q Queuer, journal BookJournal) Consumer {
	return &journalConsumer{
		logger:     logger,
		queue:      q,
		journal:    journal,
		retryDelay: consumerRetryDelay,
	}
}

// Consume pops events until the context is done. Failures on a
// single event are logged and do not stop the loop.
func (jc *journalConsumer) Consume(ctx context.Context, qids ...string) error {
	var event BookEvent
	var err error
	var qid string
	for {
		qid, event, err = jc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			jc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			jc.logger.Error("consumer: error on queue pop call", zap.Error(err), zap.Duration("retry.in", jc.retryDelay))
			select {
			case <-ctx.Done():
				jc.logger.Info("consumer: waiting to retry: context is done: exit", zap.String("reason", ctx.Err().Error()))
				return nil
			case <-time.After(jc.retryDelay):
			}
			continue
		}

		switch qid {
		case CreateQueue, UpdateQueue, DeleteQueue, BorrowQueue, ReturnQueue:
			event.Kind = qid
			if err = jc.journal.Record(ctx, event); err != nil {
				jc.logger.Error("consumer: failed to record event",
					zap.String("qid", qid),
					zap.Uint("book.id", event.Book.ID),
					zap.Error(err),
				)
			}
		default:
			jc.logger.Warn("consumer: received event on unknow queue id", zap.String("qid", qid), zap.Any("event", event))
		}
	}
}
