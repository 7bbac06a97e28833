package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestBoltConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		BoltDB: BoltDBConfig{
			FilePath:         filepath.Join(t.TempDir(), "journal.db"),
			Timeout:          time.Second,
			BooksBucketName:  "books",
			EventsBucketName: "events",
		},
	}
}

func newTestBoltJournal(t *testing.T) BookJournal {
	t.Helper()
	config := newTestBoltConfig(t)
	db, err := GetBoltDBClient(config)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewBoltBookJournal(zap.NewNop(), &config.BoltDB, db)
}

func TestBoltBookJournal(t *testing.T) {
	journal := newTestBoltJournal(t)
	ctx := context.Background()
	at := NewMockClocker().Now()

	book := Book{Model: Model{ID: 1}, Title: "Bolt book", Author: "Jerome Amon", IsAvailable: true}
	other := Book{Model: Model{ID: 2}, Title: "Other book", Author: "Someone", IsAvailable: true}

	t.Run("empty journal", func(t *testing.T) {
		events, err := journal.Events(ctx, 0)
		require.NoError(t, err)
		assert.NotNil(t, events)
		assert.Empty(t, events)

		_, err = journal.Snapshot(ctx, 1)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("record events", func(t *testing.T) {
		require.NoError(t, journal.Record(ctx, BookEvent{Kind: CreateQueue, Book: book, At: at}))
		require.NoError(t, journal.Record(ctx, BookEvent{Kind: CreateQueue, Book: other, At: at}))

		until := at.Add(LendingPeriod)
		borrowed := book
		borrowed.IsAvailable = false
		borrowed.BorrowedUntil = &until
		require.NoError(t, journal.Record(ctx, BookEvent{Kind: BorrowQueue, Book: borrowed, At: at}))

		snapshot, err := journal.Snapshot(ctx, 1)
		require.NoError(t, err)
		assert.False(t, snapshot.IsAvailable)
		require.NotNil(t, snapshot.BorrowedUntil)
		assert.True(t, until.Equal(*snapshot.BorrowedUntil))
	})

	t.Run("events in recording order", func(t *testing.T) {
		events, err := journal.Events(ctx, 0)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, []string{CreateQueue, CreateQueue, BorrowQueue}, []string{events[0].Kind, events[1].Kind, events[2].Kind})

		events, err = journal.Events(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, BorrowQueue, events[1].Kind)
	})

	t.Run("delete drops snapshot but keeps history", func(t *testing.T) {
		require.NoError(t, journal.Record(ctx, BookEvent{Kind: DeleteQueue, Book: book, At: at}))
		_, err := journal.Snapshot(ctx, 1)
		assert.ErrorIs(t, err, ErrBookNotFound)

		events, err := journal.Events(ctx, 1)
		require.NoError(t, err)
		assert.Len(t, events, 3)

		_, err = journal.Snapshot(ctx, 2)
		assert.NoError(t, err)
	})
}

// TestJournalConsumer ensures dequeued events land into the journal
// tagged with their queue id and that the loop stops with its context.
func TestJournalConsumer(t *testing.T) {
	journal := newTestBoltJournal(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	queue := &MockQueuer{
		PopFunc: func(ctx context.Context, qids ...string) (string, BookEvent, error) {
			switch atomic.AddInt32(&calls, 1) {
			case 1:
				return CreateQueue, BookEvent{Book: Book{Model: Model{ID: 3}, Title: "t", Author: "a", IsAvailable: true}}, nil
			case 2:
				return "", BookEvent{}, errors.New("transient failure")
			case 3:
				return "unknown", BookEvent{Book: Book{Model: Model{ID: 4}}}, nil
			case 4:
				return ReturnQueue, BookEvent{Book: Book{Model: Model{ID: 3}, Title: "t", Author: "a", IsAvailable: true}}, nil
			default:
				cancel()
				<-ctx.Done()
				return "", BookEvent{}, ctx.Err()
			}
		},
	}

	consumer := NewJournalConsumer(zap.NewNop(), queue, journal)
	consumer.(*journalConsumer).retryDelay = time.Millisecond
	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx, CreateQueue, ReturnQueue) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop after context cancellation")
	}

	events, err := journal.Events(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, CreateQueue, events[0].Kind)
	assert.Equal(t, ReturnQueue, events[1].Kind)

	_, err = journal.Snapshot(context.Background(), 4)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

// TestJournalConsumer_PopFailureBackoff ensures a failing queue is not
// polled in a tight loop and the wait ends with the context.
func TestJournalConsumer_PopFailureBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls int32
	queue := &MockQueuer{
		PopFunc: func(ctx context.Context, qids ...string) (string, BookEvent, error) {
			atomic.AddInt32(&calls, 1)
			return "", BookEvent{}, errors.New("connection refused")
		},
	}
	core, logs := observer.New(zap.ErrorLevel)
	consumer := NewJournalConsumer(zap.New(core), queue, newTestBoltJournal(t))
	consumer.(*journalConsumer).retryDelay = time.Hour

	done := make(chan error, 1)
	go func() { done <- consumer.Consume(ctx, CreateQueue) }()

	time.Sleep(100 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("consumer did not stop while waiting to retry")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, logs.FilterMessage("consumer: error on queue pop call").Len())
}
