package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// BookJournal keeps an append-only history of book events
// alongside the latest known state of each book.
type BookJournal interface {
	Record(ctx context.Context, event BookEvent) error
	Snapshot(ctx context.Context, id uint) (Book, error)
	Events(ctx context.Context, bookID uint) ([]BookEvent, error)
}

type boltBookJournal struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database and the buckets then provides a ready to use client.
func GetBoltDBClient(config *Config) (*bolt.DB, error) {
	db, err := bolt.Open(config.BoltDB.FilePath, 0o600, &bolt.Options{Timeout: config.BoltDB.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range []string{config.BoltDB.BooksBucketName, config.BoltDB.EventsBucketName} {
			if _, errB := tx.CreateBucketIfNotExists([]byte(name)); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %v", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up buckets: %v", err)
	}
	return db, nil
}

// NewBoltBookJournal provides an instance of bolt-based book journal.
func NewBoltBookJournal(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookJournal {
	return &boltBookJournal{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book journal.
func (bj *boltBookJournal) Close() error {
	return bj.client.Close()
}

// Record appends the event and refreshes the book snapshot in one transaction.
// A deletion event drops the snapshot.
func (bj *boltBookJournal) Record(_ context.Context, event BookEvent) error {
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	bookBytes, err := json.Marshal(event.Book)
	if err != nil {
		return err
	}
	return bj.client.Update(func(tx *bolt.Tx) error {
		books := tx.Bucket([]byte(bj.config.BooksBucketName))
		if event.Kind == DeleteQueue {
			if err := books.Delete(itob(uint64(event.Book.ID))); err != nil {
				return err
			}
		} else if err := books.Put(itob(uint64(event.Book.ID)), bookBytes); err != nil {
			return err
		}

		events := tx.Bucket([]byte(bj.config.EventsBucketName))
		seq, err := events.NextSequence()
		if err != nil {
			return err
		}
		return events.Put(itob(seq), eventBytes)
	})
}

// Snapshot retrieves the latest journaled state of a book.
func (bj *boltBookJournal) Snapshot(_ context.Context, id uint) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bj.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bj.config.BooksBucketName)).Get(itob(uint64(id)))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// Events retrieves the journaled events in recording order. A zero
// bookID returns the events of all books.
func (bj *boltBookJournal) Events(_ context.Context, bookID uint) ([]BookEvent, error) {
	tx, err := bj.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the events' bucket.
	c := tx.Bucket([]byte(bj.config.EventsBucketName)).Cursor()

	events := []BookEvent{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var event BookEvent
		if err = json.Unmarshal(v, &event); err != nil {
			return nil, err
		}
		if bookID != 0 && event.Book.ID != bookID {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// itob returns an 8-byte big endian representation of v
// so that bolt keeps keys in numeric order.
func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
