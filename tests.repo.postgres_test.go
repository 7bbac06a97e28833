package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func startPostgresDockerContainer(t *testing.T) (*gorm.DB, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Failed to start Dockertest: %+v", err)
	}
	if err = pool.Client.Ping(); err != nil {
		t.Skipf("Could not connect to Docker: %+v", err)
	}

	resource, err := pool.Run("postgres", "15-alpine", []string{
		"POSTGRES_USER=lending",
		"POSTGRES_PASSWORD=lending",
		"POSTGRES_DB=lending",
	})
	if err != nil {
		t.Fatalf("Failed to start postgres: %+v", err)
	}
	_ = resource.Expire(120)

	config := &Config{Postgres: PostgresConfig{
		Host:         "localhost",
		Port:         resource.GetPort("5432/tcp"),
		User:         "lending",
		Password:     "lending",
		DatabaseName: "lending",
		MaxOpenConns: 10,
		AutoMigrate:  true,
	}}

	var db *gorm.DB
	pool.MaxWait = 60 * time.Second
	err = pool.Retry(func() error {
		var e error
		db, e = GetPostgresClient(config, zap.NewNop())
		return e
	})
	if err != nil {
		t.Fatalf("Failed to connect to postgres: %+v", err)
	}

	destroyFunc := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}
	return db, destroyFunc
}

func TestPostgresStore(t *testing.T) {
	db, destroyFunc := startPostgresDockerContainer(t)
	defer destroyFunc()

	ps := NewPostgresBookStorage(zap.NewNop(), db)
	us := NewPostgresUserStorage(zap.NewNop(), db)
	ctx := context.Background()
	now := NewMockClocker().Now()

	newBook := func(title, author string, isbn *string) *Book {
		return &Book{
			Model:       Model{CreatedAt: now, UpdatedAt: now},
			Title:       title,
			Author:      author,
			ISBN:        isbn,
			IsAvailable: true,
		}
	}

	first := newBook("Learning Python", "Mark Lutz", strPtr("978-1449355739"))
	second := newBook("The Go Programming Language", "Alan Donovan", nil)
	third := newBook("100%_Real python", "Anonymous", nil)

	t.Run("Add Books", func(t *testing.T) {
		require.NoError(t, ps.Add(ctx, first))
		require.NoError(t, ps.Add(ctx, second))
		require.NoError(t, ps.Add(ctx, third))
		assert.NotZero(t, first.ID)
		assert.Greater(t, second.ID, first.ID)
	})

	t.Run("Add Duplicate ISBN", func(t *testing.T) {
		err := ps.Add(ctx, newBook("Copy", "Someone", strPtr("978-1449355739")))
		assert.True(t, IsConflictError(err), "%v", err)
	})

	t.Run("Get Books", func(t *testing.T) {
		book, err := ps.GetOne(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, "Learning Python", book.Title)

		book, err = ps.GetByISBN(ctx, "978-1449355739")
		require.NoError(t, err)
		assert.Equal(t, first.ID, book.ID)

		_, err = ps.GetOne(ctx, 999999)
		assert.ErrorIs(t, err, ErrBookNotFound)
		_, err = ps.GetByISBN(ctx, "000")
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Search", func(t *testing.T) {
		books, err := ps.Search(ctx, "PYTHON")
		require.NoError(t, err)
		assert.Equal(t, []uint{first.ID, third.ID}, bookIDs(books))

		// wildcards are matched literally.
		books, err = ps.Search(ctx, "%_")
		require.NoError(t, err)
		assert.Equal(t, []uint{third.ID}, bookIDs(books))

		books, err = ps.SearchByAuthor(ctx, "donovan")
		require.NoError(t, err)
		assert.Equal(t, []uint{second.ID}, bookIDs(books))
	})

	t.Run("List", func(t *testing.T) {
		books, err := ps.List(ctx, 1, 1)
		require.NoError(t, err)
		assert.Equal(t, []uint{second.ID}, bookIDs(books))

		books, err = ps.List(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, books)
	})

	t.Run("Update", func(t *testing.T) {
		later := now.Add(time.Hour)
		book, err := ps.Update(ctx, second.ID, BookPatch{Title: strPtr("The Go Book"), Pages: intPtr(380)}, later)
		require.NoError(t, err)
		assert.Equal(t, "The Go Book", book.Title)
		assert.Equal(t, "Alan Donovan", book.Author)
		require.NotNil(t, book.Pages)
		assert.Equal(t, 380, *book.Pages)
		assert.True(t, later.Equal(book.UpdatedAt))

		_, err = ps.Update(ctx, second.ID, BookPatch{ISBN: strPtr("978-1449355739")}, later)
		assert.True(t, IsConflictError(err), "%v", err)

		book, err = ps.Update(ctx, first.ID, BookPatch{ISBN: strPtr("")}, later)
		require.NoError(t, err)
		assert.Nil(t, book.ISBN)

		_, err = ps.Update(ctx, 999999, BookPatch{Title: strPtr("x")}, later)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Concurrent Borrow", func(t *testing.T) {
		until := now.Add(LendingPeriod)
		var wg sync.WaitGroup
		var mu sync.Mutex
		var succeeded, conflicts int
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ps.Borrow(ctx, third.ID, until, now)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, ErrBookNotAvailable):
					conflicts++
				default:
					t.Errorf("unexpected borrow error: %v", err)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 7, conflicts)

		book, err := ps.GetOne(ctx, third.ID)
		require.NoError(t, err)
		assert.False(t, book.IsAvailable)
		assertLendingState(t, book)

		borrowed, err := ps.ListByAvailability(ctx, false)
		require.NoError(t, err)
		assert.Equal(t, []uint{third.ID}, bookIDs(borrowed))

		_, err = ps.Borrow(ctx, 999999, until, now)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Return", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			book, err := ps.Return(ctx, third.ID, now)
			require.NoError(t, err)
			assert.True(t, book.IsAvailable)
			assertLendingState(t, book)
		}
		_, err := ps.Return(ctx, 999999, now)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		deleted, err := ps.Delete(ctx, second.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		deleted, err = ps.Delete(ctx, second.ID)
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("Users", func(t *testing.T) {
		user := &User{Email: "jane@example.com", Name: "Jane", HashedPassword: "hash"}
		require.NoError(t, us.Add(ctx, user))
		assert.NotZero(t, user.ID)

		err := us.Add(ctx, &User{Email: "jane@example.com", Name: "Other", HashedPassword: "hash"})
		assert.True(t, IsConflictError(err), "%v", err)

		found, err := us.GetByEmail(ctx, "jane@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = us.GetOne(ctx, user.ID+100)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestLikePattern(t *testing.T) {
	testCases := []struct {
		in, out string
	}{
		{"python", "%python%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\dir`, `%c:\\dir%`},
		{"", "%%"},
	}
	for _, tc := range testCases {
		t.Run(fmt.Sprintf("%q", tc.in), func(t *testing.T) {
			assert.Equal(t, tc.out, likePattern(tc.in))
		})
	}
}
