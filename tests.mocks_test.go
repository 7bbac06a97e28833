package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

// MockBookStorage implements BookStorage with overridable functions. A
// nil function panics so each test only wires what it expects to be called.
type MockBookStorage struct {
	AddFunc                func(ctx context.Context, book *Book) error
	GetOneFunc             func(ctx context.Context, id uint) (Book, error)
	GetByISBNFunc          func(ctx context.Context, isbn string) (Book, error)
	UpdateFunc             func(ctx context.Context, id uint, patch BookPatch, at time.Time) (Book, error)
	DeleteFunc             func(ctx context.Context, id uint) (bool, error)
	ListFunc               func(ctx context.Context, offset, limit int) ([]Book, error)
	SearchByAuthorFunc     func(ctx context.Context, author string) ([]Book, error)
	SearchFunc             func(ctx context.Context, text string) ([]Book, error)
	ListByAvailabilityFunc func(ctx context.Context, available bool) ([]Book, error)
	BorrowFunc             func(ctx context.Context, id uint, until, at time.Time) (Book, error)
	ReturnFunc             func(ctx context.Context, id uint, at time.Time) (Book, error)
}

func (m *MockBookStorage) Add(ctx context.Context, book *Book) error {
	return m.AddFunc(ctx, book)
}

func (m *MockBookStorage) GetOne(ctx context.Context, id uint) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

func (m *MockBookStorage) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	return m.GetByISBNFunc(ctx, isbn)
}

func (m *MockBookStorage) Update(ctx context.Context, id uint, patch BookPatch, at time.Time) (Book, error) {
	return m.UpdateFunc(ctx, id, patch, at)
}

func (m *MockBookStorage) Delete(ctx context.Context, id uint) (bool, error) {
	return m.DeleteFunc(ctx, id)
}

func (m *MockBookStorage) List(ctx context.Context, offset, limit int) ([]Book, error) {
	return m.ListFunc(ctx, offset, limit)
}

func (m *MockBookStorage) SearchByAuthor(ctx context.Context, author string) ([]Book, error) {
	return m.SearchByAuthorFunc(ctx, author)
}

func (m *MockBookStorage) Search(ctx context.Context, text string) ([]Book, error) {
	return m.SearchFunc(ctx, text)
}

func (m *MockBookStorage) ListByAvailability(ctx context.Context, available bool) ([]Book, error) {
	return m.ListByAvailabilityFunc(ctx, available)
}

func (m *MockBookStorage) Borrow(ctx context.Context, id uint, until, at time.Time) (Book, error) {
	return m.BorrowFunc(ctx, id, until, at)
}

func (m *MockBookStorage) Return(ctx context.Context, id uint, at time.Time) (Book, error) {
	return m.ReturnFunc(ctx, id, at)
}

// memBookStorage is an in-memory BookStorage with the same
// uniqueness and conditional borrow rules as the postgres one.
type memBookStorage struct {
	mu     sync.Mutex
	nextID uint
	books  map[uint]Book
}

func newMemBookStorage() *memBookStorage {
	return &memBookStorage{books: make(map[uint]Book)}
}

func (ms *memBookStorage) isbnTaken(isbn *string, except uint) bool {
	if isbn == nil {
		return false
	}
	for id, b := range ms.books {
		if id != except && b.ISBN != nil && *b.ISBN == *isbn {
			return true
		}
	}
	return false
}

func (ms *memBookStorage) Add(_ context.Context, book *Book) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.isbnTaken(book.ISBN, 0) {
		return &ConflictError{Field: "isbn", Value: *book.ISBN}
	}
	ms.nextID++
	book.ID = ms.nextID
	ms.books[book.ID] = *book
	return nil
}

func (ms *memBookStorage) GetOne(_ context.Context, id uint) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return b, nil
}

func (ms *memBookStorage) GetByISBN(_ context.Context, isbn string) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	for _, b := range ms.books {
		if b.ISBN != nil && *b.ISBN == isbn {
			return b, nil
		}
	}
	return Book{}, ErrBookNotFound
}

func (ms *memBookStorage) Update(_ context.Context, id uint, patch BookPatch, at time.Time) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	if patch.Title != nil {
		b.Title = *patch.Title
	}
	if patch.Author != nil {
		b.Author = *patch.Author
	}
	if patch.ISBN != nil {
		if *patch.ISBN == "" {
			b.ISBN = nil
		} else {
			if ms.isbnTaken(patch.ISBN, id) {
				return Book{}, &ConflictError{Field: "isbn", Value: *patch.ISBN}
			}
			v := *patch.ISBN
			b.ISBN = &v
		}
	}
	if patch.Description != nil {
		b.Description = patch.Description
	}
	if patch.Pages != nil {
		b.Pages = patch.Pages
	}
	if patch.PublishedYear != nil {
		b.PublishedYear = patch.PublishedYear
	}
	b.UpdatedAt = at
	ms.books[id] = b
	return b, nil
}

func (ms *memBookStorage) Delete(_ context.Context, id uint) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.books[id]; !ok {
		return false, nil
	}
	delete(ms.books, id)
	return true, nil
}

func (ms *memBookStorage) sorted(keep func(Book) bool) []Book {
	books := []Book{}
	for _, b := range ms.books {
		if keep(b) {
			books = append(books, b)
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

func (ms *memBookStorage) List(_ context.Context, offset, limit int) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	books := ms.sorted(func(Book) bool { return true })
	if offset >= len(books) {
		return []Book{}, nil
	}
	books = books[offset:]
	if limit < len(books) {
		books = books[:limit]
	}
	return books, nil
}

func (ms *memBookStorage) SearchByAuthor(_ context.Context, author string) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	author = strings.ToLower(author)
	return ms.sorted(func(b Book) bool {
		return strings.Contains(strings.ToLower(b.Author), author)
	}), nil
}

func (ms *memBookStorage) Search(_ context.Context, text string) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	text = strings.ToLower(text)
	return ms.sorted(func(b Book) bool {
		return strings.Contains(strings.ToLower(b.Title), text) || strings.Contains(strings.ToLower(b.Author), text)
	}), nil
}

func (ms *memBookStorage) ListByAvailability(_ context.Context, available bool) ([]Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.sorted(func(b Book) bool { return b.IsAvailable == available }), nil
}

func (ms *memBookStorage) Borrow(_ context.Context, id uint, until, at time.Time) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	if !b.IsAvailable {
		return b, ErrBookNotAvailable
	}
	b.IsAvailable = false
	b.BorrowedUntil = &until
	b.UpdatedAt = at
	ms.books[id] = b
	return b, nil
}

func (ms *memBookStorage) Return(_ context.Context, id uint, at time.Time) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	b, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	b.IsAvailable = true
	b.BorrowedUntil = nil
	b.UpdatedAt = at
	ms.books[id] = b
	return b, nil
}

// memUserStorage is an in-memory UserStorage.
type memUserStorage struct {
	mu     sync.Mutex
	nextID uint
	users  map[uint]User
}

func newMemUserStorage() *memUserStorage {
	return &memUserStorage{users: make(map[uint]User)}
}

func (us *memUserStorage) Add(_ context.Context, user *User) error {
	us.mu.Lock()
	defer us.mu.Unlock()
	for _, u := range us.users {
		if u.Email == user.Email {
			return &ConflictError{Field: "email", Value: user.Email}
		}
	}
	us.nextID++
	user.ID = us.nextID
	us.users[user.ID] = *user
	return nil
}

func (us *memUserStorage) GetOne(_ context.Context, id uint) (User, error) {
	us.mu.Lock()
	defer us.mu.Unlock()
	u, ok := us.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (us *memUserStorage) GetByEmail(_ context.Context, email string) (User, error) {
	us.mu.Lock()
	defer us.mu.Unlock()
	for _, u := range us.users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

// memTokenBlacklist is an in-memory TokenBlacklist.
type memTokenBlacklist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func newMemTokenBlacklist() *memTokenBlacklist {
	return &memTokenBlacklist{revoked: make(map[string]time.Time)}
}

func (mb *memTokenBlacklist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.revoked[tokenID] = expiresAt
	return nil
}

func (mb *memTokenBlacklist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	_, ok := mb.revoked[tokenID]
	return ok, nil
}

// MockQueuer implements a fake Queuer.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, event BookEvent) error
	PopFunc  func(ctx context.Context, qids ...string) (string, BookEvent, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, event BookEvent) error {
	return mq.PushFunc(ctx, qid, event)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, BookEvent, error) {
	return mq.PopFunc(ctx, qids...)
}

// recordingQueuer keeps every pushed event.
type recordingQueuer struct {
	mu     sync.Mutex
	events []BookEvent
}

func (rq *recordingQueuer) Push(_ context.Context, qid string, event BookEvent) error {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	rq.events = append(rq.events, event)
	return nil
}

func (rq *recordingQueuer) Pop(ctx context.Context, _ ...string) (string, BookEvent, error) {
	<-ctx.Done()
	return "", BookEvent{}, ctx.Err()
}

func (rq *recordingQueuer) kinds() []string {
	rq.mu.Lock()
	defer rq.mu.Unlock()
	kinds := make([]string, 0, len(rq.events))
	for _, e := range rq.events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }
