package main

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Paging bounds applied by List.
const (
	DefaultPageSize = 100
	MaxPageSize     = 500
)

type BookServiceProvider interface {
	Create(ctx context.Context, input BookInput) (Book, error)
	GetByID(ctx context.Context, id uint) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	Update(ctx context.Context, id uint, patch BookPatch) (Book, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, offset, limit int) ([]Book, error)
	SearchByAuthor(ctx context.Context, author string) ([]Book, error)
	Search(ctx context.Context, text string) ([]Book, error)
	ListAvailable(ctx context.Context) ([]Book, error)
	ListBorrowed(ctx context.Context) ([]Book, error)
	Borrow(ctx context.Context, id uint) (Book, error)
	Return(ctx context.Context, id uint) (Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	storage BookStorage
	queue   Queuer
}

func NewBookService(logger *zap.Logger, config *Config, clock Clocker, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

// Create validates the input then stores a new available book.
func (bs *BookService) Create(ctx context.Context, input BookInput) (Book, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Author = strings.TrimSpace(input.Author)
	input.ISBN = trimPtr(input.ISBN)
	if err := ValidateStruct(&input); err != nil {
		return Book{}, err
	}

	now := bs.clock.Now()
	book := Book{
		Model:         Model{CreatedAt: now, UpdatedAt: now},
		Title:         input.Title,
		Author:        input.Author,
		Description:   input.Description,
		Pages:         input.Pages,
		PublishedYear: input.PublishedYear,
		IsAvailable:   true,
	}
	if input.ISBN != nil && *input.ISBN != "" {
		book.ISBN = input.ISBN
	}

	if err := bs.storage.Add(ctx, &book); err != nil {
		return Book{}, err
	}
	bs.publish(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetByID(ctx context.Context, id uint) (Book, error) {
	return bs.storage.GetOne(ctx, id)
}

func (bs *BookService) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	return bs.storage.GetByISBN(ctx, strings.TrimSpace(isbn))
}

// Update applies the supplied fields only. An empty patch still
// refreshes the update time.
func (bs *BookService) Update(ctx context.Context, id uint, patch BookPatch) (Book, error) {
	if patch.IsEmpty() {
		bs.logger.Debug("service: empty patch only refreshes update time", zap.Uint("book.id", id))
	} else {
		patch.Title = trimPtr(patch.Title)
		patch.Author = trimPtr(patch.Author)
		patch.ISBN = trimPtr(patch.ISBN)
		if err := ValidateStruct(&patch); err != nil {
			return Book{}, err
		}
	}

	book, err := bs.storage.Update(ctx, id, patch, bs.clock.Now())
	if err != nil {
		return book, err
	}
	bs.publish(ctx, UpdateQueue, book)
	return book, nil
}

// Delete reports false when there was no such book.
func (bs *BookService) Delete(ctx context.Context, id uint) (bool, error) {
	deleted, err := bs.storage.Delete(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}
	bs.publish(ctx, DeleteQueue, Book{Model: Model{ID: id}})
	return true, nil
}

func (bs *BookService) List(ctx context.Context, offset, limit int) ([]Book, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return bs.storage.List(ctx, offset, limit)
}

func (bs *BookService) SearchByAuthor(ctx context.Context, author string) ([]Book, error) {
	return bs.storage.SearchByAuthor(ctx, strings.TrimSpace(author))
}

func (bs *BookService) Search(ctx context.Context, text string) ([]Book, error) {
	return bs.storage.Search(ctx, strings.TrimSpace(text))
}

func (bs *BookService) ListAvailable(ctx context.Context) ([]Book, error) {
	return bs.storage.ListByAvailability(ctx, true)
}

func (bs *BookService) ListBorrowed(ctx context.Context) ([]Book, error) {
	return bs.storage.ListByAvailability(ctx, false)
}

// Borrow lends an available book for the LendingPeriod.
func (bs *BookService) Borrow(ctx context.Context, id uint) (Book, error) {
	now := bs.clock.Now()
	book, err := bs.storage.Borrow(ctx, id, now.Add(LendingPeriod), now)
	if err != nil {
		return book, err
	}
	bs.publish(ctx, BorrowQueue, book)
	return book, nil
}

// Return makes the book available. Returning an available book succeeds.
func (bs *BookService) Return(ctx context.Context, id uint) (Book, error) {
	book, err := bs.storage.Return(ctx, id, bs.clock.Now())
	if err != nil {
		return book, err
	}
	bs.publish(ctx, ReturnQueue, book)
	return book, nil
}

func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	event := BookEvent{Kind: qid, Book: book, At: bs.clock.Now()}
	if err := bs.queue.Push(ctx, qid, event); err != nil {
		bs.logger.Error("service: failed to push book event to queue",
			zap.String("qid", qid),
			zap.Uint("book.id", book.ID),
			zap.String("request.id", GetValueFromContext(ctx, ContextRequestID)),
			zap.Error(err),
		)
	}
}
