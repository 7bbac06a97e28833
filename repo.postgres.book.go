package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type postgresBookStorage struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewPostgresBookStorage provides an instance of postgres-based book storage.
func NewPostgresBookStorage(logger *zap.Logger, db *gorm.DB) BookStorage {
	return &postgresBookStorage{
		logger: logger,
		db:     db,
	}
}

// Add inserts a new book record and fills its generated id.
func (ps *postgresBookStorage) Add(ctx context.Context, book *Book) error {
	err := ps.db.WithContext(ctx).Create(book).Error
	if isUniqueViolation(err) {
		return &ConflictError{Field: "isbn", Value: deref(book.ISBN)}
	}
	return err
}

// GetOne retrieves a book record based on its ID.
func (ps *postgresBookStorage) GetOne(ctx context.Context, id uint) (Book, error) {
	return findBook(ps.db.WithContext(ctx), "id = ?", id)
}

// GetByISBN retrieves a book record based on its ISBN.
func (ps *postgresBookStorage) GetByISBN(ctx context.Context, isbn string) (Book, error) {
	return findBook(ps.db.WithContext(ctx), "isbn = ?", isbn)
}

// Update applies the non-nil fields of the patch and stamps the update time.
// An empty ISBN clears the column.
func (ps *postgresBookStorage) Update(ctx context.Context, id uint, patch BookPatch, at time.Time) (Book, error) {
	var book Book
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if book, err = findBook(tx, "id = ?", id); err != nil {
			return err
		}

		updates := map[string]interface{}{"updated_at": at}
		if patch.Title != nil {
			updates["title"] = *patch.Title
		}
		if patch.Author != nil {
			updates["author"] = *patch.Author
		}
		if patch.ISBN != nil {
			if *patch.ISBN == "" {
				updates["isbn"] = nil
			} else {
				updates["isbn"] = *patch.ISBN
			}
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.Pages != nil {
			updates["pages"] = *patch.Pages
		}
		if patch.PublishedYear != nil {
			updates["published_year"] = *patch.PublishedYear
		}

		if err = tx.Model(&Book{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			if isUniqueViolation(err) {
				return &ConflictError{Field: "isbn", Value: deref(patch.ISBN)}
			}
			return err
		}
		book, err = findBook(tx, "id = ?", id)
		return err
	})
	return book, err
}

// Delete removes a book record. It reports false when no row matched.
func (ps *postgresBookStorage) Delete(ctx context.Context, id uint) (bool, error) {
	res := ps.db.WithContext(ctx).Delete(&Book{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// List retrieves a page of books ordered by id.
func (ps *postgresBookStorage) List(ctx context.Context, offset, limit int) ([]Book, error) {
	books := []Book{}
	err := ps.db.WithContext(ctx).Order("id asc").Offset(offset).Limit(limit).Find(&books).Error
	return books, err
}

// SearchByAuthor retrieves books whose author contains the given text, ignoring case.
func (ps *postgresBookStorage) SearchByAuthor(ctx context.Context, author string) ([]Book, error) {
	books := []Book{}
	err := ps.db.WithContext(ctx).
		Where("author ILIKE ?", likePattern(author)).
		Order("id asc").
		Find(&books).Error
	return books, err
}

// Search retrieves books whose title or author contains the given text, ignoring case.
func (ps *postgresBookStorage) Search(ctx context.Context, text string) ([]Book, error) {
	books := []Book{}
	pattern := likePattern(text)
	err := ps.db.WithContext(ctx).
		Where("title ILIKE ? OR author ILIKE ?", pattern, pattern).
		Order("id asc").
		Find(&books).Error
	return books, err
}

// ListByAvailability retrieves either the available or the borrowed books.
func (ps *postgresBookStorage) ListByAvailability(ctx context.Context, available bool) ([]Book, error) {
	books := []Book{}
	err := ps.db.WithContext(ctx).
		Where("is_available = ?", available).
		Order("id asc").
		Find(&books).Error
	return books, err
}

// Borrow flips an available book to borrowed with a single conditional
// update, so that only one of concurrent callers can succeed.
func (ps *postgresBookStorage) Borrow(ctx context.Context, id uint, until, at time.Time) (Book, error) {
	var book Book
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Book{}).
			Where("id = ? AND is_available = ?", id, true).
			Updates(map[string]interface{}{
				"is_available":   false,
				"borrowed_until": until,
				"updated_at":     at,
			})
		if res.Error != nil {
			return res.Error
		}

		var err error
		book, err = findBook(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if res.RowsAffected == 0 {
			return ErrBookNotAvailable
		}
		return nil
	})
	return book, err
}

// Return makes a book available again whatever its current state.
func (ps *postgresBookStorage) Return(ctx context.Context, id uint, at time.Time) (Book, error) {
	var book Book
	err := ps.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Book{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"is_available":   true,
				"borrowed_until": nil,
				"updated_at":     at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrBookNotFound
		}

		var err error
		book, err = findBook(tx, "id = ?", id)
		return err
	})
	return book, err
}

func findBook(db *gorm.DB, query string, arg interface{}) (Book, error) {
	var book Book
	err := db.Where(query, arg).First(&book).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
