package main

import (
	"context"
	"time"
)

// LendingPeriod is the fixed borrow window granted on each successful borrow.
const LendingPeriod = 7 * 24 * time.Hour

// Model holds the columns shared by every persisted entity.
type Model struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Book represents a book entity. A book is borrowed when IsAvailable
// is false and in that case only BorrowedUntil holds the due date.
type Book struct {
	Model
	Title         string     `json:"title" gorm:"size:200;not null;index"`
	Author        string     `json:"author" gorm:"size:100;not null"`
	ISBN          *string    `json:"isbn" gorm:"column:isbn;size:17;uniqueIndex"`
	Description   *string    `json:"description" gorm:"type:text"`
	Pages         *int       `json:"pages"`
	PublishedYear *int       `json:"published_year"`
	IsAvailable   bool       `json:"is_available" gorm:"not null;default:true;index"`
	BorrowedUntil *time.Time `json:"borrowed_until"`
}

// IsBorrowed reports whether the book is currently lent out.
func (b *Book) IsBorrowed() bool {
	return !b.IsAvailable
}

// BookInput carries the fields accepted on book creation.
type BookInput struct {
	Title         string  `json:"title" validate:"required,max=200"`
	Author        string  `json:"author" validate:"required,max=100"`
	ISBN          *string `json:"isbn" validate:"omitempty,max=17"`
	Description   *string `json:"description"`
	Pages         *int    `json:"pages" validate:"omitempty,gt=0"`
	PublishedYear *int    `json:"published_year"`
}

// BookPatch carries a partial update. A nil field is left unchanged.
type BookPatch struct {
	Title         *string `json:"title" validate:"omitempty,min=1,max=200"`
	Author        *string `json:"author" validate:"omitempty,min=1,max=100"`
	ISBN          *string `json:"isbn" validate:"omitempty,max=17"`
	Description   *string `json:"description"`
	Pages         *int    `json:"pages" validate:"omitempty,gt=0"`
	PublishedYear *int    `json:"published_year"`
}

// IsEmpty reports whether the patch does not touch any field.
func (p *BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Author == nil && p.ISBN == nil &&
		p.Description == nil && p.Pages == nil && p.PublishedYear == nil
}

// BookStorage defines possible operations on book entity.
type BookStorage interface {
	Add(ctx context.Context, book *Book) error
	GetOne(ctx context.Context, id uint) (Book, error)
	GetByISBN(ctx context.Context, isbn string) (Book, error)
	Update(ctx context.Context, id uint, patch BookPatch, at time.Time) (Book, error)
	Delete(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, offset, limit int) ([]Book, error)
	SearchByAuthor(ctx context.Context, author string) ([]Book, error)
	Search(ctx context.Context, text string) ([]Book, error)
	ListByAvailability(ctx context.Context, available bool) ([]Book, error)
	Borrow(ctx context.Context, id uint, until, at time.Time) (Book, error)
	Return(ctx context.Context, id uint, at time.Time) (Book, error)
}
