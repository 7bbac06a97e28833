package main

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type postgresUserStorage struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewPostgresUserStorage provides an instance of postgres-based user storage.
func NewPostgresUserStorage(logger *zap.Logger, db *gorm.DB) UserStorage {
	return &postgresUserStorage{
		logger: logger,
		db:     db,
	}
}

// Add inserts a new user. A taken email is reported as *ConflictError.
func (us *postgresUserStorage) Add(ctx context.Context, user *User) error {
	err := us.db.WithContext(ctx).Create(user).Error
	if isUniqueViolation(err) {
		return &ConflictError{Field: "email", Value: user.Email}
	}
	return err
}

// GetOne retrieves a user based on its ID.
func (us *postgresUserStorage) GetOne(ctx context.Context, id uint) (User, error) {
	return us.find(ctx, "id = ?", id)
}

// GetByEmail retrieves a user based on its email.
func (us *postgresUserStorage) GetByEmail(ctx context.Context, email string) (User, error) {
	return us.find(ctx, "email = ?", email)
}

func (us *postgresUserStorage) find(ctx context.Context, query string, arg interface{}) (User, error) {
	var user User
	err := us.db.WithContext(ctx).Where(query, arg).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	return user, err
}
