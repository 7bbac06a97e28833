package main

import "context"

// User represents a registered account.
type User struct {
	Model
	Email          string `json:"email" gorm:"size:100;not null;uniqueIndex"`
	Name           string `json:"name" gorm:"size:100;not null"`
	HashedPassword string `json:"-" gorm:"size:255;not null"`
}

// RegisterInput carries the fields accepted on user registration.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Name     string `json:"name" validate:"required,max=100"`
	Password string `json:"password" validate:"required,max=72"`
}

// LoginInput carries the user credentials.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserStorage defines possible operations on user entity.
type UserStorage interface {
	Add(ctx context.Context, user *User) error
	GetOne(ctx context.Context, id uint) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
}
