package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

type AuthServiceProvider interface {
	Register(ctx context.Context, input RegisterInput) (User, error)
	Login(ctx context.Context, input LoginInput) (AccessToken, error)
	Me(ctx context.Context, userID uint) (User, error)
	Logout(ctx context.Context, claims *Claims) error
	Authenticate(ctx context.Context, token string) (*Claims, error)
}

// AccessToken is returned on successful login.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	User        User      `json:"user"`
}

type AuthService struct {
	logger    *zap.Logger
	config    *Config
	storage   UserStorage
	tokens    *TokenManager
	blacklist TokenBlacklist
}

func NewAuthService(logger *zap.Logger, config *Config, storage UserStorage, tokens *TokenManager, blacklist TokenBlacklist) AuthServiceProvider {
	return &AuthService{
		logger:    logger,
		config:    config,
		storage:   storage,
		tokens:    tokens,
		blacklist: blacklist,
	}
}

// Register creates a new user account with a hashed password.
func (as *AuthService) Register(ctx context.Context, input RegisterInput) (User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Name = strings.TrimSpace(input.Name)
	if err := ValidateStruct(&input); err != nil {
		return User{}, err
	}
	if utf8.RuneCountInString(input.Password) < as.config.Auth.MinPassword {
		return User{}, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters", as.config.Auth.MinPassword),
		}
	}
	// bcrypt only accepts up to 72 bytes, whatever the rune count.
	if len(input.Password) > MaxPasswordBytes {
		return User{}, &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes", MaxPasswordBytes),
		}
	}

	hashed, err := HashPassword(input.Password, as.config.Auth.BcryptCost)
	if err != nil {
		return User{}, fmt.Errorf("failed to hash password: %w", err)
	}
	user := User{Email: input.Email, Name: input.Name, HashedPassword: hashed}
	if err = as.storage.Add(ctx, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Login checks the credentials and issues an access token. Unknown
// email and wrong password are not distinguished.
func (as *AuthService) Login(ctx context.Context, input LoginInput) (AccessToken, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := ValidateStruct(&input); err != nil {
		return AccessToken{}, err
	}

	user, err := as.storage.GetByEmail(ctx, input.Email)
	if errors.Is(err, ErrUserNotFound) {
		return AccessToken{}, ErrInvalidCredentials
	}
	if err != nil {
		return AccessToken{}, err
	}
	if !VerifyPassword(user.HashedPassword, input.Password) {
		return AccessToken{}, ErrInvalidCredentials
	}

	token, claims, err := as.tokens.Issue(user)
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   claims.ExpiresAt.Time,
		User:        user,
	}, nil
}

func (as *AuthService) Me(ctx context.Context, userID uint) (User, error) {
	return as.storage.GetOne(ctx, userID)
}

// Logout revokes the token until its natural expiry.
func (as *AuthService) Logout(ctx context.Context, claims *Claims) error {
	if claims == nil || claims.ExpiresAt == nil {
		return ErrInvalidToken
	}
	return as.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Authenticate verifies the token and rejects revoked ones.
func (as *AuthService) Authenticate(ctx context.Context, token string) (*Claims, error) {
	claims, err := as.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := as.blacklist.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to check token revocation: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return claims, nil
}
