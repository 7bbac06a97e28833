package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const TokenIDPrefix string = "t"

// Claims is the payload of an access token. The subject holds the user id.
type Claims struct {
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies HS256 signed access tokens.
type TokenManager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	clock  Clocker
	ids    UIDHandler
}

func NewTokenManager(config *AuthConfig, clock Clocker, ids UIDHandler) *TokenManager {
	return &TokenManager{
		secret: []byte(config.JWTSecret),
		issuer: config.JWTIssuer,
		ttl:    config.TokenTTL,
		clock:  clock,
		ids:    ids,
	}
}

// Issue signs a new token for the user. Each token gets its own id
// so that it can be revoked on its own.
func (tm *TokenManager) Issue(user User) (string, *Claims, error) {
	now := tm.clock.Now()
	claims := &Claims{
		UserID: user.ID,
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tm.ids.Generate(TokenIDPrefix),
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tm.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(tm.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims, nil
}

// Parse verifies the signature, the expiry and the issuer of the token.
// Any failure is reported as ErrInvalidToken.
func (tm *TokenManager) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(tm.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if tm.issuer != "" {
		opts = append(opts, jwt.WithIssuer(tm.issuer))
	}

	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return tm.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || !tm.ids.IsValid(claims.ID, TokenIDPrefix) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// HashPassword returns the bcrypt hash of the password. A cost out
// of the bcrypt range falls back to the default cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
