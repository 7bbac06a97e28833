package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RevokedTokenKeyPrefix namespaces the revoked token ids.
const RevokedTokenKeyPrefix string = "revoked:"

// TokenBlacklist keeps track of access tokens invalidated before their expiry.
type TokenBlacklist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type redisTokenBlacklist struct {
	logger *zap.Logger
	client *redis.Client
	clock  Clocker
}

// NewRedisTokenBlacklist provides an instance of redis-based token blacklist.
func NewRedisTokenBlacklist(logger *zap.Logger, client *redis.Client, clock Clocker) TokenBlacklist {
	return &redisTokenBlacklist{
		logger: logger,
		client: client,
		clock:  clock,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// Revoke stores the token id until its natural expiry. Already
// expired tokens are not stored since they are rejected anyway.
func (rb *redisTokenBlacklist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(rb.clock.Now())
	if ttl <= 0 {
		return nil
	}
	return rb.client.Set(ctx, RevokedTokenKeyPrefix+tokenID, 1, ttl).Err()
}

// IsRevoked checks if the token id was revoked.
func (rb *redisTokenBlacklist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := rb.client.Exists(ctx, RevokedTokenKeyPrefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
