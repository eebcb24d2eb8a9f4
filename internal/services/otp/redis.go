// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package otp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/jobboard/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "jobboard:otp:"

// RedisStore keeps codes as Redis keys that expire with the code.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore creates a store on client. now defaults to time.Now.
func NewRedisStore(client *redis.Client, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, now: now}
}

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func codeKey(hash string) string { return keyPrefix + "code:" + hash }
func emailKey(email string) string { return keyPrefix + "email:" + email }

func (s *RedisStore) Issue(ctx context.Context, email, codeHash string, ttl time.Duration) (*models.OneTimeCode, error) {
	now := s.now().UTC()
	code := &models.OneTimeCode{
		Email:     email,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return nil, err
	}

	// Drop the email's previous code
	previous, err := s.client.GetDel(ctx, emailKey(email)).Result()
	switch {
	case err == nil:
		if err := s.client.Del(ctx, codeKey(previous)).Err(); err != nil {
			return nil, fmt.Errorf("delete previous code: %w", err)
		}
	case !errors.Is(err, redis.Nil):
		return nil, fmt.Errorf("lookup previous code: %w", err)
	}

	ok, err := s.client.SetNX(ctx, codeKey(codeHash), payload, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("store code: %w", err)
	}
	if !ok {
		return nil, ErrCollision
	}
	if err := s.client.Set(ctx, emailKey(email), codeHash, ttl).Err(); err != nil {
		return nil, fmt.Errorf("index code: %w", err)
	}
	return code, nil
}

func (s *RedisStore) Consume(ctx context.Context, codeHash string) (*models.OneTimeCode, error) {
	raw, err := s.client.GetDel(ctx, codeKey(codeHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("consume code: %w", err)
	}

	var code models.OneTimeCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return nil, fmt.Errorf("decode code: %w", err)
	}
	code.CodeHash = codeHash
	_ = s.client.Del(ctx, emailKey(code.Email)).Err()

	if code.Expired(s.now()) {
		return nil, ErrNotFound
	}
	return &code, nil
}
