// Package cache keeps court catalog listings in redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/padel-booking/services/booking-service/internal/domain"
)

const keyPrefix = "cache:courts:"

type CourtCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *CourtCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &CourtCache{client: rdb, ttl: ttl}
}

// Ping checks the connection so startup can fall back to no cache.
func (c *CourtCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func keyFor(city string) string {
	if city == "" {
		return keyPrefix + "all"
	}
	return keyPrefix + "city:" + city
}

func (c *CourtCache) Get(ctx context.Context, city string) ([]domain.Court, bool, error) {
	val, err := c.client.Get(ctx, keyFor(city)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var courts []domain.Court
	if err := json.Unmarshal(val, &courts); err != nil {
		return nil, false, fmt.Errorf("decode cached courts: %w", err)
	}
	return courts, true, nil
}

func (c *CourtCache) Set(ctx context.Context, city string, courts []domain.Court) error {
	data, err := json.Marshal(courts)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, keyFor(city), data, c.ttl).Err()
}

// Invalidate drops every cached listing.
func (c *CourtCache) Invalidate(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

func (c *CourtCache) Close() error { return c.client.Close() }
