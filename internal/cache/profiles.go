// Package cache holds the Redis-backed profile search cache.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/heroverse/apiserver/types"
)

const profileKeyPrefix = "profiles:"

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis url is required")
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// ProfileCache stores profile search results under keys derived from the
// search filter. Any user change purges every cached search.
type ProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewProfileCache(client *redis.Client, ttl time.Duration) *ProfileCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &ProfileCache{client: client, ttl: ttl}
}

func (c *ProfileCache) Get(ctx context.Context, filter types.ProfileFilter) ([]types.Profile, bool, error) {
	raw, err := c.client.Get(ctx, profileKey(filter)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var profiles []types.Profile
	if err := json.Unmarshal(raw, &profiles); err != nil {
		return nil, false, err
	}
	return profiles, true, nil
}

func (c *ProfileCache) Set(ctx context.Context, filter types.ProfileFilter, profiles []types.Profile) error {
	raw, err := json.Marshal(profiles)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, profileKey(filter), raw, c.ttl).Err()
}

// Publish implements services.EventSink by purging cached searches.
func (c *ProfileCache) Publish(ctx context.Context, event types.UserEvent) error {
	return c.Purge(ctx)
}

// Purge deletes every cached profile search.
func (c *ProfileCache) Purge(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, profileKeyPrefix+"*", 100).Iterator()
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

func profileKey(filter types.ProfileFilter) string {
	return profileKeyPrefix + url.QueryEscape(filter.Nickname) + ":" + url.QueryEscape(filter.Power)
}
