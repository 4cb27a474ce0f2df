package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const sessionKeyPrefix = "session:"

// newRedisClient connects to redisURL, which may be a bare host:port or a
// redis:// URL.
func newRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = fmt.Sprintf("redis://%s", redisURL)
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		// Fallback to simple connection
		opt = &redis.Options{
			Addr: strings.TrimPrefix(redisURL, "redis://"),
		}
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

// redisSessionStore keeps sessions as JSON with a TTL that is refreshed on
// every read.
type redisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func newRedisSessionStore(client *redis.Client, ttl time.Duration) *redisSessionStore {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &redisSessionStore{client: client, ttl: ttl}
}

func sessionKey(id string) string {
	return sessionKeyPrefix + id
}

func (r *redisSessionStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	if err := r.client.Expire(ctx, sessionKey(id), r.ttl).Err(); err != nil {
		return nil, fmt.Errorf("refreshing session ttl: %w", err)
	}

	return decodeSession(data)
}

func (r *redisSessionStore) Save(ctx context.Context, sess *Session) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}
	if err := r.client.SetEx(ctx, sessionKey(sess.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *redisSessionStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}
