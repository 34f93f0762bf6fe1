package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"restopos/internal/domain"
	"restopos/internal/pos"
)

func NewRedisClient(addr string, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

type RedisSettingsCache struct {
	client *redis.Client
}

func NewRedisSettingsCache(client *redis.Client) *RedisSettingsCache {
	return &RedisSettingsCache{client: client}
}

func (c *RedisSettingsCache) Get(ctx context.Context, businessID string) (*domain.BusinessSettings, bool, error) {
	val, err := c.client.Get(ctx, settingsKey(businessID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var settings domain.BusinessSettings
	if err := json.Unmarshal([]byte(val), &settings); err != nil {
		return nil, false, err
	}
	return &settings, true, nil
}

func (c *RedisSettingsCache) Set(ctx context.Context, businessID string, value domain.BusinessSettings, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, settingsKey(businessID), payload, ttl).Err()
}

func (c *RedisSettingsCache) Delete(ctx context.Context, businessID string) error {
	return c.client.Del(ctx, settingsKey(businessID)).Err()
}

// RedisSessionStore shares terminal sessions across API replicas. Each save
// refreshes the TTL so idle terminals expire.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (r *RedisSessionStore) Load(ctx context.Context, businessID string, terminalID string) (*pos.Session, bool, error) {
	val, err := r.client.Get(ctx, sessionKey(businessID, terminalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var session pos.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, false, err
	}
	return &session, true, nil
}

func (r *RedisSessionStore) Save(ctx context.Context, businessID string, terminalID string, session *pos.Session) error {
	if session == nil {
		return nil
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(businessID, terminalID), payload, r.ttl).Err()
}

func (r *RedisSessionStore) Delete(ctx context.Context, businessID string, terminalID string) error {
	return r.client.Del(ctx, sessionKey(businessID, terminalID)).Err()
}
