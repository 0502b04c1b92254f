package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// RevokeToken denylists a token ID until its natural expiry
func (c *Client) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("denylist:%s", jti), "1", ttl).Err()
}

// IsTokenRevoked checks whether a token ID has been denylisted
func (c *Client) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	result, err := c.rdb.Exists(ctx, fmt.Sprintf("denylist:%s", jti)).Result()
	if err != nil {
		return false, err
	}
	return result > 0, nil
}

// SetJSON caches a JSON-encoded value with a TTL
func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("cache:%s", key), data, ttl).Err()
}

// GetJSON retrieves a cached value. Returns false on a miss.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("cache:%s", key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// InvalidateCache drops a cached key
func (c *Client) InvalidateCache(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, fmt.Sprintf("cache:%s", key)).Err()
}
