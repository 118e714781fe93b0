package cache

import (
	"context"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"
)

// PromptCache keeps the active prompt content in Redis so every turn does not
// hit MySQL for a row that rarely changes. Writers must refresh the cache
// after committing a rewrite to keep read-your-write within a turn.
type PromptCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewPromptCache(client *redisv9.Client, ttl time.Duration) *PromptCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &PromptCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *PromptCache) Get(ctx context.Context, name string) (string, bool, error) {
	content, err := c.client.Get(ctx, c.key(name)).Result()
	if err == redisv9.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get prompt failed: %w", err)
	}
	return content, true, nil
}

func (c *PromptCache) Set(ctx context.Context, name, content string) error {
	if err := c.client.Set(ctx, c.key(name), content, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set prompt failed: %w", err)
	}
	return nil
}

func (c *PromptCache) key(name string) string {
	return fmt.Sprintf("prompt:active:%s", name)
}
