package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escolanoar/vocacional/internal/models"
)

const bankKey = "vocacional:bank:active"

// BankCache keeps the active question bank snapshot in Redis so each request
// does not reload dimensions, questions and options from Postgres.
type BankCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewBankCache(client *redis.Client, ttl time.Duration) *BankCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &BankCache{client: client, ttl: ttl}
}

func (c *BankCache) SetBank(ctx context.Context, snap *models.BankSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, bankKey, data, c.ttl).Err()
}

// GetBank returns nil, nil on a cache miss.
func (c *BankCache) GetBank(ctx context.Context) (*models.BankSnapshot, error) {
	data, err := c.client.Get(ctx, bankKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap models.BankSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Invalidate drops the cached snapshot; called after a bank import.
func (c *BankCache) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, bankKey).Err()
}
