package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"boutique/internal/config"
	"boutique/internal/domain"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrMiss is returned when a key is not cached
var ErrMiss = errors.New("cache miss")

// NewRedisClient connects to Redis and verifies the connection with a ping
func NewRedisClient(cfg config.RedisConfig, logger *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Addr(), err)
	}

	logger.Info("Redis connection established", zap.String("addr", cfg.Addr()))
	return rdb, nil
}

// ProductCache stores serialized products keyed by id
type ProductCache interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	Set(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error
}

type redisProductCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewProductCache returns a Redis-backed ProductCache whose entries expire after ttl
func NewProductCache(client *redis.Client, ttl time.Duration) ProductCache {
	return &redisProductCache{client: client, ttl: ttl}
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func (c *redisProductCache) Get(ctx context.Context, id int64) (*domain.Product, error) {
	data, err := c.client.Get(ctx, productKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read product %d from cache: %w", id, err)
	}

	var product domain.Product
	if err := json.Unmarshal(data, &product); err != nil {
		return nil, fmt.Errorf("failed to decode cached product %d: %w", id, err)
	}

	return &product, nil
}

func (c *redisProductCache) Set(ctx context.Context, product *domain.Product) error {
	data, err := json.Marshal(product)
	if err != nil {
		return fmt.Errorf("failed to encode product %d: %w", product.ID, err)
	}
	return c.client.Set(ctx, productKey(product.ID), data, c.ttl).Err()
}

func (c *redisProductCache) Delete(ctx context.Context, id int64) error {
	return c.client.Del(ctx, productKey(id)).Err()
}

// NoopProductCache is used when Redis is disabled; every read misses
type NoopProductCache struct{}

func (NoopProductCache) Get(context.Context, int64) (*domain.Product, error) { return nil, ErrMiss }
func (NoopProductCache) Set(context.Context, *domain.Product) error          { return nil }
func (NoopProductCache) Delete(context.Context, int64) error                 { return nil }
