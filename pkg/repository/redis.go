package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/models"
)

var ErrCacheMiss = errors.New("cache miss")

type RedisRepository struct {
	client *redis.Client
	config *config.RedisConfig
	ttl    time.Duration
}

func NewRedisRepository(cfg *config.RedisConfig, ttl time.Duration) *RedisRepository {
	return &RedisRepository{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
			PoolSize: cfg.PoolSize,
		}),
		config: cfg,
		ttl:    ttl,
	}
}

func (r *RedisRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisRepository) Del(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, expiration).Err()
}

func (r *RedisRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrCacheMiss
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

func productKey(slug string) string {
	return fmt.Sprintf("product:%s", slug)
}

// CacheProduct stores a public product under its slug.
func (r *RedisRepository) CacheProduct(ctx context.Context, product *models.Product) error {
	return r.SetJSON(ctx, productKey(product.Slug), product, r.ttl)
}

func (r *RedisRepository) GetProductCache(ctx context.Context, slug string) (*models.Product, error) {
	var product models.Product
	if err := r.GetJSON(ctx, productKey(slug), &product); err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *RedisRepository) InvalidateProducts(ctx context.Context, slugs ...string) error {
	keys := make([]string, 0, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			keys = append(keys, productKey(slug))
		}
	}
	return r.Del(ctx, keys...)
}

// NopCache is used when no Redis address is configured.
type NopCache struct{}

func (NopCache) CacheProduct(context.Context, *models.Product) error { return nil }

func (NopCache) GetProductCache(context.Context, string) (*models.Product, error) {
	return nil, ErrCacheMiss
}

func (NopCache) InvalidateProducts(context.Context, ...string) error { return nil }
