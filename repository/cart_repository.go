package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/plantbazaar/backend/models"
)

// CartRepository is the per-user cart store. A missing cart reads as nil
// without error; carts are created lazily on first save.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*models.Cart, error)
	Save(ctx context.Context, cart *models.Cart) error
	Delete(ctx context.Context, userID string) error
}

// RedisCartRepository keeps one JSON value per user with a TTL.
type RedisCartRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCartRepository(client *redis.Client, ttl time.Duration) *RedisCartRepository {
	return &RedisCartRepository{client: client, ttl: ttl}
}

func (r *RedisCartRepository) key(userID string) string {
	return fmt.Sprintf("cart:user:%s", userID)
}

func (r *RedisCartRepository) Get(ctx context.Context, userID string) (*models.Cart, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart models.Cart
	if err := json.Unmarshal([]byte(data), &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *RedisCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(cart.UserID), data, r.ttl).Err()
}

func (r *RedisCartRepository) Delete(ctx context.Context, userID string) error {
	return r.client.Del(ctx, r.key(userID)).Err()
}
