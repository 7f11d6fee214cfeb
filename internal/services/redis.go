package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ratingTTL     = 24 * time.Hour
	updateChannel = "fleetshare:%s:updates"
)

// InitRedis connects to REDIS_URL and pings it.
func InitRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		redisURL = "redis://redis:6379"
	}

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %v", err)
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	return client, nil
}

// RedisCache stores rating averages as a hash per subject.
type RedisCache struct {
	client redis.Cmdable
}

func NewRedisCache(client redis.Cmdable) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) SetRating(ctx context.Context, key string, avg float64, count int) error {
	k := "rating:" + key
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, k, "avg", strconv.FormatFloat(avg, 'f', 2, 64), "count", count)
	pipe.Expire(ctx, k, ratingTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisCache) GetRating(ctx context.Context, key string) (float64, int, bool, error) {
	vals, err := c.client.HGetAll(ctx, "rating:"+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, false, nil
		}
		return 0, 0, false, err
	}
	if len(vals) == 0 {
		return 0, 0, false, nil
	}
	avg, err := strconv.ParseFloat(vals["avg"], 64)
	if err != nil {
		return 0, 0, false, err
	}
	count, err := strconv.Atoi(vals["count"])
	if err != nil {
		return 0, 0, false, err
	}
	return avg, count, true, nil
}

// RedisPublisher publishes events on a pub/sub channel per domain.
type RedisPublisher struct {
	client redis.Cmdable
}

func NewRedisPublisher(client redis.Cmdable) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (p *RedisPublisher) Notify(ctx context.Context, e Event) error {
	data, err := json.Marshal(struct {
		Event
		Type       string `json:"type"`
		Recipients []uint `json:"recipients"`
	}{e, e.Type(), e.Recipients})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, fmt.Sprintf(updateChannel, e.Domain), data).Err()
}
