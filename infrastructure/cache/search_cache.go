package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"

	"github.com/redis/go-redis/v9"
)

type SearchCache struct {
	client *redis.Client
}

func NewSearchCache(client *redis.Client) repository.ISearchCache {
	return &SearchCache{client: client}
}

func (c *SearchCache) GetSearch(ctx context.Context, k string) ([]model.Video, error) {
	data, err := c.client.Get(ctx, key("search", k)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var videos []model.Video
	if err := json.Unmarshal(data, &videos); err != nil {
		return nil, err
	}
	return videos, nil
}

func (c *SearchCache) SetSearch(ctx context.Context, k string, videos []model.Video, ttl time.Duration) error {
	data, err := json.Marshal(videos)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key("search", k), data, ttl).Err()
}
