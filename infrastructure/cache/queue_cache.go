package cache

import (
	"context"
	"encoding/json"
	"errors"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"

	"github.com/redis/go-redis/v9"
)

// QueueCache keeps each playlist's display queue in a hash of entries keyed
// by video id (HSETNX gives the atomic reservation) and a list for order.
type QueueCache struct {
	client *redis.Client
}

func NewQueueCache(client *redis.Client) repository.IQueue {
	return &QueueCache{client: client}
}

func entriesKey(playlistID string) string { return key("queue", playlistID, "entries") }
func orderKey(playlistID string) string   { return key("queue", playlistID, "order") }

func (c *QueueCache) Reserve(ctx context.Context, entry *model.QueueEntry) (bool, error) {
	pending := *entry
	pending.State = model.QueueEntryPending
	pending.PlaylistItemID = ""
	data, err := json.Marshal(pending)
	if err != nil {
		return false, err
	}
	return c.client.HSetNX(ctx, entriesKey(entry.PlaylistID), entry.ID, data).Result()
}

func (c *QueueCache) Confirm(ctx context.Context, playlistID, videoID, playlistItemID string) error {
	entry, err := c.get(ctx, playlistID, videoID)
	if err != nil {
		return err
	}
	if entry == nil {
		return repository.ErrNotFound
	}
	entry.State = model.QueueEntryAdded
	entry.PlaylistItemID = playlistItemID
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	_, err = c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, entriesKey(playlistID), videoID, data)
		pipe.RPush(ctx, orderKey(playlistID), videoID)
		return nil
	})
	return err
}

// Release only drops pending entries; a confirmed song stays queued.
func (c *QueueCache) Release(ctx context.Context, playlistID, videoID string) error {
	entry, err := c.get(ctx, playlistID, videoID)
	if err != nil || entry == nil {
		return err
	}
	if entry.State != model.QueueEntryPending {
		return nil
	}
	return c.client.HDel(ctx, entriesKey(playlistID), videoID).Err()
}

func (c *QueueCache) List(ctx context.Context, playlistID string) ([]model.QueueEntry, error) {
	ids, err := c.client.LRange(ctx, orderKey(playlistID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries := make([]model.QueueEntry, 0, len(ids))
	if len(ids) == 0 {
		return entries, nil
	}
	values, err := c.client.HMGet(ctx, entriesKey(playlistID), ids...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		var entry model.QueueEntry
		if err := json.Unmarshal([]byte(s), &entry); err != nil {
			logger.GetLogger().WithField("videoId", ids[i]).WithField("error", err).Warn("skipping unreadable queue entry")
			continue
		}
		if entry.State == model.QueueEntryAdded {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (c *QueueCache) Clear(ctx context.Context, playlistID string) error {
	return c.client.Del(ctx, entriesKey(playlistID), orderKey(playlistID)).Err()
}

func (c *QueueCache) get(ctx context.Context, playlistID, videoID string) (*model.QueueEntry, error) {
	data, err := c.client.HGet(ctx, entriesKey(playlistID), videoID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry model.QueueEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}
