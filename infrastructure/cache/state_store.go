package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"tubequeue/domain/repository"
	"tubequeue/infrastructure/utils"

	"github.com/redis/go-redis/v9"
)

// StateStore keeps OAuth state values in Redis with SET NX EX / GETDEL.
type StateStore struct {
	client *redis.Client
}

func NewStateStore(client *redis.Client) repository.IOAuthState {
	return &StateStore{client: client}
}

func (s *StateStore) Put(ctx context.Context, state string, ttl time.Duration) error {
	ok, err := s.client.SetNX(ctx, key("oauth_state", state), "1", ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("oauth state already issued")
	}
	return nil
}

func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	err := s.client.GetDel(ctx, key("oauth_state", state)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MemoryStateStore is used when Redis is unavailable. Single instance only.
type MemoryStateStore struct {
	mu     sync.Mutex
	states map[string]time.Time
	now    func() time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{states: make(map[string]time.Time), now: utils.GetCurrentTime}
}

func (s *MemoryStateStore) Put(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, exp := range s.states {
		if now.After(exp) {
			delete(s.states, k)
		}
	}
	s.states[state] = now.Add(ttl)
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.states[state]
	if !ok {
		return false, nil
	}
	delete(s.states, state)
	return !s.now().After(exp), nil
}
