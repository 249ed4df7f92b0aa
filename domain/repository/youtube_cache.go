package repository

import (
	"context"
	"time"

	"tubequeue/domain/model"
)

// ISearchCache caches guest search results keyed by normalized query.
type ISearchCache interface {
	// GetSearch returns nil, nil on a miss.
	GetSearch(ctx context.Context, key string) ([]model.Video, error)
	SetSearch(ctx context.Context, key string, videos []model.Video, ttl time.Duration) error
}

// IOAuthState keeps OAuth state values between the consent redirect and the callback.
type IOAuthState interface {
	Put(ctx context.Context, state string, ttl time.Duration) error
	// Consume reports whether state was present and unexpired, removing it.
	Consume(ctx context.Context, state string) (bool, error)
}
