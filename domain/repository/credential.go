package repository

import (
	"context"
	"errors"
	"time"

	"tubequeue/domain/model"
)

// ErrNotFound is returned by updates targeting a record that does not exist.
var ErrNotFound = errors.New("record not found")

// ICredential persists host OAuth credentials keyed by host id.
type ICredential interface {
	// Save overwrites any credential for hostID; expiry is now+expiresIn.
	Save(ctx context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error
	// Load returns nil, nil when the host has no credential.
	Load(ctx context.Context, hostID string) (*model.HostCredential, error)
	// UpdateAccessToken changes only the access token, expiry and last-refreshed time.
	UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error
	RotateRefreshToken(ctx context.Context, hostID, refreshToken string) error
	Clear(ctx context.Context, hostID string) error
}

// IActivation persists the single jukebox activation record.
type IActivation interface {
	// Get returns nil, nil when no record was ever written.
	Get(ctx context.Context) (*model.ActivationRecord, error)
	Put(ctx context.Context, rec *model.ActivationRecord) error
}

// IQueue stores the advisory display queue of each playlist.
type IQueue interface {
	// Reserve atomically claims videoID in the playlist's queue as pending.
	// It returns false when the video is already queued or pending.
	Reserve(ctx context.Context, entry *model.QueueEntry) (bool, error)
	// Confirm marks a reserved entry as added with its playlist item id.
	Confirm(ctx context.Context, playlistID, videoID, playlistItemID string) error
	// Release drops a reservation after a failed insert.
	Release(ctx context.Context, playlistID, videoID string) error
	// List returns added entries in insertion order.
	List(ctx context.Context, playlistID string) ([]model.QueueEntry, error)
	Clear(ctx context.Context, playlistID string) error
}

// IQueueEvents publishes queue changes to external consumers.
type IQueueEvents interface {
	Publish(ctx context.Context, event *model.QueueEvent) error
}
