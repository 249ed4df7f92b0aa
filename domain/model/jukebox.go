package model

import "time"

// ActivationID is the id of the single activation record.
const ActivationID = "status"

// ActivationRecord is the public jukebox status. It is readable by guests
// and must never carry token material.
type ActivationRecord struct {
	IsActive           bool      `json:"isActive"           bson:"isActive"`
	SelectedPlaylistID string    `json:"selectedPlaylistId" bson:"selectedPlaylistId"`
	HostUserID         string    `json:"hostUserId"         bson:"hostUserId"`
	LastUpdated        time.Time `json:"lastUpdated"        bson:"lastUpdated"`
}

// Ready reports whether the record names both a host and a playlist and is active.
func (r *ActivationRecord) Ready() bool {
	return r != nil && r.IsActive && r.SelectedPlaylistID != "" && r.HostUserID != ""
}

// ResolvedStatus is built per guest request and never stored.
type ResolvedStatus struct {
	Active      bool
	PlaylistID  string
	HostID      string
	AccessToken string
}

type QueueEntryState string

const (
	QueueEntryPending QueueEntryState = "pending"
	QueueEntryAdded   QueueEntryState = "added"
)

// QueueEntry is a song in the local display queue of a playlist.
type QueueEntry struct {
	PlaylistID     string          `json:"playlistId"               bson:"playlistId"`
	Video          `bson:",inline"`
	PlaylistItemID string          `json:"playlistItemId,omitempty" bson:"playlistItemId,omitempty"`
	State          QueueEntryState `json:"state"                    bson:"state"`
	AddedAt        time.Time       `json:"addedAt"                  bson:"addedAt"`
}

const (
	EventSongAdded    = "song_added"
	EventQueueCleared = "queue_cleared"
)

// QueueEvent is broadcast to display clients and message brokers.
type QueueEvent struct {
	Type       string      `json:"type"`
	PlaylistID string      `json:"playlistId"`
	Entry      *QueueEntry `json:"entry,omitempty"`
	OccurredAt time.Time   `json:"occurredAt"`
}
