package model

import (
	"fmt"
	"time"
)

// Video is the display shape of a YouTube video used by search results,
// playlist listings and the local queue.
type Video struct {
	ID        string `json:"id"        bson:"videoId"`
	Title     string `json:"title"     bson:"title"`
	Channel   string `json:"channel"   bson:"channel"`
	Thumbnail string `json:"thumbnail" bson:"thumbnail"`
}

// YouTubeChannel identifies the account a host authorized with.
type YouTubeChannel struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CustomURL string `json:"custom_url,omitempty"`
	Thumbnail string `json:"thumbnail,omitempty"`
}

// YouTubePlaylist represents one of the host's playlists
type YouTubePlaylist struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	ItemCount   int64     `json:"item_count"`
	Privacy     string    `json:"privacy"`
	Thumbnail   string    `json:"thumbnail"`
}

// PlatformError is returned by the YouTube client when the API answered
// with a non-2xx status. StatusCode is 0 when no response was received.
type PlatformError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *PlatformError) Error() string {
	if e.StatusCode == 0 {
		return "youtube request failed: " + e.Message
	}
	return fmt.Sprintf("youtube returned %d: %s", e.StatusCode, e.Message)
}

func (e *PlatformError) Unwrap() error { return e.Err }
