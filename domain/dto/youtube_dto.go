package dto

import (
	"time"

	"tubequeue/domain/model"
)

// YouTubeSearchRequest represents a guest search
type YouTubeSearchRequest struct {
	Q          string `json:"q" form:"q"`
	MaxResults int64  `json:"max_results,omitempty" form:"maxResults"`
	CategoryID string `json:"category_id,omitempty"` // 10 = Music
}

// YouTubeSearchResponse mirrors what the guest search page renders
type YouTubeSearchResponse struct {
	Videos []model.Video `json:"videos"`
	Query  string        `json:"query"`
	Source string        `json:"source"` // youtube | cache | error
	Error  string        `json:"error,omitempty"`
}

// AddSongRequest is the guest add-to-playlist payload
type AddSongRequest struct {
	VideoID    string `json:"videoId"`
	VideoTitle string `json:"videoTitle"`
	Channel    string `json:"channel,omitempty"`
	Thumbnail  string `json:"thumbnail,omitempty"`
}

// AddSongResult is returned after a successful insert
type AddSongResult struct {
	PlaylistItemID string           `json:"playlistItemId"`
	Entry          model.QueueEntry `json:"entry"`
}

// ActivateRequest selects the playlist guests add to
type ActivateRequest struct {
	PlaylistID string `json:"playlistId" binding:"required"`
}

// JukeboxStatusResponse is the guest view of the activation record
type JukeboxStatusResponse struct {
	IsActive           bool       `json:"isActive"`
	SelectedPlaylistID *string    `json:"selectedPlaylistId"`
	HostUserID         *string    `json:"hostUserId"`
	LastUpdated        *time.Time `json:"lastUpdated"`
	Message            string     `json:"message,omitempty"`
}

// HostStatusResponse describes the host's own connection without tokens
type HostStatusResponse struct {
	HostID          string     `json:"hostId"`
	Connected       bool       `json:"connected"`
	HasRefreshToken bool       `json:"hasRefreshToken"`
	ExpiresAt       *time.Time `json:"expiresAt,omitempty"`
	LastRefreshed   *time.Time `json:"lastRefreshed,omitempty"`
	Scope           string     `json:"scope,omitempty"`
	OwnsJukebox     bool       `json:"ownsJukebox"`
	PlaylistID      string     `json:"playlistId,omitempty"`
}

// HostSession is returned by the OAuth callback
type HostSession struct {
	HostID    string    `json:"hostId"`
	HostName  string    `json:"hostName,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}
