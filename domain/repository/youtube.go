package repository

import (
	"context"

	"tubequeue/domain/dto"
	"tubequeue/domain/model"
)

// IYouTube defines the YouTube Data API operations the jukebox needs.
// Calls taking an accessToken act on behalf of the host; failures with an
// HTTP answer are reported as *model.PlatformError.
type IYouTube interface {
	// SearchVideos runs a public (API key) search.
	SearchVideos(ctx context.Context, req *dto.YouTubeSearchRequest) ([]model.Video, error)

	GetMyChannel(ctx context.Context, accessToken string) (*model.YouTubeChannel, error)
	GetMyPlaylists(ctx context.Context, accessToken string) ([]model.YouTubePlaylist, error)
	GetPlaylistVideos(ctx context.Context, accessToken, playlistID string, maxResults int64) ([]model.Video, error)

	// AddVideoToPlaylist inserts one playlist item and returns its id.
	AddVideoToPlaylist(ctx context.Context, accessToken, playlistID, videoID string) (string, error)
}

// ITokenAuthority is the OAuth authority issuing and refreshing host tokens.
type ITokenAuthority interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*model.TokenGrant, error)
	Refresh(ctx context.Context, refreshToken string) (*model.TokenGrant, error)
}
