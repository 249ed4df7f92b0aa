package youtube

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"time"

	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultSearchLimit = 8
	musicCategoryID    = "10"
	videoKind          = "youtube#video"
)

// Client represents YouTube API client
type Client struct {
	apiKey    string
	endpoint  string
	timeout   time.Duration
	transport http.RoundTripper
}

// Config represents YouTube API configuration
type Config struct {
	APIKey   string        `json:"api_key"`
	Endpoint string        `json:"endpoint"`
	Timeout  time.Duration `json:"timeout"`
	// Transport is the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper `json:"-"`
}

// NewYouTubeClient creates a new YouTube API client. Host calls carry the
// access token given per call; search runs in API key mode.
func NewYouTubeClient(config *Config) repository.IYouTube {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:    config.APIKey,
		endpoint:  config.Endpoint,
		timeout:   timeout,
		transport: config.Transport,
	}
}

func (c *Client) base() http.RoundTripper {
	if c.transport != nil {
		return c.transport
	}
	return http.DefaultTransport
}

func (c *Client) service(ctx context.Context, accessToken string) (*youtube.Service, error) {
	var rt http.RoundTripper = c.base()
	if accessToken != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}),
			Base:   rt,
		}
	}
	opts := []option.ClientOption{option.WithHTTPClient(&http.Client{Timeout: c.timeout, Transport: rt})}
	if c.endpoint != "" {
		opts = append(opts, option.WithEndpoint(c.endpoint))
	}
	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube service: %w", err)
	}
	return service, nil
}

// SearchVideos searches music videos on YouTube with the application API key.
func (c *Client) SearchVideos(ctx context.Context, req *dto.YouTubeSearchRequest) ([]model.Video, error) {
	if c.apiKey == "" {
		return nil, &model.PlatformError{Message: "YouTube API key not configured"}
	}
	service, err := c.service(ctx, "")
	if err != nil {
		return nil, err
	}

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = defaultSearchLimit
	}
	category := req.CategoryID
	if category == "" {
		category = musicCategoryID
	}

	response, err := service.Search.List([]string{"snippet"}).
		Q(req.Q).
		Type("video").
		VideoCategoryId(category).
		MaxResults(maxResults).
		Context(ctx).
		Do(googleapi.QueryParameter("key", c.apiKey))
	if err != nil {
		return nil, toPlatformError(err)
	}

	videos := make([]model.Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Id == nil || item.Id.VideoId == "" || item.Snippet == nil {
			continue
		}
		videos = append(videos, model.Video{
			ID:        item.Id.VideoId,
			Title:     html.UnescapeString(item.Snippet.Title),
			Channel:   html.UnescapeString(item.Snippet.ChannelTitle),
			Thumbnail: thumbnailURL(item.Snippet.Thumbnails),
		})
	}
	return videos, nil
}

func (c *Client) GetMyChannel(ctx context.Context, accessToken string) (*model.YouTubeChannel, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	response, err := service.Channels.List([]string{"snippet"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, toPlatformError(err)
	}
	if len(response.Items) == 0 {
		return nil, &model.PlatformError{StatusCode: http.StatusNotFound, Message: "no channel found for authenticated user"}
	}

	channel := response.Items[0]
	ytChannel := &model.YouTubeChannel{ID: channel.Id}
	if channel.Snippet != nil {
		ytChannel.Title = channel.Snippet.Title
		ytChannel.CustomURL = channel.Snippet.CustomUrl
		ytChannel.Thumbnail = thumbnailURL(channel.Snippet.Thumbnails)
	}
	return ytChannel, nil
}

func (c *Client) GetMyPlaylists(ctx context.Context, accessToken string) ([]model.YouTubePlaylist, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	response, err := service.Playlists.List([]string{"snippet", "contentDetails", "status"}).
		Mine(true).
		MaxResults(50).
		Context(ctx).
		Do()
	if err != nil {
		return nil, toPlatformError(err)
	}

	playlists := make([]model.YouTubePlaylist, 0, len(response.Items))
	for _, item := range response.Items {
		p := model.YouTubePlaylist{ID: item.Id}
		if item.Snippet != nil {
			p.Title = item.Snippet.Title
			p.Description = item.Snippet.Description
			p.PublishedAt, _ = time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			p.Thumbnail = thumbnailURL(item.Snippet.Thumbnails)
		}
		if item.ContentDetails != nil {
			p.ItemCount = item.ContentDetails.ItemCount
		}
		if item.Status != nil {
			p.Privacy = item.Status.PrivacyStatus
		}
		playlists = append(playlists, p)
	}
	return playlists, nil
}

func (c *Client) GetPlaylistVideos(ctx context.Context, accessToken, playlistID string, maxResults int64) ([]model.Video, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlist ID is required")
	}
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if maxResults <= 0 {
		maxResults = 50
	}
	response, err := service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(playlistID).
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err != nil {
		return nil, toPlatformError(err)
	}

	videos := make([]model.Video, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil || item.Snippet.ResourceId == nil || item.Snippet.ResourceId.VideoId == "" {
			continue
		}
		videos = append(videos, model.Video{
			ID:        item.Snippet.ResourceId.VideoId,
			Title:     item.Snippet.Title,
			Channel:   item.Snippet.VideoOwnerChannelTitle,
			Thumbnail: thumbnailURL(item.Snippet.Thumbnails),
		})
	}
	return videos, nil
}

// AddVideoToPlaylist issues exactly one playlistItems.insert; it never retries.
func (c *Client) AddVideoToPlaylist(ctx context.Context, accessToken, playlistID, videoID string) (string, error) {
	service, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	item := &youtube.PlaylistItem{
		Snippet: &youtube.PlaylistItemSnippet{
			PlaylistId: playlistID,
			ResourceId: &youtube.ResourceId{Kind: videoKind, VideoId: videoID},
		},
	}
	inserted, err := service.PlaylistItems.Insert([]string{"snippet"}, item).Context(ctx).Do()
	if err != nil {
		perr := toPlatformError(err)
		logger.GetLogger().WithField("playlistId", playlistID).WithField("videoId", videoID).WithField("error", perr).Warn("playlist insert failed")
		return "", perr
	}
	return inserted.Id, nil
}

func toPlatformError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = http.StatusText(gerr.Code)
		}
		return &model.PlatformError{StatusCode: gerr.Code, Message: msg, Err: err}
	}
	return &model.PlatformError{Message: err.Error(), Err: err}
}

func thumbnailURL(t *youtube.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*youtube.Thumbnail{t.Medium, t.Default, t.High} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}
