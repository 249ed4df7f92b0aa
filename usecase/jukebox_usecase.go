package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"
)

const (
	DefaultUpstreamTimeout = 10 * time.Second
	DefaultPlaylistLimit   = 50

	MessageDuplicate = "This song is already in the queue."
	MessageNotReady  = "Jukebox is not active. Please ask the host to set up the jukebox."
)

type IJukeboxUsecase interface {
	Status(ctx context.Context) (*dto.JukeboxStatusResponse, error)
	AddSong(ctx context.Context, req dto.AddSongRequest) (*dto.AddSongResult, error)
	Queue(ctx context.Context) ([]model.QueueEntry, error)
	Playlist(ctx context.Context) ([]model.Video, error)
	ClearQueue(ctx context.Context, playlistID string) error
}

type JukeboxUsecase struct {
	resolver    IStatusResolver
	activations repository.IActivation
	queue       repository.IQueue
	youtube     repository.IYouTube
	publishers    []repository.IQueueEvents
	timeout       time.Duration
	playlistLimit int64
	now           func() time.Time
}

func NewJukeboxUsecase(
	resolver IStatusResolver,
	activations repository.IActivation,
	queue repository.IQueue,
	youtube repository.IYouTube,
	timeout time.Duration,
	playlistLimit int64,
	publishers ...repository.IQueueEvents,
) IJukeboxUsecase {
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	if playlistLimit <= 0 {
		playlistLimit = DefaultPlaylistLimit
	}
	return &JukeboxUsecase{
		resolver:      resolver,
		activations:   activations,
		queue:         queue,
		youtube:       youtube,
		publishers:    publishers,
		timeout:       timeout,
		playlistLimit: playlistLimit,
		now:           utils.GetCurrentTime,
	}
}

// Status is the guest view of the activation record; it never carries tokens.
func (u *JukeboxUsecase) Status(ctx context.Context) (*dto.JukeboxStatusResponse, error) {
	rec, err := u.activations.Get(ctx)
	if err != nil {
		return nil, apperror.Storage("read jukebox status", err)
	}
	res := &dto.JukeboxStatusResponse{}
	if rec == nil {
		res.Message = MessageNotReady
		return res, nil
	}
	res.IsActive = rec.IsActive
	if rec.SelectedPlaylistID != "" {
		res.SelectedPlaylistID = &rec.SelectedPlaylistID
	}
	if rec.HostUserID != "" {
		res.HostUserID = &rec.HostUserID
	}
	if !rec.LastUpdated.IsZero() {
		res.LastUpdated = &rec.LastUpdated
	}
	if !rec.Ready() {
		res.Message = MessageNotReady
	}
	return res, nil
}

// AddSong validates, resolves the jukebox, reserves the video in the display
// queue and performs exactly one playlist insert. It never retries.
func (u *JukeboxUsecase) AddSong(ctx context.Context, req dto.AddSongRequest) (*dto.AddSongResult, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" {
		return nil, apperror.InvalidInput("videoId is required")
	}

	status, err := u.resolver.ResolveForGuest(ctx)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.VideoTitle)
	if title == "" {
		title = videoID
	}
	entry := &model.QueueEntry{
		PlaylistID: status.PlaylistID,
		Video: model.Video{
			ID:        videoID,
			Title:     title,
			Channel:   req.Channel,
			Thumbnail: req.Thumbnail,
		},
		State:   model.QueueEntryPending,
		AddedAt: u.now(),
	}
	reserved, err := u.queue.Reserve(ctx, entry)
	if err != nil {
		return nil, apperror.Storage("reserve queue entry", err)
	}
	if !reserved {
		return nil, apperror.Duplicate(MessageDuplicate)
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	itemID, err := u.youtube.AddVideoToPlaylist(callCtx, status.AccessToken, status.PlaylistID, videoID)
	if err != nil {
		if rerr := u.queue.Release(context.WithoutCancel(ctx), status.PlaylistID, videoID); rerr != nil {
			logger.GetLogger().WithField("videoId", videoID).WithField("error", rerr).Warn("failed to release queue reservation")
		}
		return nil, platformFailure(err)
	}

	if err := u.queue.Confirm(ctx, status.PlaylistID, videoID, itemID); err != nil {
		// The song is in the playlist; the display queue is advisory.
		logger.GetLogger().WithField("videoId", videoID).WithField("error", err).Error("failed to confirm queue entry")
	}
	entry.State = model.QueueEntryAdded
	entry.PlaylistItemID = itemID

	logger.GetLogger().WithFields(map[string]interface{}{
		"playlistId":     status.PlaylistID,
		"videoId":        videoID,
		"playlistItemId": itemID,
	}).Info("song added to playlist")
	u.publish(ctx, &model.QueueEvent{Type: model.EventSongAdded, PlaylistID: status.PlaylistID, Entry: entry, OccurredAt: entry.AddedAt})

	return &dto.AddSongResult{PlaylistItemID: itemID, Entry: *entry}, nil
}

// Queue returns the display queue of the active playlist, empty when inactive.
func (u *JukeboxUsecase) Queue(ctx context.Context) ([]model.QueueEntry, error) {
	rec, err := u.activations.Get(ctx)
	if err != nil {
		return nil, apperror.Storage("read jukebox status", err)
	}
	if !rec.Ready() {
		return []model.QueueEntry{}, nil
	}
	entries, err := u.queue.List(ctx, rec.SelectedPlaylistID)
	if err != nil {
		return nil, apperror.Storage("list queue", err)
	}
	return entries, nil
}

// Playlist reads the live playlist from YouTube; not ready yields an empty list.
func (u *JukeboxUsecase) Playlist(ctx context.Context) ([]model.Video, error) {
	status, err := u.resolver.ResolveForGuest(ctx)
	if apperror.Is(err, apperror.KindJukeboxNotReady) {
		return []model.Video{}, nil
	}
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	videos, err := u.youtube.GetPlaylistVideos(callCtx, status.AccessToken, status.PlaylistID, u.playlistLimit)
	if err != nil {
		return nil, platformFailure(err)
	}
	return videos, nil
}

func (u *JukeboxUsecase) ClearQueue(ctx context.Context, playlistID string) error {
	if playlistID == "" {
		return nil
	}
	if err := u.queue.Clear(ctx, playlistID); err != nil {
		return apperror.Storage("clear queue", err)
	}
	u.publish(ctx, &model.QueueEvent{Type: model.EventQueueCleared, PlaylistID: playlistID, OccurredAt: u.now()})
	return nil
}

// publish is best effort; a failing broker never fails the request.
func (u *JukeboxUsecase) publish(ctx context.Context, evt *model.QueueEvent) {
	for _, p := range u.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			logger.GetLogger().WithField("type", evt.Type).WithField("error", err).Warn("failed to publish queue event")
		}
	}
}

// platformFailure maps a YouTube failure: 401/403 means the platform rejected
// a token we considered fresh.
func platformFailure(err error) error {
	var perr *model.PlatformError
	if errors.As(err, &perr) {
		if perr.StatusCode == http.StatusUnauthorized || perr.StatusCode == http.StatusForbidden {
			return apperror.AuthRejected(perr.Message, err)
		}
		return apperror.Upstream(perr.Message, err)
	}
	return apperror.Upstream(err.Error(), err)
}
