package usecase

import (
	"context"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
)

type IHostUsecase interface {
	Playlists(ctx context.Context, hostID string) ([]model.YouTubePlaylist, error)
	Status(ctx context.Context, hostID string) (*dto.HostStatusResponse, error)
}

type HostUsecase struct {
	credentials repository.ICredential
	activations repository.IActivation
	refresher   ITokenRefresher
	youtube     repository.IYouTube
	timeout     time.Duration
}

func NewHostUsecase(credentials repository.ICredential, activations repository.IActivation, refresher ITokenRefresher, youtube repository.IYouTube, timeout time.Duration) IHostUsecase {
	if timeout <= 0 {
		timeout = DefaultUpstreamTimeout
	}
	return &HostUsecase{credentials: credentials, activations: activations, refresher: refresher, youtube: youtube, timeout: timeout}
}

func (u *HostUsecase) Playlists(ctx context.Context, hostID string) ([]model.YouTubePlaylist, error) {
	token, err := u.refresher.GetValidAccessToken(ctx, hostID)
	if err != nil {
		if IsCredentialUnavailable(err) {
			return nil, apperror.Unauthorized("YouTube account is not connected or its authorization expired. Please reconnect.")
		}
		return nil, err
	}
	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	playlists, err := u.youtube.GetMyPlaylists(callCtx, token)
	if err != nil {
		return nil, platformFailure(err)
	}
	return playlists, nil
}

// Status never includes token values.
func (u *HostUsecase) Status(ctx context.Context, hostID string) (*dto.HostStatusResponse, error) {
	cred, err := u.credentials.Load(ctx, hostID)
	if err != nil {
		return nil, apperror.Storage("load host credential", err)
	}
	rec, err := u.activations.Get(ctx)
	if err != nil {
		return nil, apperror.Storage("read jukebox status", err)
	}

	res := &dto.HostStatusResponse{HostID: hostID}
	if cred != nil {
		res.Connected = true
		res.HasRefreshToken = cred.RefreshToken != ""
		res.ExpiresAt = cred.ExpiresAt
		res.LastRefreshed = cred.LastRefreshed
		res.Scope = cred.Scope
	}
	if rec.Ready() && rec.HostUserID == hostID {
		res.OwnsJukebox = true
		res.PlaylistID = rec.SelectedPlaylistID
	}
	return res, nil
}
