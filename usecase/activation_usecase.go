package usecase

import (
	"context"
	"strings"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"
)

type IActivationUsecase interface {
	Activate(ctx context.Context, hostID, playlistID string) (*model.ActivationRecord, error)
	Deactivate(ctx context.Context) (*model.ActivationRecord, error)
	// DeactivateOwnedBy deactivates only when hostID owns the active record and
	// returns the record it replaced, or nil when nothing changed.
	DeactivateOwnedBy(ctx context.Context, hostID string) (*model.ActivationRecord, error)
	// Read returns nil, nil when the jukebox was never activated.
	Read(ctx context.Context) (*model.ActivationRecord, error)
}

type ActivationUsecase struct {
	activations repository.IActivation
	refresher   ITokenRefresher
	now         func() time.Time
}

func NewActivationUsecase(activations repository.IActivation, refresher ITokenRefresher) IActivationUsecase {
	return &ActivationUsecase{activations: activations, refresher: refresher, now: utils.GetCurrentTime}
}

func (u *ActivationUsecase) Activate(ctx context.Context, hostID, playlistID string) (*model.ActivationRecord, error) {
	hostID = strings.TrimSpace(hostID)
	playlistID = strings.TrimSpace(playlistID)
	if hostID == "" || playlistID == "" {
		return nil, apperror.InvalidInput("hostId and playlistId are required")
	}

	if _, err := u.refresher.GetValidAccessToken(ctx, hostID); err != nil {
		if IsCredentialUnavailable(err) {
			return nil, apperror.Unauthorized("YouTube account is not connected or its authorization expired. Please reconnect.")
		}
		return nil, err
	}

	rec := &model.ActivationRecord{
		IsActive:           true,
		SelectedPlaylistID: playlistID,
		HostUserID:         hostID,
		LastUpdated:        u.now(),
	}
	if err := u.activations.Put(ctx, rec); err != nil {
		return nil, apperror.Storage("save jukebox status", err)
	}
	logger.GetLogger().WithField("hostId", hostID).WithField("playlistId", playlistID).Info("jukebox activated")
	return rec, nil
}

func (u *ActivationUsecase) Deactivate(ctx context.Context) (*model.ActivationRecord, error) {
	rec := &model.ActivationRecord{IsActive: false, LastUpdated: u.now()}
	if err := u.activations.Put(ctx, rec); err != nil {
		return nil, apperror.Storage("save jukebox status", err)
	}
	logger.GetLogger().Info("jukebox deactivated")
	return rec, nil
}

func (u *ActivationUsecase) DeactivateOwnedBy(ctx context.Context, hostID string) (*model.ActivationRecord, error) {
	current, err := u.Read(ctx)
	if err != nil {
		return nil, err
	}
	if current == nil || !current.IsActive || current.HostUserID != hostID {
		return nil, nil
	}
	if _, err := u.Deactivate(ctx); err != nil {
		return nil, err
	}
	return current, nil
}

func (u *ActivationUsecase) Read(ctx context.Context) (*model.ActivationRecord, error) {
	rec, err := u.activations.Get(ctx)
	if err != nil {
		return nil, apperror.Storage("read jukebox status", err)
	}
	return rec, nil
}
