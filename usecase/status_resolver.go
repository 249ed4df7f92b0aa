package usecase

import (
	"context"

	"tubequeue/domain/apperror"
	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
)

const (
	ReasonNoActivation          = "no_activation"
	ReasonInactive              = "inactive"
	ReasonIncompleteRecord      = "incomplete_record"
	ReasonCredentialUnavailable = "credential_unavailable"
)

type IStatusResolver interface {
	ResolveForGuest(ctx context.Context) (*model.ResolvedStatus, error)
}

// StatusResolver joins the activation record with a fresh host token.
// The result is built per call and never cached.
type StatusResolver struct {
	activations repository.IActivation
	refresher   ITokenRefresher
}

func NewStatusResolver(activations repository.IActivation, refresher ITokenRefresher) IStatusResolver {
	return &StatusResolver{activations: activations, refresher: refresher}
}

func (r *StatusResolver) ResolveForGuest(ctx context.Context) (*model.ResolvedStatus, error) {
	rec, err := r.activations.Get(ctx)
	if err != nil {
		return nil, apperror.Storage("read jukebox status", err)
	}
	switch {
	case rec == nil:
		return nil, notReady(ReasonNoActivation, nil)
	case !rec.IsActive:
		return nil, notReady(ReasonInactive, nil)
	case rec.HostUserID == "" || rec.SelectedPlaylistID == "":
		return nil, notReady(ReasonIncompleteRecord, nil)
	}

	token, err := r.refresher.GetValidAccessToken(ctx, rec.HostUserID)
	if err != nil {
		if IsCredentialUnavailable(err) {
			return nil, notReady(ReasonCredentialUnavailable, err)
		}
		return nil, err
	}
	return &model.ResolvedStatus{
		Active:      true,
		PlaylistID:  rec.SelectedPlaylistID,
		HostID:      rec.HostUserID,
		AccessToken: token,
	}, nil
}

func notReady(reason string, err error) error {
	entry := logger.GetLogger().WithField("reason", reason)
	if err != nil {
		entry = entry.WithField("error", err)
	}
	entry.Info("jukebox not ready for guests")
	return apperror.NotReady(reason, err)
}
