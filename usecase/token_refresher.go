package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshBuffer = 5 * time.Minute
	defaultGrantLifetime = time.Hour
	refreshFlightTimeout = 30 * time.Second
)

var (
	ErrHostNotConnected = errors.New("host not connected")
	ErrReauthRequired   = errors.New("manual re-auth required")
	ErrRefreshFailed    = errors.New("token refresh failed")
)

// IsCredentialUnavailable reports whether err means the host cannot be
// acted for until they log in again.
func IsCredentialUnavailable(err error) bool {
	return errors.Is(err, ErrHostNotConnected) || errors.Is(err, ErrReauthRequired) || errors.Is(err, ErrRefreshFailed)
}

type ITokenRefresher interface {
	GetValidAccessToken(ctx context.Context, hostID string) (string, error)
}

// TokenRefresher hands out access tokens that stay valid for at least the
// buffer, refreshing through the token authority when needed.
type TokenRefresher struct {
	credentials repository.ICredential
	authority   repository.ITokenAuthority
	buffer      time.Duration
	now         func() time.Time
	flights     singleflight.Group
}

func NewTokenRefresher(credentials repository.ICredential, authority repository.ITokenAuthority, buffer time.Duration) ITokenRefresher {
	if buffer <= 0 {
		buffer = DefaultRefreshBuffer
	}
	return &TokenRefresher{
		credentials: credentials,
		authority:   authority,
		buffer:      buffer,
		now:         utils.GetCurrentTime,
	}
}

func (r *TokenRefresher) GetValidAccessToken(ctx context.Context, hostID string) (string, error) {
	token, ok, err := r.stored(ctx, hostID)
	if err != nil || ok {
		return token, err
	}

	// One refresh per host at a time; concurrent callers share its result.
	// The flight outlives the request that started it.
	v, err, _ := r.flights.Do(hostID, func() (interface{}, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshFlightTimeout)
		defer cancel()
		return r.refresh(flightCtx, hostID)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// stored returns the persisted token when it is still valid past the buffer.
func (r *TokenRefresher) stored(ctx context.Context, hostID string) (string, bool, error) {
	cred, err := r.credentials.Load(ctx, hostID)
	if err != nil {
		return "", false, apperror.Storage("load host credential", err)
	}
	if cred == nil {
		return "", false, ErrHostNotConnected
	}
	if !cred.ExpiresWithin(r.now(), r.buffer) {
		return cred.AccessToken, true, nil
	}
	if cred.RefreshToken == "" {
		logger.GetLogger().WithField("hostId", hostID).Warn("access token expired and no refresh token stored, manual re-auth required")
		return "", false, ErrReauthRequired
	}
	return "", false, nil
}

func (r *TokenRefresher) refresh(ctx context.Context, hostID string) (string, error) {
	// Reload inside the flight: a refresh that just finished is reused
	// instead of spending the refresh token twice.
	cred, err := r.credentials.Load(ctx, hostID)
	if err != nil {
		return "", apperror.Storage("load host credential", err)
	}
	if cred == nil {
		return "", ErrHostNotConnected
	}
	if !cred.ExpiresWithin(r.now(), r.buffer) {
		return cred.AccessToken, nil
	}
	if cred.RefreshToken == "" {
		return "", ErrReauthRequired
	}

	grant, err := r.authority.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		logger.GetLogger().WithField("hostId", hostID).WithField("error", err).Warn("token refresh failed")
		return "", fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if grant == nil || grant.AccessToken == "" {
		return "", fmt.Errorf("%w: authority returned no access token", ErrRefreshFailed)
	}
	expiresIn := grant.ExpiresIn
	if expiresIn <= 0 {
		expiresIn = defaultGrantLifetime
	}

	// A rotated refresh token is stored first; the old one may already be revoked.
	rotated := grant.RefreshToken != "" && grant.RefreshToken != cred.RefreshToken
	if rotated {
		if err := r.credentials.RotateRefreshToken(ctx, hostID, grant.RefreshToken); err != nil {
			return "", persistFailure(hostID, "persist rotated refresh token", err)
		}
	}
	if err := r.credentials.UpdateAccessToken(ctx, hostID, grant.AccessToken, expiresIn); err != nil {
		return "", persistFailure(hostID, "persist refreshed access token", err)
	}

	logger.GetLogger().WithFields(map[string]interface{}{
		"hostId":    hostID,
		"expiresIn": expiresIn.String(),
		"rotated":   rotated,
	}).Info("host access token refreshed")
	return grant.AccessToken, nil
}

func persistFailure(hostID, msg string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		// Host logged out while the refresh was in flight.
		return ErrHostNotConnected
	}
	logger.GetLogger().WithField("hostId", hostID).WithField("error", err).Error(msg)
	return apperror.Storage(msg, err)
}
