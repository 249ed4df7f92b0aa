package usecase

import (
	"context"
	"time"

	"tubequeue/domain/apperror"
	"tubequeue/domain/dto"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"
)

const oauthStateTTL = 10 * time.Minute

type IAuthUsecase interface {
	// AuthURL returns the consent URL and the state it carries.
	AuthURL(ctx context.Context) (string, string, error)
	Connect(ctx context.Context, state, code string) (*dto.HostSession, error)
	Logout(ctx context.Context, hostID string) error
}

type AuthUsecase struct {
	authority   repository.ITokenAuthority
	youtube     repository.IYouTube
	credentials repository.ICredential
	states      repository.IOAuthState
	activation  IActivationUsecase
	jukebox     IJukeboxUsecase
	secretKey   string
	sessionTTL  time.Duration
	timeout     time.Duration
}

type AuthConfig struct {
	SecretKey  string
	SessionTTL time.Duration
	Timeout    time.Duration
}

func NewAuthUsecase(
	authority repository.ITokenAuthority,
	youtube repository.IYouTube,
	credentials repository.ICredential,
	states repository.IOAuthState,
	activation IActivationUsecase,
	jukebox IJukeboxUsecase,
	cfg AuthConfig,
) IAuthUsecase {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultUpstreamTimeout
	}
	return &AuthUsecase{
		authority:   authority,
		youtube:     youtube,
		credentials: credentials,
		states:      states,
		activation:  activation,
		jukebox:     jukebox,
		secretKey:   cfg.SecretKey,
		sessionTTL:  cfg.SessionTTL,
		timeout:     cfg.Timeout,
	}
}

func (u *AuthUsecase) AuthURL(ctx context.Context) (string, string, error) {
	state, err := utils.RandomState()
	if err != nil {
		return "", "", apperror.Wrap(apperror.KindInternal, "generate oauth state", err)
	}
	if err := u.states.Put(ctx, state, oauthStateTTL); err != nil {
		return "", "", apperror.Storage("store oauth state", err)
	}
	return u.authority.AuthCodeURL(state), state, nil
}

// Connect finishes the OAuth flow: the authorizing account's channel id
// becomes the host id under which the credential is stored.
func (u *AuthUsecase) Connect(ctx context.Context, state, code string) (*dto.HostSession, error) {
	if state == "" || code == "" {
		return nil, apperror.InvalidInput("state and code are required")
	}
	valid, err := u.states.Consume(ctx, state)
	if err != nil {
		return nil, apperror.Storage("read oauth state", err)
	}
	if !valid {
		return nil, apperror.InvalidInput("invalid or expired OAuth state, visit /auth/youtube to start over")
	}

	callCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()
	grant, err := u.authority.Exchange(callCtx, code)
	if err != nil {
		return nil, apperror.Upstream("failed to exchange code for token", err)
	}
	channel, err := u.youtube.GetMyChannel(callCtx, grant.AccessToken)
	if err != nil {
		return nil, platformFailure(err)
	}

	refreshToken := grant.RefreshToken
	if refreshToken == "" {
		// Google omits the refresh token on repeat consent; keep the stored one.
		existing, err := u.credentials.Load(ctx, channel.ID)
		if err != nil {
			return nil, apperror.Storage("load host credential", err)
		}
		if existing != nil {
			refreshToken = existing.RefreshToken
		}
	}
	if err := u.credentials.Save(ctx, channel.ID, grant.AccessToken, refreshToken, grant.ExpiresIn, grant.Scope); err != nil {
		return nil, apperror.Storage("save host credential", err)
	}

	token, expiresAt, err := utils.GenerateHostToken(channel.ID, channel.Title, u.sessionTTL, u.secretKey)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindInternal, "issue host session", err)
	}
	logger.GetLogger().WithFields(map[string]interface{}{
		"hostId":          channel.ID,
		"hasRefreshToken": refreshToken != "",
		"scope":           grant.Scope,
	}).Info("host connected")
	return &dto.HostSession{HostID: channel.ID, HostName: channel.Title, Token: token, ExpiresAt: expiresAt}, nil
}

// Logout deactivates the jukebox only when this host owns it, then always
// removes the host's credential.
func (u *AuthUsecase) Logout(ctx context.Context, hostID string) error {
	if hostID == "" {
		return apperror.Unauthorized("host session required")
	}
	prev, err := u.activation.DeactivateOwnedBy(ctx, hostID)
	if err != nil {
		return err
	}
	if prev != nil {
		if err := u.jukebox.ClearQueue(ctx, prev.SelectedPlaylistID); err != nil {
			logger.GetLogger().WithField("playlistId", prev.SelectedPlaylistID).WithField("error", err).Warn("failed to clear queue on logout")
		}
	}
	if err := u.credentials.Clear(ctx, hostID); err != nil {
		return apperror.Storage("clear host credential", err)
	}
	logger.GetLogger().WithField("hostId", hostID).WithField("deactivated", prev != nil).Info("host logged out")
	return nil
}
