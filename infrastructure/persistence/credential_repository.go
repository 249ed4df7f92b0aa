package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"
	"tubequeue/infrastructure/utils"
)

// EnsureJukeboxSchema creates the credential and activation tables if not exists
func EnsureJukeboxSchema(db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS host_credentials (
			host_id TEXT PRIMARY KEY,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL DEFAULT '',
			expires_at TIMESTAMPTZ NULL,
			scope TEXT NOT NULL DEFAULT '',
			token_type TEXT NOT NULL DEFAULT 'Bearer',
			last_refreshed TIMESTAMPTZ NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS jukebox_status (
			id TEXT PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			selected_playlist_id TEXT NULL,
			host_user_id TEXT NULL,
			last_updated TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("ensure jukebox schema: %w", err)
		}
	}
	logger.GetLogger().Info("jukebox schema ensured (postgres)")
	return nil
}

type CredentialRepository struct{ db *sql.DB }

func NewCredentialRepository(db *sql.DB) repository.ICredential {
	return &CredentialRepository{db: db}
}

func (r *CredentialRepository) Save(ctx context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error {
	now := utils.GetCurrentTime()
	q := `INSERT INTO host_credentials (host_id, access_token, refresh_token, expires_at, scope, token_type, last_refreshed, created_at, updated_at)
		  VALUES ($1,$2,$3,$4,$5,'Bearer',NULL,$6,$6)
		  ON CONFLICT (host_id) DO UPDATE SET
			access_token=EXCLUDED.access_token,
			refresh_token=EXCLUDED.refresh_token,
			expires_at=EXCLUDED.expires_at,
			scope=EXCLUDED.scope,
			token_type=EXCLUDED.token_type,
			last_refreshed=NULL,
			updated_at=EXCLUDED.updated_at`
	_, err := r.db.ExecContext(ctx, q, hostID, accessToken, refreshToken, now.Add(expiresIn), scope, now)
	return err
}

func (r *CredentialRepository) Load(ctx context.Context, hostID string) (*model.HostCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT host_id, access_token, refresh_token, expires_at, scope, token_type, last_refreshed, created_at, updated_at FROM host_credentials WHERE host_id=$1`, hostID)
	cred := &model.HostCredential{}
	var exp, refreshed sql.NullTime
	if err := row.Scan(&cred.HostID, &cred.AccessToken, &cred.RefreshToken, &exp, &cred.Scope, &cred.TokenType, &refreshed, &cred.CreatedAt, &cred.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if exp.Valid {
		cred.ExpiresAt = &exp.Time
	}
	if refreshed.Valid {
		cred.LastRefreshed = &refreshed.Time
	}
	return cred, nil
}

func (r *CredentialRepository) UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	now := utils.GetCurrentTime()
	res, err := r.db.ExecContext(ctx, `UPDATE host_credentials SET access_token=$2, expires_at=$3, last_refreshed=$4, updated_at=$4 WHERE host_id=$1`,
		hostID, accessToken, now.Add(expiresIn), now)
	return affected(res, err)
}

func (r *CredentialRepository) RotateRefreshToken(ctx context.Context, hostID, refreshToken string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE host_credentials SET refresh_token=$2, updated_at=$3 WHERE host_id=$1`,
		hostID, refreshToken, utils.GetCurrentTime())
	return affected(res, err)
}

func (r *CredentialRepository) Clear(ctx context.Context, hostID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM host_credentials WHERE host_id=$1`, hostID)
	return err
}

// affected maps a zero-row update to repository.ErrNotFound.
func affected(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type ActivationRepository struct{ db *sql.DB }

func NewActivationRepository(db *sql.DB) repository.IActivation {
	return &ActivationRepository{db: db}
}

func (r *ActivationRepository) Get(ctx context.Context) (*model.ActivationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT is_active, selected_playlist_id, host_user_id, last_updated FROM jukebox_status WHERE id=$1`, model.ActivationID)
	rec := &model.ActivationRecord{}
	var playlistID, hostID sql.NullString
	if err := row.Scan(&rec.IsActive, &playlistID, &hostID, &rec.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	rec.SelectedPlaylistID = playlistID.String
	rec.HostUserID = hostID.String
	return rec, nil
}

func (r *ActivationRepository) Put(ctx context.Context, rec *model.ActivationRecord) error {
	q := `INSERT INTO jukebox_status (id, is_active, selected_playlist_id, host_user_id, last_updated)
		  VALUES ($1,$2,$3,$4,$5)
		  ON CONFLICT (id) DO UPDATE SET
			is_active=EXCLUDED.is_active,
			selected_playlist_id=EXCLUDED.selected_playlist_id,
			host_user_id=EXCLUDED.host_user_id,
			last_updated=EXCLUDED.last_updated`
	_, err := r.db.ExecContext(ctx, q, model.ActivationID, rec.IsActive, nullString(rec.SelectedPlaylistID), nullString(rec.HostUserID), rec.LastUpdated)
	return err
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
