package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/utils"
)

// EnsureJukeboxSchemaMSSQL creates the credential and activation tables for SQL Server if they do not exist.
func EnsureJukeboxSchemaMSSQL(db *sql.DB) error {
	ddl := []string{
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.host_credentials') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[host_credentials] (
        host_id NVARCHAR(128) NOT NULL PRIMARY KEY,
        access_token NVARCHAR(MAX) NOT NULL,
        refresh_token NVARCHAR(MAX) NOT NULL,
        expires_at DATETIME2 NULL,
        scope NVARCHAR(MAX) NOT NULL,
        token_type NVARCHAR(32) NOT NULL,
        last_refreshed DATETIME2 NULL,
        created_at DATETIME2 NOT NULL,
        updated_at DATETIME2 NOT NULL
    );
END`,
		`IF NOT EXISTS (SELECT * FROM sys.objects WHERE object_id = OBJECT_ID(N'dbo.jukebox_status') AND type in (N'U'))
BEGIN
    CREATE TABLE dbo.[jukebox_status] (
        id NVARCHAR(32) NOT NULL PRIMARY KEY,
        is_active BIT NOT NULL,
        selected_playlist_id NVARCHAR(128) NULL,
        host_user_id NVARCHAR(128) NULL,
        last_updated DATETIME2 NOT NULL
    );
END`,
	}
	for _, q := range ddl {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("ensure jukebox schema (mssql): %w", err)
		}
	}
	return nil
}

type CredentialRepositoryMSSQL struct{ db *sql.DB }

func NewCredentialRepositoryMSSQL(db *sql.DB) repository.ICredential {
	return &CredentialRepositoryMSSQL{db: db}
}

func (r *CredentialRepositoryMSSQL) Save(ctx context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error {
	now := utils.GetCurrentTime()
	// MERGE upsert by host_id
	q := `MERGE dbo.[host_credentials] AS target
USING (VALUES (@p1)) AS src(host_id)
ON target.host_id = src.host_id
WHEN MATCHED THEN UPDATE SET
    access_token=@p2,
    refresh_token=@p3,
    expires_at=@p4,
    scope=@p5,
    token_type='Bearer',
    last_refreshed=NULL,
    updated_at=@p6
WHEN NOT MATCHED THEN INSERT (host_id, access_token, refresh_token, expires_at, scope, token_type, last_refreshed, created_at, updated_at)
    VALUES (@p1, @p2, @p3, @p4, @p5, 'Bearer', NULL, @p6, @p6);`
	_, err := r.db.ExecContext(ctx, q, hostID, accessToken, refreshToken, now.Add(expiresIn), scope, now)
	return err
}

func (r *CredentialRepositoryMSSQL) Load(ctx context.Context, hostID string) (*model.HostCredential, error) {
	row := r.db.QueryRowContext(ctx, `SELECT host_id, access_token, refresh_token, expires_at, scope, token_type, last_refreshed, created_at, updated_at FROM dbo.[host_credentials] WHERE host_id=@p1`, hostID)
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

func (r *CredentialRepositoryMSSQL) UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	now := utils.GetCurrentTime()
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[host_credentials] SET access_token=@p2, expires_at=@p3, last_refreshed=@p4, updated_at=@p4 WHERE host_id=@p1`,
		hostID, accessToken, now.Add(expiresIn), now)
	return affected(res, err)
}

func (r *CredentialRepositoryMSSQL) RotateRefreshToken(ctx context.Context, hostID, refreshToken string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE dbo.[host_credentials] SET refresh_token=@p2, updated_at=@p3 WHERE host_id=@p1`,
		hostID, refreshToken, utils.GetCurrentTime())
	return affected(res, err)
}

func (r *CredentialRepositoryMSSQL) Clear(ctx context.Context, hostID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM dbo.[host_credentials] WHERE host_id=@p1`, hostID)
	return err
}

type ActivationRepositoryMSSQL struct{ db *sql.DB }

func NewActivationRepositoryMSSQL(db *sql.DB) repository.IActivation {
	return &ActivationRepositoryMSSQL{db: db}
}

func (r *ActivationRepositoryMSSQL) Get(ctx context.Context) (*model.ActivationRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT is_active, selected_playlist_id, host_user_id, last_updated FROM dbo.[jukebox_status] WHERE id=@p1`, model.ActivationID)
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

func (r *ActivationRepositoryMSSQL) Put(ctx context.Context, rec *model.ActivationRecord) error {
	q := `MERGE dbo.[jukebox_status] AS target
USING (VALUES (@p1)) AS src(id)
ON target.id = src.id
WHEN MATCHED THEN UPDATE SET
    is_active=@p2,
    selected_playlist_id=@p3,
    host_user_id=@p4,
    last_updated=@p5
WHEN NOT MATCHED THEN INSERT (id, is_active, selected_playlist_id, host_user_id, last_updated)
    VALUES (@p1, @p2, @p3, @p4, @p5);`
	_, err := r.db.ExecContext(ctx, q, model.ActivationID, rec.IsActive, nullString(rec.SelectedPlaylistID), nullString(rec.HostUserID), rec.LastUpdated)
	return err
}
