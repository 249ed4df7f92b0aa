package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credentialColumns = []string{"host_id", "access_token", "refresh_token", "expires_at", "scope", "token_type", "last_refreshed", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func TestEnsureJukeboxSchema(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS host_credentials").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS jukebox_status").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, EnsureJukeboxSchema(db))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCredentialRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("save upserts by host id", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		mock.ExpectExec("INSERT INTO host_credentials .* ON CONFLICT \\(host_id\\) DO UPDATE").
			WithArgs("UC1", "at", "rt", sqlmock.AnyArg(), "youtube", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(ctx, "UC1", "at", "rt", time.Hour, "youtube"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("load returns nil when absent", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		mock.ExpectQuery("SELECT host_id, access_token .* FROM host_credentials WHERE host_id=\\$1").
			WithArgs("nobody").
			WillReturnRows(sqlmock.NewRows(credentialColumns))

		cred, err := repo.Load(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("load maps nullable columns", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		now := time.Now().UTC()
		mock.ExpectQuery("FROM host_credentials").
			WithArgs("UC1").
			WillReturnRows(sqlmock.NewRows(credentialColumns).AddRow("UC1", "at", "rt", now, "youtube", "Bearer", nil, now, now))

		cred, err := repo.Load(ctx, "UC1")
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "rt", cred.RefreshToken)
		require.NotNil(t, cred.ExpiresAt)
		assert.True(t, cred.ExpiresAt.Equal(now))
		assert.Nil(t, cred.LastRefreshed)
	})

	t.Run("update access token on missing host", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		mock.ExpectExec("UPDATE host_credentials SET access_token=\\$2").
			WithArgs("UC1", "at2", sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.UpdateAccessToken(ctx, "UC1", "at2", time.Hour)
		assert.True(t, errors.Is(err, repository.ErrNotFound))
	})

	t.Run("rotate refresh token", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		mock.ExpectExec("UPDATE host_credentials SET refresh_token=\\$2").
			WithArgs("UC1", "rt2", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.RotateRefreshToken(ctx, "UC1", "rt2"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("storage failure is returned", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepository(db)
		mock.ExpectExec("DELETE FROM host_credentials").WithArgs("UC1").WillReturnError(errors.New("connection refused"))

		assert.EqualError(t, repo.Clear(ctx, "UC1"), "connection refused")
	})
}

func TestActivationRepository(t *testing.T) {
	ctx := context.Background()
	columns := []string{"is_active", "selected_playlist_id", "host_user_id", "last_updated"}

	t.Run("get with no row", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewActivationRepository(db)
		mock.ExpectQuery("FROM jukebox_status WHERE id=\\$1").WithArgs(model.ActivationID).WillReturnRows(sqlmock.NewRows(columns))

		rec, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("get maps null ids to empty", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewActivationRepository(db)
		mock.ExpectQuery("FROM jukebox_status").WithArgs(model.ActivationID).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(false, nil, nil, time.Now()))

		rec, err := repo.Get(ctx)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.False(t, rec.Ready())
		assert.Empty(t, rec.SelectedPlaylistID)
	})

	t.Run("put writes nulls for cleared ids", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewActivationRepository(db)
		ts := time.Now()
		mock.ExpectExec("INSERT INTO jukebox_status .* ON CONFLICT \\(id\\) DO UPDATE").
			WithArgs(model.ActivationID, false, sql.NullString{}, sql.NullString{}, ts).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Put(ctx, &model.ActivationRecord{LastUpdated: ts}))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCredentialRepositoryMSSQL(t *testing.T) {
	ctx := context.Background()

	t.Run("save uses merge", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepositoryMSSQL(db)
		mock.ExpectExec("MERGE dbo.\\[host_credentials\\]").
			WithArgs("UC1", "at", "rt", sqlmock.AnyArg(), "youtube", sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(ctx, "UC1", "at", "rt", time.Hour, "youtube"))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("load absent", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewCredentialRepositoryMSSQL(db)
		mock.ExpectQuery("WHERE host_id=@p1").WithArgs("UC1").WillReturnRows(sqlmock.NewRows(credentialColumns))

		cred, err := repo.Load(ctx, "UC1")
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("activation put uses merge", func(t *testing.T) {
		db, mock := newMock(t)
		repo := NewActivationRepositoryMSSQL(db)
		ts := time.Now()
		mock.ExpectExec("MERGE dbo.\\[jukebox_status\\]").
			WithArgs(model.ActivationID, true, sql.NullString{String: "PL1", Valid: true}, sql.NullString{String: "UC1", Valid: true}, ts).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Put(ctx, &model.ActivationRecord{IsActive: true, SelectedPlaylistID: "PL1", HostUserID: "UC1", LastUpdated: ts}))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
