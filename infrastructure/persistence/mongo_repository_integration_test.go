//go:build integration

package persistence

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"tubequeue/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func startMongo(t *testing.T) *mongo.Database {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("Warning: failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	client, err := mongo.Connect(options.Client().ApplyURI(fmt.Sprintf("mongodb://%s:%s", host, port.Port())))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client.Database("tubequeue_test")
}

func TestMongoRepositories(t *testing.T) {
	db := startMongo(t)
	ctx := context.Background()
	require.NoError(t, EnsureQueueIndexes(ctx, db))

	t.Run("credential lifecycle", func(t *testing.T) {
		repo := NewCredentialRepositoryMongo(db)

		cred, err := repo.Load(ctx, "UC1")
		require.NoError(t, err)
		assert.Nil(t, cred)

		require.NoError(t, repo.Save(ctx, "UC1", "at", "rt", time.Hour, "youtube"))
		require.NoError(t, repo.UpdateAccessToken(ctx, "UC1", "at2", 30*time.Minute))

		cred, err = repo.Load(ctx, "UC1")
		require.NoError(t, err)
		require.NotNil(t, cred)
		assert.Equal(t, "at2", cred.AccessToken)
		assert.Equal(t, "rt", cred.RefreshToken)
		assert.NotNil(t, cred.LastRefreshed)

		require.NoError(t, repo.RotateRefreshToken(ctx, "UC1", "rt2"))
		require.NoError(t, repo.Clear(ctx, "UC1"))
		cred, err = repo.Load(ctx, "UC1")
		require.NoError(t, err)
		assert.Nil(t, cred)
	})

	t.Run("activation record", func(t *testing.T) {
		repo := NewActivationRepositoryMongo(db)
		rec, err := repo.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, rec)

		require.NoError(t, repo.Put(ctx, &model.ActivationRecord{IsActive: true, SelectedPlaylistID: "PL1", HostUserID: "UC1", LastUpdated: time.Now().UTC()}))
		rec, err = repo.Get(ctx)
		require.NoError(t, err)
		assert.True(t, rec.Ready())
	})

	t.Run("queue reserves once under concurrency", func(t *testing.T) {
		repo := NewQueueRepositoryMongo(db)
		var wins int32
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := repo.Reserve(ctx, &model.QueueEntry{PlaylistID: "PL1", Video: model.Video{ID: "v1"}, AddedAt: time.Now().UTC()})
				assert.NoError(t, err)
				if ok {
					atomic.AddInt32(&wins, 1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins)

		entries, err := repo.List(ctx, "PL1")
		require.NoError(t, err)
		assert.Empty(t, entries)

		require.NoError(t, repo.Confirm(ctx, "PL1", "v1", "item-1"))
		entries, err = repo.List(ctx, "PL1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "item-1", entries[0].PlaylistItemID)

		require.NoError(t, repo.Clear(ctx, "PL1"))
		entries, err = repo.List(ctx, "PL1")
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
