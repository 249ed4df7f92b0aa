package persistence

import (
	"context"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const queueCollection = "queue"

// QueueRepositoryMongo relies on a unique (playlistId, videoId) index for reservations.
type QueueRepositoryMongo struct {
	collection *mongo.Collection
}

func NewQueueRepositoryMongo(db *mongo.Database) repository.IQueue {
	return &QueueRepositoryMongo{collection: db.Collection(queueCollection)}
}

// EnsureQueueIndexes creates the unique reservation index and the ordering index.
func EnsureQueueIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(queueCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "playlistId", Value: 1}, {Key: "videoId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_queue_playlist_video"),
		},
		{
			Keys:    bson.D{{Key: "playlistId", Value: 1}, {Key: "addedAt", Value: 1}},
			Options: options.Index().SetName("ix_queue_playlist_added"),
		},
	})
	return err
}

func (r *QueueRepositoryMongo) Reserve(ctx context.Context, entry *model.QueueEntry) (bool, error) {
	pending := *entry
	pending.State = model.QueueEntryPending
	pending.PlaylistItemID = ""
	_, err := r.collection.InsertOne(ctx, pending)
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *QueueRepositoryMongo) Confirm(ctx context.Context, playlistID, videoID, playlistItemID string) error {
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"playlistId": playlistID, "videoId": videoID},
		bson.M{"$set": bson.M{"state": model.QueueEntryAdded, "playlistItemId": playlistItemID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *QueueRepositoryMongo) Release(ctx context.Context, playlistID, videoID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"playlistId": playlistID, "videoId": videoID, "state": model.QueueEntryPending})
	return err
}

func (r *QueueRepositoryMongo) List(ctx context.Context, playlistID string) ([]model.QueueEntry, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"playlistId": playlistID, "state": model.QueueEntryAdded},
		options.Find().SetSort(bson.D{{Key: "addedAt", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer func(cursor *mongo.Cursor, ctx context.Context) {
		if err := cursor.Close(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Error("Error while closing cursor")
		}
	}(cursor, ctx)

	entries := make([]model.QueueEntry, 0)
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *QueueRepositoryMongo) Clear(ctx context.Context, playlistID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"playlistId": playlistID})
	return err
}
