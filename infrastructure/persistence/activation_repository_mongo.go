package persistence

import (
	"context"
	"errors"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const activationCollection = "jukebox"

// ActivationRepositoryMongo keeps the activation record in document jukebox/status.
type ActivationRepositoryMongo struct {
	collection *mongo.Collection
}

func NewActivationRepositoryMongo(db *mongo.Database) repository.IActivation {
	return &ActivationRepositoryMongo{collection: db.Collection(activationCollection)}
}

func (r *ActivationRepositoryMongo) Get(ctx context.Context) (*model.ActivationRecord, error) {
	var rec model.ActivationRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": model.ActivationID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Put replaces the whole document; last writer wins.
func (r *ActivationRepositoryMongo) Put(ctx context.Context, rec *model.ActivationRecord) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": model.ActivationID}, rec, options.Replace().SetUpsert(true))
	return err
}
