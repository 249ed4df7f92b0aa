package persistence

import (
	"context"
	"errors"
	"time"

	"tubequeue/domain/model"
	"tubequeue/domain/repository"
	"tubequeue/infrastructure/utils"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const credentialCollection = "host_credentials"

// CredentialRepositoryMongo stores one document per host, _id = host id.
type CredentialRepositoryMongo struct {
	collection *mongo.Collection
}

func NewCredentialRepositoryMongo(db *mongo.Database) repository.ICredential {
	return &CredentialRepositoryMongo{collection: db.Collection(credentialCollection)}
}

func (r *CredentialRepositoryMongo) Save(ctx context.Context, hostID, accessToken, refreshToken string, expiresIn time.Duration, scope string) error {
	now := utils.GetCurrentTime()
	expiresAt := now.Add(expiresIn)
	update := bson.M{
		"$set": bson.M{
			"accessToken":  accessToken,
			"refreshToken": refreshToken,
			"expiresAt":    expiresAt,
			"scope":        scope,
			"tokenType":    "Bearer",
			"updatedAt":    now,
		},
		"$unset":       bson.M{"lastRefreshed": ""},
		"$setOnInsert": bson.M{"createdAt": now},
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": hostID}, update, options.UpdateOne().SetUpsert(true))
	return err
}

func (r *CredentialRepositoryMongo) Load(ctx context.Context, hostID string) (*model.HostCredential, error) {
	var cred model.HostCredential
	err := r.collection.FindOne(ctx, bson.M{"_id": hostID}).Decode(&cred)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *CredentialRepositoryMongo) UpdateAccessToken(ctx context.Context, hostID, accessToken string, expiresIn time.Duration) error {
	now := utils.GetCurrentTime()
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": hostID}, bson.M{"$set": bson.M{
		"accessToken":   accessToken,
		"expiresAt":     now.Add(expiresIn),
		"lastRefreshed": now,
		"updatedAt":     now,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CredentialRepositoryMongo) RotateRefreshToken(ctx context.Context, hostID, refreshToken string) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": hostID}, bson.M{"$set": bson.M{
		"refreshToken": refreshToken,
		"updatedAt":    utils.GetCurrentTime(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CredentialRepositoryMongo) Clear(ctx context.Context, hostID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": hostID})
	return err
}
