package audit

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
)

// MongoStorage persists events to a MongoDB collection. Suited to
// deployments that keep their audit trail out of the primary database.
type MongoStorage struct {
	collection *mongo.Collection
}

// NewMongoStorage creates a storage over the given database, writing to
// the "audit_events" collection unless another name is given.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	if db == nil {
		panic("audit: mongo database is required")
	}
	if collection == "" {
		collection = "audit_events"
	}
	return &MongoStorage{collection: db.Collection(collection)}
}

func (s *MongoStorage) Store(ctx context.Context, event Event) error {
	if _, err := s.collection.InsertOne(ctx, event); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}

func (s *MongoStorage) StoreBatch(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	docs := make([]any, len(events))
	for i, e := range events {
		docs[i] = e
	}
	if _, err := s.collection.InsertMany(ctx, docs); err != nil {
		return errors.Join(ErrStorageUnavailable, err)
	}
	return nil
}
