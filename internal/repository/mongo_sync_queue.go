package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSyncQueueRepository is the durable outbox backing the sync queue.
type MongoSyncQueueRepository struct {
	collection *mongo.Collection
}

func NewMongoSyncQueueRepository(db *mongo.Database) *MongoSyncQueueRepository {
	coll := db.Collection("sync_queue")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, _ = coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: 1}}},
	})

	return &MongoSyncQueueRepository{
		collection: coll,
	}
}

func (r *MongoSyncQueueRepository) Insert(ctx context.Context, entry *domain.SyncEntry) error {
	entry.CreatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to insert sync entry: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		entry.ID = oid.Hex()
	}
	return nil
}

func (r *MongoSyncQueueRepository) ListByStatuses(ctx context.Context, statuses []string) ([]*domain.SyncEntry, error) {
	filter := bson.M{"status": bson.M{"$in": statuses}}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []*domain.SyncEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *MongoSyncQueueRepository) CountByStatuses(ctx context.Context, statuses []string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"status": bson.M{"$in": statuses}})
}

func (r *MongoSyncQueueRepository) UpdateStatus(ctx context.Context, id, status string, attempts int, lastAttempt *time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	fields := bson.M{
		"status":   status,
		"attempts": attempts,
	}
	if lastAttempt != nil {
		fields["last_attempt_at"] = *lastAttempt
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": fields})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *MongoSyncQueueRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}

func (r *MongoSyncQueueRepository) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"status": status})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
