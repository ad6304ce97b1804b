package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoRoutineRepository struct {
	collection *mongo.Collection
}

func NewMongoRoutineRepository(db *mongo.Database) *MongoRoutineRepository {
	return &MongoRoutineRepository{
		collection: db.Collection("routines"),
	}
}

func (r *MongoRoutineRepository) Create(ctx context.Context, routine *domain.Routine) error {
	routine.CreatedAt = time.Now()
	routine.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, routine)
	if err != nil {
		return fmt.Errorf("failed to create routine: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		routine.ID = oid.Hex()
	}
	return nil
}

func (r *MongoRoutineRepository) GetByID(ctx context.Context, id string) (*domain.Routine, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var routine domain.Routine
	err = r.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&routine)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, domain.ErrRoutineNotFound
		}
		return nil, err
	}
	return &routine, nil
}

func (r *MongoRoutineRepository) List(ctx context.Context) ([]*domain.Routine, error) {
	cursor, err := r.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var routines []*domain.Routine
	if err := cursor.All(ctx, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (r *MongoRoutineRepository) Update(ctx context.Context, routine *domain.Routine) error {
	oid, err := primitive.ObjectIDFromHex(routine.ID)
	if err != nil {
		return domain.ErrInvalidID
	}
	routine.UpdatedAt = time.Now()

	update := bson.M{
		"$set": bson.M{
			"name":       routine.Name,
			"exercises":  routine.Exercises,
			"updated_at": routine.UpdatedAt,
		},
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": oid}, update)
	return err
}

func (r *MongoRoutineRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": oid})
	return err
}
