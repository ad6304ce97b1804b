package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/config"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	routineRepo := repository.NewMongoRoutineRepository(db)
	userRepo := repository.NewMongoUserRepository(db)

	routines := []*domain.Routine{
		{
			Name: "Push Day",
			Exercises: []*domain.RoutineExercise{
				{ExerciseID: "bench-press", Name: "Barbell Bench Press", Order: 1, TargetSets: 4, TargetReps: "6-8", RestSeconds: 150},
				{ExerciseID: "overhead-press", Name: "Overhead Press", Order: 2, TargetSets: 3, TargetReps: "8-10", RestSeconds: 120},
				{ExerciseID: "incline-db-press", Name: "Incline Dumbbell Press", Order: 3, TargetSets: 3, TargetReps: "8-12", RestSeconds: 90},
				{ExerciseID: "lateral-raise", Name: "Lateral Raise", Order: 4, TargetSets: 3, TargetReps: "12-15", RestSeconds: 60},
				{ExerciseID: "tricep-pushdown", Name: "Tricep Pushdown", Order: 5, TargetSets: 3, TargetReps: "10-12", RestSeconds: 60},
			},
		},
		{
			Name: "Pull Day",
			Exercises: []*domain.RoutineExercise{
				{ExerciseID: "deadlift", Name: "Deadlift", Order: 1, TargetSets: 3, TargetReps: "5", RestSeconds: 180},
				{ExerciseID: "lat-pulldown", Name: "Lat Pulldown", Order: 2, TargetSets: 3, TargetReps: "8-10", RestSeconds: 120},
				{ExerciseID: "barbell-row", Name: "Barbell Row", Order: 3, TargetSets: 3, TargetReps: "8-10", RestSeconds: 120},
				{ExerciseID: "face-pull", Name: "Face Pull", Order: 4, TargetSets: 3, TargetReps: "12-15", RestSeconds: 60},
				{ExerciseID: "barbell-curl", Name: "Barbell Curl", Order: 5, TargetSets: 3, TargetReps: "10-12", RestSeconds: 60},
			},
		},
		{
			Name: "Leg Day",
			Exercises: []*domain.RoutineExercise{
				{ExerciseID: "squat", Name: "Barbell Squat", Order: 1, TargetSets: 4, TargetReps: "6-8", RestSeconds: 180},
				{ExerciseID: "romanian-deadlift", Name: "Romanian Deadlift", Order: 2, TargetSets: 3, TargetReps: "8-10", RestSeconds: 120},
				{ExerciseID: "leg-press", Name: "Leg Press", Order: 3, TargetSets: 3, TargetReps: "10-12", RestSeconds: 90},
				{ExerciseID: "leg-curl", Name: "Lying Leg Curl", Order: 4, TargetSets: 3, TargetReps: "10-12", RestSeconds: 60},
				{ExerciseID: "calf-raise", Name: "Calf Raise", Order: 5, TargetSets: 4, TargetReps: "12-15", RestSeconds: 45},
			},
		},
	}

	for _, routine := range routines {
		if err := routineRepo.Create(ctx, routine); err != nil {
			log.Fatalf("Failed to seed routine %s: %v", routine.Name, err)
		}
		fmt.Printf("Seeded routine: %s (%s)\n", routine.Name, routine.ID)
	}

	// The owner record. Skipped when DEFAULT_USER_ID already resolves.
	if _, err := userRepo.GetByID(ctx, cfg.User.ID); err == nil {
		fmt.Printf("User %s already exists, skipping\n", cfg.User.ID)
	} else {
		user := &domain.User{Name: "Owner"}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create user: %v", err)
		}
		fmt.Printf("Seeded user: %s\n", user.ID)
		fmt.Printf("Set DEFAULT_USER_ID=%s in your environment\n", user.ID)
	}

	fmt.Println("Done.")
}
