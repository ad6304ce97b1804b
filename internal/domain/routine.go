package domain

import (
	"context"
	"strconv"
	"strings"
	"time"
)

// DefaultTargetReps is the fallback when a routine's target reps string
// cannot be parsed.
const DefaultTargetReps = 10

// RoutineExercise is one entry of a routine template. TargetReps is kept as
// the raw string ("10", "8-12") since routines are authored free-form.
type RoutineExercise struct {
	ExerciseID  string `json:"exercise_id" bson:"exercise_id"`
	Name        string `json:"name" bson:"name"`
	Order       int    `json:"order" bson:"order"`
	TargetSets  int    `json:"target_sets" bson:"target_sets"`
	TargetReps  string `json:"target_reps" bson:"target_reps"`
	RestSeconds int    `json:"rest_seconds" bson:"rest_seconds"`
}

// Routine is a reusable workout template. A session mirrors its exercise
// order at start time and never reorders afterwards.
type Routine struct {
	ID        string             `json:"id" bson:"_id,omitempty"`
	Name      string             `json:"name" bson:"name"`
	Exercises []*RoutineExercise `json:"exercises" bson:"exercises"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}

// ParseTargetReps turns a routine's target reps string into a concrete rep
// count. Range strings like "8-12" take the lower bound; anything unparsable
// falls back to DefaultTargetReps.
func ParseTargetReps(raw string) int {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, '-'); i > 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return DefaultTargetReps
	}
	return n
}

type RoutineRepository interface {
	Create(ctx context.Context, routine *Routine) error
	GetByID(ctx context.Context, id string) (*Routine, error)
	List(ctx context.Context) ([]*Routine, error)
	Update(ctx context.Context, routine *Routine) error
	Delete(ctx context.Context, id string) error
}
