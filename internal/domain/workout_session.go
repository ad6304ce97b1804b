package domain

import (
	"context"
	"math"
	"time"
)

// Session status values
const (
	SessionInProgress = "in_progress"
	SessionCompleted  = "completed"
	SessionAbandoned  = "abandoned"
)

// Weight units
const (
	UnitKg  = "kg"
	UnitLbs = "lbs"
)

// LbsToKg is the fixed conversion factor used when normalizing volume to kg.
const LbsToKg = 0.45359237

// StaleSessionAfter is how long an in_progress session may sit idle before
// bootstrap force-abandons it instead of resuming it.
const StaleSessionAfter = 2 * time.Hour

// WorkoutSet is one performed unit of an exercise (a weight x reps attempt).
// ID is a UUID for sets created at session start, or a ULID for sets added
// mid-session. SetNumber is 1-based and dense within the exercise.
type WorkoutSet struct {
	ID          string     `json:"id" bson:"id"`
	SetNumber   int        `json:"set_number" bson:"set_number"`
	TargetReps  int        `json:"target_reps" bson:"target_reps"`
	Reps        int        `json:"reps" bson:"reps"`
	Weight      float64    `json:"weight" bson:"weight"`
	Unit        string     `json:"unit" bson:"unit"`
	Completed   bool       `json:"completed" bson:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	Feedback    string     `json:"feedback,omitempty" bson:"feedback,omitempty"`
}

// SessionExercise is one exercise instance within a session. Name is
// denormalized so the session survives deletion of the exercise definition.
// Order is fixed at creation and never changes during the session.
type SessionExercise struct {
	ExerciseID  string        `json:"exercise_id" bson:"exercise_id"`
	Name        string        `json:"name" bson:"name"`
	Order       int           `json:"order" bson:"order"`
	RestSeconds int           `json:"rest_seconds" bson:"rest_seconds"`
	Sets        []*WorkoutSet `json:"sets" bson:"sets"`
	Note        string        `json:"note,omitempty" bson:"note,omitempty"`
}

// FindSet returns the set with the given id, or nil.
func (e *SessionExercise) FindSet(setID string) *WorkoutSet {
	for _, s := range e.Sets {
		if s.ID == setID {
			return s
		}
	}
	return nil
}

// WorkoutSession is the aggregate root of an active or historical workout.
// ID is assigned by the record store on creation; ClientUID is a
// client-generated UUID used as a stable correlation key; RemoteID is
// assigned by the sync backend once the session has been pushed.
type WorkoutSession struct {
	ID          string             `json:"id" bson:"_id,omitempty"`
	ClientUID   string             `json:"client_uid" bson:"client_uid"`
	RemoteID    string             `json:"remote_id,omitempty" bson:"remote_id,omitempty"`
	UserID      string             `json:"user_id" bson:"user_id"`
	RoutineID   string             `json:"routine_id" bson:"routine_id"`
	RoutineName string             `json:"routine_name" bson:"routine_name"`
	Date        string             `json:"date" bson:"date"` // YYYY-MM-DD
	StartTime   time.Time          `json:"start_time" bson:"start_time"`
	EndTime     *time.Time         `json:"end_time,omitempty" bson:"end_time,omitempty"`
	DurationSec *int               `json:"duration_sec,omitempty" bson:"duration_sec,omitempty"`
	Status      string             `json:"status" bson:"status"`
	Exercises   []*SessionExercise `json:"exercises" bson:"exercises"`
	SyncedAt    *time.Time         `json:"synced_at,omitempty" bson:"synced_at,omitempty"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Progress is the derived completed/total set count across all exercises.
type Progress struct {
	CompletedSets int `json:"completed_sets"`
	TotalSets     int `json:"total_sets"`
}

// Progress recomputes the session's set counts on every call.
func (s *WorkoutSession) Progress() Progress {
	var p Progress
	for _, ex := range s.Exercises {
		for _, set := range ex.Sets {
			p.TotalSets++
			if set.Completed {
				p.CompletedSets++
			}
		}
	}
	return p
}

// IsComplete reports whether every set in every exercise is completed.
func (s *WorkoutSession) IsComplete() bool {
	p := s.Progress()
	return p.TotalSets > 0 && p.CompletedSets == p.TotalSets
}

// CurrentExerciseIndex returns the index of the first exercise that still has
// an incomplete set, or 0 when the session is fully completed.
func (s *WorkoutSession) CurrentExerciseIndex() int {
	for i, ex := range s.Exercises {
		for _, set := range ex.Sets {
			if !set.Completed {
				return i
			}
		}
	}
	return 0
}

// SessionStats are the aggregate numbers computed once at end-workout time.
// Volume is normalized to kg regardless of the unit each set was logged in.
type SessionStats struct {
	VolumeKg        float64 `json:"volume_kg"`
	CompletedSets   int     `json:"completed_sets"`
	ExercisesWorked int     `json:"exercises_worked"`
	DurationSec     int     `json:"duration_sec"`
}

// ComputeStats aggregates completed sets into end-of-workout stats.
func (s *WorkoutSession) ComputeStats(endTime time.Time) SessionStats {
	stats := SessionStats{
		DurationSec: int(math.Round(endTime.Sub(s.StartTime).Seconds())),
	}
	for _, ex := range s.Exercises {
		worked := false
		for _, set := range ex.Sets {
			if !set.Completed {
				continue
			}
			worked = true
			stats.CompletedSets++
			weight := set.Weight
			if set.Unit == UnitLbs {
				weight *= LbsToKg
			}
			stats.VolumeKg += weight * float64(set.Reps)
		}
		if worked {
			stats.ExercisesWorked++
		}
	}
	return stats
}

type WorkoutSessionRepository interface {
	Create(ctx context.Context, session *WorkoutSession) error
	GetByID(ctx context.Context, id string) (*WorkoutSession, error)
	// GetInProgressByUser returns the user's in_progress session, or
	// ErrSessionNotFound when there is none.
	GetInProgressByUser(ctx context.Context, userID string) (*WorkoutSession, error)
	// DeleteInProgressByUser removes any in_progress sessions for the user,
	// enforcing the one-active-session invariant before a new start.
	DeleteInProgressByUser(ctx context.Context, userID string) error
	Update(ctx context.Context, session *WorkoutSession) error
	// SetRemoteID records the server-assigned id after a successful sync.
	SetRemoteID(ctx context.Context, id, remoteID string, syncedAt time.Time) error
	// ListRecentCompleted returns up to limit completed sessions for the
	// user, most recent first.
	ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*WorkoutSession, error)
	Delete(ctx context.Context, id string) error
}
