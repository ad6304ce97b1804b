package domain

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
)

// Sync operation types
const (
	SyncOpCreate = "create"
	SyncOpUpdate = "update"
	SyncOpDelete = "delete"
)

// Sync entry status values
const (
	SyncPending  = "pending"
	SyncRetrying = "retrying"
	SyncFailed   = "failed"
)

// Payload kinds. Each kind maps to exactly one payload struct below so the
// processor's dispatch switch is exhaustive.
const (
	KindSessionCreate   = "session_create"
	KindSetComplete     = "set_complete"
	KindAddSet          = "add_set"
	KindExerciseNote    = "exercise_note"
	KindSessionComplete = "session_complete"
	KindSessionAbandon  = "session_abandon"
)

// SyncMaxAttempts is the retry budget before an entry is parked as failed.
const SyncMaxAttempts = 5

// SyncBackoff is the fixed wait between attempts on the same entry.
const SyncBackoff = 5 * time.Second

// SyncEntry is one durable pending remote mutation. Entries are drained
// oldest-created-first; Payload holds the bson-encoded payload struct for
// Kind.
type SyncEntry struct {
	ID            string     `json:"id" bson:"_id,omitempty"`
	Op            string     `json:"op" bson:"op"`
	EntityType    string     `json:"entity_type" bson:"entity_type"`
	EntityID      string     `json:"entity_id" bson:"entity_id"`
	Kind          string     `json:"kind" bson:"kind"`
	Payload       bson.Raw   `json:"-" bson:"payload"`
	Attempts      int        `json:"attempts" bson:"attempts"`
	Status        string     `json:"status" bson:"status"`
	CreatedAt     time.Time  `json:"created_at" bson:"created_at"`
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty" bson:"last_attempt_at,omitempty"`
}

// SessionCreatePayload pushes a freshly started session.
type SessionCreatePayload struct {
	Session *WorkoutSession `bson:"session"`
}

// SetCompletePayload carries order/set-number addressing rather than slice
// positions so it applies correctly regardless of delivery order.
type SetCompletePayload struct {
	SessionID     string     `bson:"session_id"`
	SetID         string     `bson:"set_id"`
	ExerciseOrder int        `bson:"exercise_order"`
	SetNumber     int        `bson:"set_number"`
	Reps          int        `bson:"reps"`
	Weight        float64    `bson:"weight"`
	Unit          string     `bson:"unit"`
	Completed     bool       `bson:"completed"`
	CompletedAt   *time.Time `bson:"completed_at,omitempty"`
}

// AddSetPayload appends an extra set to an exercise remotely.
type AddSetPayload struct {
	SessionID     string `bson:"session_id"`
	SetID         string `bson:"set_id"`
	ExerciseOrder int    `bson:"exercise_order"`
	SetNumber     int    `bson:"set_number"`
	Unit          string `bson:"unit"`
}

// ExerciseNotePayload replaces the personal note on an exercise.
type ExerciseNotePayload struct {
	SessionID     string `bson:"session_id"`
	ExerciseOrder int    `bson:"exercise_order"`
	Note          string `bson:"note"`
}

// SessionFinalizePayload terminates a session remotely, for both
// session_complete and session_abandon kinds.
type SessionFinalizePayload struct {
	SessionID string    `bson:"session_id"`
	EndTime   time.Time `bson:"end_time"`
	Status    string    `bson:"status"`
}

// EncodeSyncPayload marshals a payload struct for storage on a SyncEntry.
func EncodeSyncPayload(v any) (bson.Raw, error) {
	data, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sync payload: %w", err)
	}
	return bson.Raw(data), nil
}

// DecodeSyncPayload unmarshals an entry's payload into the struct for its
// kind.
func DecodeSyncPayload(entry *SyncEntry, out any) error {
	if err := bson.Unmarshal(entry.Payload, out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", entry.Kind, err)
	}
	return nil
}

type SyncQueueRepository interface {
	// Insert appends a new entry and assigns its ID.
	Insert(ctx context.Context, entry *SyncEntry) error
	// ListByStatuses returns entries in any of the given statuses,
	// oldest-created-first.
	ListByStatuses(ctx context.Context, statuses []string) ([]*SyncEntry, error)
	CountByStatuses(ctx context.Context, statuses []string) (int64, error)
	// UpdateStatus transitions an entry, recording the attempt count and,
	// when lastAttempt is non-nil, the attempt timestamp.
	UpdateStatus(ctx context.Context, id, status string, attempts int, lastAttempt *time.Time) error
	Delete(ctx context.Context, id string) error
	// DeleteByStatus bulk-removes entries in the given status and returns
	// how many were removed.
	DeleteByStatus(ctx context.Context, status string) (int64, error)
}

// Notifier surfaces terminal sync failures to the user. Retries below the
// budget stay invisible.
type Notifier interface {
	SyncFailed(ctx context.Context, entityType, entityID string)
}
