package domain

import (
	"context"
	"time"
)

// User is the minimal profile the session engine needs: identity plus the
// routine-rotation pointer advanced when a workout is completed.
type User struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	RemoteUserID  string    `json:"remote_user_id,omitempty" bson:"remote_user_id,omitempty"`
	Name          string    `json:"name" bson:"name"`
	LastRoutineID string    `json:"last_routine_id,omitempty" bson:"last_routine_id,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	// SetLastRoutine advances the rotation pointer so the next suggested
	// routine differs from the one just completed.
	SetLastRoutine(ctx context.Context, userID, routineID string) error
}
