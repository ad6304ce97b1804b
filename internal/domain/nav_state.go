package domain

import "context"

// NavState is the persisted UI-navigation sub-state restored at bootstrap.
// It is presentation convenience only; losing it never blocks recovery.
type NavState struct {
	View             string `json:"view"`
	SelectedExercise int    `json:"selected_exercise"`
}

type NavStateRepository interface {
	Save(ctx context.Context, userID string, state NavState) error
	// Load returns ErrNotFound when no state is stored for the user.
	Load(ctx context.Context, userID string) (*NavState, error)
	Clear(ctx context.Context, userID string) error
}
