package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// historySeedLimit bounds how many completed sessions are scanned to seed
// "last performance" defaults.
const historySeedLimit = 15

// Default view restored when no persisted navigation state exists.
const defaultView = "workout"

// RestTimer is the slice of the timer engine the controller drives.
// *timer.Engine implements it.
type RestTimer interface {
	Start(seconds int)
	Skip()
}

// SessionService is the workout session state machine. It owns the active
// session: every mutation writes the record store first and then refreshes
// the in-memory mirror from the written state, never from a stale capture.
type SessionService struct {
	sessions domain.WorkoutSessionRepository
	routines domain.RoutineRepository
	users    domain.UserRepository
	queue    *SyncQueue
	timer    RestTimer
	navRepo  domain.NavStateRepository
	now      func() time.Time

	mu     sync.Mutex
	active *domain.WorkoutSession
	nav    domain.NavState
}

func NewSessionService(
	sessions domain.WorkoutSessionRepository,
	routines domain.RoutineRepository,
	users domain.UserRepository,
	queue *SyncQueue,
	restTimer RestTimer,
	navRepo domain.NavStateRepository,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		routines: routines,
		users:    users,
		queue:    queue,
		timer:    restTimer,
		navRepo:  navRepo,
		now:      time.Now,
		nav:      domain.NavState{View: defaultView},
	}
}

// generateSetID mints a timestamp-derived id for sets added mid-session.
func (s *SessionService) generateSetID() string {
	return ulid.MustNew(ulid.Timestamp(s.now()), rand.Reader).String()
}

// StartWorkout creates a new in_progress session from a routine, force
// deleting any session the user already has running. Set defaults come from
// the user's recent performance of the same exercise when available, else
// from the routine targets. Returns synchronously; the remote push is queued
// best-effort.
func (s *SessionService) StartWorkout(ctx context.Context, userID, routineID string) (*domain.WorkoutSession, error) {
	// one in-progress session per user, enforced by force-delete
	if err := s.sessions.DeleteInProgressByUser(ctx, userID); err != nil {
		return nil, err
	}

	var (
		routine *domain.Routine
		history []*domain.WorkoutSession
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		routine, err = s.routines.GetByID(gCtx, routineID)
		return err
	})
	g.Go(func() error {
		var err error
		history, err = s.sessions.ListRecentCompleted(gCtx, userID, historySeedLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	now := s.now()
	session := &domain.WorkoutSession{
		ClientUID:   uuid.NewString(),
		UserID:      userID,
		RoutineID:   routine.ID,
		RoutineName: routine.Name,
		Date:        now.Format("2006-01-02"),
		StartTime:   now,
		Status:      domain.SessionInProgress,
	}

	for _, re := range routine.Exercises {
		session.Exercises = append(session.Exercises, s.buildExercise(re, history))
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.active = session
	s.nav = domain.NavState{View: defaultView, SelectedExercise: 0}
	s.mu.Unlock()
	s.saveNav(ctx, userID)

	s.enqueue(ctx, domain.SyncOpCreate, "session", session.ID, domain.KindSessionCreate,
		domain.SessionCreatePayload{Session: session})

	return session, nil
}

// buildExercise materializes one routine entry into session sets, seeding
// each set from the most recent historical performance of the exercise.
func (s *SessionService) buildExercise(re *domain.RoutineExercise, history []*domain.WorkoutSession) *domain.SessionExercise {
	targetReps := domain.ParseTargetReps(re.TargetReps)
	lastSets := lastPerformance(history, re.ExerciseID)

	ex := &domain.SessionExercise{
		ExerciseID:  re.ExerciseID,
		Name:        re.Name,
		Order:       re.Order,
		RestSeconds: re.RestSeconds,
	}

	count := re.TargetSets
	if count <= 0 {
		count = 3
	}
	for i := 0; i < count; i++ {
		set := &domain.WorkoutSet{
			ID:         uuid.NewString(),
			SetNumber:  i + 1,
			TargetReps: targetReps,
			Reps:       targetReps,
			Weight:     0,
			Unit:       domain.UnitKg,
		}
		if len(lastSets) > 0 {
			hist := lastSets[len(lastSets)-1]
			if i < len(lastSets) {
				hist = lastSets[i]
			}
			if hist.Reps > 0 {
				set.Reps = hist.Reps
			}
			set.Weight = hist.Weight
			if hist.Unit != "" {
				set.Unit = hist.Unit
			}
		}
		ex.Sets = append(ex.Sets, set)
	}
	return ex
}

// lastPerformance finds the most recent historical set list for an exercise.
// History is ordered most recent first.
func lastPerformance(history []*domain.WorkoutSession, exerciseID string) []*domain.WorkoutSet {
	for _, sess := range history {
		for _, ex := range sess.Exercises {
			if ex.ExerciseID == exerciseID && len(ex.Sets) > 0 {
				return ex.Sets
			}
		}
	}
	return nil
}

// CompleteSet records a set's actual weight/reps and marks it completed.
// The session is re-read from the store first: two rapid completions must
// each see the other's write, not a stale in-memory capture. First-time
// completion carries the values forward onto later incomplete sets and arms
// the rest timer; re-editing an already-completed set does neither.
func (s *SessionService) CompleteSet(ctx context.Context, exerciseIndex int, setID string, weight float64, reps int, unit string) error {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(session.Exercises) {
		return fmt.Errorf("exercise index %d out of range: %w", exerciseIndex, domain.ErrNotFound)
	}
	ex := session.Exercises[exerciseIndex]
	set := ex.FindSet(setID)
	if set == nil {
		return fmt.Errorf("set %s: %w", setID, domain.ErrNotFound)
	}

	wasCompleted := set.Completed
	set.Weight = weight
	set.Reps = reps
	set.Unit = unit
	set.Completed = true
	if !wasCompleted {
		completedAt := s.now()
		set.CompletedAt = &completedAt
	}

	// carry forward: pre-fill later incomplete sets, still overwritable
	for _, other := range ex.Sets {
		if other.SetNumber > set.SetNumber && !other.Completed {
			other.Weight = weight
			other.Reps = reps
			other.Unit = unit
		}
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	s.setActive(session)

	if !wasCompleted {
		s.timer.Start(ex.RestSeconds)
	}

	s.enqueue(ctx, domain.SyncOpUpdate, "set", setID, domain.KindSetComplete, domain.SetCompletePayload{
		SessionID:     session.ID,
		SetID:         setID,
		ExerciseOrder: ex.Order,
		SetNumber:     set.SetNumber,
		Reps:          reps,
		Weight:        weight,
		Unit:          unit,
		Completed:     true,
		CompletedAt:   set.CompletedAt,
	})
	return nil
}

// AddExtraSet appends a set cloning the last set's values as defaults.
func (s *SessionService) AddExtraSet(ctx context.Context, exerciseIndex int) (*domain.WorkoutSet, error) {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return nil, err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(session.Exercises) {
		return nil, fmt.Errorf("exercise index %d out of range: %w", exerciseIndex, domain.ErrNotFound)
	}
	ex := session.Exercises[exerciseIndex]

	set := &domain.WorkoutSet{
		ID:         s.generateSetID(),
		SetNumber:  len(ex.Sets) + 1,
		TargetReps: domain.DefaultTargetReps,
		Reps:       domain.DefaultTargetReps,
		Unit:       domain.UnitKg,
	}
	if n := len(ex.Sets); n > 0 {
		last := ex.Sets[n-1]
		set.TargetReps = last.TargetReps
		set.Reps = last.Reps
		set.Weight = last.Weight
		set.Unit = last.Unit
	}
	ex.Sets = append(ex.Sets, set)

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}
	s.setActive(session)

	s.enqueue(ctx, domain.SyncOpCreate, "set", set.ID, domain.KindAddSet, domain.AddSetPayload{
		SessionID:     session.ID,
		SetID:         set.ID,
		ExerciseOrder: ex.Order,
		SetNumber:     set.SetNumber,
		Unit:          set.Unit,
	})
	return set, nil
}

// RemoveExtraSet drops the exercise's last set. Sets may only be removed
// from the uncommitted tail: a completed tail set makes this a no-op.
func (s *SessionService) RemoveExtraSet(ctx context.Context, exerciseIndex int) error {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(session.Exercises) {
		return fmt.Errorf("exercise index %d out of range: %w", exerciseIndex, domain.ErrNotFound)
	}
	ex := session.Exercises[exerciseIndex]

	n := len(ex.Sets)
	if n == 0 || ex.Sets[n-1].Completed {
		return nil
	}
	ex.Sets = ex.Sets[:n-1]

	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	s.setActive(session)
	return nil
}

// UpdateExerciseNote overwrites the personal note on an exercise.
func (s *SessionService) UpdateExerciseNote(ctx context.Context, exerciseIndex int, note string) error {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return err
	}
	if exerciseIndex < 0 || exerciseIndex >= len(session.Exercises) {
		return fmt.Errorf("exercise index %d out of range: %w", exerciseIndex, domain.ErrNotFound)
	}
	ex := session.Exercises[exerciseIndex]
	ex.Note = note

	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}
	s.setActive(session)

	s.enqueue(ctx, domain.SyncOpUpdate, "exercise", ex.ExerciseID, domain.KindExerciseNote, domain.ExerciseNotePayload{
		SessionID:     session.ID,
		ExerciseOrder: ex.Order,
		Note:          note,
	})
	return nil
}

// EndWorkout completes the active session: computes duration and stats,
// advances the user's routine rotation, queues the finalize push and clears
// the active session and rest timer.
func (s *SessionService) EndWorkout(ctx context.Context) (*domain.SessionStats, error) {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return nil, err
	}

	endTime := s.now()
	stats := session.ComputeStats(endTime)

	session.Status = domain.SessionCompleted
	session.EndTime = &endTime
	duration := stats.DurationSec
	session.DurationSec = &duration

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, err
	}

	// the session is durably completed at this point; a failed rotation
	// update must not make the UI re-run the completion
	if err := s.users.SetLastRoutine(ctx, session.UserID, session.RoutineID); err != nil {
		log.Printf("failed to advance routine rotation for user %s: %v", session.UserID, err)
	}

	s.enqueue(ctx, domain.SyncOpUpdate, "session", session.ID, domain.KindSessionComplete, domain.SessionFinalizePayload{
		SessionID: session.ID,
		EndTime:   endTime,
		Status:    domain.SessionCompleted,
	})

	s.clearActive(ctx, session.UserID)
	return &stats, nil
}

// AbandonWorkout marks the active session abandoned. No stats, no routine
// rotation; that is what separates it from EndWorkout.
func (s *SessionService) AbandonWorkout(ctx context.Context) error {
	session, err := s.reloadActive(ctx)
	if err != nil {
		return err
	}

	endTime := s.now()
	session.Status = domain.SessionAbandoned
	session.EndTime = &endTime

	if err := s.sessions.Update(ctx, session); err != nil {
		return err
	}

	s.enqueue(ctx, domain.SyncOpUpdate, "session", session.ID, domain.KindSessionAbandon, domain.SessionFinalizePayload{
		SessionID: session.ID,
		EndTime:   endTime,
		Status:    domain.SessionAbandoned,
	})

	s.clearActive(ctx, session.UserID)
	return nil
}

// Bootstrap runs once at process start: it resumes the user's in_progress
// session, or force-abandons it when it has gone stale (idle beyond
// domain.StaleSessionAfter) so forgotten sessions cannot carry over forever.
func (s *SessionService) Bootstrap(ctx context.Context, userID string) error {
	session, err := s.sessions.GetInProgressByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil
		}
		return err
	}

	if s.now().Sub(session.StartTime) > domain.StaleSessionAfter {
		endTime := s.now()
		session.Status = domain.SessionAbandoned
		session.EndTime = &endTime
		if err := s.sessions.Update(ctx, session); err != nil {
			return err
		}
		s.enqueue(ctx, domain.SyncOpUpdate, "session", session.ID, domain.KindSessionAbandon, domain.SessionFinalizePayload{
			SessionID: session.ID,
			EndTime:   endTime,
			Status:    domain.SessionAbandoned,
		})
		log.Printf("abandoned stale session %s (started %s)", session.ID, session.StartTime.Format(time.RFC3339))
		return nil
	}

	nav := domain.NavState{View: defaultView}
	if stored, err := s.navRepo.Load(ctx, userID); err == nil {
		// corrupted or missing nav state falls back to defaults; it must
		// never block session recovery
		nav.View = stored.View
	}
	nav.SelectedExercise = session.CurrentExerciseIndex()

	s.mu.Lock()
	s.active = session
	s.nav = nav
	s.mu.Unlock()
	return nil
}

// ActiveSession returns the in-memory mirror of the active session, or nil.
func (s *SessionService) ActiveSession() *domain.WorkoutSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Progress returns the active session's derived progress. ok is false when
// no session is active.
func (s *SessionService) Progress() (domain.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return domain.Progress{}, false
	}
	return s.active.Progress(), true
}

// IsWorkoutComplete reports whether every set of the active session is done.
func (s *SessionService) IsWorkoutComplete() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil && s.active.IsComplete()
}

// Nav returns the current navigation sub-state.
func (s *SessionService) Nav() domain.NavState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nav
}

// SetNav updates and persists the navigation sub-state.
func (s *SessionService) SetNav(ctx context.Context, nav domain.NavState) {
	s.mu.Lock()
	s.nav = nav
	userID := ""
	if s.active != nil {
		userID = s.active.UserID
	}
	s.mu.Unlock()
	if userID != "" {
		s.saveNav(ctx, userID)
	}
}

// reloadActive re-reads the active session from the record store, returning
// ErrNoActiveSession when nothing is in progress.
func (s *SessionService) reloadActive(ctx context.Context) (*domain.WorkoutSession, error) {
	s.mu.Lock()
	active := s.active
	s.mu.Unlock()
	if active == nil {
		return nil, domain.ErrNoActiveSession
	}
	return s.sessions.GetByID(ctx, active.ID)
}

// setActive refreshes the mirror from a just-persisted session.
func (s *SessionService) setActive(session *domain.WorkoutSession) {
	s.mu.Lock()
	s.active = session
	s.mu.Unlock()
}

func (s *SessionService) clearActive(ctx context.Context, userID string) {
	s.mu.Lock()
	s.active = nil
	s.nav = domain.NavState{View: defaultView}
	s.mu.Unlock()

	if err := s.navRepo.Clear(ctx, userID); err != nil {
		log.Printf("failed to clear nav state for user %s: %v", userID, err)
	}
	s.timer.Skip()
}

func (s *SessionService) saveNav(ctx context.Context, userID string) {
	s.mu.Lock()
	nav := s.nav
	s.mu.Unlock()
	if err := s.navRepo.Save(ctx, userID, nav); err != nil {
		log.Printf("failed to save nav state for user %s: %v", userID, err)
	}
}

// enqueue is fire-and-forget: the local mutation is already durable before
// this runs, so a lost sync intent costs only remote freshness.
func (s *SessionService) enqueue(ctx context.Context, op, entityType, entityID, kind string, payload any) {
	if _, err := s.queue.Enqueue(ctx, op, entityType, entityID, kind, payload); err != nil {
		log.Printf("failed to enqueue %s for %s %s: %v", kind, entityType, entityID, err)
	}
}
