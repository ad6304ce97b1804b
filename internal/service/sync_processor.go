package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/remote"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// errDropEntry marks a queue entry whose local session no longer exists
// (user cleared data); the entry is removed instead of retried.
var errDropEntry = errors.New("sync entry refers to a missing local session")

// RemoteClient is the slice of the sync backend the processor needs.
// *remote.Client implements it.
type RemoteClient interface {
	CreateSession(ctx context.Context, req remote.CreateSessionRequest) (string, error)
	UpdateSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, req remote.UpdateSetRequest) error
	AddSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, unit string) error
	UpdateExerciseNote(ctx context.Context, remoteSessionID string, exerciseOrder int, note string) error
	FinalizeSession(ctx context.Context, remoteSessionID string, endTime time.Time, status string) error
}

// SyncProcessor drains the queue against the sync backend. One entry's
// failure never aborts the pass; terminal failures are surfaced through the
// notifier and parked.
type SyncProcessor struct {
	queue    *SyncQueue
	sessions domain.WorkoutSessionRepository
	client   RemoteClient
	notifier domain.Notifier
	now      func() time.Time

	draining atomic.Bool

	mu     sync.Mutex
	stopCh chan struct{}
}

func NewSyncProcessor(
	queue *SyncQueue,
	sessions domain.WorkoutSessionRepository,
	client RemoteClient,
	notifier domain.Notifier,
) *SyncProcessor {
	return &SyncProcessor{
		queue:    queue,
		sessions: sessions,
		client:   client,
		notifier: notifier,
		now:      time.Now,
	}
}

// Drain processes every currently eligible entry, oldest first. Single
// flight: a drain already in progress makes this call a no-op.
func (p *SyncProcessor) Drain(ctx context.Context) {
	if !p.draining.CompareAndSwap(false, true) {
		return
	}
	defer p.draining.Store(false)

	tracer := otel.Tracer("sync-processor")
	ctx, span := tracer.Start(ctx, "sync.drain")
	defer span.End()

	entries, err := p.queue.ListPending(ctx)
	if err != nil {
		log.Printf("sync drain: failed to list queue: %v", err)
		return
	}
	span.SetAttributes(attribute.Int("sync.queue_len", len(entries)))

	now := p.now()
	for _, entry := range entries {
		if !p.queue.IsEligibleNow(entry, now) {
			continue
		}
		p.processEntry(ctx, entry)
	}
}

func (p *SyncProcessor) processEntry(ctx context.Context, entry *domain.SyncEntry) {
	err := p.dispatch(ctx, entry)

	switch {
	case err == nil:
		if err := p.queue.Remove(ctx, entry.ID); err != nil {
			log.Printf("sync: failed to remove confirmed entry %s: %v", entry.ID, err)
		}

	case errors.Is(err, errDropEntry):
		log.Printf("sync: dropping entry %s (%s): %v", entry.ID, entry.Kind, err)
		if err := p.queue.Remove(ctx, entry.ID); err != nil {
			log.Printf("sync: failed to drop entry %s: %v", entry.ID, err)
		}

	default:
		attempts := entry.Attempts + 1
		status := domain.SyncRetrying
		if attempts >= domain.SyncMaxAttempts {
			status = domain.SyncFailed
		}
		log.Printf("sync: entry %s (%s) attempt %d failed: %v", entry.ID, entry.Kind, attempts, err)
		if markErr := p.queue.MarkStatus(ctx, entry.ID, status, attempts, true); markErr != nil {
			log.Printf("sync: failed to mark entry %s: %v", entry.ID, markErr)
		}
		if status == domain.SyncFailed {
			p.notifier.SyncFailed(ctx, entry.EntityType, entry.EntityID)
		}
	}
}

// dispatch is exhaustive over payload kinds; an unknown kind is an error,
// not a silent skip.
func (p *SyncProcessor) dispatch(ctx context.Context, entry *domain.SyncEntry) error {
	switch entry.Kind {
	case domain.KindSessionCreate:
		return p.pushCreate(ctx, entry)
	case domain.KindSetComplete:
		var payload domain.SetCompletePayload
		if err := domain.DecodeSyncPayload(entry, &payload); err != nil {
			return err
		}
		remoteID, err := p.remoteSessionID(ctx, payload.SessionID)
		if err != nil {
			return err
		}
		err = p.client.UpdateSet(ctx, remoteID, payload.ExerciseOrder, payload.SetNumber, remote.UpdateSetRequest{
			Reps:        &payload.Reps,
			Weight:      &payload.Weight,
			Unit:        payload.Unit,
			Completed:   &payload.Completed,
			CompletedAt: payload.CompletedAt,
		})
		return ignoreRemoteGone(err)
	case domain.KindAddSet:
		var payload domain.AddSetPayload
		if err := domain.DecodeSyncPayload(entry, &payload); err != nil {
			return err
		}
		remoteID, err := p.remoteSessionID(ctx, payload.SessionID)
		if err != nil {
			return err
		}
		return ignoreRemoteGone(p.client.AddSet(ctx, remoteID, payload.ExerciseOrder, payload.SetNumber, payload.Unit))
	case domain.KindExerciseNote:
		var payload domain.ExerciseNotePayload
		if err := domain.DecodeSyncPayload(entry, &payload); err != nil {
			return err
		}
		remoteID, err := p.remoteSessionID(ctx, payload.SessionID)
		if err != nil {
			return err
		}
		return ignoreRemoteGone(p.client.UpdateExerciseNote(ctx, remoteID, payload.ExerciseOrder, payload.Note))
	case domain.KindSessionComplete, domain.KindSessionAbandon:
		var payload domain.SessionFinalizePayload
		if err := domain.DecodeSyncPayload(entry, &payload); err != nil {
			return err
		}
		remoteID, err := p.remoteSessionID(ctx, payload.SessionID)
		if err != nil {
			return err
		}
		return ignoreRemoteGone(p.client.FinalizeSession(ctx, remoteID, payload.EndTime, payload.Status))
	default:
		return fmt.Errorf("unknown sync payload kind %q", entry.Kind)
	}
}

func (p *SyncProcessor) pushCreate(ctx context.Context, entry *domain.SyncEntry) error {
	var payload domain.SessionCreatePayload
	if err := domain.DecodeSyncPayload(entry, &payload); err != nil {
		return err
	}
	session := payload.Session
	if session == nil {
		return fmt.Errorf("session_create entry %s has no session snapshot", entry.ID)
	}

	// skip if the session has already been cleared locally
	if _, err := p.sessions.GetByID(ctx, entry.EntityID); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return errDropEntry
		}
		return err
	}

	req := remote.CreateSessionRequest{
		ClientUID:   session.ClientUID,
		UserID:      session.UserID,
		RoutineID:   session.RoutineID,
		RoutineName: session.RoutineName,
		Date:        session.Date,
		StartTime:   session.StartTime,
	}
	for _, ex := range session.Exercises {
		reqEx := remote.CreateSessionExercise{
			ExerciseID: ex.ExerciseID,
			Name:       ex.Name,
			Order:      ex.Order,
		}
		for _, set := range ex.Sets {
			reqEx.Sets = append(reqEx.Sets, remote.CreateSessionSet{
				SetID:     set.ID,
				SetNumber: set.SetNumber,
				Reps:      set.Reps,
				Weight:    set.Weight,
				Unit:      set.Unit,
			})
		}
		req.Exercises = append(req.Exercises, reqEx)
	}

	remoteID, err := p.client.CreateSession(ctx, req)
	if err != nil {
		return err
	}

	if err := p.sessions.SetRemoteID(ctx, entry.EntityID, remoteID, p.now()); err != nil {
		// the push succeeded; a locally-deleted session just means there is
		// nothing left to reconcile
		if !errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
	}
	return nil
}

// remoteSessionID resolves the server-side id for a local session. A session
// that has not synced yet is a retryable condition: its create entry is
// older and will land first.
func (p *SyncProcessor) remoteSessionID(ctx context.Context, localID string) (string, error) {
	session, err := p.sessions.GetByID(ctx, localID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return "", errDropEntry
		}
		return "", err
	}
	if session.RemoteID == "" {
		return "", fmt.Errorf("session %s not yet created remotely", localID)
	}
	return session.RemoteID, nil
}

// ignoreRemoteGone treats "already deleted remotely" as success so an entry
// can never retry forever against a tombstone.
func ignoreRemoteGone(err error) error {
	if errors.Is(err, remote.ErrNotFound) {
		return nil
	}
	return err
}

// StartBackground begins a recurring drain at the given interval, firing one
// immediate pass. Idempotent: a second call while running is a no-op.
func (p *SyncProcessor) StartBackground(ctx context.Context, interval time.Duration) {
	p.mu.Lock()
	if p.stopCh != nil {
		p.mu.Unlock()
		return
	}
	stop := make(chan struct{})
	p.stopCh = stop
	p.mu.Unlock()

	go p.Drain(ctx)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.Drain(ctx)
			}
		}
	}()
}

// StopBackground cancels the recurring drain.
func (p *SyncProcessor) StopBackground() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
}
