package service

import (
	"context"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
)

// SyncQueue is the durable outbox of not-yet-confirmed remote mutations.
// Enqueueing writes through to the record store; the only error path is the
// store itself failing.
type SyncQueue struct {
	repo domain.SyncQueueRepository
	now  func() time.Time
}

func NewSyncQueue(repo domain.SyncQueueRepository) *SyncQueue {
	return &SyncQueue{
		repo: repo,
		now:  time.Now,
	}
}

// Enqueue appends a pending entry with the bson-encoded payload for kind and
// returns the queue id.
func (q *SyncQueue) Enqueue(ctx context.Context, op, entityType, entityID, kind string, payload any) (string, error) {
	raw, err := domain.EncodeSyncPayload(payload)
	if err != nil {
		return "", err
	}

	entry := &domain.SyncEntry{
		Op:         op,
		EntityType: entityType,
		EntityID:   entityID,
		Kind:       kind,
		Payload:    raw,
		Status:     domain.SyncPending,
	}
	if err := q.repo.Insert(ctx, entry); err != nil {
		return "", err
	}
	return entry.ID, nil
}

// ListPending returns pending and retrying entries oldest-first. Failed
// entries are parked and never show up here again.
func (q *SyncQueue) ListPending(ctx context.Context) ([]*domain.SyncEntry, error) {
	return q.repo.ListByStatuses(ctx, []string{domain.SyncPending, domain.SyncRetrying})
}

// Count returns the number of pending/retrying entries.
func (q *SyncQueue) Count(ctx context.Context) (int64, error) {
	return q.repo.CountByStatuses(ctx, []string{domain.SyncPending, domain.SyncRetrying})
}

// MarkStatus transitions an entry. When stampAttempt is set the attempt
// count is recorded together with the attempt time, which feeds the backoff
// check on the next drain pass.
func (q *SyncQueue) MarkStatus(ctx context.Context, id, status string, attempts int, stampAttempt bool) error {
	var last *time.Time
	if stampAttempt {
		now := q.now()
		last = &now
	}
	return q.repo.UpdateStatus(ctx, id, status, attempts, last)
}

// Remove deletes an entry. Called only after confirmed remote success (or
// when the entry is known to be unapplicable).
func (q *SyncQueue) Remove(ctx context.Context, id string) error {
	return q.repo.Delete(ctx, id)
}

// IsEligibleNow reports whether the entry may be attempted at the given
// time: live status, retry budget left and the fixed backoff elapsed since
// the last attempt.
func (q *SyncQueue) IsEligibleNow(entry *domain.SyncEntry, now time.Time) bool {
	if entry.Status != domain.SyncPending && entry.Status != domain.SyncRetrying {
		return false
	}
	if entry.Attempts >= domain.SyncMaxAttempts {
		return false
	}
	if entry.LastAttemptAt == nil {
		return true
	}
	return now.Sub(*entry.LastAttemptAt) >= domain.SyncBackoff
}

// ClearFailed bulk-deletes parked entries and reports how many were removed.
// Operator action; nothing calls this automatically.
func (q *SyncQueue) ClearFailed(ctx context.Context) (int64, error) {
	return q.repo.DeleteByStatus(ctx, domain.SyncFailed)
}
