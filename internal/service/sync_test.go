package service

import (
	"context"
	"testing"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type syncHarness struct {
	queue     *SyncQueue
	queueRepo *memoryQueueRepo
	sessions  *memorySessionRepo
	remote    *fakeRemote
	notifier  *fakeNotifier
	processor *SyncProcessor
	clock     time.Time
}

func newSyncHarness(t *testing.T) *syncHarness {
	t.Helper()
	h := &syncHarness{
		queueRepo: newMemoryQueueRepo(),
		sessions:  newMemorySessionRepo(),
		remote:    &fakeRemote{},
		notifier:  &fakeNotifier{},
		clock:     time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC),
	}
	h.queue = NewSyncQueue(h.queueRepo)
	h.queue.now = func() time.Time { return h.clock }
	h.processor = NewSyncProcessor(h.queue, h.sessions, h.remote, h.notifier)
	h.processor.now = func() time.Time { return h.clock }
	return h
}

func (h *syncHarness) advance(d time.Duration) {
	h.clock = h.clock.Add(d)
}

// storeSession persists a session and queues its create entry the way the
// controller would.
func (h *syncHarness) storeSession(t *testing.T, status string) *domain.WorkoutSession {
	t.Helper()
	session := &domain.WorkoutSession{
		ClientUID: "client-uid-1",
		UserID:    "u1",
		RoutineID: "r1",
		Status:    status,
		StartTime: h.clock,
		Exercises: []*domain.SessionExercise{
			{
				ExerciseID: "ex-bench",
				Name:       "Bench Press",
				Order:      1,
				Sets: []*domain.WorkoutSet{
					{ID: "s1", SetNumber: 1, Reps: 10, Weight: 50, Unit: domain.UnitKg},
				},
			},
		},
	}
	require.NoError(t, h.sessions.Create(context.Background(), session))
	return session
}

func (h *syncHarness) enqueueCreate(t *testing.T, session *domain.WorkoutSession) string {
	t.Helper()
	id, err := h.queue.Enqueue(context.Background(), domain.SyncOpCreate, "session", session.ID,
		domain.KindSessionCreate, domain.SessionCreatePayload{Session: session})
	require.NoError(t, err)
	return id
}

func TestQueueListsPendingOldestFirst(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		_, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "session", id,
			domain.KindSessionComplete, domain.SessionFinalizePayload{SessionID: id})
		require.NoError(t, err)
	}

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "a", entries[0].EntityID)
	assert.Equal(t, "c", entries[2].EntityID)

	count, err := h.queue.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)
}

func TestIsEligibleNow(t *testing.T) {
	h := newSyncHarness(t)
	now := h.clock
	recent := now.Add(-2 * time.Second)
	longAgo := now.Add(-time.Minute)

	tests := []struct {
		name  string
		entry domain.SyncEntry
		want  bool
	}{
		{"fresh pending", domain.SyncEntry{Status: domain.SyncPending}, true},
		{"retrying inside backoff", domain.SyncEntry{Status: domain.SyncRetrying, Attempts: 1, LastAttemptAt: &recent}, false},
		{"retrying past backoff", domain.SyncEntry{Status: domain.SyncRetrying, Attempts: 1, LastAttemptAt: &longAgo}, true},
		{"attempts exhausted", domain.SyncEntry{Status: domain.SyncRetrying, Attempts: domain.SyncMaxAttempts, LastAttemptAt: &longAgo}, false},
		{"parked failed", domain.SyncEntry{Status: domain.SyncFailed, LastAttemptAt: &longAgo}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, h.queue.IsEligibleNow(&tt.entry, now))
		})
	}
}

func TestDrainCreateReconcilesRemoteID(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionInProgress)
	h.enqueueCreate(t, session)
	h.remote.nextRemoteID = "remote-42"

	h.processor.Drain(ctx)

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	stored, err := h.sessions.GetByID(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "remote-42", stored.RemoteID)
	require.NotNil(t, stored.SyncedAt)
	assert.Equal(t, 1, h.remote.createCalls)
}

func TestDrainRetriesUntilParkedAndNotifies(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionInProgress)
	h.enqueueCreate(t, session)
	h.remote.failAll = true

	for i := 0; i < domain.SyncMaxAttempts; i++ {
		h.processor.Drain(ctx)
		h.advance(domain.SyncBackoff + time.Second)
	}

	assert.Equal(t, domain.SyncMaxAttempts, h.remote.createCalls)
	assert.Equal(t, 1, h.notifier.count(), "one terminal notification, not one per attempt")

	// parked entries leave the drain set for good
	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	h.processor.Drain(ctx)
	assert.Equal(t, domain.SyncMaxAttempts, h.remote.createCalls)

	// operator clear is the only way out
	removed, err := h.queue.ClearFailed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
}

func TestDrainRespectsBackoffBetweenAttempts(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionInProgress)
	h.enqueueCreate(t, session)
	h.remote.failAll = true

	h.processor.Drain(ctx)
	require.Equal(t, 1, h.remote.createCalls)

	// immediately re-draining is a no-op until the backoff elapses
	h.processor.Drain(ctx)
	assert.Equal(t, 1, h.remote.createCalls)

	h.advance(domain.SyncBackoff)
	h.processor.Drain(ctx)
	assert.Equal(t, 2, h.remote.createCalls)
}

func TestDrainDropsEntryForMissingLocalSession(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "set", "s1", domain.KindSetComplete,
		domain.SetCompletePayload{SessionID: "gone", SetID: "s1", ExerciseOrder: 1, SetNumber: 1})
	require.NoError(t, err)

	h.processor.Drain(ctx)

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 0, h.remote.updateCalls)
	assert.Equal(t, 0, h.notifier.count())
}

func TestDrainWaitsForRemoteIDBeforeDependentOps(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionInProgress)
	_, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "set", "s1", domain.KindSetComplete,
		domain.SetCompletePayload{SessionID: session.ID, SetID: "s1", ExerciseOrder: 1, SetNumber: 1})
	require.NoError(t, err)

	h.processor.Drain(ctx)

	// the session has no remote id yet, so the entry stays queued
	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SyncRetrying, entries[0].Status)
	assert.Equal(t, 0, h.remote.updateCalls)

	require.NoError(t, h.sessions.SetRemoteID(ctx, session.ID, "remote-42", h.clock))
	h.advance(domain.SyncBackoff)
	h.processor.Drain(ctx)

	entries, err = h.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, h.remote.updateCalls)
}

func TestDrainTreatsRemoteGoneAsConfirmed(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionCompleted)
	require.NoError(t, h.sessions.SetRemoteID(ctx, session.ID, "remote-42", h.clock))

	_, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "session", session.ID,
		domain.KindSessionComplete, domain.SessionFinalizePayload{
			SessionID: session.ID, EndTime: h.clock, Status: domain.SessionCompleted,
		})
	require.NoError(t, err)

	h.remote.notFound = true
	h.processor.Drain(ctx)

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries, "a remote tombstone must not keep the entry retrying")
}

func TestDrainUnknownKindIsRetriedNotSilentlyDropped(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	_, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "session", "x",
		"session_teleport", domain.SessionFinalizePayload{SessionID: "x"})
	require.NoError(t, err)

	h.processor.Drain(ctx)

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
}

func TestDrainSingleFlight(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	session := h.storeSession(t, domain.SessionInProgress)
	h.enqueueCreate(t, session)

	// a drain already holding the flag makes concurrent calls no-ops
	require.True(t, h.processor.draining.CompareAndSwap(false, true))
	h.processor.Drain(ctx)
	assert.Equal(t, 0, h.remote.createCalls)

	h.processor.draining.Store(false)
	h.processor.Drain(ctx)
	assert.Equal(t, 1, h.remote.createCalls)
}

func TestStartBackgroundDrainsImmediately(t *testing.T) {
	h := newSyncHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := h.storeSession(t, domain.SessionInProgress)
	h.enqueueCreate(t, session)

	h.processor.StartBackground(ctx, time.Hour)
	h.processor.StartBackground(ctx, time.Hour) // second call is a no-op
	defer h.processor.StopBackground()

	require.Eventually(t, func() bool {
		h.remote.mu.Lock()
		defer h.remote.mu.Unlock()
		return h.remote.createCalls == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestClearFailedLeavesLiveEntriesAlone(t *testing.T) {
	h := newSyncHarness(t)
	ctx := context.Background()

	pendingID, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "session", "a",
		domain.KindSessionComplete, domain.SessionFinalizePayload{SessionID: "a"})
	require.NoError(t, err)
	failedID, err := h.queue.Enqueue(ctx, domain.SyncOpUpdate, "session", "b",
		domain.KindSessionComplete, domain.SessionFinalizePayload{SessionID: "b"})
	require.NoError(t, err)
	require.NoError(t, h.queue.MarkStatus(ctx, failedID, domain.SyncFailed, domain.SyncMaxAttempts, true))

	removed, err := h.queue.ClearFailed(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	entries, err := h.queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pendingID, entries[0].ID)
}
