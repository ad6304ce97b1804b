package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/remote"
	"go.mongodb.org/mongo-driver/bson"
)

// cloneSession deep-copies through bson, the same shape the real store
// round-trips, so fakes behave like storage rather than shared pointers.
func cloneSession(s *domain.WorkoutSession) *domain.WorkoutSession {
	data, err := bson.Marshal(s)
	if err != nil {
		panic(err)
	}
	var out domain.WorkoutSession
	if err := bson.Unmarshal(data, &out); err != nil {
		panic(err)
	}
	return &out
}

type memorySessionRepo struct {
	mu       sync.Mutex
	seq      int
	sessions map[string]*domain.WorkoutSession
	order    []string // insertion order, oldest first
}

func newMemorySessionRepo() *memorySessionRepo {
	return &memorySessionRepo{sessions: make(map[string]*domain.WorkoutSession)}
}

func (r *memorySessionRepo) Create(ctx context.Context, session *domain.WorkoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	session.ID = fmt.Sprintf("sess-%d", r.seq)
	session.CreatedAt = time.Now()
	r.sessions[session.ID] = cloneSession(session)
	r.order = append(r.order, session.ID)
	return nil
}

func (r *memorySessionRepo) GetByID(ctx context.Context, id string) (*domain.WorkoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return cloneSession(s), nil
}

func (r *memorySessionRepo) GetInProgressByUser(ctx context.Context, userID string) (*domain.WorkoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range r.order {
		s := r.sessions[id]
		if s.UserID == userID && s.Status == domain.SessionInProgress {
			return cloneSession(s), nil
		}
	}
	return nil, domain.ErrSessionNotFound
}

func (r *memorySessionRepo) DeleteInProgressByUser(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.sessions {
		if s.UserID == userID && s.Status == domain.SessionInProgress {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *memorySessionRepo) Update(ctx context.Context, session *domain.WorkoutSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[session.ID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	clone := cloneSession(session)
	clone.CreatedAt = stored.CreatedAt
	clone.UpdatedAt = time.Now()
	r.sessions[session.ID] = clone
	return nil
}

func (r *memorySessionRepo) SetRemoteID(ctx context.Context, id, remoteID string, syncedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.RemoteID = remoteID
	s.SyncedAt = &syncedAt
	return nil
}

func (r *memorySessionRepo) ListRecentCompleted(ctx context.Context, userID string, limit int) ([]*domain.WorkoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.WorkoutSession
	for i := len(r.order) - 1; i >= 0 && len(out) < limit; i-- {
		s, ok := r.sessions[r.order[i]]
		if !ok {
			continue
		}
		if s.UserID == userID && s.Status == domain.SessionCompleted {
			out = append(out, cloneSession(s))
		}
	}
	return out, nil
}

func (r *memorySessionRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *memorySessionRepo) inProgressCount(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.sessions {
		if s.UserID == userID && s.Status == domain.SessionInProgress {
			n++
		}
	}
	return n
}

type memoryRoutineRepo struct {
	routines map[string]*domain.Routine
}

func newMemoryRoutineRepo(routines ...*domain.Routine) *memoryRoutineRepo {
	r := &memoryRoutineRepo{routines: make(map[string]*domain.Routine)}
	for _, rt := range routines {
		r.routines[rt.ID] = rt
	}
	return r
}

func (r *memoryRoutineRepo) Create(ctx context.Context, routine *domain.Routine) error {
	r.routines[routine.ID] = routine
	return nil
}

func (r *memoryRoutineRepo) GetByID(ctx context.Context, id string) (*domain.Routine, error) {
	rt, ok := r.routines[id]
	if !ok {
		return nil, domain.ErrRoutineNotFound
	}
	return rt, nil
}

func (r *memoryRoutineRepo) List(ctx context.Context) ([]*domain.Routine, error) {
	var out []*domain.Routine
	for _, rt := range r.routines {
		out = append(out, rt)
	}
	return out, nil
}

func (r *memoryRoutineRepo) Update(ctx context.Context, routine *domain.Routine) error {
	r.routines[routine.ID] = routine
	return nil
}

func (r *memoryRoutineRepo) Delete(ctx context.Context, id string) error {
	delete(r.routines, id)
	return nil
}

type memoryUserRepo struct {
	mu               sync.Mutex
	users            map[string]*domain.User
	lastRoutineCalls int
}

func newMemoryUserRepo(users ...*domain.User) *memoryUserRepo {
	r := &memoryUserRepo{users: make(map[string]*domain.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memoryUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *memoryUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}

func (r *memoryUserRepo) SetLastRoutine(ctx context.Context, userID, routineID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastRoutineCalls++
	if u, ok := r.users[userID]; ok {
		u.LastRoutineID = routineID
	}
	return nil
}

func (r *memoryUserRepo) rotationCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRoutineCalls
}

type memoryQueueRepo struct {
	mu      sync.Mutex
	seq     int
	entries []*domain.SyncEntry // insertion order == oldest first
}

func newMemoryQueueRepo() *memoryQueueRepo {
	return &memoryQueueRepo{}
}

func (r *memoryQueueRepo) Insert(ctx context.Context, entry *domain.SyncEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	entry.ID = fmt.Sprintf("q-%d", r.seq)
	entry.CreatedAt = time.Now()
	clone := *entry
	r.entries = append(r.entries, &clone)
	return nil
}

func (r *memoryQueueRepo) ListByStatuses(ctx context.Context, statuses []string) ([]*domain.SyncEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncEntry
	for _, e := range r.entries {
		for _, st := range statuses {
			if e.Status == st {
				clone := *e
				out = append(out, &clone)
				break
			}
		}
	}
	return out, nil
}

func (r *memoryQueueRepo) CountByStatuses(ctx context.Context, statuses []string) (int64, error) {
	entries, _ := r.ListByStatuses(ctx, statuses)
	return int64(len(entries)), nil
}

func (r *memoryQueueRepo) UpdateStatus(ctx context.Context, id, status string, attempts int, lastAttempt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.ID == id {
			e.Status = status
			e.Attempts = attempts
			if lastAttempt != nil {
				t := *lastAttempt
				e.LastAttemptAt = &t
			}
			return nil
		}
	}
	return domain.ErrNotFound
}

func (r *memoryQueueRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.entries {
		if e.ID == id {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memoryQueueRepo) DeleteByStatus(ctx context.Context, status string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.SyncEntry
	var removed int64
	for _, e := range r.entries {
		if e.Status == status {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	r.entries = kept
	return removed, nil
}

func (r *memoryQueueRepo) byKind(kind string) []*domain.SyncEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.SyncEntry
	for _, e := range r.entries {
		if e.Kind == kind {
			clone := *e
			out = append(out, &clone)
		}
	}
	return out
}

type memoryNavRepo struct {
	mu      sync.Mutex
	states  map[string]domain.NavState
	loadErr error
}

func newMemoryNavRepo() *memoryNavRepo {
	return &memoryNavRepo{states: make(map[string]domain.NavState)}
}

func (r *memoryNavRepo) Save(ctx context.Context, userID string, state domain.NavState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[userID] = state
	return nil
}

func (r *memoryNavRepo) Load(ctx context.Context, userID string) (*domain.NavState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	st, ok := r.states[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &st, nil
}

func (r *memoryNavRepo) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, userID)
	return nil
}

// fakeTimer records arms and skips instead of counting down.
type fakeTimer struct {
	mu     sync.Mutex
	starts []int
	skips  int
}

func (f *fakeTimer) Start(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts = append(f.starts, seconds)
}

func (f *fakeTimer) Skip() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.skips++
}

func (f *fakeTimer) startCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

// fakeRemote is a scriptable sync backend.
type fakeRemote struct {
	mu            sync.Mutex
	failAll       bool
	notFound      bool
	nextRemoteID  string
	createCalls   int
	updateCalls   int
	addCalls      int
	noteCalls     int
	finalizeCalls int
}

func (f *fakeRemote) err() error {
	if f.failAll {
		return errors.New("backend unreachable")
	}
	if f.notFound {
		return remote.ErrNotFound
	}
	return nil
}

func (f *fakeRemote) CreateSession(ctx context.Context, req remote.CreateSessionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if err := f.err(); err != nil {
		return "", err
	}
	id := f.nextRemoteID
	if id == "" {
		id = "remote-1"
	}
	return id, nil
}

func (f *fakeRemote) UpdateSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, req remote.UpdateSetRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	return f.err()
}

func (f *fakeRemote) AddSet(ctx context.Context, remoteSessionID string, exerciseOrder, setNumber int, unit string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.addCalls++
	return f.err()
}

func (f *fakeRemote) UpdateExerciseNote(ctx context.Context, remoteSessionID string, exerciseOrder int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noteCalls++
	return f.err()
}

func (f *fakeRemote) FinalizeSession(ctx context.Context, remoteSessionID string, endTime time.Time, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finalizeCalls++
	return f.err()
}

type fakeNotifier struct {
	mu     sync.Mutex
	failed []string
}

func (f *fakeNotifier) SyncFailed(ctx context.Context, entityType, entityID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, entityType+":"+entityID)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.failed)
}
