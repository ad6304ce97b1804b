package handler

import (
	"errors"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/middleware"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/service"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/timer"
	"github.com/gofiber/fiber/v2"
)

// SessionHandler exposes the workout session state machine plus the rest
// timer that is driven alongside it.
type SessionHandler struct {
	sessions    *service.SessionService
	restTimer   *timer.Engine
	sessionRepo domain.WorkoutSessionRepository // history listing only
}

func NewSessionHandler(
	sessions *service.SessionService,
	restTimer *timer.Engine,
	sessionRepo domain.WorkoutSessionRepository,
) *SessionHandler {
	return &SessionHandler{
		sessions:    sessions,
		restTimer:   restTimer,
		sessionRepo: sessionRepo,
	}
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNoActiveSession):
		return fiber.StatusConflict
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrRoutineNotFound),
		errors.Is(err, domain.ErrUserNotFound):
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// StartSession POST /v1/sessions
func (h *SessionHandler) StartSession(c *fiber.Ctx) error {
	var req struct {
		RoutineID string `json:"routine_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.RoutineID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "routine_id is required"})
	}

	session, err := h.sessions.StartWorkout(c.Context(), middleware.UserID(c), req.RoutineID)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(session)
}

// GetActive GET /v1/sessions/active
func (h *SessionHandler) GetActive(c *fiber.Ctx) error {
	session := h.sessions.ActiveSession()
	if session == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "no active session"})
	}

	progress, _ := h.sessions.Progress()
	return c.JSON(fiber.Map{
		"session":  session,
		"progress": progress,
		"complete": h.sessions.IsWorkoutComplete(),
		"nav":      h.sessions.Nav(),
		"timer":    h.restTimer.State(),
	})
}

// CompleteSet PATCH /v1/sessions/active/exercises/:index/sets/:set_id
func (h *SessionHandler) CompleteSet(c *fiber.Ctx) error {
	exerciseIndex, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise index"})
	}
	setID := c.Params("set_id")

	var req struct {
		Weight float64 `json:"weight"`
		Reps   int     `json:"reps"`
		Unit   string  `json:"unit"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Unit != domain.UnitKg && req.Unit != domain.UnitLbs {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "unit must be kg or lbs"})
	}

	if err := h.sessions.CompleteSet(c.Context(), exerciseIndex, setID, req.Weight, req.Reps, req.Unit); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}

	progress, _ := h.sessions.Progress()
	return c.JSON(fiber.Map{
		"message":  "completed",
		"progress": progress,
		"complete": h.sessions.IsWorkoutComplete(),
		"timer":    h.restTimer.State(),
	})
}

// AddSet POST /v1/sessions/active/exercises/:index/sets
func (h *SessionHandler) AddSet(c *fiber.Ctx) error {
	exerciseIndex, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise index"})
	}

	set, err := h.sessions.AddExtraSet(c.Context(), exerciseIndex)
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(set)
}

// RemoveSet DELETE /v1/sessions/active/exercises/:index/sets
// Removes the last set of the exercise; completed tails are left alone.
func (h *SessionHandler) RemoveSet(c *fiber.Ctx) error {
	exerciseIndex, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise index"})
	}

	if err := h.sessions.RemoveExtraSet(c.Context(), exerciseIndex); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "removed"})
}

// UpdateNote PUT /v1/sessions/active/exercises/:index/note
func (h *SessionHandler) UpdateNote(c *fiber.Ctx) error {
	exerciseIndex, err := c.ParamsInt("index")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid exercise index"})
	}

	var req struct {
		Note string `json:"note"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	if err := h.sessions.UpdateExerciseNote(c.Context(), exerciseIndex, req.Note); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "updated"})
}

// EndSession POST /v1/sessions/active/end
func (h *SessionHandler) EndSession(c *fiber.Ctx) error {
	stats, err := h.sessions.EndWorkout(c.Context())
	if err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(stats)
}

// AbandonSession POST /v1/sessions/active/abandon
func (h *SessionHandler) AbandonSession(c *fiber.Ctx) error {
	if err := h.sessions.AbandonWorkout(c.Context()); err != nil {
		return c.Status(statusForError(err)).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "abandoned"})
}

// UpdateNav PUT /v1/sessions/active/nav
func (h *SessionHandler) UpdateNav(c *fiber.Ctx) error {
	var req domain.NavState
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	h.sessions.SetNav(c.Context(), req)
	return c.JSON(h.sessions.Nav())
}

// ListHistory GET /v1/sessions?limit=N
func (h *SessionHandler) ListHistory(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 15)
	if limit <= 0 || limit > 100 {
		limit = 15
	}

	sessions, err := h.sessionRepo.ListRecentCompleted(c.Context(), middleware.UserID(c), limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if sessions == nil {
		sessions = []*domain.WorkoutSession{}
	}
	return c.JSON(sessions)
}

// --- Rest timer ---

// GetTimer GET /v1/timer
func (h *SessionHandler) GetTimer(c *fiber.Ctx) error {
	return c.JSON(h.restTimer.State())
}

// SkipTimer POST /v1/timer/skip
func (h *SessionHandler) SkipTimer(c *fiber.Ctx) error {
	h.restTimer.Skip()
	return c.JSON(h.restTimer.State())
}

// AdjustTimer POST /v1/timer/adjust
func (h *SessionHandler) AdjustTimer(c *fiber.Ctx) error {
	var req struct {
		DeltaSeconds int `json:"delta_seconds"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	h.restTimer.Adjust(req.DeltaSeconds)
	return c.JSON(h.restTimer.State())
}

// ResyncTimer POST /v1/timer/resync
// Called when the client comes back to the foreground: the countdown is
// recomputed from the wall-clock deadline, never from elapsed ticks.
func (h *SessionHandler) ResyncTimer(c *fiber.Ctx) error {
	h.restTimer.Resync()
	return c.JSON(h.restTimer.State())
}

// MinimizeTimer POST /v1/timer/minimize
func (h *SessionHandler) MinimizeTimer(c *fiber.Ctx) error {
	h.restTimer.Minimize()
	return c.JSON(h.restTimer.State())
}

// RestoreTimer POST /v1/timer/restore
func (h *SessionHandler) RestoreTimer(c *fiber.Ctx) error {
	h.restTimer.Restore()
	return c.JSON(h.restTimer.State())
}
