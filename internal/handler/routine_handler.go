package handler

import (
	"errors"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/gofiber/fiber/v2"
)

// RoutineHandler is plain CRUD over routine templates. Routines carry no
// session state, so the repository is used directly.
type RoutineHandler struct {
	routineRepo domain.RoutineRepository
}

func NewRoutineHandler(routineRepo domain.RoutineRepository) *RoutineHandler {
	return &RoutineHandler{routineRepo: routineRepo}
}

// ListRoutines GET /v1/routines
func (h *RoutineHandler) ListRoutines(c *fiber.Ctx) error {
	routines, err := h.routineRepo.List(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if routines == nil {
		routines = []*domain.Routine{}
	}
	return c.JSON(routines)
}

// GetRoutine GET /v1/routines/:id
func (h *RoutineHandler) GetRoutine(c *fiber.Ctx) error {
	routine, err := h.routineRepo.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrRoutineNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(routine)
}

// CreateRoutine POST /v1/routines
func (h *RoutineHandler) CreateRoutine(c *fiber.Ctx) error {
	var req domain.Routine
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "name is required"})
	}
	if err := h.routineRepo.Create(c.Context(), &req); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Status(fiber.StatusCreated).JSON(req)
}

// UpdateRoutine PUT /v1/routines/:id
func (h *RoutineHandler) UpdateRoutine(c *fiber.Ctx) error {
	var req domain.Routine
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	req.ID = c.Params("id")
	if err := h.routineRepo.Update(c.Context(), &req); err != nil {
		if errors.Is(err, domain.ErrRoutineNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(req)
}

// DeleteRoutine DELETE /v1/routines/:id
func (h *RoutineHandler) DeleteRoutine(c *fiber.Ctx) error {
	if err := h.routineRepo.Delete(c.Context(), c.Params("id")); err != nil {
		if errors.Is(err, domain.ErrRoutineNotFound) || errors.Is(err, domain.ErrInvalidID) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"message": "deleted"})
}
