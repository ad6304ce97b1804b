package handler

import (
	"context"

	"github.com/arushdixit/personal-workout-planner-sub000/internal/domain"
	"github.com/arushdixit/personal-workout-planner-sub000/internal/service"
	"github.com/gofiber/fiber/v2"
)

// SyncHandler is the operator surface of the sync queue: inspect what is
// still unconfirmed, force a drain pass, and clear permanently failed
// entries.
type SyncHandler struct {
	queue     *service.SyncQueue
	processor *service.SyncProcessor
}

func NewSyncHandler(queue *service.SyncQueue, processor *service.SyncProcessor) *SyncHandler {
	return &SyncHandler{
		queue:     queue,
		processor: processor,
	}
}

// GetQueue GET /v1/sync/queue
func (h *SyncHandler) GetQueue(c *fiber.Ctx) error {
	entries, err := h.queue.ListPending(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if entries == nil {
		entries = []*domain.SyncEntry{}
	}
	return c.JSON(fiber.Map{
		"count":   len(entries),
		"entries": entries,
	})
}

// TriggerDrain POST /v1/sync/drain
// Fired by clients on foreground/visibility resume. The drain itself is
// single flight, so hammering this endpoint is harmless.
func (h *SyncHandler) TriggerDrain(c *fiber.Ctx) error {
	// the request context dies with the response; the drain outlives it
	go h.processor.Drain(context.Background())
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"message": "drain scheduled"})
}

// ClearFailed DELETE /v1/sync/failed
func (h *SyncHandler) ClearFailed(c *fiber.Ctx) error {
	removed, err := h.queue.ClearFailed(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"removed": removed})
}
