package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/models"
	"github.com/homescout/listing-api/internal/storage"
)

// HistoryHandler exposes a user's own search history. Anonymous records
// are reachable only through the quota count, never through this surface.
type HistoryHandler struct {
	history storage.HistoryStore
	logger  *logrus.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history storage.HistoryStore, logger *logrus.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		logger:  logger,
	}
}

// List returns the caller's search history, newest first
// @Summary List search history
// @Tags History
// @Produce json
// @Security Bearer
// @Param limit query int false "Page size (max 100)"
// @Param skip query int false "Records to skip"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} errors.ErrorResponse
// @Router /history [get]
func (h *HistoryHandler) List(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	limit := c.QueryInt("limit", 0)
	skip := c.QueryInt("skip", 0)

	records, err := h.history.ListFor(c.Context(), user.UserID, limit, skip)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	if records == nil {
		records = []models.SearchRecord{}
	}

	return c.JSON(fiber.Map{
		"items": records,
		"count": len(records),
	})
}

// DeleteOne removes a single history record owned by the caller
// @Summary Delete a history record
// @Tags History
// @Security Bearer
// @Param id path string true "Record ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse "Record not found"
// @Router /history/{id} [delete]
func (h *HistoryHandler) DeleteOne(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	recordID := c.Params("id")

	if err := h.history.DeleteOne(c.Context(), user.UserID, recordID); err != nil {
		return middleware.WriteError(c, err)
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":   user.UserID,
		"record_id": recordID,
	}).Info("Search history record deleted")

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteAll removes the caller's entire search history. Idempotent:
// purging an already-empty history succeeds.
// @Summary Purge search history
// @Tags History
// @Security Bearer
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Router /history [delete]
func (h *HistoryHandler) DeleteAll(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	if err := h.history.DeleteAll(c.Context(), user.UserID); err != nil {
		return middleware.WriteError(c, err)
	}

	h.logger.WithField("user_id", user.UserID).Info("Search history purged")

	return c.SendStatus(fiber.StatusNoContent)
}
