package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/models"
	"github.com/homescout/listing-api/internal/storage"
)

// AdminHandler serves user administration. All routes require an active
// admin account.
type AdminHandler struct {
	users  storage.UserStore
	logger *logrus.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users storage.UserStore, logger *logrus.Logger) *AdminHandler {
	return &AdminHandler{
		users:  users,
		logger: logger,
	}
}

// ListUsers returns every registered user
// @Summary List users
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {array} models.User
// @Failure 403 {object} errors.ErrorResponse
// @Router /admin/users [get]
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.users.ListAll(c.Context())
	if err != nil {
		return middleware.WriteError(c, err)
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(users)
}

// DeleteUser removes a user account by id
// @Summary Delete a user
// @Tags Admin
// @Security Bearer
// @Param id path string true "User ID"
// @Success 204
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse "Unknown user id"
// @Router /admin/users/{id} [delete]
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	targetID := c.Params("id")

	if err := h.users.Delete(c.Context(), targetID); err != nil {
		return middleware.WriteError(c, err)
	}

	h.logger.WithFields(logrus.Fields{
		"admin_id":  middleware.GetUserID(c),
		"target_id": targetID,
	}).Info("User deleted by admin")

	return c.SendStatus(fiber.StatusNoContent)
}
