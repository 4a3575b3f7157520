package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/auth"
	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/models"
	"github.com/homescout/listing-api/internal/storage"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// AuthHandler handles registration, login, and profile endpoints
type AuthHandler struct {
	users  storage.UserStore
	tokens *auth.TokenService
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users storage.UserStore, tokens *auth.TokenService, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

// Login handles user login
// @Summary User login
// @Description Authenticate by email and password and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.LoginRequest true "Login credentials"
// @Success 200 {object} models.AuthResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 401 {object} errors.ErrorResponse "Invalid credentials"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "invalid request body", err))
	}
	if req.Email == "" || req.Password == "" {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeValidation, "email and password are required", nil))
	}

	user, err := h.users.FindByEmail(c.Context(), req.Email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			// Same response as a wrong password, to hide account existence.
			h.logger.WithField("email", req.Email).Warn("Login for unknown email")
			return middleware.WriteError(c, invalidCredentials())
		}
		return middleware.WriteError(c, err)
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		h.logger.WithField("email", req.Email).Warn("Login with invalid password")
		return middleware.WriteError(c, invalidCredentials())
	}

	token, expiresAt, err := h.tokens.Issue(user.Email, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeInternalError, "failed to issue token", err))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.UserID,
		"email":   user.Email,
	}).Info("User logged in")

	return c.JSON(authResponse(user, token, expiresAt))
}

// Register handles user registration
// @Summary User registration
// @Description Register a new account and return a bearer token
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body models.RegisterRequest true "Registration data"
// @Success 201 {object} models.AuthResponse
// @Failure 400 {object} errors.ErrorResponse "Invalid request"
// @Failure 409 {object} errors.ErrorResponse "Email already registered"
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "invalid request body", err))
	}
	if req.Email == "" || req.Password == "" {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeValidation, "email and password are required", nil))
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.WithError(err).Error("Failed to hash password")
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeInternalError, "failed to process password", err))
	}

	user := &models.User{
		UserID:       uuid.New().String(),
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		IsActive:     true,
		IsAdmin:      false,
		CreatedAt:    time.Now(),
	}

	if err := h.users.Insert(c.Context(), user); err != nil {
		return middleware.WriteError(c, err)
	}

	token, expiresAt, err := h.tokens.Issue(user.Email, 0)
	if err != nil {
		h.logger.WithError(err).Error("Failed to issue token")
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeInternalError, "failed to issue token", err))
	}

	h.logger.WithFields(logrus.Fields{
		"user_id": user.UserID,
		"email":   user.Email,
	}).Info("User registered")

	return c.Status(fiber.StatusCreated).JSON(authResponse(user, token, expiresAt))
}

// Me returns the authenticated user's profile
// @Summary Current user profile
// @Tags Auth
// @Produce json
// @Security Bearer
// @Success 200 {object} models.User
// @Failure 401 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.CurrentUser(c))
}

func invalidCredentials() error {
	return apperrors.NewAppError(apperrors.CodeUnauthenticated, "invalid email or password", nil)
}

func authResponse(user *models.User, token string, expiresAt time.Time) models.AuthResponse {
	return models.AuthResponse{
		Token:       token,
		UserID:      user.UserID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		IsAdmin:     user.IsAdmin,
		ExpiresIn:   int(time.Until(expiresAt).Seconds()),
	}
}
