package routes

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/homescout/listing-api/internal/metrics"
	"github.com/homescout/listing-api/internal/middleware"
	"github.com/homescout/listing-api/internal/models"
	"github.com/homescout/listing-api/internal/quota"
	"github.com/homescout/listing-api/internal/storage"
	apperrors "github.com/homescout/listing-api/pkg/errors"
)

// ListingHandler serves listing search and creation. Search is the one
// surface reachable anonymously, guarded by the cumulative quota.
type ListingHandler struct {
	listings storage.ListingStore
	history  storage.HistoryStore
	guard    *quota.Guard
	logger   *logrus.Logger
}

// NewListingHandler creates a new listing handler
func NewListingHandler(listings storage.ListingStore, history storage.HistoryStore, guard *quota.Guard, logger *logrus.Logger) *ListingHandler {
	return &ListingHandler{
		listings: listings,
		history:  history,
		guard:    guard,
		logger:   logger,
	}
}

// Search handles filtered listing queries
// @Summary Search listings
// @Description Filter listings by structured attributes. Anonymous access is quota-limited per client address.
// @Tags Listings
// @Produce json
// @Param type query string false "Property type"
// @Param neighborhood query string false "Neighborhood"
// @Param bedrooms query int false "Number of bedrooms"
// @Param bathrooms query int false "Number of bathrooms"
// @Param parking_spots query int false "Number of parking spots"
// @Success 200 {array} models.Listing
// @Failure 400 {object} errors.ErrorResponse "Invalid filter"
// @Failure 401 {object} errors.ErrorResponse "Invalid credentials"
// @Failure 429 {object} errors.ErrorResponse "Anonymous quota exceeded"
// @Router /listings [get]
func (h *ListingHandler) Search(c *fiber.Ctx) error {
	filter, err := parseListingFilter(c)
	if err != nil {
		return middleware.WriteError(c, err)
	}

	// Identity attribution: user id when authenticated, address-derived
	// otherwise. Only the fully anonymous path goes through the guard.
	var identity, identityKind string
	if user := middleware.CurrentUser(c); user != nil {
		identity = user.UserID
		identityKind = "user"
	} else {
		identity, err = h.guard.Check(c.Context(), middleware.ClientIP(c))
		if err != nil {
			return middleware.WriteError(c, err)
		}
		identityKind = "anonymous"
	}

	results, err := h.listings.Search(c.Context(), filter)
	if err != nil {
		return middleware.WriteError(c, err)
	}
	if results == nil {
		results = []models.Listing{}
	}

	// The ledger append is part of the search contract: it feeds both the
	// user-facing history and the anonymous quota. A failed append fails
	// the request.
	if _, err := h.history.Append(c.Context(), identity, filter.Params(), len(results)); err != nil {
		h.logger.WithError(err).WithField("identity", identity).Error("Failed to append search history")
		return middleware.WriteError(c, err)
	}

	metrics.RecordSearch(identityKind)

	return c.JSON(results)
}

// Create handles listing creation
// @Summary Create a listing
// @Tags Listings
// @Accept json
// @Produce json
// @Security Bearer
// @Success 201 {object} models.Listing
// @Failure 400 {object} errors.ErrorResponse "Invalid listing"
// @Failure 401 {object} errors.ErrorResponse
// @Router /listings [post]
func (h *ListingHandler) Create(c *fiber.Ctx) error {
	var listing models.Listing
	if err := c.BodyParser(&listing); err != nil {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeBadRequest, "invalid request body", err))
	}

	if listing.Bedrooms < 0 || listing.Bathrooms < 0 || listing.ParkingSpots < 0 || listing.PrivateArea < 0 {
		return middleware.WriteError(c, apperrors.NewAppError(apperrors.CodeValidation, "numeric listing attributes must be non-negative", nil))
	}

	if listing.ListingID == "" {
		listing.ListingID = uuid.New().String()
	}
	if listing.CollectedAt.IsZero() {
		listing.CollectedAt = time.Now()
	}

	if err := h.listings.Insert(c.Context(), &listing); err != nil {
		return middleware.WriteError(c, err)
	}

	h.logger.WithFields(logrus.Fields{
		"listing_id": listing.ListingID,
		"user_id":    middleware.GetUserID(c),
	}).Info("Listing created")

	return c.Status(fiber.StatusCreated).JSON(listing)
}

// parseListingFilter reads the closed filter set from query parameters.
// Negative counts are rejected with VALIDATION_ERROR.
func parseListingFilter(c *fiber.Ctx) (models.ListingFilter, error) {
	var filter models.ListingFilter

	if v := c.Query("type"); v != "" {
		filter.Type = &v
	}
	if v := c.Query("neighborhood"); v != "" {
		filter.Neighborhood = &v
	}

	intFields := []struct {
		name string
		dest **int
	}{
		{"bedrooms", &filter.Bedrooms},
		{"bathrooms", &filter.Bathrooms},
		{"parking_spots", &filter.ParkingSpots},
	}
	for _, field := range intFields {
		v := c.Query(field.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return filter, apperrors.NewAppErrorf(apperrors.CodeValidation, err, "%s must be an integer", field.name)
		}
		if n < 0 {
			return filter, apperrors.NewAppError(apperrors.CodeValidation,
				fmt.Sprintf("%s must be a non-negative integer", field.name), nil)
		}
		*field.dest = &n
	}

	return filter, nil
}
