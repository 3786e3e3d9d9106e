package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifamania-backend/internal/middleware"
	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/gin-gonic/gin"
)

// PublicationHandler handles the seller's publication fee endpoints. Routes
// are mounted behind JWTAuthMiddleware.
type PublicationHandler struct {
	publicationService services.PublicationService
}

// NewPublicationHandler creates a new PublicationHandler
func NewPublicationHandler(publicationService services.PublicationService) *PublicationHandler {
	return &PublicationHandler{publicationService: publicationService}
}

// GetQuote handles GET /raffles/:id/publication/quote
func (h *PublicationHandler) GetQuote(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	quote, err := h.publicationService.Quote(c.Request.Context(), middleware.OwnerID(c), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// CreateCharge handles POST /raffles/:id/publication/charge
func (h *PublicationHandler) CreateCharge(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	charge, err := h.publicationService.CreatePublicationCharge(c.Request.Context(), middleware.OwnerID(c), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, charge)
}

// GetStatus handles GET /raffles/:id/publication/status
func (h *PublicationHandler) GetStatus(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	status, err := h.publicationService.CheckPublicationStatus(c.Request.Context(), middleware.OwnerID(c), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
