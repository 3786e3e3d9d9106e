package handlers

import (
	"net/http"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PurchaseHandler handles the buyer-facing purchase endpoints
type PurchaseHandler struct {
	purchaseService services.PurchaseService
}

// NewPurchaseHandler creates a new PurchaseHandler
func NewPurchaseHandler(purchaseService services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{purchaseService: purchaseService}
}

// PurchaseRequest is the body of the reserve and purchase calls
type PurchaseRequest struct {
	Quantity int                 `json:"quantity" binding:"required,min=1"`
	Buyer    models.BuyerContact `json:"buyer" binding:"required"`
}

// GetAvailability handles GET /raffles/:id/availability
func (h *PurchaseHandler) GetAvailability(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	availability, err := h.purchaseService.Availability(c.Request.Context(), raffleID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, availability)
}

// ReserveNumbers handles POST /raffles/:id/reservations
func (h *PurchaseHandler) ReserveNumbers(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reservation, err := h.purchaseService.ReserveNumbers(c.Request.Context(), raffleID, req.Quantity, req.Buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, reservation)
}

// CreateCharge handles POST /reservations/:id/charge
func (h *PurchaseHandler) CreateCharge(c *gin.Context) {
	reservationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	charge, err := h.purchaseService.CreatePurchaseCharge(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, charge)
}

// Purchase handles POST /raffles/:id/purchases
func (h *PurchaseHandler) Purchase(c *gin.Context) {
	raffleID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	var req PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.purchaseService.Purchase(c.Request.Context(), raffleID, req.Quantity, req.Buyer)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPurchaseStatus handles GET /reservations/:id
func (h *PurchaseHandler) GetPurchaseStatus(c *gin.Context) {
	reservationID, ok := objectIDParam(c, "id")
	if !ok {
		return
	}
	status, err := h.purchaseService.CheckPurchaseStatus(c.Request.Context(), reservationID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid ID format"})
		return primitive.NilObjectID, false
	}
	return id, true
}
