package handlers

import (
	"errors"
	"net/http"

	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"
)

// respondError maps service errors to HTTP responses
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrRaffleNotFound), errors.Is(err, services.ErrReservationNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInsufficientSupply),
		errors.Is(err, services.ErrReservationNotPending),
		errors.Is(err, services.ErrRaffleNotOpen),
		errors.Is(err, services.ErrRaffleAlreadyPublished):
		status = http.StatusConflict
	case errors.Is(err, services.ErrNoPaymentMethodConfigured), errors.Is(err, services.ErrManualApprovalRequired):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrPaymentInitiationFailed):
		status = http.StatusBadGateway
	case errors.Is(err, services.ErrPoolBusy):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		slog.Error("Unhandled error", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	if status == http.StatusBadGateway {
		// gateway details stay in the logs
		slog.Warn("Payment initiation failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": services.ErrPaymentInitiationFailed.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
