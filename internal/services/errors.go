package services

import "errors"

var (
	// ErrInsufficientSupply means fewer numbers remain than were requested
	ErrInsufficientSupply = errors.New("not enough numbers available, try a smaller quantity")
	// ErrNoPaymentMethodConfigured means the seller has no usable gateway credentials
	ErrNoPaymentMethodConfigured = errors.New("no payment method configured by the organizer")
	// ErrPaymentInitiationFailed means every configured gateway failed to create the charge
	ErrPaymentInitiationFailed = errors.New("payment unavailable, try again")
	// ErrReconciliationConflict is logged when a notification contradicts a terminal state
	ErrReconciliationConflict = errors.New("reconciliation conflict")
	// ErrManualApprovalRequired means the pool is above the top pricing tier
	ErrManualApprovalRequired = errors.New("pool size requires manual approval")

	ErrRaffleNotFound         = errors.New("raffle not found")
	ErrRaffleNotOpen          = errors.New("raffle is not open for purchases")
	ErrRaffleAlreadyPublished = errors.New("raffle is already published")
	ErrReservationNotFound    = errors.New("reservation not found")
	ErrReservationNotPending  = errors.New("reservation is no longer pending")
	ErrPoolBusy               = errors.New("raffle is busy, try again")
	ErrForbidden              = errors.New("forbidden")
	ErrInvalidQuantity        = errors.New("quantity must be at least 1")
)
