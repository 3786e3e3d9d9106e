package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PurchaseServiceImpl implements PurchaseService
var _ PurchaseService = (*PurchaseServiceImpl)(nil)

// PurchaseServiceImpl implements the buyer flow: reserve numbers first, then
// charge outside of any lock, and release the numbers if no gateway succeeds.
type PurchaseServiceImpl struct {
	raffles        repositories.RaffleRepository
	profiles       repositories.SellerProfileRepository
	reservations   repositories.ReservationRepository
	transactions   repositories.TransactionRepository
	pool           PoolService
	selector       *GatewaySelector
	reservationTTL time.Duration
	now            func() time.Time
}

// NewPurchaseService creates a new PurchaseServiceImpl
func NewPurchaseService(
	raffles repositories.RaffleRepository,
	profiles repositories.SellerProfileRepository,
	reservations repositories.ReservationRepository,
	transactions repositories.TransactionRepository,
	pool PoolService,
	selector *GatewaySelector,
	reservationTTL time.Duration,
) *PurchaseServiceImpl {
	return &PurchaseServiceImpl{
		raffles:        raffles,
		profiles:       profiles,
		reservations:   reservations,
		transactions:   transactions,
		pool:           pool,
		selector:       selector,
		reservationTTL: reservationTTL,
		now:            time.Now,
	}
}

// ReserveNumbers checks the raffle and the seller's payment setup before
// touching the pool, then holds numbers and persists a pending reservation.
func (s *PurchaseServiceImpl) ReserveNumbers(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*models.PurchaseReservation, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	raffle, err := s.openRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	if _, err := s.sellerCredentials(ctx, raffle.OwnerID); err != nil {
		return nil, err
	}

	reservationID := primitive.NewObjectID()
	numbers, err := s.pool.Reserve(ctx, raffle.ID, raffle.TotalNumbers, reservationID.Hex(), quantity)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reservation := &models.PurchaseReservation{
		ID:               reservationID,
		RaffleID:         raffle.ID,
		Buyer:            buyer,
		Quantity:         quantity,
		Numbers:          numbers,
		UnitPriceCents:   raffle.PricePerNumberCents,
		TotalAmountCents: int64(quantity) * raffle.PricePerNumberCents,
		Status:           models.ReservationStatusPending,
		ExpiresAt:        now.Add(s.reservationTTL),
	}
	if err := s.reservations.Create(ctx, reservation); err != nil {
		s.release(ctx, raffle.ID, reservationID)
		return nil, fmt.Errorf("failed to create reservation: %w", err)
	}

	slog.Info("Reservation created", "raffleId", raffle.ID.Hex(), "reservationId", reservationID.Hex(),
		"quantity", quantity, "amountCents", reservation.TotalAmountCents)
	return reservation, nil
}

// CreatePurchaseCharge charges a pending reservation. A reservation that already
// has a pending charge gets that charge back instead of a new one, and one whose
// payment is already confirmed is never charged again.
func (s *PurchaseServiceImpl) CreatePurchaseCharge(ctx context.Context, reservationID primitive.ObjectID) (*ChargeResult, error) {
	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	if reservation.Status != models.ReservationStatusPending {
		return nil, ErrReservationNotPending
	}

	existing, err := s.transactions.FindLatestByReservation(ctx, reservation.ID)
	switch {
	case err == nil && existing.Status == models.PaymentStatusPending:
		return chargeResultFromTx(existing, &reservation.ExpiresAt), nil
	case err == nil && existing.Status == models.PaymentStatusConfirmed:
		// Paid; the reservation flip is still in flight
		return nil, ErrReservationNotPending
	case err != nil && !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	raffle, err := s.raffles.FindByID(ctx, reservation.RaffleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}

	creds, err := s.sellerCredentials(ctx, raffle.OwnerID)
	if err != nil {
		if errors.Is(err, ErrNoPaymentMethodConfigured) {
			s.abandon(ctx, reservation)
		}
		return nil, err
	}

	reservationKey := reservation.ID.Hex()
	charge, err := s.selector.CreateCharge(ctx, creds, pixgateway.ChargeRequest{
		AmountCents:    reservation.TotalAmountCents,
		Description:    fmt.Sprintf("Rifa: %s - %d números", raffle.Name, reservation.Quantity),
		IdempotencyKey: reservationKey,
		Payer: pixgateway.Payer{
			Name:  reservation.Buyer.Name,
			Email: reservation.Buyer.Email,
			Phone: reservation.Buyer.Phone,
		},
		Metadata: map[string]string{
			"provider":       "RifaMania",
			"purchase_id":    reservationKey,
			"reservation_id": reservationKey,
			"raffle_id":      raffle.ID.Hex(),
			"type":           string(models.PaymentTypeRafflePurchase),
		},
		ExpiresAt: reservation.ExpiresAt,
	})
	if err != nil {
		// Every gateway failed (or none is usable): the numbers go back to the pool
		s.abandon(ctx, reservation)
		return nil, err
	}
	if err := pixgateway.EnsureQRImage(charge); err != nil {
		slog.Warn("Failed to render QR image", "reservationId", reservationKey, "error", err)
	}

	tx := &models.PaymentTransaction{
		ExternalID:    charge.ExternalID,
		Type:          models.PaymentTypeRafflePurchase,
		RaffleID:      raffle.ID,
		ReservationID: &reservation.ID,
		AmountCents:   reservation.TotalAmountCents,
		Gateway:       charge.Gateway,
		PayableCode:   charge.PayableCode,
		QRImage:       charge.QRImageBase64,
		Status:        models.PaymentStatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("failed to record transaction: %w", err)
		}
		// The provider returned an existing charge for our idempotency key
		if tx, err = s.transactions.FindByExternalID(ctx, charge.ExternalID); err != nil {
			return nil, fmt.Errorf("failed to load transaction: %w", err)
		}
	}
	if err := s.reservations.AttachTransaction(ctx, reservation.ID, tx.ExternalID); err != nil {
		slog.Warn("Failed to attach transaction to reservation", "reservationId", reservationKey, "transactionId", tx.ExternalID, "error", err)
	}

	slog.Info("Purchase charge created", "reservationId", reservationKey, "transactionId", tx.ExternalID, "gateway", tx.Gateway)
	return chargeResultFromTx(tx, &reservation.ExpiresAt), nil
}

// Purchase reserves and charges in one call
func (s *PurchaseServiceImpl) Purchase(ctx context.Context, raffleID primitive.ObjectID, quantity int, buyer models.BuyerContact) (*PurchaseResult, error) {
	reservation, err := s.ReserveNumbers(ctx, raffleID, quantity, buyer)
	if err != nil {
		return nil, err
	}
	charge, err := s.CreatePurchaseCharge(ctx, reservation.ID)
	if err != nil {
		return nil, err
	}
	return &PurchaseResult{Reservation: reservation, Charge: charge}, nil
}

// CheckPurchaseStatus returns the reservation and its latest charge, if any
func (s *PurchaseServiceImpl) CheckPurchaseStatus(ctx context.Context, reservationID primitive.ObjectID) (*PurchaseStatus, error) {
	reservation, err := s.reservations.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to load reservation: %w", err)
	}
	status := &PurchaseStatus{Reservation: reservation}
	tx, err := s.transactions.FindLatestByReservation(ctx, reservation.ID)
	switch {
	case err == nil:
		status.Transaction = tx
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	return status, nil
}

// Availability returns the pool summary of a published raffle
func (s *PurchaseServiceImpl) Availability(ctx context.Context, raffleID primitive.ObjectID) (*models.PoolAvailability, error) {
	raffle, err := s.openRaffle(ctx, raffleID)
	if err != nil {
		return nil, err
	}
	return s.pool.Availability(ctx, raffle.ID, raffle.TotalNumbers)
}

func (s *PurchaseServiceImpl) openRaffle(ctx context.Context, raffleID primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}
	if !raffle.IsPublished() {
		return nil, ErrRaffleNotOpen
	}
	return raffle, nil
}

func (s *PurchaseServiceImpl) sellerCredentials(ctx context.Context, ownerID string) (models.GatewayCredentials, error) {
	profile, err := s.profiles.FindByOwnerID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.GatewayCredentials{}, ErrNoPaymentMethodConfigured
		}
		return models.GatewayCredentials{}, fmt.Errorf("failed to load seller profile: %w", err)
	}
	if len(s.selector.Configured(profile.Credentials)) == 0 {
		return models.GatewayCredentials{}, ErrNoPaymentMethodConfigured
	}
	return profile.Credentials, nil
}

// abandon fails a reservation whose charge could not be created and releases its numbers
func (s *PurchaseServiceImpl) abandon(ctx context.Context, reservation *models.PurchaseReservation) {
	failed, err := s.reservations.TransitionStatus(ctx, reservation.ID, models.ReservationStatusPending, models.ReservationStatusFailed)
	if err != nil {
		slog.Error("Failed to mark reservation failed", "reservationId", reservation.ID.Hex(), "error", err)
		return
	}
	if failed {
		s.release(ctx, reservation.RaffleID, reservation.ID)
	}
}

func (s *PurchaseServiceImpl) release(ctx context.Context, raffleID, reservationID primitive.ObjectID) {
	if _, err := s.pool.Release(ctx, raffleID, reservationID.Hex()); err != nil {
		slog.Error("Failed to release numbers", "raffleId", raffleID.Hex(), "reservationId", reservationID.Hex(), "error", err)
	}
}

func chargeResultFromTx(tx *models.PaymentTransaction, expiresAt *time.Time) *ChargeResult {
	result := &ChargeResult{
		TransactionID: tx.ExternalID,
		RaffleID:      tx.RaffleID.Hex(),
		Type:          tx.Type,
		Gateway:       tx.Gateway,
		PayableCode:   tx.PayableCode,
		QRImage:       tx.QRImage,
		AmountCents:   tx.AmountCents,
		Amount:        pricing.FormatBRL(tx.AmountCents),
		Status:        tx.Status,
		ExpiresAt:     expiresAt,
	}
	if tx.ReservationID != nil {
		result.ReservationID = tx.ReservationID.Hex()
	}
	return result
}
