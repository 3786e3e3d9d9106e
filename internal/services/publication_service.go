package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// Compile-time check to ensure PublicationServiceImpl implements PublicationService
var _ PublicationService = (*PublicationServiceImpl)(nil)

// PublicationServiceImpl charges the publication fee with the platform's own
// gateway credentials and publishes the raffle once it is paid.
type PublicationServiceImpl struct {
	raffles      repositories.RaffleRepository
	transactions repositories.TransactionRepository
	resolver     *pricing.Resolver
	selector     *GatewaySelector
	trigger      *PublicationTrigger
	platform     models.GatewayCredentials
}

// NewPublicationService creates a new PublicationServiceImpl
func NewPublicationService(
	raffles repositories.RaffleRepository,
	transactions repositories.TransactionRepository,
	resolver *pricing.Resolver,
	selector *GatewaySelector,
	trigger *PublicationTrigger,
	platform models.GatewayCredentials,
) *PublicationServiceImpl {
	return &PublicationServiceImpl{
		raffles:      raffles,
		transactions: transactions,
		resolver:     resolver,
		selector:     selector,
		trigger:      trigger,
		platform:     platform,
	}
}

// Quote returns the publication fee of a raffle owned by ownerID
func (s *PublicationServiceImpl) Quote(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*pricing.Quote, error) {
	raffle, err := s.ownedRaffle(ctx, ownerID, raffleID)
	if err != nil {
		return nil, err
	}
	quote, err := s.resolver.Resolve(raffle.TotalNumbers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuantity, err)
	}
	return &quote, nil
}

// CreatePublicationCharge charges the fee for a draft raffle. Pools above the top
// tier are refused with ErrManualApprovalRequired.
func (s *PublicationServiceImpl) CreatePublicationCharge(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*ChargeResult, error) {
	raffle, err := s.ownedRaffle(ctx, ownerID, raffleID)
	if err != nil {
		return nil, err
	}
	if raffle.IsPublished() {
		return nil, ErrRaffleAlreadyPublished
	}

	quote, err := s.resolver.Resolve(raffle.TotalNumbers)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidQuantity, err)
	}
	if quote.ManualApproval {
		slog.Info("Publication requires manual approval", "raffleId", raffleID.Hex(), "poolSize", raffle.TotalNumbers)
		return nil, ErrManualApprovalRequired
	}

	// A pending fee charge is reused; after a failed one the key moves on so the
	// provider does not replay the failed charge.
	idempotencyKey := raffle.ID.Hex()
	latest, err := s.transactions.FindLatestByRaffle(ctx, raffle.ID, models.PaymentTypePublicationFee)
	switch {
	case err == nil && latest.Status == models.PaymentStatusPending:
		return chargeResultFromTx(latest, nil), nil
	case err == nil && latest.Status == models.PaymentStatusConfirmed:
		// Paid but not yet flipped; finish the job instead of charging twice
		if _, err := s.trigger.Publish(ctx, raffle.ID, latest.ExternalID); err != nil {
			return nil, err
		}
		return nil, ErrRaffleAlreadyPublished
	case err == nil:
		idempotencyKey = raffle.ID.Hex() + "-" + latest.ExternalID
	case !errors.Is(err, repositories.ErrNotFound):
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	charge, err := s.selector.CreateCharge(ctx, s.platform, pixgateway.ChargeRequest{
		AmountCents:    quote.FeeCents,
		Description:    fmt.Sprintf("Taxa de publicação: %s", raffle.Name),
		IdempotencyKey: idempotencyKey,
		Metadata: map[string]string{
			"provider":  "RifaMania",
			"raffle_id": raffle.ID.Hex(),
			"type":      string(models.PaymentTypePublicationFee),
		},
	})
	if err != nil {
		return nil, err
	}
	if err := pixgateway.EnsureQRImage(charge); err != nil {
		slog.Warn("Failed to render QR image", "raffleId", raffleID.Hex(), "error", err)
	}

	tx := &models.PaymentTransaction{
		ExternalID:  charge.ExternalID,
		Type:        models.PaymentTypePublicationFee,
		RaffleID:    raffle.ID,
		AmountCents: quote.FeeCents,
		Gateway:     charge.Gateway,
		PayableCode: charge.PayableCode,
		QRImage:     charge.QRImageBase64,
		Status:      models.PaymentStatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("failed to record transaction: %w", err)
		}
		if tx, err = s.transactions.FindByExternalID(ctx, charge.ExternalID); err != nil {
			return nil, fmt.Errorf("failed to load transaction: %w", err)
		}
	}

	slog.Info("Publication charge created", "raffleId", raffleID.Hex(), "transactionId", tx.ExternalID, "gateway", tx.Gateway, "feeCents", quote.FeeCents)
	return chargeResultFromTx(tx, nil), nil
}

// CheckPublicationStatus reports the fee payment state. A confirmed payment on a
// raffle that is not yet live publishes it.
func (s *PublicationServiceImpl) CheckPublicationStatus(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*PublicationStatus, error) {
	raffle, err := s.ownedRaffle(ctx, ownerID, raffleID)
	if err != nil {
		return nil, err
	}
	status := &PublicationStatus{RaffleID: raffle.ID.Hex(), RaffleStatus: raffle.Status}

	tx, err := s.transactions.FindLatestByRaffle(ctx, raffle.ID, models.PaymentTypePublicationFee)
	if errors.Is(err, repositories.ErrNotFound) {
		return status, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	status.HasPayment = true
	status.PaymentStatus = tx.Status
	status.TransactionID = tx.ExternalID

	if tx.Status == models.PaymentStatusConfirmed && !raffle.IsPublished() {
		if _, err := s.trigger.Publish(ctx, raffle.ID, tx.ExternalID); err != nil {
			return nil, err
		}
		status.RaffleStatus = models.RaffleStatusPublished
	}
	return status, nil
}

func (s *PublicationServiceImpl) ownedRaffle(ctx context.Context, ownerID string, raffleID primitive.ObjectID) (*models.Raffle, error) {
	raffle, err := s.raffles.FindByID(ctx, raffleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrRaffleNotFound
		}
		return nil, fmt.Errorf("failed to load raffle: %w", err)
	}
	if raffle.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	return raffle, nil
}
