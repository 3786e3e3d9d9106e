package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"github.com/ArowuTest/rifamania-backend/pkg/mq"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"golang.org/x/exp/slog"
)

// Notification is one provider callback, already extracted from its payload
type Notification struct {
	Gateway       string
	TransactionID string
	RawStatus     string
	Metadata      map[string]any
}

// Outcome tells what reconciliation did with a notification
type Outcome string

const (
	OutcomeUnknownTransaction Outcome = "unknown_transaction"
	OutcomePending            Outcome = "pending"
	OutcomeApplied            Outcome = "applied"
	OutcomeDuplicate          Outcome = "duplicate"
	OutcomeConflict           Outcome = "conflict"
	OutcomeDeferred           Outcome = "deferred"
)

// ReconcileResult is returned to the webhook caller
type ReconcileResult struct {
	Outcome Outcome              `json:"outcome"`
	Status  models.PaymentStatus `json:"status"`
}

var (
	syncPaymentsConfirmed = map[string]struct{}{"APPROVED": {}, "PAID": {}, "CONFIRMED": {}, "COMPLETED": {}}
	syncPaymentsFailed    = map[string]struct{}{"REJECTED": {}, "FAILED": {}, "CANCELLED": {}, "CANCELED": {}, "REFUSED": {}, "EXPIRED": {}}
	mercadoPagoConfirmed  = map[string]struct{}{"APPROVED": {}}
	mercadoPagoFailed     = map[string]struct{}{"REJECTED": {}, "CANCELLED": {}, "REFUNDED": {}, "CHARGED_BACK": {}}
)

// ParseStatus maps a provider status to the canonical set. Unrecognized values
// are pending, never dropped. Unknown gateways use the SyncPayments vocabulary.
func ParseStatus(gateway, raw string) models.PaymentStatus {
	s := strings.ToUpper(strings.TrimSpace(raw))
	confirmed, failed := syncPaymentsConfirmed, syncPaymentsFailed
	if gateway == pixgateway.MercadoPago {
		confirmed, failed = mercadoPagoConfirmed, mercadoPagoFailed
	}
	if _, ok := confirmed[s]; ok {
		return models.PaymentStatusConfirmed
	}
	if _, ok := failed[s]; ok {
		return models.PaymentStatusFailed
	}
	return models.PaymentStatusPending
}

// Compile-time check to ensure ReconcilerImpl implements Reconciler
var _ Reconciler = (*ReconcilerImpl)(nil)

// ReconcilerImpl is the webhook reconciler. Every step is safe to repeat: the
// ledger flip, the reservation flip and the pool commit/release are all
// conditional, and side effects hang off whichever flip actually happened.
type ReconcilerImpl struct {
	transactions repositories.TransactionRepository
	reservations repositories.ReservationRepository
	raffles      repositories.RaffleRepository
	inbox        repositories.WebhookEventRepository
	pool         PoolService
	trigger      *PublicationTrigger
	publisher    mq.Publisher
}

// NewReconciler creates a new ReconcilerImpl
func NewReconciler(
	transactions repositories.TransactionRepository,
	reservations repositories.ReservationRepository,
	raffles repositories.RaffleRepository,
	inbox repositories.WebhookEventRepository,
	pool PoolService,
	trigger *PublicationTrigger,
	publisher mq.Publisher,
) *ReconcilerImpl {
	return &ReconcilerImpl{
		transactions: transactions,
		reservations: reservations,
		raffles:      raffles,
		inbox:        inbox,
		pool:         pool,
		trigger:      trigger,
		publisher:    publisher,
	}
}

// Reconcile applies a notification. Unknown transactions are acknowledged
// without writes; contradictory terminal statuses are logged as conflicts.
func (r *ReconcilerImpl) Reconcile(ctx context.Context, n Notification) (*ReconcileResult, error) {
	status := ParseStatus(n.Gateway, n.RawStatus)
	result := &ReconcileResult{Status: status}

	tx, err := r.transactions.FindByExternalID(ctx, n.TransactionID)
	if errors.Is(err, repositories.ErrNotFound) {
		slog.Info("Notification for unknown transaction", "transactionId", n.TransactionID, "gateway", n.Gateway)
		result.Outcome = OutcomeUnknownTransaction
		return result, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}
	r.checkMetadata(tx, n)

	if status == models.PaymentStatusPending {
		result.Outcome = OutcomePending
		return result, nil
	}

	if !tx.Status.Terminal() {
		flipped, err := r.transactions.TransitionStatus(ctx, tx.ExternalID, status, models.StatusChange{
			RawStatus: n.RawStatus,
			Source:    "webhook:" + n.Gateway,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to update transaction: %w", err)
		}
		if flipped {
			slog.Info("Transaction settled", "transactionId", tx.ExternalID, "status", status, "type", tx.Type)
			tx.Status = status
			result.Outcome = OutcomeApplied
		} else if tx, err = r.transactions.FindByExternalID(ctx, n.TransactionID); err != nil {
			// Lost the race to a concurrent delivery; continue from its result
			return nil, fmt.Errorf("failed to reload transaction: %w", err)
		}
	}

	if tx.Status != status {
		slog.Error("Notification contradicts settled transaction", "error", ErrReconciliationConflict,
			"transactionId", tx.ExternalID, "current", tx.Status, "received", status, "rawStatus", n.RawStatus)
		result.Outcome = OutcomeConflict
		return result, nil
	}
	if result.Outcome == "" {
		result.Outcome = OutcomeDuplicate
	}

	// Effects run on duplicates too so a delivery interrupted halfway gets finished
	if err := r.applyEffects(ctx, tx); err != nil {
		return nil, err
	}
	return result, nil
}

// Receive reconciles and, on an infrastructure failure, parks the notification
// for replay. The provider is acknowledged either way.
func (r *ReconcilerImpl) Receive(ctx context.Context, n Notification) *ReconcileResult {
	result, err := r.Reconcile(ctx, n)
	if err == nil {
		return result
	}

	slog.Error("Reconciliation failed, storing notification for replay", "transactionId", n.TransactionID, "gateway", n.Gateway, "error", err)
	event := &models.WebhookEvent{
		Gateway:         n.Gateway,
		TransactionID:   n.TransactionID,
		RawStatus:       n.RawStatus,
		Metadata:        n.Metadata,
		ProcessingError: err.Error(),
	}
	if storeErr := r.inbox.Create(ctx, event); storeErr != nil {
		slog.Error("Failed to store notification", "transactionId", n.TransactionID, "error", storeErr)
	}
	return &ReconcileResult{Outcome: OutcomeDeferred, Status: ParseStatus(n.Gateway, n.RawStatus)}
}

// maxReplayAttempts is how many failed replays an inbox event gets before it is
// left for an operator
const maxReplayAttempts = 8

// ReprocessInbox replays stored notifications, least attempted first, then oldest.
// Events that keep failing stop being picked after maxReplayAttempts.
func (r *ReconcilerImpl) ReprocessInbox(ctx context.Context, limit int) (int, error) {
	events, err := r.inbox.FindUnprocessed(ctx, maxReplayAttempts, limit)
	if err != nil {
		return 0, fmt.Errorf("failed to load stored notifications: %w", err)
	}

	done := 0
	for _, ev := range events {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		_, recErr := r.Reconcile(ctx, Notification{
			Gateway:       ev.Gateway,
			TransactionID: ev.TransactionID,
			RawStatus:     ev.RawStatus,
			Metadata:      ev.Metadata,
		})
		msg := ""
		if recErr != nil {
			msg = recErr.Error()
			slog.Warn("Replay failed", "eventId", ev.ID.Hex(), "transactionId", ev.TransactionID, "attempt", ev.Attempts+1, "error", recErr)
			if ev.Attempts+1 >= maxReplayAttempts {
				slog.Error("Giving up on stored notification", "eventId", ev.ID.Hex(), "transactionId", ev.TransactionID,
					"gateway", ev.Gateway, "rawStatus", ev.RawStatus, "attempts", ev.Attempts+1)
			}
		} else {
			done++
		}
		if err := r.inbox.MarkProcessed(ctx, ev.ID, msg); err != nil {
			return done, fmt.Errorf("failed to mark notification processed: %w", err)
		}
	}
	return done, nil
}

func (r *ReconcilerImpl) applyEffects(ctx context.Context, tx *models.PaymentTransaction) error {
	switch tx.Type {
	case models.PaymentTypePublicationFee:
		if tx.Status != models.PaymentStatusConfirmed {
			slog.Info("Publication fee failed", "raffleId", tx.RaffleID.Hex(), "transactionId", tx.ExternalID)
			return nil
		}
		_, err := r.trigger.Publish(ctx, tx.RaffleID, tx.ExternalID)
		if errors.Is(err, ErrRaffleNotFound) {
			slog.Error("Publication fee paid for missing raffle", "error", ErrReconciliationConflict, "raffleId", tx.RaffleID.Hex())
			return nil
		}
		return err

	case models.PaymentTypeRafflePurchase:
		if tx.ReservationID == nil {
			slog.Error("Purchase transaction without reservation", "error", ErrReconciliationConflict, "transactionId", tx.ExternalID)
			return nil
		}
		reservation, err := r.reservations.FindByID(ctx, *tx.ReservationID)
		if errors.Is(err, repositories.ErrNotFound) {
			slog.Error("Purchase transaction for missing reservation", "error", ErrReconciliationConflict,
				"transactionId", tx.ExternalID, "reservationId", tx.ReservationID.Hex())
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load reservation: %w", err)
		}
		if tx.Status == models.PaymentStatusConfirmed {
			return r.confirmPurchase(ctx, tx, reservation)
		}
		return r.failPurchase(ctx, tx, reservation)
	}

	slog.Error("Unknown transaction type", "error", ErrReconciliationConflict, "transactionId", tx.ExternalID, "type", tx.Type)
	return nil
}

func (r *ReconcilerImpl) confirmPurchase(ctx context.Context, tx *models.PaymentTransaction, reservation *models.PurchaseReservation) error {
	if _, err := r.reservations.TransitionStatus(ctx, reservation.ID, models.ReservationStatusPending, models.ReservationStatusConfirmed); err != nil {
		return fmt.Errorf("failed to confirm reservation: %w", err)
	}
	current, err := r.reservations.FindByID(ctx, reservation.ID)
	if err != nil {
		return fmt.Errorf("failed to reload reservation: %w", err)
	}
	if current.Status != models.ReservationStatusConfirmed {
		// Expired or failed before the payment landed; its numbers may be resold
		slog.Error("Payment confirmed for a closed reservation", "error", ErrReconciliationConflict,
			"transactionId", tx.ExternalID, "reservationId", reservation.ID.Hex(), "reservationStatus", current.Status)
		return nil
	}

	// Commit is the one-time flip that gates the event
	committed, err := r.pool.Commit(ctx, current.RaffleID, current.ID.Hex(), current.Numbers)
	if err != nil {
		return err
	}
	if committed {
		slog.Info("Purchase confirmed", "raffleId", current.RaffleID.Hex(), "reservationId", current.ID.Hex(), "transactionId", tx.ExternalID)
		publishEvent(ctx, r.publisher, EventPurchaseConfirmed, purchaseEvent(tx, current))
	}

	// Counted once per reservation; a failure here parks the notification for replay
	counted, err := r.raffles.IncrementSales(ctx, current.RaffleID, current.ID.Hex(), current.Quantity, current.TotalAmountCents)
	if err != nil {
		return fmt.Errorf("failed to update raffle sales: %w", err)
	}
	if counted && !committed {
		slog.Info("Raffle sales caught up", "raffleId", current.RaffleID.Hex(), "reservationId", current.ID.Hex())
	}
	return nil
}

func (r *ReconcilerImpl) failPurchase(ctx context.Context, tx *models.PaymentTransaction, reservation *models.PurchaseReservation) error {
	flipped, err := r.reservations.TransitionStatus(ctx, reservation.ID, models.ReservationStatusPending, models.ReservationStatusFailed)
	if err != nil {
		return fmt.Errorf("failed to fail reservation: %w", err)
	}
	if !flipped {
		current, err := r.reservations.FindByID(ctx, reservation.ID)
		if err != nil {
			return fmt.Errorf("failed to reload reservation: %w", err)
		}
		if current.Status == models.ReservationStatusConfirmed {
			// Sold numbers are never released
			slog.Error("Payment failed for a confirmed reservation", "error", ErrReconciliationConflict,
				"transactionId", tx.ExternalID, "reservationId", reservation.ID.Hex())
			return nil
		}
	}

	if _, err := r.pool.Release(ctx, reservation.RaffleID, reservation.ID.Hex()); err != nil {
		return err
	}
	if flipped {
		slog.Info("Purchase failed", "raffleId", reservation.RaffleID.Hex(), "reservationId", reservation.ID.Hex(), "transactionId", tx.ExternalID)
		publishEvent(ctx, r.publisher, EventPurchaseFailed, purchaseEvent(tx, reservation))
	}
	return nil
}

// checkMetadata flags notifications whose reservation id disagrees with the ledger
func (r *ReconcilerImpl) checkMetadata(tx *models.PaymentTransaction, n Notification) {
	if tx.ReservationID == nil || n.Metadata == nil {
		return
	}
	for _, key := range []string{"reservation_id", "purchase_id"} {
		v, ok := n.Metadata[key].(string)
		if ok && v != "" && v != tx.ReservationID.Hex() {
			slog.Warn("Notification metadata names another reservation", "transactionId", tx.ExternalID,
				"reservationId", tx.ReservationID.Hex(), "metadataReservationId", v)
			return
		}
	}
}

func purchaseEvent(tx *models.PaymentTransaction, reservation *models.PurchaseReservation) PurchaseEvent {
	return PurchaseEvent{
		ReservationID: reservation.ID.Hex(),
		RaffleID:      reservation.RaffleID.Hex(),
		TransactionID: tx.ExternalID,
		Gateway:       tx.Gateway,
		Numbers:       reservation.Numbers,
		AmountCents:   reservation.TotalAmountCents,
		BuyerPhone:    reservation.Buyer.Phone,
		OccurredAt:    time.Now(),
	}
}
