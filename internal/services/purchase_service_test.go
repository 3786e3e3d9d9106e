package services

import (
	"context"
	"errors"
	"testing"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
)

func TestPurchaseService_ReserveAndCharge(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(100, models.RaffleStatusPublished, bothGateways())
	ctx := context.Background()

	result, err := h.purchases.Purchase(ctx, raffle.ID, 4, testBuyer)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	res := result.Reservation
	if res.Status != models.ReservationStatusPending || len(res.Numbers) != 4 {
		t.Fatalf("unexpected reservation: %+v", res)
	}
	if !res.AmountConsistent() || res.TotalAmountCents != 2000 {
		t.Fatalf("inconsistent amount: %+v", res)
	}
	if result.Charge.Gateway != pixgateway.SyncPayments {
		t.Fatalf("expected primary gateway, got %s", result.Charge.Gateway)
	}
	if result.Charge.Amount != "R$ 20,00" {
		t.Fatalf("unexpected formatted amount %s", result.Charge.Amount)
	}

	req := h.sync.Requests[0]
	if req.IdempotencyKey != res.ID.Hex() || req.Metadata["reservation_id"] != res.ID.Hex() {
		t.Fatalf("reservation id not carried to the gateway: %+v", req)
	}
	if req.CallbackURL != "https://api.test/webhooks/syncpayments" {
		t.Fatalf("unexpected callback %s", req.CallbackURL)
	}

	// asking again returns the same pending charge
	again, err := h.purchases.CreatePurchaseCharge(ctx, res.ID)
	if err != nil {
		t.Fatalf("second charge: %v", err)
	}
	if again.TransactionID != result.Charge.TransactionID || h.sync.Calls() != 1 {
		t.Fatalf("expected pending charge to be reused")
	}

	status, err := h.purchases.CheckPurchaseStatus(ctx, res.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Transaction == nil || status.Transaction.ExternalID != result.Charge.TransactionID {
		t.Fatalf("expected latest transaction in status, got %+v", status.Transaction)
	}
	if status.Reservation.ExternalTransactionID != result.Charge.TransactionID {
		t.Fatalf("expected transaction attached to reservation")
	}
}

func TestPurchaseService_FallbackKeepsNumbersHeld(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(50, models.RaffleStatusPublished, bothGateways())
	ctx := context.Background()

	res, err := h.purchases.ReserveNumbers(ctx, raffle.ID, 5, testBuyer)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}

	h.sync.CreateChargeFunc = func(ctx context.Context, _ pixgateway.Credentials, _ pixgateway.ChargeRequest) (*pixgateway.Charge, error) {
		// numbers are still held while the primary gateway is failing
		avail, err := h.pool.Availability(ctx, raffle.ID, raffle.TotalNumbers)
		if err != nil || avail.Held != 5 {
			t.Errorf("expected 5 held numbers during fallback, got %+v %v", avail, err)
		}
		return nil, &pixgateway.GatewayError{Gateway: pixgateway.SyncPayments, StatusCode: 503, Kind: pixgateway.ErrGatewayUnavailable, Err: errors.New("down")}
	}

	charge, err := h.purchases.CreatePurchaseCharge(ctx, res.ID)
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if charge.Gateway != pixgateway.MercadoPago {
		t.Fatalf("expected secondary gateway, got %s", charge.Gateway)
	}
	avail, _ := h.pool.Availability(ctx, raffle.ID, raffle.TotalNumbers)
	if avail.Held != 5 || avail.Available != 45 {
		t.Fatalf("expected numbers to remain held, got %+v", avail)
	}
	current, _ := h.store.Reservations.FindByID(ctx, res.ID)
	if current.Status != models.ReservationStatusPending {
		t.Fatalf("expected reservation to stay pending, got %s", current.Status)
	}
}

func TestPurchaseService_AllGatewaysFailReleasesNumbers(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(50, models.RaffleStatusPublished, bothGateways())
	ctx := context.Background()

	reject := func(context.Context, pixgateway.Credentials, pixgateway.ChargeRequest) (*pixgateway.Charge, error) {
		return nil, &pixgateway.GatewayError{Gateway: "x", StatusCode: 400, Kind: pixgateway.ErrGatewayRejected, Err: errors.New("invalid amount")}
	}
	h.sync.CreateChargeFunc = reject
	h.mp.CreateChargeFunc = reject

	_, err := h.purchases.Purchase(ctx, raffle.ID, 5, testBuyer)
	if !errors.Is(err, ErrPaymentInitiationFailed) {
		t.Fatalf("expected ErrPaymentInitiationFailed, got %v", err)
	}
	if !errors.Is(err, pixgateway.ErrGatewayRejected) {
		t.Fatalf("expected gateway cause to be kept, got %v", err)
	}

	avail, _ := h.pool.Availability(ctx, raffle.ID, raffle.TotalNumbers)
	if avail.Held != 0 || avail.Available != 50 {
		t.Fatalf("expected numbers released, got %+v", avail)
	}
	if len(h.store.Transactions.All()) != 0 {
		t.Fatalf("expected no ledger entry")
	}
}

func TestPurchaseService_NoPaymentMethodBeforeTouchingPool(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(50, models.RaffleStatusPublished, models.GatewayCredentials{SyncPaymentsClientID: "only-id"})

	_, err := h.purchases.ReserveNumbers(context.Background(), raffle.ID, 2, testBuyer)
	if !errors.Is(err, ErrNoPaymentMethodConfigured) {
		t.Fatalf("expected ErrNoPaymentMethodConfigured, got %v", err)
	}
	if h.store.Pools.Writes() != 0 {
		t.Fatalf("expected pool to be untouched")
	}
}

func TestPurchaseService_RejectsUnpublishedAndUnknownRaffles(t *testing.T) {
	h := newHarness(t)
	draft := h.seedRaffle(50, models.RaffleStatusDraft, bothGateways())
	ctx := context.Background()

	if _, err := h.purchases.ReserveNumbers(ctx, draft.ID, 1, testBuyer); !errors.Is(err, ErrRaffleNotOpen) {
		t.Fatalf("expected ErrRaffleNotOpen, got %v", err)
	}
	other := h.seedRaffle(5, models.RaffleStatusPublished, bothGateways())
	if _, err := h.purchases.ReserveNumbers(ctx, other.ID, 6, testBuyer); !errors.Is(err, ErrInsufficientSupply) {
		t.Fatalf("expected ErrInsufficientSupply, got %v", err)
	}
	if _, err := h.purchases.ReserveNumbers(ctx, other.ID, 0, testBuyer); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestPurchaseService_ChargeRequiresPendingReservation(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(10, models.RaffleStatusPublished, bothGateways())
	ctx := context.Background()

	res, err := h.purchases.ReserveNumbers(ctx, raffle.ID, 1, testBuyer)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := h.store.Reservations.TransitionStatus(ctx, res.ID, models.ReservationStatusPending, models.ReservationStatusExpired); err != nil {
		t.Fatalf("expire: %v", err)
	}
	if _, err := h.purchases.CreatePurchaseCharge(ctx, res.ID); !errors.Is(err, ErrReservationNotPending) {
		t.Fatalf("expected ErrReservationNotPending, got %v", err)
	}
}

func TestPurchaseService_NoSecondChargeOnceConfirmed(t *testing.T) {
	h := newHarness(t)
	raffle := h.seedRaffle(10, models.RaffleStatusPublished, bothGateways())
	ctx := context.Background()

	result, err := h.purchases.Purchase(ctx, raffle.ID, 2, testBuyer)
	if err != nil {
		t.Fatalf("purchase: %v", err)
	}
	// Ledger settled but the reservation flip has not happened yet
	flipped, err := h.store.Transactions.TransitionStatus(ctx, result.Charge.TransactionID, models.PaymentStatusConfirmed,
		models.StatusChange{RawStatus: "PAID", Source: "webhook:" + pixgateway.SyncPayments})
	if err != nil || !flipped {
		t.Fatalf("confirm transaction: flipped=%v err=%v", flipped, err)
	}

	if _, err := h.purchases.CreatePurchaseCharge(ctx, result.Reservation.ID); !errors.Is(err, ErrReservationNotPending) {
		t.Fatalf("expected ErrReservationNotPending, got %v", err)
	}
	if h.sync.Calls() != 1 || h.mp.Calls() != 0 {
		t.Fatalf("expected no new gateway call, got sync=%d mp=%d", h.sync.Calls(), h.mp.Calls())
	}
}
