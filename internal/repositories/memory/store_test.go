package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestTransactionRepository_TransitionOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	repo := NewTransactionRepository()

	tx := &models.PaymentTransaction{ExternalID: "sp-1", Type: models.PaymentTypeRafflePurchase}
	if err := repo.Create(ctx, tx); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, &models.PaymentTransaction{ExternalID: "sp-1"}); !errors.Is(err, repositories.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	flipped, err := repo.TransitionStatus(ctx, "sp-1", models.PaymentStatusConfirmed, models.StatusChange{Source: "webhook"})
	if err != nil || !flipped {
		t.Fatalf("expected first transition to apply, got %v %v", flipped, err)
	}
	writes := repo.Writes()
	flipped, err = repo.TransitionStatus(ctx, "sp-1", models.PaymentStatusFailed, models.StatusChange{Source: "webhook"})
	if err != nil || flipped {
		t.Fatalf("expected terminal transaction to stay put, got %v %v", flipped, err)
	}
	if repo.Writes() != writes {
		t.Fatalf("expected a refused transition to write nothing")
	}

	stored, _ := repo.FindByExternalID(ctx, "sp-1")
	if stored.Status != models.PaymentStatusConfirmed || len(stored.History) != 2 {
		t.Fatalf("unexpected stored transaction %+v", stored)
	}
	if _, err := repo.FindByExternalID(ctx, "missing"); !errors.Is(err, repositories.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPoolRepository_HoldRequiresCurrentVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewPoolRepository()
	raffleID := primitive.NewObjectID()

	pool, err := repo.Ensure(ctx, raffleID, 10)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.Hold(ctx, raffleID, "r1", []int{1, 2}, pool.Version); err != nil {
		t.Fatalf("hold: %v", err)
	}
	if err := repo.Hold(ctx, raffleID, "r2", []int{3}, pool.Version); !errors.Is(err, repositories.ErrVersionConflict) {
		t.Fatalf("expected ErrVersionConflict for a stale version, got %v", err)
	}

	committed, err := repo.Commit(ctx, raffleID, "r1", []int{1, 2})
	if err != nil || !committed {
		t.Fatalf("expected commit, got %v %v", committed, err)
	}
	if released, _ := repo.Release(ctx, raffleID, "r1"); released {
		t.Fatalf("committed numbers must not be released")
	}
	current, _ := repo.FindByRaffleID(ctx, raffleID)
	if current.Available() != 8 || len(current.Sold) != 2 {
		t.Fatalf("unexpected pool %+v", current)
	}
}

func TestReservationRepository_FindExpiredPending(t *testing.T) {
	ctx := context.Background()
	repo := NewReservationRepository()
	now := time.Now()

	overdue := &models.PurchaseReservation{Status: models.ReservationStatusPending, ExpiresAt: now.Add(-time.Minute)}
	fresh := &models.PurchaseReservation{Status: models.ReservationStatusPending, ExpiresAt: now.Add(time.Minute)}
	closed := &models.PurchaseReservation{Status: models.ReservationStatusConfirmed, ExpiresAt: now.Add(-time.Hour)}
	for _, r := range []*models.PurchaseReservation{overdue, fresh, closed} {
		if err := repo.Create(ctx, r); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	found, err := repo.FindExpiredPending(ctx, now, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].ID != overdue.ID {
		t.Fatalf("expected only the overdue pending reservation, got %d", len(found))
	}
}

func TestWebhookEventRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository()

	ev := &models.WebhookEvent{Gateway: "syncpayments", TransactionID: "sp-1", RawStatus: "PAID"}
	if err := repo.Create(ctx, ev); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.MarkProcessed(ctx, ev.ID, "still broken"); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if pending, _ := repo.FindUnprocessed(ctx, 0, 10); len(pending) != 1 || pending[0].Attempts != 1 {
		t.Fatalf("expected a failed replay to stay in the inbox")
	}
	if err := repo.MarkProcessed(ctx, ev.ID, ""); err != nil {
		t.Fatalf("mark: %v", err)
	}
	if pending, _ := repo.FindUnprocessed(ctx, 0, 10); len(pending) != 0 {
		t.Fatalf("expected the inbox to be empty")
	}
}

func TestWebhookEventRepository_FindUnprocessedSkipsExhausted(t *testing.T) {
	ctx := context.Background()
	repo := NewWebhookEventRepository()

	stuck := &models.WebhookEvent{Gateway: "syncpayments", TransactionID: "sp-old", RawStatus: "PAID", Attempts: 3}
	retried := &models.WebhookEvent{Gateway: "syncpayments", TransactionID: "sp-retried", RawStatus: "PAID", Attempts: 1}
	fresh := &models.WebhookEvent{Gateway: "syncpayments", TransactionID: "sp-new", RawStatus: "PAID"}
	for _, ev := range []*models.WebhookEvent{stuck, retried, fresh} {
		if err := repo.Create(ctx, ev); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	pending, err := repo.FindUnprocessed(ctx, 3, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(pending) != 2 || pending[0].TransactionID != "sp-new" || pending[1].TransactionID != "sp-retried" {
		t.Fatalf("expected fresh then retried event, got %+v", pending)
	}
	if all, _ := repo.FindUnprocessed(ctx, 0, 1); len(all) != 1 || all[0].TransactionID != "sp-new" {
		t.Fatalf("expected least attempted event first without a cap")
	}
}

func TestPoolRepository_FindHeld(t *testing.T) {
	ctx := context.Background()
	repo := NewPoolRepository()
	held, idle := primitive.NewObjectID(), primitive.NewObjectID()

	pool, _ := repo.Ensure(ctx, held, 10)
	if _, err := repo.Ensure(ctx, idle, 10); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if err := repo.Hold(ctx, held, "r1", []int{4}, pool.Version); err != nil {
		t.Fatalf("hold: %v", err)
	}

	found, err := repo.FindHeld(ctx, 10)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(found) != 1 || found[0].RaffleID != held {
		t.Fatalf("expected only the held pool, got %d", len(found))
	}
	if _, err := repo.Release(ctx, held, "r1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if found, _ := repo.FindHeld(ctx, 10); len(found) != 0 {
		t.Fatalf("expected no held pools after release, got %d", len(found))
	}
}
