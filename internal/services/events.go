package services

import (
	"context"
	"time"

	"github.com/ArowuTest/rifamania-backend/pkg/mq"
	"golang.org/x/exp/slog"
)

// Routing keys of the domain events
const (
	EventPurchaseConfirmed = "purchase.confirmed"
	EventPurchaseFailed    = "purchase.failed"
	EventRafflePublished   = "raffle.published"
)

// PurchaseEvent is published when a purchase settles either way
type PurchaseEvent struct {
	ReservationID string    `json:"reservationId"`
	RaffleID      string    `json:"raffleId"`
	TransactionID string    `json:"transactionId"`
	Gateway       string    `json:"gateway"`
	Numbers       []int     `json:"numbers"`
	AmountCents   int64     `json:"amountCents"`
	BuyerPhone    string    `json:"buyerPhone,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// RafflePublishedEvent is published when a raffle goes live
type RafflePublishedEvent struct {
	RaffleID      string    `json:"raffleId"`
	TransactionID string    `json:"transactionId,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

// publishEvent never fails the caller; the state change is already durable
func publishEvent(ctx context.Context, publisher mq.Publisher, key string, payload any) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishJSON(ctx, key, payload); err != nil {
		slog.Error("Failed to publish event", "event", key, "error", err)
	}
}
