package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"github.com/ArowuTest/rifamania-backend/pkg/mq"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// PublicationTrigger marks a raffle live once its publication fee is confirmed
type PublicationTrigger struct {
	raffles   repositories.RaffleRepository
	publisher mq.Publisher
}

// NewPublicationTrigger creates a new PublicationTrigger
func NewPublicationTrigger(raffles repositories.RaffleRepository, publisher mq.Publisher) *PublicationTrigger {
	return &PublicationTrigger{raffles: raffles, publisher: publisher}
}

// Publish flips the raffle to published. It reports whether this call did the
// flip; the event goes out only in that case.
func (t *PublicationTrigger) Publish(ctx context.Context, raffleID primitive.ObjectID, transactionID string) (bool, error) {
	published, err := t.raffles.MarkPublished(ctx, raffleID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return false, ErrRaffleNotFound
		}
		return false, fmt.Errorf("failed to publish raffle: %w", err)
	}
	if !published {
		slog.Info("Raffle already published", "raffleId", raffleID.Hex(), "transactionId", transactionID)
		return false, nil
	}

	slog.Info("Raffle published", "raffleId", raffleID.Hex(), "transactionId", transactionID)
	publishEvent(ctx, t.publisher, EventRafflePublished, RafflePublishedEvent{
		RaffleID:      raffleID.Hex(),
		TransactionID: transactionID,
		OccurredAt:    time.Now(),
	})
	return true, nil
}
