package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// ExpirySweeper expires pending reservations past their hold window, releases
// holds left behind by closed reservations and replays parked webhook notifications.
type ExpirySweeper struct {
	reservations repositories.ReservationRepository
	pools        repositories.PoolRepository
	pool         PoolService
	reconciler   Reconciler
	batchSize    int
	now          func() time.Time
}

// NewExpirySweeper creates a new ExpirySweeper
func NewExpirySweeper(reservations repositories.ReservationRepository, pools repositories.PoolRepository, pool PoolService, reconciler Reconciler, batchSize int) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &ExpirySweeper{
		reservations: reservations,
		pools:        pools,
		pool:         pool,
		reconciler:   reconciler,
		batchSize:    batchSize,
		now:          time.Now,
	}
}

// SweepExpired expires one batch of overdue reservations and returns how many it
// expired. Numbers are released only when this sweep did the pending -> expired
// flip, so a reservation confirmed concurrently keeps its numbers.
func (s *ExpirySweeper) SweepExpired(ctx context.Context) (int, error) {
	overdue, err := s.reservations.FindExpiredPending(ctx, s.now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired reservations: %w", err)
	}

	expired := 0
	for _, reservation := range overdue {
		if ctx.Err() != nil {
			return expired, ctx.Err()
		}
		flipped, err := s.reservations.TransitionStatus(ctx, reservation.ID, models.ReservationStatusPending, models.ReservationStatusExpired)
		if err != nil {
			slog.Error("Failed to expire reservation", "reservationId", reservation.ID.Hex(), "error", err)
			continue
		}
		if !flipped {
			continue
		}
		expired++
		if _, err := s.pool.Release(ctx, reservation.RaffleID, reservation.ID.Hex()); err != nil {
			slog.Error("Failed to release expired reservation", "reservationId", reservation.ID.Hex(), "error", err)
		}
	}
	if expired > 0 {
		slog.Info("Expired reservations swept", "count", expired)
	}
	return expired, nil
}

// RepairHolds releases holds whose reservation already expired or failed. It
// finishes releases that failed after the status flip; Release is idempotent.
func (s *ExpirySweeper) RepairHolds(ctx context.Context) (int, error) {
	pools, err := s.pools.FindHeld(ctx, s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list held pools: %w", err)
	}

	released := 0
	for _, pool := range pools {
		for reservationID := range pool.Holds {
			if ctx.Err() != nil {
				return released, ctx.Err()
			}
			id, err := primitive.ObjectIDFromHex(reservationID)
			if err != nil {
				continue
			}
			reservation, err := s.reservations.FindByID(ctx, id)
			if errors.Is(err, repositories.ErrNotFound) {
				// Held before its reservation was stored; not ours to judge
				continue
			}
			if err != nil {
				slog.Error("Failed to load held reservation", "reservationId", reservationID, "error", err)
				continue
			}
			if reservation.Status != models.ReservationStatusExpired && reservation.Status != models.ReservationStatusFailed {
				continue
			}
			ok, err := s.pool.Release(ctx, pool.RaffleID, reservationID)
			if err != nil {
				slog.Error("Failed to release stale hold", "raffleId", pool.RaffleID.Hex(), "reservationId", reservationID, "error", err)
				continue
			}
			if ok {
				released++
			}
		}
	}
	if released > 0 {
		slog.Info("Stale holds released", "count", released)
	}
	return released, nil
}

// RunOnce sweeps expired reservations, repairs stale holds and replays the webhook inbox
func (s *ExpirySweeper) RunOnce(ctx context.Context) (expired, replayed int, err error) {
	expired, err = s.SweepExpired(ctx)
	if err != nil {
		return expired, 0, err
	}
	if _, err = s.RepairHolds(ctx); err != nil {
		return expired, 0, err
	}
	if s.reconciler == nil {
		return expired, 0, nil
	}
	replayed, err = s.reconciler.ReprocessInbox(ctx, s.batchSize)
	return expired, replayed, err
}

// Start runs RunOnce every interval until ctx is cancelled
func (s *ExpirySweeper) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if _, _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
					slog.Error("Sweep failed", "error", err)
				}
			}
		}
	}()
}
