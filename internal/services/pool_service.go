package services

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/ArowuTest/rifamania-backend/internal/locks"
	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/slog"
)

// holdAttempts bounds the compare-and-swap retries inside one locked section.
// Conflicts there come from releases and commits, which do not take the lock.
const holdAttempts = 5

// Compile-time check to ensure PoolServiceImpl implements PoolService
var _ PoolService = (*PoolServiceImpl)(nil)

// PoolServiceImpl serializes reservations per raffle with a Locker and writes
// holds with a version compare-and-swap.
type PoolServiceImpl struct {
	pools  repositories.PoolRepository
	locker locks.Locker
	intN   func(n int) int
}

// NewPoolService creates a new PoolServiceImpl
func NewPoolService(pools repositories.PoolRepository, locker locks.Locker) *PoolServiceImpl {
	return &PoolServiceImpl{
		pools:  pools,
		locker: locker,
		intN:   rand.IntN,
	}
}

func poolLockKey(raffleID primitive.ObjectID) string {
	return "pool:" + raffleID.Hex()
}

// Reserve claims quantity numbers chosen uniformly at random among the unclaimed ones
func (s *PoolServiceImpl) Reserve(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int, reservationID string, quantity int) ([]int, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if quantity > totalNumbers {
		return nil, ErrInsufficientSupply
	}

	unlock, err := s.locker.Lock(ctx, poolLockKey(raffleID))
	if err != nil {
		if errors.Is(err, locks.ErrLockTimeout) {
			return nil, ErrPoolBusy
		}
		return nil, fmt.Errorf("failed to lock pool: %w", err)
	}
	defer unlock()

	for attempt := 0; attempt < holdAttempts; attempt++ {
		pool, err := s.loadPool(ctx, raffleID, totalNumbers)
		if err != nil {
			return nil, err
		}
		if pool.Available() < quantity {
			return nil, ErrInsufficientSupply
		}

		numbers := s.pick(pool, quantity)
		err = s.pools.Hold(ctx, raffleID, reservationID, numbers, pool.Version)
		if err == nil {
			slog.Info("Numbers reserved", "raffleId", raffleID.Hex(), "reservationId", reservationID, "quantity", quantity)
			return numbers, nil
		}
		if !errors.Is(err, repositories.ErrVersionConflict) {
			return nil, fmt.Errorf("failed to hold numbers: %w", err)
		}
		slog.Debug("Pool changed while reserving, retrying", "raffleId", raffleID.Hex(), "attempt", attempt+1)
	}
	return nil, ErrPoolBusy
}

// Release drops the hold of a reservation. It is idempotent.
func (s *PoolServiceImpl) Release(ctx context.Context, raffleID primitive.ObjectID, reservationID string) (bool, error) {
	released, err := s.pools.Release(ctx, raffleID, reservationID)
	if err != nil {
		return false, fmt.Errorf("failed to release numbers: %w", err)
	}
	if released {
		slog.Info("Numbers released", "raffleId", raffleID.Hex(), "reservationId", reservationID)
	}
	return released, nil
}

// Commit moves a reservation's hold into the sold set. It is idempotent.
func (s *PoolServiceImpl) Commit(ctx context.Context, raffleID primitive.ObjectID, reservationID string, numbers []int) (bool, error) {
	committed, err := s.pools.Commit(ctx, raffleID, reservationID, numbers)
	if err != nil {
		return false, fmt.Errorf("failed to commit numbers: %w", err)
	}
	if committed {
		slog.Info("Numbers sold", "raffleId", raffleID.Hex(), "reservationId", reservationID, "quantity", len(numbers))
	}
	return committed, nil
}

// Availability summarizes the pool, creating it on first use
func (s *PoolServiceImpl) Availability(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.PoolAvailability, error) {
	pool, err := s.loadPool(ctx, raffleID, totalNumbers)
	if err != nil {
		return nil, err
	}
	return &models.PoolAvailability{
		RaffleID:  raffleID,
		Total:     pool.TotalNumbers,
		Sold:      len(pool.Sold),
		Held:      pool.HeldCount(),
		Available: pool.Available(),
	}, nil
}

func (s *PoolServiceImpl) loadPool(ctx context.Context, raffleID primitive.ObjectID, totalNumbers int) (*models.RafflePool, error) {
	pool, err := s.pools.FindByRaffleID(ctx, raffleID)
	if errors.Is(err, repositories.ErrNotFound) {
		pool, err = s.pools.Ensure(ctx, raffleID, totalNumbers)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load pool: %w", err)
	}
	return pool, nil
}

// pick chooses quantity distinct unclaimed numbers. Sparse pools are sampled by
// rejection; dense pools enumerate the free numbers and shuffle a prefix.
func (s *PoolServiceImpl) pick(pool *models.RafflePool, quantity int) []int {
	claimed := pool.Claimed()
	free := pool.TotalNumbers - len(claimed)
	out := make([]int, 0, quantity)

	if quantity*4 <= free {
		picked := make(map[int]struct{}, quantity)
		for len(out) < quantity {
			n := s.intN(pool.TotalNumbers) + 1
			if _, taken := claimed[n]; taken {
				continue
			}
			if _, dup := picked[n]; dup {
				continue
			}
			picked[n] = struct{}{}
			out = append(out, n)
		}
	} else {
		candidates := make([]int, 0, free)
		for n := 1; n <= pool.TotalNumbers; n++ {
			if _, taken := claimed[n]; !taken {
				candidates = append(candidates, n)
			}
		}
		for i := 0; i < quantity; i++ {
			j := i + s.intN(len(candidates)-i)
			candidates[i], candidates[j] = candidates[j], candidates[i]
		}
		out = append(out, candidates[:quantity]...)
	}

	sort.Ints(out)
	return out
}
