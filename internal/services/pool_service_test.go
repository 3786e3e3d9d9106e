package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ArowuTest/rifamania-backend/internal/locks"
	"github.com/ArowuTest/rifamania-backend/internal/repositories/memory"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPoolService_ConcurrentReservationsNeverOverlap(t *testing.T) {
	pools := memory.NewPoolRepository()
	svc := NewPoolService(pools, locks.NewLocalLocker())
	raffleID := primitive.NewObjectID()

	const (
		total    = 100
		requests = 100
		quantity = 5
	)

	var (
		wg           sync.WaitGroup
		mu           sync.Mutex
		successes    int
		insufficient int
		seen         = make(map[int]string)
	)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resID := fmt.Sprintf("res-%d", i)
			numbers, err := svc.Reserve(context.Background(), raffleID, total, resID, quantity)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
				if len(numbers) != quantity {
					t.Errorf("expected %d numbers, got %d", quantity, len(numbers))
				}
				for _, n := range numbers {
					if n < 1 || n > total {
						t.Errorf("number %d out of range", n)
					}
					if owner, dup := seen[n]; dup {
						t.Errorf("number %d given to %s and %s", n, owner, resID)
					}
					seen[n] = resID
				}
			case errors.Is(err, ErrInsufficientSupply):
				insufficient++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if successes != total/quantity {
		t.Fatalf("expected %d successful reservations, got %d", total/quantity, successes)
	}
	if insufficient != requests-successes {
		t.Fatalf("expected %d InsufficientSupply failures, got %d", requests-successes, insufficient)
	}
	if len(seen) != total {
		t.Fatalf("expected every number to be held once, got %d", len(seen))
	}
}

func TestPoolService_ReleaseIsIdempotent(t *testing.T) {
	pools := memory.NewPoolRepository()
	svc := NewPoolService(pools, locks.NewLocalLocker())
	raffleID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, raffleID, 10, "res-1", 10); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if _, err := svc.Reserve(ctx, raffleID, 10, "res-2", 1); !errors.Is(err, ErrInsufficientSupply) {
		t.Fatalf("expected pool to be exhausted, got %v", err)
	}

	released, err := svc.Release(ctx, raffleID, "res-1")
	if err != nil || !released {
		t.Fatalf("expected first release to free numbers, got %v %v", released, err)
	}
	writes := pools.Writes()
	released, err = svc.Release(ctx, raffleID, "res-1")
	if err != nil || released {
		t.Fatalf("expected second release to be a no-op, got %v %v", released, err)
	}
	if pools.Writes() != writes {
		t.Fatalf("expected no write on second release")
	}

	avail, err := svc.Availability(ctx, raffleID, 10)
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if avail.Available != 10 || avail.Held != 0 || avail.Sold != 0 {
		t.Fatalf("unexpected availability: %+v", avail)
	}
}

func TestPoolService_CommittedNumbersAreNotReleased(t *testing.T) {
	pools := memory.NewPoolRepository()
	svc := NewPoolService(pools, locks.NewLocalLocker())
	raffleID := primitive.NewObjectID()
	ctx := context.Background()

	numbers, err := svc.Reserve(ctx, raffleID, 20, "res-1", 3)
	if err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if committed, err := svc.Commit(ctx, raffleID, "res-1", numbers); err != nil || !committed {
		t.Fatalf("expected commit, got %v %v", committed, err)
	}
	if committed, _ := svc.Commit(ctx, raffleID, "res-1", numbers); committed {
		t.Fatalf("expected second commit to be a no-op")
	}
	if released, _ := svc.Release(ctx, raffleID, "res-1"); released {
		t.Fatalf("expected committed numbers to stay sold")
	}

	avail, _ := svc.Availability(ctx, raffleID, 20)
	if avail.Sold != 3 || avail.Available != 17 {
		t.Fatalf("unexpected availability: %+v", avail)
	}
}

func TestPoolService_DensePoolPicksRemainingNumbers(t *testing.T) {
	pools := memory.NewPoolRepository()
	svc := NewPoolService(pools, locks.NewLocalLocker())
	raffleID := primitive.NewObjectID()
	ctx := context.Background()

	if _, err := svc.Reserve(ctx, raffleID, 6, "a", 4); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	rest, err := svc.Reserve(ctx, raffleID, 6, "b", 2)
	if err != nil {
		t.Fatalf("reserve rest: %v", err)
	}
	pool, _ := pools.FindByRaffleID(ctx, raffleID)
	for _, n := range pool.Holds["a"] {
		for _, m := range rest {
			if n == m {
				t.Fatalf("number %d reserved twice", n)
			}
		}
	}
}

func TestPoolService_RejectsInvalidQuantity(t *testing.T) {
	svc := NewPoolService(memory.NewPoolRepository(), locks.NewLocalLocker())
	if _, err := svc.Reserve(context.Background(), primitive.NewObjectID(), 10, "r", 0); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Reserve(context.Background(), primitive.NewObjectID(), 10, "r", 11); !errors.Is(err, ErrInsufficientSupply) {
		t.Fatalf("expected ErrInsufficientSupply, got %v", err)
	}
}

type busyLocker struct{}

func (busyLocker) Lock(context.Context, string) (func(), error) { return nil, locks.ErrLockTimeout }

func TestPoolService_LockTimeoutIsPoolBusy(t *testing.T) {
	svc := NewPoolService(memory.NewPoolRepository(), busyLocker{})
	if _, err := svc.Reserve(context.Background(), primitive.NewObjectID(), 10, "r", 1); !errors.Is(err, ErrPoolBusy) {
		t.Fatalf("expected ErrPoolBusy, got %v", err)
	}
}
