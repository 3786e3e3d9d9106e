// Package app wires configuration, storage, gateways and services for the
// API server and the operator CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ArowuTest/rifamania-backend/internal/config"
	"github.com/ArowuTest/rifamania-backend/internal/locks"
	"github.com/ArowuTest/rifamania-backend/internal/models"
	"github.com/ArowuTest/rifamania-backend/internal/pricing"
	"github.com/ArowuTest/rifamania-backend/internal/repositories"
	"github.com/ArowuTest/rifamania-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/rifamania-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/rifamania-backend/internal/services"
	"github.com/ArowuTest/rifamania-backend/pkg/mongodb"
	"github.com/ArowuTest/rifamania-backend/pkg/mq"
	"github.com/ArowuTest/rifamania-backend/pkg/pixgateway"
	"github.com/redis/go-redis/v9"
	"golang.org/x/exp/slog"
)

// Repositories groups the storage the services need
type Repositories struct {
	Raffles       repositories.RaffleRepository
	Profiles      repositories.SellerProfileRepository
	Pools         repositories.PoolRepository
	Reservations  repositories.ReservationRepository
	Transactions  repositories.TransactionRepository
	WebhookEvents repositories.WebhookEventRepository
}

// App holds the wired services
type App struct {
	Config      *config.Config
	Resolver    *pricing.Resolver
	Pool        *services.PoolServiceImpl
	Purchases   *services.PurchaseServiceImpl
	Publication *services.PublicationServiceImpl
	Reconciler  *services.ReconcilerImpl
	Sweeper     *services.ExpirySweeper

	closers []func(context.Context) error
}

// New connects to the configured backends and builds the services
func New(ctx context.Context, cfg *config.Config) (a *App, err error) {
	a = &App{Config: cfg}
	defer func() {
		if err != nil {
			_ = a.Close(context.Background())
		}
	}()

	repos, err := a.openRepositories(ctx)
	if err != nil {
		return nil, err
	}

	var (
		locker locks.Locker          = locks.NewLocalLocker(locks.WithLocalWait(cfg.Lock.Wait))
		tokens pixgateway.TokenCache = pixgateway.NewMemoryTokenCache()
	)
	if cfg.Redis.Enabled {
		rdb, err := a.openRedis(ctx)
		if err != nil {
			return nil, err
		}
		locker = locks.NewRedisLocker(rdb,
			locks.WithTTL(cfg.Redis.LockTTL),
			locks.WithWait(cfg.Lock.Wait),
			locks.WithLogger(slog.Default()),
		)
		tokens = pixgateway.NewRedisTokenCache(rdb)
	}

	var publisher mq.Publisher = mq.NopPublisher{}
	if cfg.AMQP.URL != "" {
		p, err := mq.NewAMQPPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to AMQP: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return p.Close() })
		publisher = p
	}

	resolver := pricing.MustDefault()
	if len(cfg.Pricing.Tiers) > 0 {
		if resolver, err = pricing.NewResolver(cfg.Pricing.Tiers); err != nil {
			return nil, err
		}
	}
	a.Resolver = resolver

	selector := services.NewGatewaySelector(cfg.WebhookURL,
		pixgateway.NewSyncPaymentsGateway(cfg.Gateways.SyncPaymentsBaseURL, cfg.Gateways.Timeout, tokens),
		pixgateway.NewMercadoPagoGateway(cfg.Gateways.MercadoPagoBaseURL, cfg.Gateways.Timeout),
	)
	trigger := services.NewPublicationTrigger(repos.Raffles, publisher)

	a.Pool = services.NewPoolService(repos.Pools, locker)
	a.Purchases = services.NewPurchaseService(repos.Raffles, repos.Profiles, repos.Reservations, repos.Transactions,
		a.Pool, selector, cfg.Reservation.TTL)
	a.Publication = services.NewPublicationService(repos.Raffles, repos.Transactions, resolver, selector, trigger,
		models.GatewayCredentials{
			SyncPaymentsClientID:     cfg.Platform.SyncPaymentsClientID,
			SyncPaymentsClientSecret: cfg.Platform.SyncPaymentsClientSecret,
			MercadoPagoAccessToken:   cfg.Platform.MercadoPagoAccessToken,
		})
	a.Reconciler = services.NewReconciler(repos.Transactions, repos.Reservations, repos.Raffles, repos.WebhookEvents,
		a.Pool, trigger, publisher)
	a.Sweeper = services.NewExpirySweeper(repos.Reservations, repos.Pools, a.Pool, a.Reconciler, cfg.Sweeper.BatchSize)

	slog.Info("Application wired", "storage", cfg.Storage.Driver, "redis", cfg.Redis.Enabled, "amqp", cfg.AMQP.URL != "")
	return a, nil
}

func (a *App) openRepositories(ctx context.Context) (*Repositories, error) {
	if a.Config.UsesMemoryStorage() {
		slog.Warn("Using in-memory storage; state is lost on restart")
		store := memory.NewStore()
		return &Repositories{
			Raffles:       store.Raffles,
			Profiles:      store.Profiles,
			Pools:         store.Pools,
			Reservations:  store.Reservations,
			Transactions:  store.Transactions,
			WebhookEvents: store.WebhookEvents,
		}, nil
	}

	client, err := mongodb.NewClient(ctx, a.Config.MongoDB.URI, a.Config.MongoDB.Database, a.Config.MongoDB.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Disconnect)

	db := client.Database()
	if err := mongorepo.EnsureIndexes(ctx, db); err != nil {
		return nil, err
	}
	return &Repositories{
		Raffles:       mongorepo.NewRaffleRepository(db),
		Profiles:      mongorepo.NewSellerProfileRepository(db),
		Pools:         mongorepo.NewPoolRepository(db),
		Reservations:  mongorepo.NewReservationRepository(db),
		Transactions:  mongorepo.NewTransactionRepository(db),
		WebhookEvents: mongorepo.NewWebhookEventRepository(db),
	}, nil
}

func (a *App) openRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	a.closers = append(a.closers, func(context.Context) error { return rdb.Close() })

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

// Close releases connections in reverse order of opening
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
