package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/auction-engine/internal/config"
	"github.com/iliyamo/auction-engine/internal/database"
	"github.com/iliyamo/auction-engine/internal/handler"
	"github.com/iliyamo/auction-engine/internal/logging"
	"github.com/iliyamo/auction-engine/internal/notify"
	"github.com/iliyamo/auction-engine/internal/queue"
	"github.com/iliyamo/auction-engine/internal/repository"
	"github.com/iliyamo/auction-engine/internal/router"
	"github.com/iliyamo/auction-engine/internal/service"
)

// relay is implemented by the Redis and NATS brokers.
type relay interface {
	notify.Publisher
	Relay(ctx context.Context, local notify.Publisher) error
}

func main() {
	cfg := config.Load()
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
		MaxConns: cfg.DBMaxConn,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate schema")
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn().Msg("redis unavailable: rate limiting and caching disabled")
	} else {
		defer rdb.Close()
	}

	hub := notify.NewHub(cfg.HubBuffer, log)
	broker, closeBroker := newBroker(cfg, rdb, log)
	defer closeBroker()

	// Events go to the broker, whose relay feeds the local hub on every
	// instance.  Without a broker they go straight to the hub.
	var pubs notify.Fanout
	if broker != nil {
		pubs = append(pubs, broker)
	} else {
		pubs = append(pubs, hub)
	}
	if cfg.RabbitMQURL != "" {
		pubs = append(pubs, notify.EndedOnly{Next: notify.NewQueuePublisher(cfg.RabbitMQURL, log)})
	}

	store := service.Store{
		Auctions: repository.NewAuctionRepo(db),
		Bids:     repository.NewBidRepo(db),
		Users:    repository.NewUserRepo(db),
		Items:    repository.NewItemRepo(db),
		Payments: repository.NewPaymentRepo(db),
	}
	opts := service.Options{
		TxTimeout:  cfg.TxTimeout,
		BidRetries: cfg.BidRetries,
		EndRetries: cfg.EndRetries,
	}
	engine := service.NewBidEngine(store, pubs, log, opts)
	queries := service.NewQueries(store, opts)
	lifecycle := service.NewLifecycle(store, pubs, log, opts)
	settlement := service.NewSettlement(store, opts)
	scheduler := service.NewScheduler(lifecycle, cfg.SweepInterval, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID(), echomw.Recover(), logging.RequestLogger(log))
	router.Register(e, router.Deps{
		DB:        db,
		Auctions:  handler.NewAuctionHandler(engine, queries, lifecycle),
		Payments:  handler.NewPaymentHandler(settlement),
		WS:        handler.NewWSHandler(hub, queries, log),
		JWTSecret: cfg.JWTSecret,
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	})

	g, gctx := errgroup.WithContext(ctx)
	// A dead relay or consumer degrades notifications only; bidding keeps
	// running.
	if broker != nil {
		g.Go(func() error {
			if err := broker.Relay(gctx, hub); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("event relay stopped")
			}
			return nil
		})
	}
	if cfg.RabbitMQURL != "" {
		g.Go(func() error {
			_ = queue.NewConsumer(cfg.RabbitMQURL, log).Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	scheduler.Start(gctx)

	g.Go(func() error {
		<-gctx.Done()
		scheduler.Stop()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped with error")
		return
	}
	log.Info().Msg("server stopped")
}

// newBroker picks the cross-instance transport.  It returns nil when events
// should stay in process.
func newBroker(cfg config.Config, rdb *redis.Client, log zerolog.Logger) (relay, func()) {
	switch cfg.Broker {
	case config.BrokerRedis:
		if rdb == nil {
			log.Warn().Msg("redis broker requested but redis is unavailable, events stay in process")
			return nil, func() {}
		}
		return notify.NewRedisBroker(rdb, log), func() {}
	case config.BrokerNATS:
		nc, err := nats.Connect(cfg.NATSURL, nats.Name("auction-engine"), nats.MaxReconnects(-1))
		if err != nil {
			log.Warn().Err(err).Msg("nats unavailable, events stay in process")
			return nil, func() {}
		}
		return notify.NewNATSBroker(nc, log), nc.Close
	}
	return nil, func() {}
}
