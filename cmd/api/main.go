package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"krostyshop/internal/clock"
	"krostyshop/internal/config"
	httpx "krostyshop/internal/http"
	"krostyshop/internal/mailer"
	"krostyshop/internal/provider/binance"
	"krostyshop/internal/rates"
	"krostyshop/internal/realtime"
	"krostyshop/internal/services/auth"
	catalogsvc "krostyshop/internal/services/catalog"
	"krostyshop/internal/services/chat"
	"krostyshop/internal/services/data"
	"krostyshop/internal/services/event"
	ordersvc "krostyshop/internal/services/order"
	"krostyshop/internal/services/payment"
	"krostyshop/internal/storage"
	"krostyshop/internal/store/postgres"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init DB
	pool := postgres.MustOpen(ctx, cfg.DB.DSN)
	defer pool.Close()
	if err := postgres.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	// Redis is optional: without it the hub stays local and rates are cached in memory
	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, running single-instance")
			_ = client.Close()
		} else {
			rdb = client
			defer client.Close()
		}
	}

	hub := realtime.NewHub(rdb)
	go hub.Run(ctx)

	var rateCache rates.Cache = rates.NewMemoryCache()
	if rdb != nil {
		rateCache = rates.NewRedisCache(rdb)
	}
	rateProvider := rates.NewCached(rates.NewClient(cfg.Rate.URL), rateCache, cfg.Rate.TTL)

	proofs, err := storage.NewFS(cfg.Storage.Dir, cfg.Storage.PublicURL, cfg.Storage.MaxProofBytes)
	if err != nil {
		log.Fatal().Err(err).Str("dir", cfg.Storage.Dir).Msg("proof storage unavailable")
	}

	var mail mailer.Mailer = mailer.NewLog()
	if cfg.SMTP.Host != "" {
		mail = mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	}

	clk := clock.NewSystem()

	products := postgres.NewProductRepository(pool)
	orders := postgres.NewOrderRepository(pool)
	events := postgres.NewEventRepository(pool)

	authSvc := auth.NewService(postgres.NewUserRepository(pool), auth.NewTokenIssuer(cfg.Auth.JWTSecret), mail, clk, auth.Config{
		TokenTTL: cfg.Auth.TokenTTL,
		ResetTTL: cfg.Auth.ResetTTL,
		BaseURL:  cfg.App.BaseURL,
	})
	catalog := catalogsvc.NewService(products)
	hosted := binance.New(binance.Config{
		APIKey:    cfg.Binance.APIKey,
		SecretKey: cfg.Binance.SecretKey,
		BaseURL:   cfg.Binance.BaseURL,
		MaxSkew:   cfg.Binance.WebhookMaxAge,
	})

	// Start event processing worker
	worker := event.NewEventProcessingSystem(pool, hub, event.WorkerConfig{
		PollInterval: cfg.Worker.PollInterval,
		BatchSize:    cfg.Worker.BatchSize,
	})
	go worker.Run(ctx)

	// Router
	r := httpx.NewRouter(httpx.RouterDependencies{
		Config:         cfg,
		AuthService:    authSvc,
		CatalogService: catalog,
		OrderService:   ordersvc.NewService(orders, catalog, rateProvider, proofs, hub, clk),
		ChatService:    chat.NewService(orders, postgres.NewMessageRepository(pool), hub, clk),
		PaymentService: payment.NewService(orders, events, catalog, hosted, hub, clk, cfg.App.BaseURL),
		DataService:    data.NewService(orders, events),
		ReplayService:  event.NewReplayService(events),
		Hub:            hub,
		Proofs:         proofs.Handler(),
	})

	// no WriteTimeout: it would cut websocket streams; writes there carry their own deadline
	srv := &http.Server{
		Addr:        ":" + cfg.App.Port,
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Msgf("KrostyShop API listening on :%s", cfg.App.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	cancel()
	ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	log.Info().Msg("server stopped")
}
