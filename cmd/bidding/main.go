package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gavelworks/auctionhouse/internal/bidding/application"
	"github.com/gavelworks/auctionhouse/internal/bidding/domain"
	"github.com/gavelworks/auctionhouse/internal/bidding/infrastructure/messaging"
	persistencemysql "github.com/gavelworks/auctionhouse/internal/bidding/infrastructure/persistence/mysql"
	consumeriface "github.com/gavelworks/auctionhouse/internal/bidding/interfaces/consumer"
	httpiface "github.com/gavelworks/auctionhouse/internal/bidding/interfaces/http"
	"github.com/gavelworks/auctionhouse/pkg/cache"
	"github.com/gavelworks/auctionhouse/pkg/config"
	"github.com/gavelworks/auctionhouse/pkg/db"
	"github.com/gavelworks/auctionhouse/pkg/logger"
	"github.com/gavelworks/auctionhouse/pkg/metrics"
	"github.com/gavelworks/auctionhouse/pkg/middleware"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/bidding.toml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Logger); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slogger := logger.Get()

	database, err := db.Init(db.Config{
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init database", "error", err)
	}
	defer database.Close()

	if err := database.AutoMigrate(&domain.Bid{}, &domain.AuctionSnapshot{}); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
	}

	var highBidCache application.HighBidCache
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		// 缓存不可用只降级查询路径，不阻塞启动
		logger.Warn(ctx, "redis unavailable, high bid cache disabled", "error", err)
	} else {
		highBidCache = redisCache
		defer redisCache.Close()
	}

	kafkaCfg := mq.Config{
		Brokers:              cfg.Kafka.Brokers,
		GroupID:              cfg.Kafka.GroupID,
		SessionTimeout:       cfg.Kafka.SessionTimeout,
		MaxRetries:           cfg.Kafka.MaxRetries,
		RetryBackoff:         cfg.Kafka.RetryBackoff,
		ConsumerMaxAttempts:  cfg.Kafka.ConsumerMaxAttempts,
		ConsumerRetryBackoff: cfg.Kafka.ConsumerRetryBackoff,
	}
	producer := mq.NewProducer(kafkaCfg)
	defer producer.Close()

	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		go func() {
			if err := m.Serve(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server exited", "error", err)
			}
		}()
	}

	bidRepo := persistencemysql.NewBidRepo(database.DB)
	snapshotRepo := persistencemysql.NewSnapshotRepo(database.DB)
	publisher := messaging.NewKafkaPublisher(producer)
	app := application.NewBiddingService(bidRepo, snapshotRepo, publisher, highBidCache, slogger)

	scanner := application.NewScanner(snapshotRepo, bidRepo, publisher, slogger,
		time.Duration(cfg.Scanner.Interval)*time.Second, cfg.Scanner.BatchSize)
	scanner.OnScanPass = func() { m.ScanPassesTotal.Inc() }
	scanner.OnSettled = func(itemSold bool) {
		outcome := "reserve_not_met"
		if itemSold {
			outcome = "sold"
		}
		m.AuctionsSettledTotal.WithLabelValues(outcome).Inc()
	}
	go scanner.Run(ctx)

	dispatcher := mq.NewDispatcher(kafkaCfg, producer)
	dispatcher.OnRetry = func(topic string) { m.ConsumerRetriesTotal.WithLabelValues(topic).Inc() }
	dispatcher.OnDeadLetter = func(topic string) { m.ConsumerDeadLettersTotal.WithLabelValues(topic).Inc() }
	consumeriface.NewEventHandler(app, slogger).Register(dispatcher)
	go dispatcher.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics(m))
	httpiface.NewBidHandler(app, scanner, m).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}
	go func() {
		logger.Info(ctx, "http server started", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "http server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info(context.Background(), "shutting down bidding service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", "error", err)
	}
}
