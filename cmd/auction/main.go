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

	"github.com/gavelworks/auctionhouse/internal/auction/application"
	"github.com/gavelworks/auctionhouse/internal/auction/domain"
	"github.com/gavelworks/auctionhouse/internal/auction/infrastructure/messaging"
	persistencemysql "github.com/gavelworks/auctionhouse/internal/auction/infrastructure/persistence/mysql"
	consumeriface "github.com/gavelworks/auctionhouse/internal/auction/interfaces/consumer"
	httpiface "github.com/gavelworks/auctionhouse/internal/auction/interfaces/http"
	"github.com/gavelworks/auctionhouse/pkg/config"
	"github.com/gavelworks/auctionhouse/pkg/contracts"
	"github.com/gavelworks/auctionhouse/pkg/db"
	"github.com/gavelworks/auctionhouse/pkg/logger"
	"github.com/gavelworks/auctionhouse/pkg/metrics"
	"github.com/gavelworks/auctionhouse/pkg/middleware"
	"github.com/gavelworks/auctionhouse/pkg/mq"
)

func main() {
	configPath := flag.String("config", "configs/auction.toml", "path to config file")
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

	if err := database.AutoMigrate(&domain.Auction{}); err != nil {
		logger.Fatal(ctx, "failed to migrate database", "error", err)
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

	repo := persistencemysql.NewAuctionRepo(database.DB)
	publisher := messaging.NewKafkaPublisher(producer)
	app := application.NewAuctionService(repo, publisher, slogger)

	dispatcher := mq.NewDispatcher(kafkaCfg, producer)
	dispatcher.OnRetry = func(topic string) { m.ConsumerRetriesTotal.WithLabelValues(topic).Inc() }
	dispatcher.OnDeadLetter = func(topic string) { m.ConsumerDeadLettersTotal.WithLabelValues(topic).Inc() }
	consumeriface.NewEventHandler(app, slogger).Register(dispatcher)
	dispatcher.Register(contracts.TopicDeadLetter, consumeriface.NewFaultRouter(slogger))
	go dispatcher.Run(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(), middleware.Logging(), middleware.Metrics(m))
	httpiface.NewAuctionHandler(app).RegisterRoutes(router)

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
	logger.Info(context.Background(), "shutting down auction service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "http server shutdown failed", "error", err)
	}
}
