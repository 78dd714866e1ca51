package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	rd "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"storefront/internal/cart"
	"storefront/internal/checkout"
	"storefront/internal/config"
	"storefront/internal/events"
	"storefront/internal/model"
	"storefront/internal/payment"
	"storefront/internal/router"
	"storefront/internal/session"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	db, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		logger.Fatal("db open", zap.Error(err))
	}
	if err := db.AutoMigrate(
		&model.Product{},
		&model.ProductVariant{},
		&model.User{},
		&model.Order{},
		&model.OrderDetail{},
	); err != nil {
		logger.Fatal("db migrate", zap.Error(err))
	}

	rdb := rd.NewClient(&rd.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("redis ping", zap.Error(err))
	}

	producer := events.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer producer.Close()
	outbox := events.NewOutbox(rdb, cfg.OrderEventStream)
	relay := events.NewRelay(rdb, producer, logger, cfg.OrderEventStream, cfg.OrderEventGroup, cfg.OrderEventConsumer)

	relayCtx, stopRelay := context.WithCancel(context.Background())
	go relay.Run(relayCtx)

	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)
	reconciler := payment.NewReconciler(db, gateway, outbox, logger)
	creator := checkout.NewCreator(db, logger)

	r := gin.New()
	r.Use(gin.Recovery())
	router.Setup(r, router.Deps{
		DB:             db,
		Cart:           cart.NewRedisStore(rdb, cfg.SessionTTL),
		Attempts:       session.NewRedisStore(rdb, cfg.SessionTTL),
		Creator:        creator,
		Reconciler:     reconciler,
		Gateway:        gateway,
		Events:         outbox,
		Log:            logger,
		GatewayEnabled: cfg.GatewayEnabled,
		PublicBaseURL:  cfg.PublicBaseURL,
		Redis:          rdb,
		RateLimit:      cfg.CheckoutRateLimit,
		RateWindow:     cfg.CheckoutRateWin,
	})

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: r}
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", zap.Error(err))
	}
}
