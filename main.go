package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos-order-service/internal/config"
	"pos-order-service/internal/db"
	httpapi "pos-order-service/internal/http"
	"pos-order-service/internal/logger"
	"pos-order-service/internal/orders"
	"pos-order-service/internal/queue"
	"pos-order-service/internal/stock"
	"pos-order-service/internal/ws"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log, err := logger.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer pool.Close()

	hub := ws.NewHub(log, cfg.CorsAllowedOrigins, cfg.WSHeartbeatInterval)
	sinks := orders.MultiSink{hub}

	var queueClient *queue.Client
	if cfg.RabbitMQURL != "" {
		qc, err := queue.New(cfg.RabbitMQURL)
		if err != nil {
			if cfg.Env == "production" {
				log.Fatal("rabbitmq connection failed", zap.Error(err))
			}
			log.Warn("rabbitmq connection failed; continuing without event mirror", zap.Error(err))
			qc = nil
		}
		if qc != nil {
			publisher, err := queue.NewPublisher(qc, log)
			if err != nil {
				if cfg.Env == "production" {
					log.Fatal("rabbitmq exchange failed", zap.Error(err))
				}
				log.Warn("rabbitmq exchange failed; continuing without event mirror", zap.Error(err))
				_ = qc.Close()
				qc = nil
			} else {
				sinks = append(sinks, publisher)
				log.Info("rabbitmq event mirror enabled", zap.String("exchange", queue.EventsExchange))
			}
		}
		queueClient = qc
		if queueClient != nil {
			defer queueClient.Close()
		}
	} else {
		log.Info("rabbitmq event mirror disabled (RABBITMQ_URL is empty)")
	}

	ledger := stock.New(pool, log)
	engine := orders.NewEngine(pool, log, ledger, sinks)

	apiServer := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      httpapi.NewRouter(pool, log, cfg, engine, ledger, hub),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("pos api ready", zap.String("base", "/api/v1"))
		log.Info("pos ws ready", zap.String("base", "/ws"))
		log.Info("pos order service listening", zap.String("addr", cfg.HTTPAddr))
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer cancel()
	if err := apiServer.Shutdown(ctxShutdown); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}
}
