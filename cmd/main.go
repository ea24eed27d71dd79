package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/velstore/settlement-service/internal/carrier"
	"github.com/velstore/settlement-service/internal/config"
	"github.com/velstore/settlement-service/internal/kafka"
	"github.com/velstore/settlement-service/internal/logger"
	"github.com/velstore/settlement-service/internal/migrate"
	"github.com/velstore/settlement-service/internal/notify"
	"github.com/velstore/settlement-service/internal/presentation"
	"github.com/velstore/settlement-service/internal/repository"
	"github.com/velstore/settlement-service/internal/settlement"
)

func main() {
	_ = godotenv.Load()
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}

	loc, err := time.LoadLocation(cfg.TIMEZONE)
	if err != nil {
		logger.Warn("bad TIMEZONE, falling back to UTC", "tz", cfg.TIMEZONE, "err", err)
		loc = time.UTC
	}

	// Wiring
	orders := repository.NewOrderRepository(pool)
	inventory := repository.NewInventoryRepository(pool)
	activity := repository.NewActivityRepository(pool)
	carts := repository.NewCartRepository(pool)

	carrierCli := carrier.New(cfg.CARRIER_URL, cfg.CARRIER_TOKEN, cfg.EXTERNAL_TIMEOUT)
	mailer := notify.NewMailer(cfg.MAIL_URL, cfg.MAIL_API_KEY, cfg.MAIL_FROM, cfg.EXTERNAL_TIMEOUT)
	whatsapp := notify.NewWhatsApp(cfg.WHATSAPP_URL, cfg.WHATSAPP_TOKEN, cfg.EXTERNAL_TIMEOUT)

	// Kafka producer: событие "заказ рассчитан" для даунстрима
	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
	defer prod.Close()

	svc := settlement.NewService(orders, inventory, activity, carts,
		carrierCli, mailer, whatsapp, prod,
		settlement.Options{
			PickupPincode:  cfg.PICKUP_PINCODE,
			PickupLocation: cfg.PICKUP_LOCATION,
			OpsPhone:       cfg.OPS_PHONE,
			Location:       loc,
		})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	// таймаут держим ниже вебхучного таймаута провайдера, иначе он сам
	// посчитает доставку неуспешной и начнёт редоставлять
	r.Use(middleware.Timeout(25 * time.Second))

	h := presentation.NewWebhookHandler(svc, cfg.WEBHOOK_SECRET)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
