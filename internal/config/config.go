package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTP_PORT string `env:"HTTP_PORT"`
	DB_STRING string `env:"DB_STRING"`

	// платёжный провайдер
	WEBHOOK_SECRET string `env:"WEBHOOK_SECRET"`

	// перевозчик
	CARRIER_URL     string `env:"CARRIER_URL"`
	CARRIER_TOKEN   string `env:"CARRIER_TOKEN"`
	PICKUP_PINCODE  string `env:"PICKUP_PINCODE"`
	PICKUP_LOCATION string `env:"PICKUP_LOCATION"`

	// нотификации
	MAIL_URL       string `env:"MAIL_URL"`
	MAIL_API_KEY   string `env:"MAIL_API_KEY"`
	MAIL_FROM      string `env:"MAIL_FROM"`
	WHATSAPP_URL   string `env:"WHATSAPP_URL"`
	WHATSAPP_TOKEN string `env:"WHATSAPP_TOKEN"`
	OPS_PHONE      string `env:"OPS_PHONE"`

	KAFKA_BROKERS string `env:"KAFKA_BROKERS"`
	KAFKA_TOPIC   string `env:"KAFKA_TOPIC"`

	// таймаут на один внешний вызов (carrier/mail/whatsapp)
	EXTERNAL_TIMEOUT time.Duration
	TIMEZONE         string `env:"TIMEZONE"`
}

func LoadConfig() (*Config, error) {
	cfg := &Config{
		HTTP_PORT:       os.Getenv("HTTP_PORT"),
		DB_STRING:       os.Getenv("DB_STRING"),
		WEBHOOK_SECRET:  os.Getenv("WEBHOOK_SECRET"),
		CARRIER_URL:     os.Getenv("CARRIER_URL"),
		CARRIER_TOKEN:   os.Getenv("CARRIER_TOKEN"),
		PICKUP_PINCODE:  os.Getenv("PICKUP_PINCODE"),
		PICKUP_LOCATION: os.Getenv("PICKUP_LOCATION"),
		MAIL_URL:        os.Getenv("MAIL_URL"),
		MAIL_API_KEY:    os.Getenv("MAIL_API_KEY"),
		MAIL_FROM:       os.Getenv("MAIL_FROM"),
		WHATSAPP_URL:    os.Getenv("WHATSAPP_URL"),
		WHATSAPP_TOKEN:  os.Getenv("WHATSAPP_TOKEN"),
		OPS_PHONE:       os.Getenv("OPS_PHONE"),
		KAFKA_BROKERS:   os.Getenv("KAFKA_BROKERS"),
		KAFKA_TOPIC:     os.Getenv("KAFKA_TOPIC"),
		TIMEZONE:        os.Getenv("TIMEZONE"),
	}

	if cfg.HTTP_PORT == "" {
		cfg.HTTP_PORT = "8080"
	}
	if cfg.WEBHOOK_SECRET == "" {
		return nil, errors.New("WEBHOOK_SECRET is required")
	}
	if cfg.TIMEZONE == "" {
		cfg.TIMEZONE = "Asia/Kolkata"
	}
	if cfg.KAFKA_TOPIC == "" {
		cfg.KAFKA_TOPIC = "orders.settled"
	}

	cfg.EXTERNAL_TIMEOUT = 10 * time.Second
	if v := os.Getenv("EXTERNAL_TIMEOUT_SEC"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			cfg.EXTERNAL_TIMEOUT = time.Duration(sec) * time.Second
		}
	}

	return cfg, nil
}
