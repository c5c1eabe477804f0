package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	aws_pkg "github.com/plantbazaar/backend/pkg/aws"
)

type Config struct {
	Port string
	Env  string

	MongoURI string
	MongoDB  string
	RedisURL string
	CartTTL  time.Duration

	KafkaBrokers []string
	KafkaTopic   string
	SNSTopicARN  string

	CarrierBaseURL  string
	CarrierEmail    string
	CarrierPassword string
	CarrierTimeout  time.Duration
	CarrierTokenTTL time.Duration

	ReconcileInterval time.Duration

	PublicBaseURL  string
	PushWebhookURL string
	JWTSecret      string
}

func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("APP_ENV", "development"),

		MongoURI: getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:  getEnv("MONGO_DB", "plantbazaar"),
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379"),
		CartTTL:  getDuration("CART_TTL", time.Hour*24*7),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   getEnv("ORDER_EVENTS_TOPIC", "order.events"),
		SNSTopicARN:  os.Getenv("SNS_TOPIC_ARN"),

		CarrierBaseURL:  getEnv("CARRIER_BASE_URL", "https://apiv2.shiprocket.in/v1/external"),
		CarrierEmail:    os.Getenv("CARRIER_EMAIL"),
		CarrierPassword: os.Getenv("CARRIER_PASSWORD"),
		CarrierTimeout:  getDuration("CARRIER_TIMEOUT", 10*time.Second),
		CarrierTokenTTL: getDuration("CARRIER_TOKEN_TTL", 23*time.Hour),

		ReconcileInterval: getDuration("RECONCILE_INTERVAL", 15*time.Minute),

		PublicBaseURL:  getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		PushWebhookURL: os.Getenv("PUSH_WEBHOOK_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
	}

	if os.Getenv("AWS_USE_SECRETS") == "true" {
		if awsCfg, err := aws_pkg.LoadAWSConfig(context.Background()); err == nil {
			sm := aws_pkg.NewSecretsClient(awsCfg)

			if raw, err := sm.GetSecret(context.Background(), "carrier/CREDENTIALS"); err == nil && raw != "" {
				var m map[string]string
				if err := json.Unmarshal([]byte(raw), &m); err == nil {
					if v, ok := m["CARRIER_EMAIL"]; ok && v != "" {
						cfg.CarrierEmail = v
					}
					if v, ok := m["CARRIER_PASSWORD"]; ok && v != "" {
						cfg.CarrierPassword = v
					}
				}
			}
		}
	}

	if cfg.CarrierEmail == "" || cfg.CarrierPassword == "" {
		return nil, fmt.Errorf("carrier credentials incomplete: set CARRIER_EMAIL and CARRIER_PASSWORD")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
