package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults when only the payment key is set", func(t *testing.T) {
		t.Setenv("MONOBANK_API_KEY", "test-token")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if cfg.HTTP.Port != defaultHTTPPort {
			t.Errorf("expected port %d, got %d", defaultHTTPPort, cfg.HTTP.Port)
		}
		if cfg.Database.Driver != "postgres" {
			t.Errorf("expected postgres driver, got %s", cfg.Database.Driver)
		}
		if cfg.Payment.BaseURL != defaultPaymentBaseURL {
			t.Errorf("expected base url %s, got %s", defaultPaymentBaseURL, cfg.Payment.BaseURL)
		}
		if cfg.Payment.Timeout != defaultPaymentTimeout {
			t.Errorf("expected timeout %s, got %s", defaultPaymentTimeout, cfg.Payment.Timeout)
		}
		if cfg.Payment.KeyTTL != 0 {
			t.Errorf("expected key ttl 0, got %s", cfg.Payment.KeyTTL)
		}
		if len(cfg.Kafka.Brokers) != 0 {
			t.Errorf("expected no brokers, got %v", cfg.Kafka.Brokers)
		}
		if cfg.Payment.TrustForwardedProto {
			t.Error("expected X-Forwarded-Proto to be untrusted by default")
		}
		if cfg.HTTP.IdempotencyTTL != defaultIdempotencyTTL {
			t.Errorf("expected idempotency ttl %s, got %s", defaultIdempotencyTTL, cfg.HTTP.IdempotencyTTL)
		}
	})

	t.Run("rejects an invalid idempotency ttl", func(t *testing.T) {
		t.Setenv("MONOBANK_API_KEY", "test-token")
		t.Setenv("IDEMPOTENCY_TTL", "a day")

		if _, err := Load(); err == nil {
			t.Fatal("expected error for invalid IDEMPOTENCY_TTL")
		}
	})

	t.Run("requires the payment key", func(t *testing.T) {
		t.Setenv("MONOBANK_API_KEY", "")

		_, err := Load()
		if !errors.Is(err, ErrMissingPaymentKey) {
			t.Fatalf("expected ErrMissingPaymentKey, got %v", err)
		}
	})

	t.Run("reads payment overrides", func(t *testing.T) {
		t.Setenv("MONOBANK_API_KEY", "test-token")
		t.Setenv("MONOBANK_BASE_URL", "http://localhost:9000/")
		t.Setenv("PAYMENT_TIMEOUT", "3s")
		t.Setenv("PAYMENT_KEY_TTL", "10m")
		t.Setenv("PAYMENT_MAX_RETRIES", "0")
		t.Setenv("PAYMENT_WEBHOOK_URL", "https://shop.example.com/v1/payments/callback")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if cfg.Payment.BaseURL != "http://localhost:9000" {
			t.Errorf("expected trailing slash trimmed, got %s", cfg.Payment.BaseURL)
		}
		if cfg.Payment.Timeout != 3*time.Second {
			t.Errorf("expected 3s timeout, got %s", cfg.Payment.Timeout)
		}
		if cfg.Payment.KeyTTL != 10*time.Minute {
			t.Errorf("expected 10m key ttl, got %s", cfg.Payment.KeyTTL)
		}
		if cfg.Payment.MaxRetries != 0 {
			t.Errorf("expected 0 retries, got %d", cfg.Payment.MaxRetries)
		}
		if cfg.Payment.WebhookURL == "" {
			t.Error("expected webhook url to be set")
		}
	})

	t.Run("splits and trims kafka brokers", func(t *testing.T) {
		t.Setenv("MONOBANK_API_KEY", "test-token")
		t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() failed: %v", err)
		}

		if len(cfg.Kafka.Brokers) != 2 {
			t.Fatalf("expected 2 brokers, got %v", cfg.Kafka.Brokers)
		}
		if cfg.Kafka.Brokers[1] != "kafka-2:9092" {
			t.Errorf("expected trimmed broker, got %q", cfg.Kafka.Brokers[1])
		}
	})

	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid port", "API_HTTP_PORT", "eighty"},
		{"invalid sample rate", "OTEL_SAMPLE_RATE", "all"},
		{"invalid payment timeout", "PAYMENT_TIMEOUT", "ten"},
		{"zero payment timeout", "PAYMENT_TIMEOUT", "0s"},
		{"negative payment timeout", "PAYMENT_TIMEOUT", "-5s"},
		{"negative retries", "PAYMENT_MAX_RETRIES", "-1"},
		{"unknown storage driver", "STORAGE_DRIVER", "sqlite"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MONOBANK_API_KEY", "test-token")
			t.Setenv(tt.key, tt.value)

			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", tt.key, tt.value)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	content := "MONOBANK_API_KEY=from-file\nKAFKA_TOPIC_PREFIX=dotenv.\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	t.Chdir(dir)
	t.Setenv("MONOBANK_API_KEY", "from-env")
	t.Cleanup(func() { _ = os.Unsetenv("KAFKA_TOPIC_PREFIX") })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Payment.APIKey != "from-env" {
		t.Errorf("expected process environment to win, got %s", cfg.Payment.APIKey)
	}
	if cfg.Kafka.TopicPrefix != "dotenv." {
		t.Errorf("expected topic prefix from .env, got %s", cfg.Kafka.TopicPrefix)
	}
}
