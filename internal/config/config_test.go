package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("KAFKA_BROKERS", "")
	t.Setenv("JWT_TTL_MINUTES", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("want default port 8080, got %q", cfg.Port)
	}
	if cfg.KafkaBrokers != nil {
		t.Fatalf("kafka should be disabled by default, got %v", cfg.KafkaBrokers)
	}
	if cfg.JWTTTL != time.Hour {
		t.Fatalf("want 1h jwt ttl, got %v", cfg.JWTTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("CACHE_TTL_SECONDS", "30")
	t.Setenv("PAYMENT_API_URL", "http://pay.local/")
	t.Setenv("APP_ENV", "production")
	cfg := Load()
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[1] != "k2:9092" {
		t.Fatalf("bad brokers: %v", cfg.KafkaBrokers)
	}
	if cfg.CacheTTL != 30*time.Second {
		t.Fatalf("bad cache ttl: %v", cfg.CacheTTL)
	}
	if cfg.PaymentAPIURL != "http://pay.local" {
		t.Fatalf("trailing slash not trimmed: %q", cfg.PaymentAPIURL)
	}
	if !cfg.Production() {
		t.Fatal("expected production")
	}
}
