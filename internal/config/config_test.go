package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("APP_BASE_URL", "https://shop.example.com/")

	cfg := FromViper(v)

	if cfg.App.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.App.Port)
	}
	if cfg.App.BaseURL != "https://shop.example.com" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.App.BaseURL)
	}
	if cfg.Storage.PublicURL != "https://shop.example.com/proofs" {
		t.Fatalf("unexpected public url %s", cfg.Storage.PublicURL)
	}
	if cfg.Storage.MaxProofBytes != 5<<20 {
		t.Fatalf("unexpected max proof bytes %d", cfg.Storage.MaxProofBytes)
	}
	if cfg.Rate.TTL != time.Minute {
		t.Fatalf("unexpected rate ttl %s", cfg.Rate.TTL)
	}
	if cfg.Binance.WebhookMaxAge != 5*time.Minute {
		t.Fatalf("unexpected webhook skew %s", cfg.Binance.WebhookMaxAge)
	}
	if cfg.Worker.BatchSize != 50 {
		t.Fatalf("unexpected batch size %d", cfg.Worker.BatchSize)
	}
	if cfg.IsProduction() {
		t.Fatal("default env must not be production")
	}
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("APP_ENV", "production")
	v.Set("STORAGE_PUBLIC_URL", "https://cdn.example.com/proofs/")
	v.Set("JWT_TTL", "2h")

	cfg := FromViper(v)

	if !cfg.IsProduction() {
		t.Fatal("expected production")
	}
	if cfg.Storage.PublicURL != "https://cdn.example.com/proofs" {
		t.Fatalf("unexpected public url %s", cfg.Storage.PublicURL)
	}
	if cfg.Auth.TokenTTL != 2*time.Hour {
		t.Fatalf("unexpected token ttl %s", cfg.Auth.TokenTTL)
	}
}
