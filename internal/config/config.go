package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// BusinessWindow is a half-open [Open, Close) daily window, minutes
// from midnight.
type BusinessWindow struct {
	OpenMinute  int
	CloseMinute int
}

// Config carries everything injected into services at startup. It is
// never mutated after Load.
type Config struct {
	DatabaseURL         string
	Port                string
	JWTSecret           string
	StripeSecretKey     string
	StripeWebhookSecret string
	CheckoutSuccessURL  string
	CheckoutCancelURL   string
	Currency            string
	TrustScoreURL       string

	LockTTL            time.Duration
	PendingOrderTTL    time.Duration
	GracePeriodMinutes int
	OvertimeMultiplier float64

	// BusinessHours maps weekday to the allowed pickup/return window.
	BusinessHours map[time.Weekday]BusinessWindow
}

func Load() (*Config, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	cfg := &Config{
		DatabaseURL:         dbURL,
		Port:                getEnv("PORT", "8080"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		CheckoutSuccessURL:  getEnv("CHECKOUT_SUCCESS_URL", "http://localhost:3000/orders/confirmation?session_id={CHECKOUT_SESSION_ID}"),
		CheckoutCancelURL:   getEnv("CHECKOUT_CANCEL_URL", "http://localhost:3000/orders/failed?session_id={CHECKOUT_SESSION_ID}"),
		Currency:            getEnv("CURRENCY", "eur"),
		TrustScoreURL:       os.Getenv("TRUST_SCORE_URL"),
		LockTTL:             getEnvDuration("LOCK_TTL", 5*time.Minute),
		PendingOrderTTL:     getEnvDuration("PENDING_ORDER_TTL", 15*time.Minute),
		GracePeriodMinutes:  getEnvInt("OVERTIME_GRACE_MINUTES", 60),
		OvertimeMultiplier:  getEnvFloat("OVERTIME_MULTIPLIER", 1.5),
		BusinessHours:       defaultBusinessHours(),
	}

	if window := os.Getenv("BUSINESS_HOURS"); window != "" {
		w, err := parseWindow(window)
		if err != nil {
			return nil, fmt.Errorf("invalid BUSINESS_HOURS: %w", err)
		}
		for day := time.Sunday; day <= time.Saturday; day++ {
			cfg.BusinessHours[day] = w
		}
	}

	return cfg, nil
}

func defaultBusinessHours() map[time.Weekday]BusinessWindow {
	hours := make(map[time.Weekday]BusinessWindow, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		hours[day] = BusinessWindow{OpenMinute: 8 * 60, CloseMinute: 22 * 60}
	}
	return hours
}

// parseWindow parses "HH:MM-HH:MM" into a BusinessWindow.
func parseWindow(s string) (BusinessWindow, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return BusinessWindow{}, fmt.Errorf("expected HH:MM-HH:MM, got %q", s)
	}
	open, err := parseMinute(parts[0])
	if err != nil {
		return BusinessWindow{}, err
	}
	close, err := parseMinute(parts[1])
	if err != nil {
		return BusinessWindow{}, err
	}
	if close <= open {
		return BusinessWindow{}, fmt.Errorf("close must be after open in %q", s)
	}
	return BusinessWindow{OpenMinute: open, CloseMinute: close}, nil
}

func parseMinute(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
