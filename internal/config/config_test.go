package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Booking.TimeZone != "Asia/Colombo" {
		t.Errorf("expected Asia/Colombo, got %s", cfg.Booking.TimeZone)
	}
	if cfg.Booking.DistanceRate != 1.5 {
		t.Errorf("expected distance rate 1.5, got %v", cfg.Booking.DistanceRate)
	}
	if cfg.Booking.Tax != 2.5 {
		t.Errorf("expected tax 2.5, got %v", cfg.Booking.Tax)
	}
	if cfg.Booking.DriverFee != 50 {
		t.Errorf("expected driver fee 50, got %v", cfg.Booking.DriverFee)
	}
	if cfg.Booking.CancellationWindow != 24*time.Hour {
		t.Errorf("expected 24h window, got %s", cfg.Booking.CancellationWindow)
	}
	if cfg.Booking.CancellationFeeRate != 0.10 {
		t.Errorf("expected fee rate 0.10, got %v", cfg.Booking.CancellationFeeRate)
	}
	if !cfg.Sweeper.Enabled || cfg.Sweeper.Interval != 5*time.Second {
		t.Errorf("unexpected sweeper config: %+v", cfg.Sweeper)
	}
	if cfg.Queue.Enabled {
		t.Error("expected queue to be disabled by default")
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("SWEEPER_INTERVAL", "1s")
	t.Setenv("BOOKING_DRIVER_FEE", "75")
	t.Setenv("QUEUE_ENABLED", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Sweeper.Interval != time.Second {
		t.Errorf("expected 1s interval, got %s", cfg.Sweeper.Interval)
	}
	if cfg.Booking.DriverFee != 75 {
		t.Errorf("expected driver fee 75, got %v", cfg.Booking.DriverFee)
	}
	if !cfg.Queue.Enabled {
		t.Error("expected queue to be enabled")
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	testCases := []struct {
		name  string
		key   string
		value string
	}{
		{"fee rate above one", "BOOKING_CANCELLATION_FEE_RATE", "1.5"},
		{"negative tax", "BOOKING_TAX", "-1"},
		{"zero sweeper interval", "SWEEPER_INTERVAL", "0s"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%s", tc.key, tc.value)
			}
		})
	}
}
