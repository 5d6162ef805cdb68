package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:    "123:abc",
			AdminIDs: []int64{42},
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run mode = %q, want longpoll default", cfg.Telegram.RunMode)
	}
	if cfg.Database.SSLMode != "disable" {
		t.Fatalf("sslmode = %q", cfg.Database.SSLMode)
	}
	if cfg.Database.MaxConnections != 5 {
		t.Fatalf("max connections = %d", cfg.Database.MaxConnections)
	}
}

func TestNormalizeRejectsMissingRequirements(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no token", func(c *Config) { c.Telegram.Token = "" }, "token"},
		{"no admins", func(c *Config) { c.Telegram.AdminIDs = nil }, "admin"},
		{"bad run mode", func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" }, "run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = "webhook" }, "webhook.url"},
		{"bad exclude", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"inline"} }, "exclude_updates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("alias not normalized: %q", cfg.Telegram.RunMode)
	}
}

func TestSessionJanitorDefaults(t *testing.T) {
	var s SessionConfig
	if got := s.SessionSweepInterval(); got != 10*time.Minute {
		t.Fatalf("sweep interval = %v", got)
	}
	if got := s.SessionMaxIdle(); got != 24*time.Hour {
		t.Fatalf("max idle = %v", got)
	}

	s = SessionConfig{SweepIntervalMinutes: 5, MaxIdleHours: 2}
	if got := s.SessionSweepInterval(); got != 5*time.Minute {
		t.Fatalf("sweep interval = %v", got)
	}
	if got := s.SessionMaxIdle(); got != 2*time.Hour {
		t.Fatalf("max idle = %v", got)
	}
}

func TestTelegramIsAdmin(t *testing.T) {
	tg := TelegramConfig{AdminIDs: []int64{1, 2}}
	if !tg.IsAdmin(2) || tg.IsAdmin(3) {
		t.Fatal("admin membership check failed")
	}
}
