package bearauth

import (
	"strings"
	"testing"
	"time"

	"github.com/bearauth/bearauth/token"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Token.TTL != 10*time.Hour {
		t.Fatalf("default TTL: %v", cfg.Token.TTL)
	}
	if cfg.Token.Algorithm != "sha512" || cfg.Token.HeaderScheme != "Token" {
		t.Fatalf("default token config: %+v", cfg.Token)
	}
	if cfg.Refresh.Enabled || cfg.Audit.Enabled || cfg.Metrics.Enabled {
		t.Fatal("optional subsystems must default to off")
	}
}

func TestConfigValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative ttl", func(c *Config) { c.Token.TTL = -time.Second }},
		{"negative max ttl", func(c *Config) { c.Token.MaxTTL = -time.Second }},
		{"negative limit", func(c *Config) { c.Token.LimitPerPrincipal = -1 }},
		{"oversize prefix", func(c *Config) { c.Token.Prefix = strings.Repeat("p", token.MaxLiteralPrefixLength+1) }},
		{"odd secret length", func(c *Config) { c.Token.SecretLength = 63 }},
		{"secret shorter than lookup key", func(c *Config) { c.Token.SecretLength = 14 }},
		{"unknown algorithm", func(c *Config) { c.Token.Algorithm = "md5" }},
		{"empty header scheme", func(c *Config) { c.Token.HeaderScheme = "" }},
		{"multiword header scheme", func(c *Config) { c.Token.HeaderScheme = "Token X" }},
		{"auto refresh without ttl", func(c *Config) {
			c.Token.AutoRefresh = true
			c.Token.TTL = 0
		}},
		{"ceiling below ttl", func(c *Config) { c.Token.AutoRefreshMaxTTL = c.Token.TTL - time.Hour }},
		{"refresh history zero", func(c *Config) {
			c.Refresh.Enabled = true
			c.Refresh.MaxHistory = 0
		}},
		{"login throttle without budget", func(c *Config) {
			c.Throttle.EnableLoginThrottle = true
			c.Throttle.MaxLoginAttempts = 0
		}},
		{"cookie without name", func(c *Config) {
			c.Cookie.Enabled = true
			c.Cookie.Name = ""
		}},
		{"audit without buffer", func(c *Config) {
			c.Audit.Enabled = true
			c.Audit.BufferSize = 0
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestConfigValidateAccepts(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero ttl means never expire", func(c *Config) { c.Token.TTL = 0 }},
		{"sha3 digest", func(c *Config) { c.Token.Algorithm = "sha3-512" }},
		{"blake2b digest", func(c *Config) { c.Token.Algorithm = "blake2b-512" }},
		{"prefix at limit", func(c *Config) { c.Token.Prefix = strings.Repeat("p", token.MaxLiteralPrefixLength) }},
		{"refresh enabled", func(c *Config) { c.Refresh.Enabled = true }},
		{"auto refresh with ceiling", func(c *Config) {
			c.Token.AutoRefresh = true
			c.Token.AutoRefreshMaxTTL = 20 * time.Hour
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}
