package config

import (
	"errors"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		ChainID:        1,
		MarketContract: "0x00000000000000000000000000000000000000bb",
		MarketID:       "eth-usdc",
		Endpoints:      map[uint64]string{1: "wss://example.invalid/ws"},
		WindowSize:     50,
	}
}

func TestValidateAccepts(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing market id", func(c *Config) { c.MarketID = "" }, "market-id"},
		{"missing contract", func(c *Config) { c.MarketContract = "" }, "market-contract"},
		{"zero window", func(c *Config) { c.WindowSize = 0 }, "window-size"},
		{"negative refresh", func(c *Config) { c.RefreshInterval = -time.Second }, "refresh-interval"},
		{"unconfigured chain", func(c *Config) { c.ChainID = 11155111 }, "chain-id"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			var cerr *ConfigurationError
			if !errors.As(err, &cerr) {
				t.Fatalf("err = %v, want ConfigurationError", err)
			}
			if cerr.Field != tc.field {
				t.Fatalf("field = %s, want %s", cerr.Field, tc.field)
			}
		})
	}
}

func TestEndpointPrefersOverride(t *testing.T) {
	cfg := validConfig()
	cfg.RPCURL = "wss://override.invalid/ws"
	url, err := cfg.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if url != "wss://override.invalid/ws" {
		t.Fatalf("url = %s, want override", url)
	}

	cfg.RPCURL = ""
	url, err = cfg.Endpoint()
	if err != nil {
		t.Fatalf("Endpoint: %v", err)
	}
	if url != "wss://example.invalid/ws" {
		t.Fatalf("url = %s, want mapped endpoint", url)
	}
}
