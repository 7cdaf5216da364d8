package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// ConfigurationError reports a setting that prevents the watcher from
// starting, such as a chain with no registered RPC endpoint.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s: %s", e.Field, e.Reason)
}

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	ChainID        uint64
	MarketContract string
	MarketID       string

	// RPCURL overrides the endpoint registered for ChainID when set.
	RPCURL string
	// Endpoints maps chain ID to a websocket RPC URL, usually loaded
	// from the config file.
	Endpoints map[uint64]string

	WindowSize      int
	RefreshInterval time.Duration

	Out      string
	LogLevel string
	LogFile  string
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("WATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(1))
	v.SetDefault("window-size", 50)
	v.SetDefault("refresh-interval", time.Duration(0))
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	endpoints, err := endpointMap(v)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ChainID:         v.GetUint64("chain-id"),
		MarketContract:  v.GetString("market-contract"),
		MarketID:        v.GetString("market-id"),
		RPCURL:          v.GetString("rpc"),
		Endpoints:       endpoints,
		WindowSize:      v.GetInt("window-size"),
		RefreshInterval: v.GetDuration("refresh-interval"),
		Out:             v.GetString("out"),
		LogLevel:        v.GetString("log-level"),
		LogFile:         v.GetString("log-file"),
	}

	return cfg, nil
}

// Endpoint returns the RPC URL for the configured chain, preferring an
// explicit --rpc override over the endpoint map.
func (c Config) Endpoint() (string, error) {
	if c.RPCURL != "" {
		return c.RPCURL, nil
	}
	if url, ok := c.Endpoints[c.ChainID]; ok && url != "" {
		return url, nil
	}
	return "", &ConfigurationError{
		Field:  "chain-id",
		Reason: fmt.Sprintf("no RPC endpoint configured for chain %d", c.ChainID),
	}
}

// Validate checks the settings needed before any network work starts.
func (c Config) Validate() error {
	if c.MarketID == "" {
		return &ConfigurationError{Field: "market-id", Reason: "required"}
	}
	if c.MarketContract == "" {
		return &ConfigurationError{Field: "market-contract", Reason: "required"}
	}
	if c.WindowSize <= 0 {
		return &ConfigurationError{Field: "window-size", Reason: "must be positive"}
	}
	if c.RefreshInterval < 0 {
		return &ConfigurationError{Field: "refresh-interval", Reason: "must not be negative"}
	}
	if _, err := c.Endpoint(); err != nil {
		return err
	}
	return nil
}

// endpointMap parses the endpoints section, keyed by decimal chain ID.
func endpointMap(v *viper.Viper) (map[uint64]string, error) {
	raw := v.GetStringMapString("endpoints")
	if len(raw) == 0 {
		return nil, nil
	}
	out := make(map[uint64]string, len(raw))
	for key, url := range raw {
		var id uint64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			return nil, &ConfigurationError{
				Field:  "endpoints",
				Reason: fmt.Sprintf("chain key %q is not a number", key),
			}
		}
		out[id] = strings.TrimSpace(url)
	}
	return out, nil
}
