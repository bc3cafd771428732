// Package config collects everything the gateway needs at startup: CLI
// flags, environment variables (prefixed BLOCKFROST_), and an optional YAML
// overlay file.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Well-known network magic numbers.
const (
	MagicMainnet   uint64 = 764824073
	MagicPreprod   uint64 = 1
	MagicPreview   uint64 = 2
	MagicSanchonet uint64 = 4
)

type ServerConfig struct {
	Address  string `yaml:"address"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

type NodeConfig struct {
	SocketPath      string `yaml:"node_socket_path"`
	NetworkMagic    uint64 `yaml:"network_magic"`
	MaxPoolSize     int    `yaml:"max_pool_size"`
	FallbackDecoder string `yaml:"fallback_decoder_path"`
}

type RegistryConfig struct {
	Secret        string `yaml:"secret"`
	RewardAddress string `yaml:"reward_address"`
	RegistryURL   string `yaml:"registry_url"`
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Node     NodeConfig     `yaml:"node"`
	Registry RegistryConfig `yaml:"registry"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// Default returns a Config with the stock defaults: 0.0.0.0:3000, info
// level, pool size 10, mainnet.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Address: "0.0.0.0", Port: 3000, LogLevel: "info"},
		Node:   NodeConfig{MaxPoolSize: 10, NetworkMagic: MagicMainnet},
	}
}

// LoadFile overlays a YAML config file onto cfg. A missing file is not an
// error; -config is optional.
func LoadFile(cfg *Config, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file %q: %w", path, err)
	}
	return nil
}

// LoadEnv overlays BLOCKFROST_-prefixed environment variables onto cfg.
// Flags (applied by the caller after LoadEnv) take precedence over both this
// and the file overlay.
func LoadEnv(cfg *Config) {
	if v, ok := os.LookupEnv("BLOCKFROST_SERVER_ADDRESS"); ok {
		cfg.Server.Address = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_SERVER_PORT"); ok {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v, ok := os.LookupEnv("BLOCKFROST_LOG_LEVEL"); ok {
		cfg.Server.LogLevel = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_NODE_SOCKET_PATH"); ok {
		cfg.Node.SocketPath = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_NETWORK"); ok {
		if magic, err := NetworkMagic(v); err == nil {
			cfg.Node.NetworkMagic = magic
		}
	}
	if v, ok := os.LookupEnv("BLOCKFROST_MAX_POOL_SIZE"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Node.MaxPoolSize = n
		}
	}
	if v, ok := os.LookupEnv("BLOCKFROST_FALLBACK_DECODER_PATH"); ok {
		cfg.Node.FallbackDecoder = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_REGISTRY_SECRET"); ok {
		cfg.Registry.Secret = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_REGISTRY_REWARD_ADDRESS"); ok {
		cfg.Registry.RewardAddress = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_REGISTRY_URL"); ok {
		cfg.Registry.RegistryURL = v
	}
	if v, ok := os.LookupEnv("BLOCKFROST_METRICS_ENABLED"); ok {
		cfg.Metrics.Enabled = v == "1" || v == "true"
	}
}

// NetworkMagic resolves a network name to its well-known magic number.
func NetworkMagic(network string) (uint64, error) {
	switch network {
	case "mainnet":
		return MagicMainnet, nil
	case "preprod":
		return MagicPreprod, nil
	case "preview":
		return MagicPreview, nil
	case "sanchonet":
		return MagicSanchonet, nil
	default:
		return 0, fmt.Errorf("unknown network %q (want mainnet, preprod, preview, or sanchonet)", network)
	}
}
