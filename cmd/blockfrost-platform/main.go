// Command blockfrost-platform is the gateway's entrypoint: load config,
// spawn the fallback decoder, build the connection pool, register with the
// fleet (if configured), and serve the HTTP endpoints until signalled to
// stop.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/blockfrost/node-gateway/internal/api"
	"github.com/blockfrost/node-gateway/internal/apperrors"
	"github.com/blockfrost/node-gateway/internal/config"
	"github.com/blockfrost/node-gateway/internal/fallback"
	"github.com/blockfrost/node-gateway/internal/logging"
	"github.com/blockfrost/node-gateway/internal/pool"
	"github.com/blockfrost/node-gateway/internal/registry"
)

const (
	healthCheckInterval     = 10 * time.Second
	healthCheckFailInterval = 2 * time.Second
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file overlay (optional)")
	network := flag.String("network", "", "Network name: mainnet, preprod, preview, or sanchonet")
	socketPath := flag.String("node-socket-path", "", "Path to the node's Unix domain socket")
	address := flag.String("server-address", "", "HTTP listen address")
	port := flag.Int("server-port", 0, "HTTP listen port")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, or error")
	poolSize := flag.Int("pool-size", 0, "Maximum number of pooled node connections")
	metricsOn := flag.Bool("metrics", false, "Serve Prometheus metrics on /metrics")
	flag.Parse()

	cfg := config.Default()
	if err := config.LoadFile(cfg, *configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LoadEnv(cfg)
	applyFlags(cfg, *network, *socketPath, *address, *port, *logLevel, *poolSize)
	if *metricsOn {
		cfg.Metrics.Enabled = true
	}

	if cfg.Node.SocketPath == "" {
		log.Fatalf("No node socket path configured (set -node-socket-path, BLOCKFROST_NODE_SOCKET_PATH, or node_socket_path in the config file)")
	}

	logger := logging.New(logging.ParseLevel(cfg.Server.LogLevel))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	fallbackPath, err := resolveFallbackDecoder(cfg.Node.FallbackDecoder)
	if err != nil {
		log.Fatalf("Failed to locate fallback decoder: %v", err)
	}

	fallbackSupervisor := fallback.Spawn(fallbackPath, func(err error) {
		logger.Warnf("fallback decoder subprocess restarting: %s", err)
	})
	if err := fallback.StartupSanityTest(fallbackSupervisor); err != nil {
		log.Fatalf("Fallback decoder sanity test failed: %v", err)
	}
	logger.Infof("Fallback decoder ready (pid %d)", fallbackSupervisor.ChildPID())

	metrics := api.NewMetrics()

	nodePool, err := pool.New(pool.Config{
		SocketPath:   cfg.Node.SocketPath,
		NetworkMagic: cfg.Node.NetworkMagic,
		MaxSize:      cfg.Node.MaxPoolSize,
		Gauge:        metrics.NodeConnections,
	})
	if err != nil {
		log.Fatalf("Failed to construct connection pool: %v", err)
	}
	defer nodePool.Close()

	go nodeHealthCheckTask(ctx, nodePool, logger)

	apiPrefix := registerWithFleet(cfg, logger)

	server := api.New(api.Config{
		Pool:           nodePool,
		Fallback:       fallbackSupervisor,
		Metrics:        metrics,
		Log:            logger,
		MetricsEnabled: cfg.Metrics.Enabled,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port)
	actualAddr, serverDone, err := api.Serve(ctx, addr, server.Router(apiPrefix), logger)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Infof("Server is listening on http://%s%s", actualAddr, apiPrefix)
	logger.Infof("Log level %s", cfg.Server.LogLevel)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down gracefully...")
	cancel()
	<-serverDone
}

// nodeHealthCheckTask checks out a pool connection purely to observe
// whether the node is still reachable, every 10s, tightening to 2s after a
// failure until the node answers again. It never returns a result anywhere;
// a failure is just logged.
func nodeHealthCheckTask(ctx context.Context, p *pool.Pool, logger *logging.Logger) {
	interval := healthCheckInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if err := checkNodeHealth(ctx, p); err != nil {
			logger.Warnf("node health check failed: %s", err)
			interval = healthCheckFailInterval
		} else {
			interval = healthCheckInterval
		}
		ticker.Reset(interval)
	}
}

func checkNodeHealth(ctx context.Context, p *pool.Pool) error {
	handle, err := p.Get(ctx)
	if err != nil {
		return err
	}
	defer handle.Release()

	return handle.Conn().Ping()
}

// applyFlags overlays non-zero CLI flag values onto cfg, taking precedence
// over both the file and environment overlays.
func applyFlags(cfg *config.Config, network, socketPath, address string, port int, logLevel string, poolSize int) {
	if network != "" {
		if magic, err := config.NetworkMagic(network); err == nil {
			cfg.Node.NetworkMagic = magic
		} else {
			log.Fatalf("%s", err)
		}
	}
	if socketPath != "" {
		cfg.Node.SocketPath = socketPath
	}
	if address != "" {
		cfg.Server.Address = address
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	if poolSize != 0 {
		cfg.Node.MaxPoolSize = poolSize
	}
}

// resolveFallbackDecoder locates the helper binary: an explicit config path
// wins; next a BLOCKFROST_FALLBACK_DECODER_PATH-style override (already
// folded into cfg by config.LoadEnv); next a "bin" subdirectory next to this
// executable; and finally the OS search path.
func resolveFallbackDecoder(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}

	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "bin", "testgen-hs")
		if info, statErr := os.Stat(candidate); statErr == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	if found, err := exec.LookPath("testgen-hs"); err == nil {
		return found, nil
	}

	return "", apperrors.NodeError("fallback decoder binary not found (set fallback_decoder_path, place it in ./bin, or add it to PATH)")
}

// registerWithFleet announces this instance to the Blockfrost fleet registry
// when a secret is configured. Registration failure is logged, not fatal:
// the gateway still serves requests under "/".
func registerWithFleet(cfg *config.Config, logger *logging.Logger) string {
	if cfg.Registry.Secret == "" {
		registry.LogSolitaryMode(logger)
		return "/"
	}

	network := "mainnet"
	switch cfg.Node.NetworkMagic {
	case config.MagicPreprod:
		network = "preprod"
	case config.MagicPreview:
		network = "preview"
	case config.MagicSanchonet:
		network = "sanchonet"
	}

	baseURL := cfg.Registry.RegistryURL
	if baseURL == "" {
		baseURL = registry.BaseURLForNetwork(network)
	}

	registrar := registry.New(registry.Config{
		BaseURL:       baseURL,
		Secret:        cfg.Registry.Secret,
		Mode:          network,
		Port:          cfg.Server.Port,
		RewardAddress: cfg.Registry.RewardAddress,
	}, logger)

	prefix, err := registrar.Register()
	if err != nil {
		logger.Warnf("registration failed, running standalone: %s", err)
		return "/"
	}
	return prefix
}
