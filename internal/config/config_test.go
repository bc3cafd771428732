package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkMagic(t *testing.T) {
	magic, err := NetworkMagic("mainnet")
	require.NoError(t, err)
	assert.Equal(t, MagicMainnet, magic)

	_, err = NetworkMagic("not-a-network")
	assert.Error(t, err)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	cfg := Default()
	err := LoadFile(cfg, filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Address)
}

func TestLoadFileOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "server:\n  address: 127.0.0.1\n  port: 9000\nnode:\n  node_socket_path: /tmp/node.socket\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	require.NoError(t, LoadFile(cfg, path))
	assert.Equal(t, "127.0.0.1", cfg.Server.Address)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "/tmp/node.socket", cfg.Node.SocketPath)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("BLOCKFROST_SERVER_ADDRESS", "10.0.0.1")
	t.Setenv("BLOCKFROST_MAX_POOL_SIZE", "42")
	t.Setenv("BLOCKFROST_NETWORK", "preview")

	cfg := Default()
	LoadEnv(cfg)

	assert.Equal(t, "10.0.0.1", cfg.Server.Address)
	assert.Equal(t, 42, cfg.Node.MaxPoolSize)
	assert.Equal(t, MagicPreview, cfg.Node.NetworkMagic)
}
