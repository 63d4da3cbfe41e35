package app

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartHelp(t *testing.T) {
	assert.NoError(t, Start(context.Background(), []string{"--help"}))
}

func TestStartRejectsUnknownFlag(t *testing.T) {
	assert.Error(t, Start(context.Background(), []string{"--mode", "test"}))
}

func TestStartMissingConfig(t *testing.T) {
	err := Start(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.json")})
	assert.ErrorContains(t, err, "failed to get config")
}

func TestStartUnknownVenue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := `{"app": {"port": 18099}, "venues": {"enabled": ["binance", "nowhere"]}}`
	if err := os.WriteFile(path, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	err := Start(context.Background(), []string{"--config", path})
	assert.ErrorContains(t, err, "nowhere")
}

func TestStartReturnsServeError(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := fmt.Sprintf(`{"app": {"port": %d}, "venues": {"enabled": ["binance"]}, "scanner": {"enabled": false}}`, port)
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o600))

	err = Start(context.Background(), []string{"--config", path})
	assert.Error(t, err)
}
