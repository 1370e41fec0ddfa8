package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/gatherfi-go/config"
	"github.com/bitfsorg/gatherfi-go/identity"
	"github.com/bitfsorg/gatherfi-go/ledger"
)

func execute(t *testing.T, args ...string) error {
	t.Helper()
	configFile = ""
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestConfigInit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, "--data-dir", dir, "config", "init"))

	path := config.ConfigPath(dir)
	assert.FileExists(t, path)
	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.DataDir)

	err = execute(t, "--data-dir", dir, "config", "init")
	assert.ErrorContains(t, err, "already exists")
}

func TestConfigShow(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, execute(t, "--data-dir", dir, "config", "show"))
}

func TestAuditEmptyLedger(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, execute(t, "--data-dir", dir, "audit"))
	assert.FileExists(t, filepath.Join(dir, "gatherfi.db"))
}

func TestEventRejectsBadID(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, execute(t, "--data-dir", dir, "event", "not-hex"))
}

func TestEventsEmptyLedger(t *testing.T) {
	dir := t.TempDir()
	assert.NoError(t, execute(t, "--data-dir", dir, "events"))
}

func TestLoadConfigInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := config.DefaultConfig()
	cfg.PlatformFeeBps = 5000
	require.NoError(t, config.SaveConfig(path, cfg))

	assert.Error(t, execute(t, "--data-dir", dir, "config", "show"))
}

func TestContributionResolvesParty(t *testing.T) {
	dir := t.TempDir()
	eventID := strings.Repeat("11", 32)

	err := execute(t, "--data-dir", dir, "contribution", eventID, "not-a-key")
	assert.ErrorIs(t, err, identity.ErrInvalidPublicKey)

	// A well-formed public key resolves; the ledger has no such record.
	g := "0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"
	err = execute(t, "--data-dir", dir, "contribution", eventID, g)
	assert.ErrorIs(t, err, ledger.ErrContributionNotFound)
}
