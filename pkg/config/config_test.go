package config

import (
	"testing"
	"time"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, key := range []string{"NODE_URL", "TX_TIMEOUT", "SS58_FORMAT", "MASTER_THRESHOLD",
		"ACCOUNT_THRESHOLD", "BULK_THRESHOLD", "IDENTITY_FUNDING", "PUSHGATEWAY_URL", "LOG_LEVEL", "LOG_COLORING"} {
		t.Setenv(key, "")
	}

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, DefaultNodeURL, cfg.NodeURL)
	assert.Equal(t, 2*time.Minute, cfg.SubmitTimeout)
	assert.Equal(t, uint16(42), cfg.SS58Format)
	assert.Equal(t, "100000", cfg.Thresholds.Master.String())
	assert.Equal(t, "10000", cfg.Thresholds.Account.String())
	assert.Equal(t, "20000", cfg.Thresholds.Bulk.String())
	assert.Equal(t, logger.InfoLevel, cfg.LoggerConfig.Level)
	assert.True(t, cfg.LoggerConfig.Coloring)
	assert.Empty(t, cfg.PushGatewayURL)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("NODE_URL", "wss://node.example.org:443")
	t.Setenv("TX_TIMEOUT", "45s")
	t.Setenv("MASTER_THRESHOLD", "500000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_COLORING", "false")
	t.Setenv("PUSHGATEWAY_URL", "http://pushgateway:9091")
	t.Setenv("SMOKE_ENV", "staging")
	t.Setenv("METRICS_ADDR", ":9102")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "wss://node.example.org:443", cfg.NodeURL)
	assert.Equal(t, 45*time.Second, cfg.SubmitTimeout)
	assert.Equal(t, "500000", cfg.Thresholds.Master.String())
	assert.Equal(t, logger.DebugLevel, cfg.LoggerConfig.Level)
	assert.False(t, cfg.LoggerConfig.Coloring)
	assert.Equal(t, "http://pushgateway:9091", cfg.PushGatewayURL)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, ":9102", cfg.MetricsAddr)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"bad scheme", "NODE_URL", "ftp://node"},
		{"negative timeout", "TX_TIMEOUT", "-5"},
		{"garbage timeout", "TX_TIMEOUT", "soon"},
		{"non numeric threshold", "ACCOUNT_THRESHOLD", "ten"},
		{"zero threshold", "BULK_THRESHOLD", "0"},
		{"ss58 too large", "SS58_FORMAT", "20000"},
		{"master below account", "MASTER_THRESHOLD", "5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestGetEnvSubmitTimeoutSeconds(t *testing.T) {
	t.Setenv("TX_TIMEOUT", "30")
	d, err := GetEnvSubmitTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)
}

func TestParseAccountDescriptor(t *testing.T) {
	d, err := ParseAccountDescriptor(`{"./keys/master.json":"s3cret"}`)
	require.NoError(t, err)
	assert.Equal(t, AccountDescriptor{Path: "./keys/master.json", Passphrase: "s3cret"}, d)

	_, err = ParseAccountDescriptor(`{"a.json":"x","b.json":"y"}`)
	assert.Error(t, err)

	_, err = ParseAccountDescriptor(`not json`)
	assert.Error(t, err)

	_, err = ParseAccountDescriptor(`{"":"x"}`)
	assert.Error(t, err)
}

func TestParseAccountDescriptors(t *testing.T) {
	ds, err := ParseAccountDescriptors(`[{"a.json":"pa"},{"b.json":"pb"}]`)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "b.json", ds[1].Path)
	assert.Equal(t, "pb", ds[1].Passphrase)

	_, err = ParseAccountDescriptors(`[]`)
	assert.Error(t, err)

	_, err = ParseAccountDescriptors(`[{"a.json":"pa"},{}]`)
	assert.Error(t, err)
}
