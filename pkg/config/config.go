package config

import (
	"fmt"
	"log"
	"math/big"
	"time"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/joho/godotenv"
)

// Config holds the configuration shared by every scenario
type Config struct {
	NodeURL        string
	SubmitTimeout  time.Duration
	SS58Format     uint16
	Thresholds     Thresholds
	PushGatewayURL string
	Environment    string
	// MetricsAddr is where the health server listens during a run; empty disables it
	MetricsAddr  string
	LoggerConfig LoggerConfig
}

// Thresholds holds the funding guard limits, in base units
type Thresholds struct {
	// Master is the minimum balance of the faucet account
	Master *big.Int
	// Account is the balance issuer and trader are funded up to
	Account *big.Int
	// Bulk is the balance bulk-transfer accounts are funded up to
	Bulk *big.Int
	// IdentityFunding is transferred to registrar and user accounts
	IdentityFunding *big.Int
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}

	nodeURL, err := GetEnvNodeURL()
	if err != nil {
		return nil, err
	}

	submitTimeout, err := GetEnvSubmitTimeout()
	if err != nil {
		return nil, err
	}

	ss58Format, err := GetEnvSS58Format()
	if err != nil {
		return nil, err
	}

	masterThreshold, err := GetEnvAmount("MASTER_THRESHOLD", DefaultMasterThreshold)
	if err != nil {
		return nil, err
	}

	accountThreshold, err := GetEnvAmount("ACCOUNT_THRESHOLD", DefaultAccountThreshold)
	if err != nil {
		return nil, err
	}

	bulkThreshold, err := GetEnvAmount("BULK_THRESHOLD", DefaultBulkThreshold)
	if err != nil {
		return nil, err
	}

	identityFunding, err := GetEnvAmount("IDENTITY_FUNDING", DefaultIdentityFunding)
	if err != nil {
		return nil, err
	}

	pushGatewayURL, err := GetEnvPushGatewayURL()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		NodeURL:       nodeURL,
		SubmitTimeout: submitTimeout,
		SS58Format:    ss58Format,
		Thresholds: Thresholds{
			Master:          masterThreshold,
			Account:         accountThreshold,
			Bulk:            bulkThreshold,
			IdentityFunding: identityFunding,
		},
		PushGatewayURL: pushGatewayURL,
		Environment:    GetEnvEnvironment(),
		MetricsAddr:    GetEnvMetricsAddr(),
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if err := ValidateNodeURL(cfg.NodeURL); err != nil {
		return err
	}
	if cfg.SubmitTimeout <= 0 {
		return fmt.Errorf("submit timeout must be greater than 0")
	}
	if cfg.Thresholds.Master.Cmp(cfg.Thresholds.Account) < 0 {
		return fmt.Errorf("MASTER_THRESHOLD (%s) must not be below ACCOUNT_THRESHOLD (%s)",
			cfg.Thresholds.Master, cfg.Thresholds.Account)
	}
	return nil
}
