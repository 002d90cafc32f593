package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dnachain/dna-smoke/pkg/logger"
)

const (
	// DefaultNodeURL is the websocket endpoint of a local development node
	DefaultNodeURL = "ws://127.0.0.1:9944"

	// DefaultSubmitTimeout bounds the wait for a transaction to finalize, in seconds
	DefaultSubmitTimeout = 120

	// DefaultSS58Format is the generic substrate address prefix
	DefaultSS58Format = 42

	// DefaultMasterThreshold is the minimum balance the master (faucet) account must hold
	DefaultMasterThreshold = "100000"

	// DefaultAccountThreshold is the balance issuer and trader accounts are funded up to
	DefaultAccountThreshold = "10000"

	// DefaultBulkThreshold is the balance bulk-transfer test accounts are funded up to
	DefaultBulkThreshold = "20000"

	// DefaultIdentityFunding is the amount transferred to registrar and user accounts
	DefaultIdentityFunding = "1000000"

	// DefaultDecimals is the number of decimals of the native token, used for display only
	DefaultDecimals = 4
)

// GetEnvNodeURL returns the node websocket URL
func GetEnvNodeURL() (string, error) {
	nodeURL := os.Getenv("NODE_URL")
	if nodeURL == "" {
		return DefaultNodeURL, nil
	}
	return nodeURL, ValidateNodeURL(nodeURL)
}

// ValidateNodeURL checks that the URL is a websocket or http endpoint
func ValidateNodeURL(nodeURL string) error {
	u, err := url.Parse(nodeURL)
	if err != nil {
		return fmt.Errorf("invalid node URL %s: %v", nodeURL, err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return fmt.Errorf("invalid node URL %s: scheme must be ws, wss, http or https", nodeURL)
	}
	if u.Host == "" {
		return fmt.Errorf("invalid node URL %s: missing host", nodeURL)
	}
	return nil
}

// GetEnvSubmitTimeout returns how long a submission may wait for finalization
func GetEnvSubmitTimeout() (time.Duration, error) {
	timeout := os.Getenv("TX_TIMEOUT")
	if timeout == "" {
		return time.Duration(DefaultSubmitTimeout) * time.Second, nil
	}

	// accept both plain seconds and Go durations
	if seconds, err := strconv.Atoi(timeout); err == nil {
		if seconds <= 0 {
			return 0, fmt.Errorf("TX_TIMEOUT must be greater than 0")
		}
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid TX_TIMEOUT value: %s, must be seconds or a duration", timeout)
	}
	if d <= 0 {
		return 0, fmt.Errorf("TX_TIMEOUT must be greater than 0")
	}
	return d, nil
}

// GetEnvSS58Format returns the address format prefix
func GetEnvSS58Format() (uint16, error) {
	format := os.Getenv("SS58_FORMAT")
	if format == "" {
		return DefaultSS58Format, nil
	}
	v, err := strconv.ParseUint(format, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid SS58_FORMAT value: %s, must be an integer below 16384", format)
	}
	if v >= 16384 {
		return 0, fmt.Errorf("SS58_FORMAT must be below 16384")
	}
	return uint16(v), nil
}

// GetEnvAmount reads a positive integer amount in base units
func GetEnvAmount(key, defaultValue string) (*big.Int, error) {
	value := os.Getenv(key)
	if value == "" {
		value = defaultValue
	}
	amount, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s value: %s, must be an integer", key, value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s must be greater than 0", key)
	}
	return amount, nil
}

// GetEnvLogLevel returns the logging level
func GetEnvLogLevel() (logger.Level, error) {
	level, err := logger.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		return logger.InfoLevel, fmt.Errorf("invalid LOG_LEVEL: %v", err)
	}
	return level, nil
}

// GetEnvLogColoring returns whether log output is colored
func GetEnvLogColoring() (bool, error) {
	coloring := os.Getenv("LOG_COLORING")
	if coloring == "" {
		return true, nil
	}
	v, err := strconv.ParseBool(coloring)
	if err != nil {
		return false, fmt.Errorf("invalid LOG_COLORING value: %s, must be a boolean", coloring)
	}
	return v, nil
}

// GetEnvPushGatewayURL returns the Prometheus Pushgateway URL, empty to disable pushing
func GetEnvPushGatewayURL() (string, error) {
	gateway := strings.TrimSpace(os.Getenv("PUSHGATEWAY_URL"))
	if gateway == "" {
		return "", nil
	}
	u, err := url.Parse(gateway)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid PUSHGATEWAY_URL value: %s", gateway)
	}
	return gateway, nil
}

// GetEnvEnvironment returns the environment tag runs are reported under
func GetEnvEnvironment() string {
	return os.Getenv("SMOKE_ENV")
}

// GetEnvMetricsAddr returns the listen address of the health server
func GetEnvMetricsAddr() string {
	return strings.TrimSpace(os.Getenv("METRICS_ADDR"))
}
