package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dnachain/dna-smoke/pkg/blockchain"
	"github.com/dnachain/dna-smoke/pkg/config"
	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/scenario"
	"github.com/dnachain/dna-smoke/pkg/submitter"
)

// Node is everything a scenario run needs from the chain connection
type Node interface {
	scenario.Chain
	blockchain.NonceSource
	submitter.Node
	Close()
}

// DialFunc opens a node connection
type DialFunc func(ctx context.Context, url string, log logger.Logger) (Node, error)

func dialNode(ctx context.Context, url string, log logger.Logger) (Node, error) {
	client, err := blockchain.Dial(ctx, url, log)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// contextKey is the type for context keys
type contextKey string

const appKey contextKey = "app"

// Global flag names
const (
	flagURL         = "url"
	flagTimeout     = "timeout"
	flagLogLevel    = "log-level"
	flagNoColor     = "no-color"
	flagPushGateway = "pushgateway"
	flagEnv         = "env"
	flagMetricsAddr = "metrics-addr"
)

// NewRootCmd creates the dnasmoke command tree
func NewRootCmd() *cobra.Command {
	return newRootCmd(dialNode)
}

func newRootCmd(dial DialFunc) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dnasmoke",
		Short: "Smoke tests for a DNA chain node",
		Long: `dnasmoke drives end-to-end workflows against a running node: it funds
accounts, submits signed extrinsics, waits for finalization and checks the
emitted events.`,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			if err := applyFlags(cmd, cfg); err != nil {
				return err
			}

			a := &app{
				cfg:  cfg,
				log:  logger.NewStdLogger(cfg.LoggerConfig.Coloring, cfg.LoggerConfig.Level),
				dial: dial,
				out:  cmd.OutOrStdout(),
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
	}

	rootCmd.PersistentFlags().String(flagURL, "", "Node websocket URL (default $NODE_URL or "+config.DefaultNodeURL+")")
	rootCmd.PersistentFlags().Duration(flagTimeout, 0, "Time to wait for a transaction to finalize (default $TX_TIMEOUT or 2m)")
	rootCmd.PersistentFlags().String(flagLogLevel, "", "Log level: debug, info, notice or error")
	rootCmd.PersistentFlags().Bool(flagNoColor, false, "Disable colored role prefixes")
	rootCmd.PersistentFlags().String(flagPushGateway, "", "Prometheus Pushgateway URL to push run metrics to")
	rootCmd.PersistentFlags().String(flagEnv, "", "Environment label for pushed metrics")
	rootCmd.PersistentFlags().String(flagMetricsAddr, "", "Serve /health, /status and /metrics on this address while running")

	rootCmd.AddCommand(
		newDexCmd(),
		newBulkTransferCmd(),
		newIdentityCmd(),
		newTransferCmd(),
	)
	return rootCmd
}

// applyFlags overrides the environment configuration with flags that were set
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed(flagURL) {
		url, _ := flags.GetString(flagURL)
		if err := config.ValidateNodeURL(url); err != nil {
			return err
		}
		cfg.NodeURL = url
	}
	if flags.Changed(flagTimeout) {
		timeout, _ := flags.GetDuration(flagTimeout)
		if timeout <= 0 {
			return fmt.Errorf("--%s must be greater than 0", flagTimeout)
		}
		cfg.SubmitTimeout = timeout
	}
	if flags.Changed(flagLogLevel) {
		s, _ := flags.GetString(flagLogLevel)
		level, err := logger.ParseLevel(s)
		if err != nil {
			return err
		}
		cfg.LoggerConfig.Level = level
	}
	if noColor, _ := flags.GetBool(flagNoColor); noColor {
		cfg.LoggerConfig.Coloring = false
	}
	if flags.Changed(flagPushGateway) {
		cfg.PushGatewayURL, _ = flags.GetString(flagPushGateway)
	}
	if flags.Changed(flagEnv) {
		cfg.Environment, _ = flags.GetString(flagEnv)
	}
	if flags.Changed(flagMetricsAddr) {
		cfg.MetricsAddr, _ = flags.GetString(flagMetricsAddr)
	}
	return nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey).(*app)
	if !ok {
		return nil, fmt.Errorf("command %s was not initialized", cmd.Name())
	}
	return a, nil
}

// Execute runs the command tree with the given context
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

const (
	dialTimeout = 30 * time.Second
	pushTimeout = 10 * time.Second
)
