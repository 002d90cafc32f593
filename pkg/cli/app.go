package cli

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/dnachain/dna-smoke/pkg/blockchain"
	"github.com/dnachain/dna-smoke/pkg/config"
	"github.com/dnachain/dna-smoke/pkg/health"
	"github.com/dnachain/dna-smoke/pkg/keyring"
	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/metrics"
	"github.com/dnachain/dna-smoke/pkg/models"
	"github.com/dnachain/dna-smoke/pkg/scenario"
	"github.com/dnachain/dna-smoke/pkg/submitter"
)

// app carries what every subcommand shares
type app struct {
	cfg  *config.Config
	log  *logger.StdLogger
	dial DialFunc
	out  io.Writer
}

func (a *app) resolver() *keyring.Resolver {
	return keyring.NewResolver(a.cfg.SS58Format)
}

// resolveAccount parses a {"<path>":"<passphrase>"} flag value and decrypts the key file
func (a *app) resolveAccount(flag, value string) (models.Signer, error) {
	d, err := config.ParseAccountDescriptor(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	signer, err := a.resolver().Resolve(d)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}
	return signer, nil
}

// run connects to the node, runs one scenario and prints the step table
func (a *app) run(ctx context.Context, name string, fn func(ctx context.Context, r *scenario.Runner) error) error {
	var connected atomic.Bool
	runner := &lazyProgress{}

	if a.cfg.MetricsAddr != "" {
		srv := health.NewServer(a.cfg.MetricsAddr, a.cfg.NodeURL, runner, connected.Load, a.log)
		srvCtx, stop := context.WithCancel(ctx)
		defer stop()
		if err := srv.Start(srvCtx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	node, err := a.dial(dialCtx, a.cfg.NodeURL, a.log)
	cancel()
	if err != nil {
		return err
	}
	defer node.Close()
	connected.Store(true)

	nonces := blockchain.NewNonceManager(node, a.log)
	sub := submitter.New(node, nonces, a.cfg.SubmitTimeout, a.log)
	r := scenario.NewRunner(node, sub, nonces, a.cfg.Thresholds, a.log)
	runner.set(r)

	runErr := fn(ctx, r)

	scenario.WriteReport(a.out, name, r.Steps())
	a.push(ctx, name)
	return runErr
}

// push sends run metrics to the Pushgateway, if one is configured. A failed
// push does not fail the run.
func (a *app) push(ctx context.Context, name string) {
	if a.cfg.PushGatewayURL == "" {
		return
	}
	pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
	defer cancel()
	if err := metrics.Push(pushCtx, a.cfg.PushGatewayURL, name, a.cfg.Environment); err != nil {
		a.log.Error("%v", err)
		return
	}
	a.log.Debug("Pushed metrics to %s", a.cfg.PushGatewayURL)
}

// lazyProgress reports the runner's steps once the runner exists
type lazyProgress struct {
	r atomic.Pointer[scenario.Runner]
}

func (p *lazyProgress) set(r *scenario.Runner) { p.r.Store(r) }

func (p *lazyProgress) Scenario() string {
	if r := p.r.Load(); r != nil {
		return r.Scenario()
	}
	return ""
}

func (p *lazyProgress) Steps() []scenario.Step {
	if r := p.r.Load(); r != nil {
		return r.Steps()
	}
	return nil
}
