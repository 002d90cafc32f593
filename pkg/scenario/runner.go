package scenario

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dnachain/dna-smoke/pkg/config"
	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/metrics"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// ErrBalanceMismatch means a balance did not move by the amount a step transferred
var ErrBalanceMismatch = errors.New("balance mismatch")

// Chain answers balance queries
type Chain interface {
	FreeBalance(ctx context.Context, address string) (*big.Int, error)
	AssetBalance(ctx context.Context, asset common.Hash, address string) (*big.Int, error)
}

// Nonces hands out nonces per address
type Nonces interface {
	Next(ctx context.Context, address string) (uint64, error)
	Reserve(ctx context.Context, address string, k int) ([]uint64, error)
}

// Submitter resolves intents into outcomes
type Submitter interface {
	Submit(ctx context.Context, intent *models.Intent) models.Outcome
	SubmitAll(ctx context.Context, intents []*models.Intent) ([]models.Outcome, error)
}

// Runner is the context every scenario step runs in. It owns the chain
// handle, the submitter, the nonce counters and the log of executed steps.
// A Runner drives one scenario at a time.
type Runner struct {
	chain      Chain
	submitter  Submitter
	nonces     Nonces
	logger     logger.Logger
	thresholds config.Thresholds
	decimals   int
	pick       func(n int) int

	mu       sync.Mutex
	scenario string
	steps    []Step
}

// Option configures a Runner
type Option func(*Runner)

// WithPicker replaces the random peer selection of bulk transfers
func WithPicker(pick func(n int) int) Option {
	return func(r *Runner) { r.pick = pick }
}

// WithDecimals sets the token decimals used when logging balances
func WithDecimals(decimals int) Option {
	return func(r *Runner) { r.decimals = decimals }
}

// NewRunner creates a runner
func NewRunner(chain Chain, submitter Submitter, nonces Nonces, thresholds config.Thresholds, log logger.Logger, opts ...Option) *Runner {
	r := &Runner{
		chain:      chain,
		submitter:  submitter,
		nonces:     nonces,
		logger:     log,
		thresholds: thresholds,
		decimals:   config.DefaultDecimals,
		pick:       rand.IntN,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Steps returns the steps executed so far
func (r *Runner) Steps() []Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Step(nil), r.steps...)
}

// Scenario returns the name of the scenario last started
func (r *Runner) Scenario() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scenario
}

// begin starts a scenario, clearing the step log
func (r *Runner) begin(name string) func(err *error) {
	r.mu.Lock()
	r.scenario = name
	r.steps = nil
	r.mu.Unlock()
	start := time.Now()
	r.logger.Notice("Starting %s testing suite", name)

	return func(err *error) {
		elapsed := time.Since(start)
		metrics.ScenarioDuration.WithLabelValues(name).Set(elapsed.Seconds())
		if *err != nil {
			metrics.ScenarioRuns.WithLabelValues(name, "failure").Inc()
			r.logger.Error("%s testing suite failed after %s: %v", name, elapsed.Round(time.Millisecond), *err)
			return
		}
		metrics.ScenarioRuns.WithLabelValues(name, "success").Inc()
		r.logger.Notice("%s testing suite passed in %s", name, elapsed.Round(time.Millisecond))
	}
}

func (r *Runner) record(step Step) {
	r.mu.Lock()
	defer r.mu.Unlock()
	step.Index = len(r.steps) + 1
	r.steps = append(r.steps, step)
	if step.Status != StepFailed {
		metrics.LastStep.WithLabelValues(r.scenario).Set(float64(step.Index))
	}
}

func (r *Runner) recordOutcome(role logger.Role, outcome models.Outcome, start time.Time) {
	step := Step{
		Name:    outcome.Label,
		Role:    role,
		Status:  StepDone,
		TxHash:  outcome.TxHash,
		Block:   outcome.Block,
		Elapsed: time.Since(start),
	}
	if !outcome.Success {
		step.Status = StepFailed
		step.Detail = string(outcome.Reason)
	}
	r.record(step)
}

func (r *Runner) recordFailure(role logger.Role, name string, err error, start time.Time) {
	r.record(Step{Name: name, Role: role, Status: StepFailed, Detail: err.Error(), Elapsed: time.Since(start)})
}

// submit sends one call from signer with a freshly queried nonce
func (r *Runner) submit(ctx context.Context, role logger.Role, label string, signer models.Signer, call models.Call, expect ...string) (models.Outcome, error) {
	start := time.Now()

	nonce, err := r.nonces.Next(ctx, signer.Address())
	if err != nil {
		r.recordFailure(role, label, err, start)
		return models.Outcome{}, fmt.Errorf("%s: %w", label, err)
	}

	intent := &models.Intent{Label: label, Call: call, Signer: signer, Nonce: nonce}
	if len(expect) > 0 {
		intent.Expect = expect
	}

	r.logger.InfoWithRole(role, "%s (nonce %d)", label, nonce)
	outcome := r.submitter.Submit(ctx, intent)
	r.recordOutcome(role, outcome, start)
	if err := outcome.Error(); err != nil {
		return outcome, err
	}
	r.logger.InfoWithRole(role, "%s finalized in block %s", label, outcome.Block.Hex())
	return outcome, nil
}

// labeledCall is one call of a concurrent batch
type labeledCall struct {
	Label string
	Call  models.Call
}

// submitBatch sends several calls from one signer concurrently, with nonces
// reserved in one go, and waits for all of them
func (r *Runner) submitBatch(ctx context.Context, role logger.Role, signer models.Signer, calls []labeledCall) ([]models.Outcome, error) {
	start := time.Now()

	nonces, err := r.nonces.Reserve(ctx, signer.Address(), len(calls))
	if err != nil {
		for _, c := range calls {
			r.recordFailure(role, c.Label, err, start)
		}
		return nil, fmt.Errorf("%s: %w", calls[0].Label, err)
	}

	intents := make([]*models.Intent, len(calls))
	for i, c := range calls {
		intents[i] = &models.Intent{Label: c.Label, Call: c.Call, Signer: signer, Nonce: nonces[i]}
		r.logger.InfoWithRole(role, "%s (nonce %d)", c.Label, nonces[i])
	}

	outcomes, err := r.submitter.SubmitAll(ctx, intents)
	for _, o := range outcomes {
		r.recordOutcome(role, o, start)
	}
	if err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) balance(ctx context.Context, role logger.Role, address string) (*big.Int, error) {
	balance, err := r.chain.FreeBalance(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch balance of %s %s: %w", role, address, err)
	}
	r.logger.InfoWithRole(role, "Balance of %s is %s", address, FormatBalance(balance, r.decimals))
	return balance, nil
}
