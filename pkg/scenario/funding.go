package scenario

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/metrics"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// RequireBalance fails with ErrInsufficientBalance when address holds less than min
func (r *Runner) RequireBalance(ctx context.Context, role logger.Role, address string, min *big.Int) error {
	start := time.Now()
	name := fmt.Sprintf("check %s balance", role)

	balance, err := r.balance(ctx, role, address)
	if err != nil {
		r.recordFailure(role, name, err, start)
		return err
	}
	if balance.Cmp(min) < 0 {
		err := fmt.Errorf("%w: %s account %s holds %s, needs %s", models.ErrInsufficientBalance,
			role, address, FormatBalance(balance, r.decimals), FormatBalance(min, r.decimals))
		r.recordFailure(role, name, err, start)
		return err
	}
	r.record(Step{Name: name, Role: role, Status: StepDone, Detail: FormatBalance(balance, r.decimals), Elapsed: time.Since(start)})
	return nil
}

// EnsureFunded transfers amount from funder to the account when its balance
// is below threshold, and does nothing otherwise. It returns the balance
// after the step.
func (r *Runner) EnsureFunded(ctx context.Context, role logger.Role, funder models.Signer, address string, threshold, amount *big.Int) (*big.Int, error) {
	start := time.Now()
	name := fmt.Sprintf("fund %s", role)

	balance, err := r.balance(ctx, role, address)
	if err != nil {
		r.recordFailure(role, name, err, start)
		return nil, err
	}
	if balance.Cmp(threshold) >= 0 {
		metrics.FundingTransfers.WithLabelValues(role.String(), "skipped").Inc()
		r.record(Step{Name: name, Role: role, Status: StepSkipped, Detail: "above threshold", Elapsed: time.Since(start)})
		return balance, nil
	}

	r.logger.InfoWithRole(logger.Master, "Funding %s %s from %s with %s", role, address,
		funder.Address(), FormatBalance(amount, r.decimals))
	if _, err := r.submit(ctx, logger.Master, name, funder, models.Transfer{To: address, Amount: amount}); err != nil {
		return nil, err
	}
	metrics.FundingTransfers.WithLabelValues(role.String(), "funded").Inc()

	return r.balance(ctx, role, address)
}
