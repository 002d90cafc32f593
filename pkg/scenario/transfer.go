package scenario

import (
	"context"
	"math/big"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// Transfer sends amount from sender to the destination address
func (r *Runner) Transfer(ctx context.Context, sender models.Signer, to string, amount *big.Int) (outcome models.Outcome, err error) {
	finish := r.begin("transfer")
	defer finish(&err)

	if _, err := r.balance(ctx, logger.Sender, sender.Address()); err != nil {
		return outcome, err
	}

	outcome, err = r.submit(ctx, logger.Sender, "transfer", sender, models.Transfer{To: to, Amount: amount})
	if err != nil {
		return outcome, err
	}
	r.logger.InfoWithRole(logger.Sender, "Transaction included at block %s", outcome.Block.Hex())
	return outcome, nil
}
