package scenario

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// BulkTransferAmount is what every funded account sends to a random peer
var BulkTransferAmount = big.NewInt(10000)

// BulkTransferResult counts what the run did
type BulkTransferResult struct {
	Funded      int
	Transferred int
	Skipped     int
}

// BulkTransfer walks the accounts in order: each one is topped up from the
// master account when below the bulk threshold and, once funded, sends
// BulkTransferAmount to a randomly picked account of the set.
func (r *Runner) BulkTransfer(ctx context.Context, master models.Signer, accounts []models.Signer) (res *BulkTransferResult, err error) {
	finish := r.begin("bulk-transfer")
	defer finish(&err)

	res = &BulkTransferResult{}
	if len(accounts) == 0 {
		return res, fmt.Errorf("no test accounts given")
	}

	threshold := r.thresholds.Bulk
	for i, account := range accounts {
		before, err := r.balance(ctx, logger.Sender, account.Address())
		if err != nil {
			return res, err
		}

		balance, err := r.EnsureFunded(ctx, logger.Sender, master, account.Address(), threshold, threshold)
		if err != nil {
			return res, fmt.Errorf("account %d: %w", i, err)
		}
		if balance.Cmp(before) != 0 {
			res.Funded++
		}

		if balance.Cmp(threshold) < 0 {
			r.logger.NoticeWithRole(logger.Sender, "Skipping the transfer from %s due to balance less than %s",
				account.Address(), FormatBalance(threshold, r.decimals))
			r.record(Step{Name: fmt.Sprintf("transfer from account %d", i), Role: logger.Sender,
				Status: StepSkipped, Detail: "below threshold"})
			res.Skipped++
			continue
		}

		peer := accounts[r.pick(len(accounts))]
		label := fmt.Sprintf("transfer from account %d", i)
		start := time.Now()
		if _, err := r.submit(ctx, logger.Sender, label, account,
			models.Transfer{To: peer.Address(), Amount: BulkTransferAmount}); err != nil {
			return res, err
		}
		r.logger.InfoWithRole(logger.Sender, "Transferred %s from %s to %s in %s", FormatBalance(BulkTransferAmount, r.decimals),
			account.Address(), peer.Address(), time.Since(start).Round(time.Millisecond))
		res.Transferred++
	}
	return res, nil
}
