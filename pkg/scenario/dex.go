package scenario

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// Dex workflow parameters
var (
	DexIssueSupply = big.NewInt(2000000)
	DexDeposit     = big.NewInt(600000)
	DexOrderPrice  = big.NewInt(1)
	DexOrderAmount = big.NewInt(300000)
	DexBaseSymbol  = "BTC"
	DexQuoteSymbol = "ETH"
)

// DexState is a stage of the dex workflow
type DexState int

const (
	DexInit DexState = iota
	DexMasterFunded
	DexIssuerFunded
	DexAssetsIssued
	DexTraderFunded
	DexAssetsTransferred
	DexPairCreated
	DexIssuerOrderCreated
	DexTraderOrderCreated
	DexDone
)

var dexStateNames = []string{
	"Init", "MasterFunded", "IssuerFunded", "AssetsIssued", "TraderFunded",
	"AssetsTransferred", "PairCreated", "IssuerOrderCreated", "TraderOrderCreated", "Done",
}

func (s DexState) String() string {
	if int(s) < len(dexStateNames) {
		return dexStateNames[s]
	}
	return fmt.Sprintf("DexState(%d)", int(s))
}

// DexAccounts are the signers of the dex workflow
type DexAccounts struct {
	Master models.Signer
	Issuer models.Signer
	Trader models.Signer
}

// DexResult holds the identifiers the workflow produced
type DexResult struct {
	State          DexState
	BaseAsset      common.Hash
	QuoteAsset     common.Hash
	Pair           common.Hash
	IssuerOrder    common.Hash
	TraderOrder    common.Hash
	Exchange       common.Hash
	TraderReceived *big.Int
}

func (res *DexResult) advance(log logger.Logger, to DexState) {
	log.Debug("dex: %s -> %s", res.State, to)
	res.State = to
}

// Dex runs the exchange workflow: fund the issuer, issue two assets, fund the
// trader, deposit base asset to the trader, open a pair and match a sell
// order of the issuer with a buy order of the trader.
func (r *Runner) Dex(ctx context.Context, accounts DexAccounts) (res *DexResult, err error) {
	finish := r.begin("dex")
	defer finish(&err)

	res = &DexResult{State: DexInit}

	if err := r.RequireBalance(ctx, logger.Master, accounts.Master.Address(), r.thresholds.Master); err != nil {
		return res, err
	}
	res.advance(r.logger, DexMasterFunded)

	issuerBalance, err := r.EnsureFunded(ctx, logger.Issuer, accounts.Master, accounts.Issuer.Address(),
		r.thresholds.Account, r.thresholds.Account)
	if err != nil {
		return res, err
	}
	if issuerBalance.Cmp(r.thresholds.Account) < 0 {
		return res, fmt.Errorf("%w: issuer holds %s after funding", models.ErrInsufficientBalance, FormatBalance(issuerBalance, r.decimals))
	}
	res.advance(r.logger, DexIssuerFunded)

	outcomes, err := r.submitBatch(ctx, logger.Issuer, accounts.Issuer, []labeledCall{
		{Label: "issue " + DexBaseSymbol, Call: models.IssueAsset{Symbol: DexBaseSymbol, TotalSupply: DexIssueSupply}},
		{Label: "issue " + DexQuoteSymbol, Call: models.IssueAsset{Symbol: DexQuoteSymbol, TotalSupply: DexIssueSupply}},
	})
	if err != nil {
		return res, err
	}
	// Issued(AccountId, Hash, Balance)
	if res.BaseAsset, err = eventHash(outcomes[0], models.EventIssued, 1); err != nil {
		return res, err
	}
	if res.QuoteAsset, err = eventHash(outcomes[1], models.EventIssued, 1); err != nil {
		return res, err
	}
	if res.BaseAsset == res.QuoteAsset {
		return res, fmt.Errorf("issued assets share the identifier %s", res.BaseAsset.Hex())
	}
	r.logger.InfoWithRole(logger.Issuer, "Issued %s as %s and %s as %s",
		DexBaseSymbol, res.BaseAsset.Hex(), DexQuoteSymbol, res.QuoteAsset.Hex())
	res.advance(r.logger, DexAssetsIssued)

	traderBalance, err := r.EnsureFunded(ctx, logger.Trader, accounts.Master, accounts.Trader.Address(),
		r.thresholds.Account, r.thresholds.Account)
	if err != nil {
		return res, err
	}
	if traderBalance.Cmp(r.thresholds.Account) < 0 {
		return res, fmt.Errorf("%w: trader holds %s after funding", models.ErrInsufficientBalance, FormatBalance(traderBalance, r.decimals))
	}
	res.advance(r.logger, DexTraderFunded)

	before, err := r.chain.AssetBalance(ctx, res.BaseAsset, accounts.Trader.Address())
	if err != nil {
		return res, fmt.Errorf("failed to fetch trader %s balance: %w", DexBaseSymbol, err)
	}
	if _, err := r.submit(ctx, logger.Issuer, "deposit "+DexBaseSymbol+" to trader", accounts.Issuer,
		models.DepositAsset{Asset: res.BaseAsset, To: accounts.Trader.Address(), Amount: DexDeposit}); err != nil {
		return res, err
	}
	after, err := r.chain.AssetBalance(ctx, res.BaseAsset, accounts.Trader.Address())
	if err != nil {
		return res, fmt.Errorf("failed to fetch trader %s balance: %w", DexBaseSymbol, err)
	}
	res.TraderReceived = new(big.Int).Sub(after, before)
	if res.TraderReceived.Cmp(DexDeposit) != 0 {
		return res, fmt.Errorf("%w: trader %s balance moved by %s, expected %s",
			ErrBalanceMismatch, DexBaseSymbol, res.TraderReceived, DexDeposit)
	}
	res.advance(r.logger, DexAssetsTransferred)

	outcome, err := r.submit(ctx, logger.Issuer, "create exchange pair", accounts.Issuer,
		models.CreateExchangePair{Base: res.BaseAsset, Quote: res.QuoteAsset})
	if err != nil {
		return res, err
	}
	// ExchangePairCreated(AccountId, Hash, ExchangePair)
	res.Pair = r.optionalHash(outcome, models.EventExchangePairCreated, 1)
	res.advance(r.logger, DexPairCreated)

	outcome, err = r.submit(ctx, logger.Issuer, "issuer sell order", accounts.Issuer, models.CreateOrder{
		Base: res.BaseAsset, Quote: res.QuoteAsset, Side: models.Sell, Price: DexOrderPrice, SellAmount: DexOrderAmount,
	})
	if err != nil {
		return res, err
	}
	// OrderCreated(AccountId, Hash, Hash, Hash, LimitOrder)
	res.IssuerOrder = r.optionalHash(outcome, models.EventOrderCreated, 3)
	res.advance(r.logger, DexIssuerOrderCreated)

	outcome, err = r.submit(ctx, logger.Trader, "trader buy order", accounts.Trader, models.CreateOrder{
		Base: res.BaseAsset, Quote: res.QuoteAsset, Side: models.Buy, Price: DexOrderPrice, SellAmount: DexOrderAmount,
	}, models.EventOrderCreated, models.EventExchangeCreated)
	if err != nil {
		return res, err
	}
	res.TraderOrder = r.optionalHash(outcome, models.EventOrderCreated, 3)
	// ExchangeCreated(AccountId, Hash, Hash, Hash, Dex)
	res.Exchange = r.optionalHash(outcome, models.EventExchangeCreated, 3)
	res.advance(r.logger, DexTraderOrderCreated)

	res.advance(r.logger, DexDone)
	return res, nil
}

// eventHash reads a required identifier from an event of the outcome
func eventHash(outcome models.Outcome, event string, field int) (common.Hash, error) {
	e, ok := outcome.Event(event)
	if !ok {
		return common.Hash{}, fmt.Errorf("%s: %w: %s", outcome.Label, models.ErrEventNotFound, event)
	}
	h, err := e.Hash(field)
	if err != nil {
		return common.Hash{}, fmt.Errorf("%s: %v", outcome.Label, err)
	}
	return h, nil
}

// optionalHash reads an identifier that is only logged
func (r *Runner) optionalHash(outcome models.Outcome, event string, field int) common.Hash {
	h, err := eventHash(outcome, event, field)
	if err != nil {
		r.logger.Debug("%v", err)
		return common.Hash{}
	}
	r.logger.Info("%s: %s %s", outcome.Label, event, h.Hex())
	return h
}
