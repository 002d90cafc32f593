package models

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallValidate(t *testing.T) {
	btc := common.HexToHash("0x01")
	eth := common.HexToHash("0x02")

	tests := []struct {
		name    string
		call    Call
		wantErr bool
	}{
		{"transfer ok", Transfer{To: "5Grw", Amount: big.NewInt(1)}, false},
		{"transfer zero amount", Transfer{To: "5Grw", Amount: big.NewInt(0)}, true},
		{"transfer nil amount", Transfer{To: "5Grw"}, true},
		{"issue missing symbol", IssueAsset{TotalSupply: big.NewInt(10)}, true},
		{"deposit missing asset", DepositAsset{To: "5Grw", Amount: big.NewInt(1)}, true},
		{"pair same assets", CreateExchangePair{Base: btc, Quote: btc}, true},
		{"pair ok", CreateExchangePair{Base: btc, Quote: eth}, false},
		{"order bad side", CreateOrder{Base: btc, Quote: eth, Side: 7, Price: big.NewInt(1), SellAmount: big.NewInt(1)}, true},
		{"order ok", CreateOrder{Base: btc, Quote: eth, Side: Sell, Price: big.NewInt(1), SellAmount: big.NewInt(300000)}, false},
		{"identity without display", SetIdentity{}, true},
		{"identity field too long", SetIdentity{Info: IdentityInfo{Display: []byte("x"), Web: make([]byte, 33)}}, true},
		{"judgement request", RequestJudgement{MaxFee: big.NewInt(10)}, false},
		{"judgement without identity", ProvideJudgement{Target: "5Grw", Judgement: JudgementFeePaid}, true},
		{"judgement ok", ProvideJudgement{Target: "5Grw", Judgement: JudgementFeePaid, Info: IdentityInfo{Display: []byte("DHRUV")}}, false},
		{"sudo without call", Sudo{}, true},
		{"nested sudo", Sudo{Call: Sudo{Call: AddRegistrar{Account: "5Grw"}}}, true},
		{"sudo ok", Sudo{Call: AddRegistrar{Account: "5Grw"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSudoEventsIncludeInnerCall(t *testing.T) {
	call := Sudo{Call: AddRegistrar{Account: "5Grw"}}
	assert.Equal(t, []string{EventSudid, EventRegistrarAdded}, call.Events())
}

func TestIntentExpectedEvents(t *testing.T) {
	intent := &Intent{Call: CreateOrder{}}
	assert.Equal(t, []string{EventOrderCreated}, intent.ExpectedEvents())

	intent.Expect = []string{EventOrderCreated, EventExchangeCreated}
	assert.Equal(t, []string{EventOrderCreated, EventExchangeCreated}, intent.ExpectedEvents())
}

func TestOutcomeError(t *testing.T) {
	assert.NoError(t, Succeeded("fund", common.Hash{}, common.Hash{}, nil).Error())

	err := Failed("issue BTC", ReasonTimedOut, nil).Error()
	assert.True(t, errors.Is(err, ErrSubmissionFailure))
	assert.True(t, errors.Is(err, ErrTimedOut))
	assert.Contains(t, err.Error(), "issue BTC")

	err = Failed("pair", ReasonEventNotFound, errors.New("missing Dex.ExchangePairCreated")).Error()
	assert.True(t, errors.Is(err, ErrEventNotFound))
	assert.Contains(t, err.Error(), "missing Dex.ExchangePairCreated")

	err = Failed("order", ReasonDropped, nil).Error()
	assert.True(t, errors.Is(err, ErrSubmissionFailure))
	assert.False(t, errors.Is(err, ErrTimedOut))

	err = Failed("transfer", ReasonCancelled, nil).Error()
	assert.True(t, errors.Is(err, context.Canceled))
	assert.False(t, errors.Is(err, ErrTimedOut))
	assert.Contains(t, err.Error(), "(cancelled)")
}

func TestChainEventAccessors(t *testing.T) {
	asset := common.HexToHash("0xabcdef")
	event := ChainEvent{
		Name: EventIssued,
		Fields: []EventField{
			{Name: "who", Value: make([]byte, 32)},
			{Name: "hash", Value: []EventField{{Value: asset.Bytes()}}},
			{Name: "amount", Value: big.NewInt(2000000)},
		},
	}

	h, err := event.Hash(1)
	require.NoError(t, err)
	assert.Equal(t, asset, h)

	amount, err := event.Amount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), amount.Int64())

	_, err = event.Hash(2)
	assert.Error(t, err)
	_, err = event.Amount(5)
	assert.Error(t, err)
}

func TestParseJudgementAndAlgorithm(t *testing.T) {
	j, err := ParseJudgement("feepaid")
	require.NoError(t, err)
	assert.Equal(t, JudgementFeePaid, j)

	_, err = ParseJudgement("great")
	assert.Error(t, err)

	alg, err := ParseKeyAlgorithm("ED25519")
	require.NoError(t, err)
	assert.Equal(t, Ed25519, alg)

	_, err = ParseKeyAlgorithm("ecdsa")
	assert.Error(t, err)
}
