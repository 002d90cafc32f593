package models

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event names emitted by the pallets the scenarios drive
const (
	EventTransfer            = "Balances.Transfer"
	EventIssued              = "Assets.Issued"
	EventAssetTransferred    = "Assets.Transfered"
	EventExchangePairCreated = "Dex.ExchangePairCreated"
	EventOrderCreated        = "Dex.OrderCreated"
	EventExchangeCreated     = "Dex.ExchangeCreated"
	EventIdentitySet         = "Identity.IdentitySet"
	EventJudgementRequested  = "Identity.JudgementRequested"
	EventJudgementGiven      = "Identity.JudgementGiven"
	EventRegistrarAdded      = "Identity.RegistrarAdded"
	EventSudid               = "Sudo.Sudid"
	EventExtrinsicFailed     = "System.ExtrinsicFailed"
)

// Call is a dispatchable call with named, typed arguments
type Call interface {
	// Name returns the "Pallet.method" the call dispatches to
	Name() string
	// Events returns the events a successful execution emits
	Events() []string
	Validate() error
}

func positive(field string, v *big.Int) error {
	if v == nil || v.Sign() <= 0 {
		return fmt.Errorf("%s must be positive", field)
	}
	return nil
}

func nonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

// Transfer moves native balance to another account
type Transfer struct {
	To     string
	Amount *big.Int
}

func (Transfer) Name() string     { return "Balances.transfer" }
func (Transfer) Events() []string { return []string{EventTransfer} }

func (c Transfer) Validate() error {
	return errors.Join(nonEmpty("to", c.To), positive("amount", c.Amount))
}

// IssueAsset creates a new asset owned by the signer
type IssueAsset struct {
	Symbol      string
	TotalSupply *big.Int
}

func (IssueAsset) Name() string     { return "Assets.issue" }
func (IssueAsset) Events() []string { return []string{EventIssued} }

func (c IssueAsset) Validate() error {
	return errors.Join(nonEmpty("symbol", c.Symbol), positive("total supply", c.TotalSupply))
}

// DepositAsset transfers units of an issued asset to another account
type DepositAsset struct {
	Asset  common.Hash
	To     string
	Amount *big.Int
}

func (DepositAsset) Name() string     { return "Assets.deposit" }
func (DepositAsset) Events() []string { return []string{EventAssetTransferred} }

func (c DepositAsset) Validate() error {
	var errs []error
	if c.Asset == (common.Hash{}) {
		errs = append(errs, errors.New("asset is required"))
	}
	errs = append(errs, nonEmpty("to", c.To), positive("amount", c.Amount))
	return errors.Join(errs...)
}

// CreateExchangePair opens a trading pair between two assets
type CreateExchangePair struct {
	Base  common.Hash
	Quote common.Hash
}

func (CreateExchangePair) Name() string     { return "Dex.create_exchange_pair" }
func (CreateExchangePair) Events() []string { return []string{EventExchangePairCreated} }

func (c CreateExchangePair) Validate() error {
	if c.Base == (common.Hash{}) || c.Quote == (common.Hash{}) {
		return errors.New("base and quote assets are required")
	}
	if c.Base == c.Quote {
		return errors.New("base and quote must differ")
	}
	return nil
}

// OrderType is the side of a limit order, encoded as the pallet enum index
type OrderType uint8

const (
	Buy OrderType = iota
	Sell
)

func (o OrderType) String() string {
	if o == Buy {
		return "Buy"
	}
	return "Sell"
}

// CreateOrder places a limit order on an exchange pair
type CreateOrder struct {
	Base       common.Hash
	Quote      common.Hash
	Side       OrderType
	Price      *big.Int
	SellAmount *big.Int
}

func (CreateOrder) Name() string     { return "Dex.create_order" }
func (CreateOrder) Events() []string { return []string{EventOrderCreated} }

func (c CreateOrder) Validate() error {
	var errs []error
	if c.Base == (common.Hash{}) || c.Quote == (common.Hash{}) {
		errs = append(errs, errors.New("base and quote assets are required"))
	}
	if c.Side > Sell {
		errs = append(errs, fmt.Errorf("unknown order side %d", c.Side))
	}
	errs = append(errs, positive("price", c.Price), positive("sell amount", c.SellAmount))
	return errors.Join(errs...)
}

// IdentityInfo holds the raw identity fields. Empty fields are encoded as None.
type IdentityInfo struct {
	Display []byte
	Legal   []byte
	Web     []byte
	Riot    []byte
	Email   []byte
	Image   []byte
	Twitter []byte
}

// MaxIdentityFieldLen is the largest raw value an identity field can carry
const MaxIdentityFieldLen = 32

// SetIdentity sets the on-chain identity of the signer
type SetIdentity struct {
	Info IdentityInfo
}

func (SetIdentity) Name() string     { return "Identity.set_identity" }
func (SetIdentity) Events() []string { return []string{EventIdentitySet} }

func (c SetIdentity) Validate() error {
	if len(c.Info.Display) == 0 {
		return errors.New("display name is required")
	}
	fields := map[string][]byte{
		"display": c.Info.Display, "legal": c.Info.Legal, "web": c.Info.Web, "riot": c.Info.Riot,
		"email": c.Info.Email, "image": c.Info.Image, "twitter": c.Info.Twitter,
	}
	for name, v := range fields {
		if len(v) > MaxIdentityFieldLen {
			return fmt.Errorf("%s exceeds %d bytes", name, MaxIdentityFieldLen)
		}
	}
	return nil
}

// RequestJudgement asks a registrar to judge the signer's identity
type RequestJudgement struct {
	RegistrarIndex uint32
	MaxFee         *big.Int
}

func (RequestJudgement) Name() string     { return "Identity.request_judgement" }
func (RequestJudgement) Events() []string { return []string{EventJudgementRequested} }

func (c RequestJudgement) Validate() error {
	if c.MaxFee == nil || c.MaxFee.Sign() < 0 {
		return errors.New("max fee must not be negative")
	}
	return nil
}

// Judgement is a registrar verdict, encoded as the pallet enum index
type Judgement uint8

const (
	JudgementUnknown Judgement = iota
	JudgementFeePaid
	JudgementReasonable
	JudgementKnownGood
	JudgementOutOfDate
	JudgementLowQuality
	JudgementErroneous
)

var judgementNames = map[string]Judgement{
	"unknown":    JudgementUnknown,
	"feepaid":    JudgementFeePaid,
	"reasonable": JudgementReasonable,
	"knowngood":  JudgementKnownGood,
	"outofdate":  JudgementOutOfDate,
	"lowquality": JudgementLowQuality,
	"erroneous":  JudgementErroneous,
}

// ParseJudgement parses a judgement name such as "feepaid"
func ParseJudgement(s string) (Judgement, error) {
	j, ok := judgementNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown judgement: %s", s)
	}
	return j, nil
}

// ProvideJudgement is a registrar's verdict on a target's identity. Info is
// the identity being judged; the chain rejects the verdict if it has changed.
type ProvideJudgement struct {
	RegistrarIndex uint32
	Target         string
	Judgement      Judgement
	Info           IdentityInfo
}

func (ProvideJudgement) Name() string     { return "Identity.provide_judgement" }
func (ProvideJudgement) Events() []string { return []string{EventJudgementGiven} }

func (c ProvideJudgement) Validate() error {
	if c.Judgement > JudgementErroneous {
		return fmt.Errorf("unknown judgement %d", c.Judgement)
	}
	if len(c.Info.Display) == 0 {
		return errors.New("judged identity needs a display name")
	}
	return nonEmpty("target", c.Target)
}

// AddRegistrar registers a new identity registrar. Requires root.
type AddRegistrar struct {
	Account string
}

func (AddRegistrar) Name() string     { return "Identity.add_registrar" }
func (AddRegistrar) Events() []string { return []string{EventRegistrarAdded} }

func (c AddRegistrar) Validate() error {
	return nonEmpty("account", c.Account)
}

// Sudo dispatches the wrapped call with root origin
type Sudo struct {
	Call Call
}

func (Sudo) Name() string { return "Sudo.sudo" }

func (c Sudo) Events() []string {
	events := []string{EventSudid}
	if c.Call != nil {
		events = append(events, c.Call.Events()...)
	}
	return events
}

func (c Sudo) Validate() error {
	if c.Call == nil {
		return errors.New("sudo requires an inner call")
	}
	if _, nested := c.Call.(Sudo); nested {
		return errors.New("nested sudo calls are not supported")
	}
	return c.Call.Validate()
}
