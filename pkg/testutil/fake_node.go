package testutil

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/blake2b"

	"github.com/dnachain/dna-smoke/pkg/blockchain"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// Behavior overrides what the fake node does with one submission
type Behavior struct {
	// Statuses replaces the default Ready, InBlock, Finalized sequence
	Statuses []models.TxStatus
	// Events replaces the events the call would emit
	Events []models.ChainEvent
	// SubmitErr makes SubmitAndWatch fail
	SubmitErr error
	// StreamErr is delivered on the error channel after the statuses
	StreamErr error
	// Close closes the status channel after the statuses
	Close bool
}

type order struct {
	owner string
	side  models.OrderType
}

// FakeNode is an in-memory chain: balances, assets, nonces and a status
// stream per submission. Calls take effect when submitted.
type FakeNode struct {
	mu          sync.Mutex
	balances    map[string]*big.Int
	assets      map[common.Hash]map[string]*big.Int
	nonces      map[string]uint64
	orders      map[common.Hash][]order
	events      map[common.Hash][]models.ChainEvent
	behaviors   map[string]Behavior
	future      map[string]map[uint64]parked
	submissions []*models.Intent
	streams     []*FakeStream
	blocks      uint64
	BalanceErr  error
}

var _ blockchain.NonceSource = (*FakeNode)(nil)

// NewFakeNode creates an empty chain
func NewFakeNode() *FakeNode {
	return &FakeNode{
		balances:  make(map[string]*big.Int),
		assets:    make(map[common.Hash]map[string]*big.Int),
		nonces:    make(map[string]uint64),
		orders:    make(map[common.Hash][]order),
		events:    make(map[common.Hash][]models.ChainEvent),
		behaviors: make(map[string]Behavior),
		future:    make(map[string]map[uint64]parked),
	}
}

// SetBalance sets the free balance of an address
func (n *FakeNode) SetBalance(address string, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.balances[address] = big.NewInt(amount)
}

// SetNonce sets the next index of an address
func (n *FakeNode) SetNonce(address string, nonce uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nonces[address] = nonce
}

// On overrides the behavior of submissions with the given label
func (n *FakeNode) On(label string, b Behavior) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.behaviors[label] = b
}

// Submissions returns the submitted intents in order
func (n *FakeNode) Submissions() []*models.Intent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*models.Intent(nil), n.submissions...)
}

// Streams returns every stream handed out
func (n *FakeNode) Streams() []*FakeStream {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*FakeStream(nil), n.streams...)
}

// Balance returns the free balance of an address
func (n *FakeNode) Balance(address string) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balance(address)
}

func (n *FakeNode) balance(address string) *big.Int {
	if b, ok := n.balances[address]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (n *FakeNode) assetBalance(asset common.Hash, address string) *big.Int {
	if holders, ok := n.assets[asset]; ok {
		if b, ok := holders[address]; ok {
			return new(big.Int).Set(b)
		}
	}
	return new(big.Int)
}

func (n *FakeNode) setAsset(asset common.Hash, address string, v *big.Int) {
	if n.assets[asset] == nil {
		n.assets[asset] = make(map[string]*big.Int)
	}
	n.assets[asset][address] = v
}

// AccountNonce implements blockchain.NonceSource
func (n *FakeNode) AccountNonce(_ context.Context, address string) (uint64, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.nonces[address], nil
}

// FreeBalance returns the free balance of an address
func (n *FakeNode) FreeBalance(_ context.Context, address string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.BalanceErr != nil {
		return nil, n.BalanceErr
	}
	return n.balance(address), nil
}

// AssetBalance returns the balance an address holds of an asset
func (n *FakeNode) AssetBalance(_ context.Context, asset common.Hash, address string) (*big.Int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.assetBalance(asset, address), nil
}

// SubmitAndWatch applies the call and returns its scripted status stream.
// Like a transaction pool, a nonce ahead of the account's next index is held
// as Future until the gap is filled; a nonce below it is Invalid.
func (n *FakeNode) SubmitAndWatch(_ context.Context, intent *models.Intent) (blockchain.StatusStream, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.submissions = append(n.submissions, intent)
	b := n.behaviors[intent.Label]
	if b.SubmitErr != nil {
		return nil, b.SubmitErr
	}

	address := intent.Signer.Address()
	txHash := hashOf(intent.Label, uint64(len(n.submissions)), address, intent.Nonce)

	if b.Statuses != nil {
		if b.Events != nil {
			n.events[txHash] = b.Events
		}
		stream := newFakeStream(txHash, b.Statuses, b.StreamErr, b.Close)
		n.streams = append(n.streams, stream)
		return stream, nil
	}

	stream := newFakeStream(txHash, nil, nil, false)
	n.streams = append(n.streams, stream)

	next := n.nonces[address]
	switch {
	case intent.Nonce < next:
		stream.push(models.TxStatus{Kind: models.StatusInvalid})
	case intent.Nonce > next:
		stream.push(models.TxStatus{Kind: models.StatusFuture})
		if n.future[address] == nil {
			n.future[address] = make(map[uint64]parked)
		}
		n.future[address][intent.Nonce] = parked{intent: intent, events: b.Events, txHash: txHash, stream: stream}
	default:
		n.include(address, parked{intent: intent, events: b.Events, txHash: txHash, stream: stream})
		// promote queued transactions whose gap is now filled
		for {
			p, ok := n.future[address][n.nonces[address]]
			if !ok {
				break
			}
			delete(n.future[address], p.intent.Nonce)
			n.include(address, p)
		}
	}
	return stream, nil
}

// parked is a submission waiting in the future queue
type parked struct {
	intent *models.Intent
	events []models.ChainEvent
	txHash common.Hash
	stream *FakeStream
}

// include executes a ready transaction in a new block
func (n *FakeNode) include(address string, p parked) {
	n.nonces[address] = p.intent.Nonce + 1
	events := n.apply(address, p.intent.Call)
	if p.events != nil {
		events = p.events
	}
	n.events[p.txHash] = events

	n.blocks++
	block := hashOf("block", n.blocks)
	p.stream.push(
		models.TxStatus{Kind: models.StatusReady},
		models.TxStatus{Kind: models.StatusInBlock, Block: block},
		models.TxStatus{Kind: models.StatusFinalized, Block: block},
	)
}

// ExtrinsicEvents returns the events recorded for a transaction
func (n *FakeNode) ExtrinsicEvents(_ context.Context, _, txHash common.Hash) ([]models.ChainEvent, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	events, ok := n.events[txHash]
	if !ok {
		return nil, fmt.Errorf("no events for %s", txHash.Hex())
	}
	return events, nil
}

func failed() []models.ChainEvent {
	return []models.ChainEvent{{Name: models.EventExtrinsicFailed}}
}

func field(v any) models.EventField {
	return models.EventField{Value: v}
}

// apply executes a call against the ledger and returns its events
func (n *FakeNode) apply(from string, call models.Call) []models.ChainEvent {
	switch c := call.(type) {
	case models.Transfer:
		balance := n.balance(from)
		if balance.Cmp(c.Amount) < 0 {
			return failed()
		}
		n.balances[from] = balance.Sub(balance, c.Amount)
		n.balances[c.To] = new(big.Int).Add(n.balance(c.To), c.Amount)
		return []models.ChainEvent{{Name: models.EventTransfer, Fields: []models.EventField{
			field(from), field(c.To), field(new(big.Int).Set(c.Amount)),
		}}}

	case models.IssueAsset:
		asset := hashOf("asset", c.Symbol, from, n.nonces[from])
		n.setAsset(asset, from, new(big.Int).Set(c.TotalSupply))
		return []models.ChainEvent{{Name: models.EventIssued, Fields: []models.EventField{
			field(from), field(asset), field(new(big.Int).Set(c.TotalSupply)),
		}}}

	case models.DepositAsset:
		balance := n.assetBalance(c.Asset, from)
		if balance.Cmp(c.Amount) < 0 {
			return failed()
		}
		n.setAsset(c.Asset, from, balance.Sub(balance, c.Amount))
		n.setAsset(c.Asset, c.To, new(big.Int).Add(n.assetBalance(c.Asset, c.To), c.Amount))
		return []models.ChainEvent{{Name: models.EventAssetTransferred, Fields: []models.EventField{
			field(from), field(c.To), field(c.Asset), field(new(big.Int).Set(c.Amount)),
		}}}

	case models.CreateExchangePair:
		pair := hashOf("pair", c.Base, c.Quote)
		return []models.ChainEvent{{Name: models.EventExchangePairCreated, Fields: []models.EventField{
			field(from), field(pair),
		}}}

	case models.CreateOrder:
		pair := hashOf("pair", c.Base, c.Quote)
		orderHash := hashOf("order", from, n.nonces[from])
		events := []models.ChainEvent{{Name: models.EventOrderCreated, Fields: []models.EventField{
			field(from), field(c.Base), field(c.Quote), field(orderHash),
		}}}
		for _, o := range n.orders[pair] {
			if o.side != c.Side {
				events = append(events, models.ChainEvent{Name: models.EventExchangeCreated, Fields: []models.EventField{
					field(from), field(c.Base), field(c.Quote), field(hashOf("exchange", orderHash)),
				}})
				break
			}
		}
		n.orders[pair] = append(n.orders[pair], order{owner: from, side: c.Side})
		return events

	case models.Sudo:
		return append([]models.ChainEvent{{Name: models.EventSudid}}, n.apply(from, c.Call)...)
	}

	var events []models.ChainEvent
	for _, name := range call.Events() {
		events = append(events, models.ChainEvent{Name: name, Fields: []models.EventField{field(from)}})
	}
	return events
}

func hashOf(parts ...any) common.Hash {
	h, _ := blake2b.New256(nil)
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			h.Write([]byte(v))
		case uint64:
			h.Write(binary.LittleEndian.AppendUint64(nil, v))
		case common.Hash:
			h.Write(v[:])
		}
	}
	return common.BytesToHash(h.Sum(nil))
}

// FakeStream replays scripted statuses
type FakeStream struct {
	txHash       common.Hash
	status       chan models.TxStatus
	errs         chan error
	mu           sync.Mutex
	unsubscribed int
}

var _ blockchain.StatusStream = (*FakeStream)(nil)

// streamBuffer holds every status a fake stream can be sent
const streamBuffer = 16

func newFakeStream(txHash common.Hash, statuses []models.TxStatus, streamErr error, closeAfter bool) *FakeStream {
	s := &FakeStream{
		txHash: txHash,
		status: make(chan models.TxStatus, max(len(statuses), streamBuffer)),
		errs:   make(chan error, 1),
	}
	for _, st := range statuses {
		s.status <- st
	}
	if closeAfter {
		close(s.status)
	}
	if streamErr != nil {
		s.errs <- streamErr
	}
	return s
}

func (s *FakeStream) push(statuses ...models.TxStatus) {
	for _, st := range statuses {
		s.status <- st
	}
}

func (s *FakeStream) TxHash() common.Hash            { return s.txHash }
func (s *FakeStream) Status() <-chan models.TxStatus { return s.status }
func (s *FakeStream) Err() <-chan error              { return s.errs }

func (s *FakeStream) Unsubscribe() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unsubscribed++
}

// Unsubscribed returns how many times Unsubscribe was called
func (s *FakeStream) Unsubscribed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsubscribed
}

// ErrNodeDown is a ready made submission error
var ErrNodeDown = errors.New("node unavailable")
