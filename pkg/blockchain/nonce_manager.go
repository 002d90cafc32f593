package blockchain

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/metrics"
)

// NonceSource returns the next index the node expects from an account,
// transaction pool included
type NonceSource interface {
	AccountNonce(ctx context.Context, address string) (uint64, error)
}

// TransactionStatus represents the status of a transaction
type TransactionStatus int

const (
	// TxReserved indicates the nonce is handed out but nothing was submitted yet
	TxReserved TransactionStatus = iota
	// TxPending indicates the transaction was submitted
	TxPending
	// TxFinalized indicates the transaction is finalized
	TxFinalized
	// TxFailed indicates the transaction reached a failed terminal state
	TxFailed
)

// TransactionRecord tracks details about a transaction
type TransactionRecord struct {
	Hash      common.Hash
	Nonce     uint64
	CreatedAt time.Time
	UpdatedAt time.Time
	Status    TransactionStatus
}

// NonceManager hands out sequential nonces per address
type NonceManager struct {
	source NonceSource
	logger logger.Logger
	// Per-address data structures
	accounts map[string]*accountNonceData
	// Global lock for accessing accounts map
	mu sync.Mutex
}

// accountNonceData holds nonce data for a specific address
type accountNonceData struct {
	// Next nonce to hand out
	currentNonce uint64
	// Reserved or submitted transactions by nonce
	pendingTxs map[uint64]*TransactionRecord
	// Last time nonce was synchronized with the chain
	lastSync time.Time
	// Address-specific mutex for nonce operations
	mu sync.Mutex
}

// NewNonceManager creates a new nonce manager
func NewNonceManager(source NonceSource, log logger.Logger) *NonceManager {
	return &NonceManager{
		source:   source,
		logger:   log,
		accounts: make(map[string]*accountNonceData),
	}
}

// account returns the data for an address, creating it on first use
func (nm *NonceManager) account(address string) *accountNonceData {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	data, exists := nm.accounts[address]
	if !exists {
		data = &accountNonceData{
			pendingTxs: make(map[uint64]*TransactionRecord),
		}
		nm.accounts[address] = data
	}
	return data
}

// Next reserves and returns the next available nonce
func (nm *NonceManager) Next(ctx context.Context, address string) (uint64, error) {
	nonces, err := nm.Reserve(ctx, address, 1)
	if err != nil {
		return 0, err
	}
	return nonces[0], nil
}

// Reserve hands out k consecutive nonces with a single chain query. The
// reservation is atomic per address so concurrent callers never overlap.
func (nm *NonceManager) Reserve(ctx context.Context, address string, k int) ([]uint64, error) {
	if k <= 0 {
		return nil, fmt.Errorf("cannot reserve %d nonces", k)
	}

	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	chainNonce, err := nm.source.AccountNonce(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get account nonce for %s: %w", address, err)
	}

	switch {
	case len(data.pendingTxs) == 0:
		// nothing in flight, the chain is authoritative
		if !data.lastSync.IsZero() && chainNonce != data.currentNonce {
			nm.logger.Debug("Resetting nonce for %s: %d -> %d", address, data.currentNonce, chainNonce)
			metrics.NonceResyncs.Inc()
		}
		data.currentNonce = chainNonce
	case chainNonce > data.currentNonce:
		nm.logger.Debug("Updating nonce for %s: %d -> %d", address, data.currentNonce, chainNonce)
		data.currentNonce = chainNonce
	}
	data.lastSync = time.Now()

	now := time.Now()
	nonces := make([]uint64, k)
	for i := range nonces {
		nonce := data.currentNonce
		data.currentNonce++
		nonces[i] = nonce
		data.pendingTxs[nonce] = &TransactionRecord{
			Nonce:     nonce,
			CreatedAt: now,
			UpdatedAt: now,
			Status:    TxReserved,
		}
	}

	nm.logger.Debug("Reserved nonces %v for %s", nonces, address)
	return nonces, nil
}

// Track records the hash of a submitted transaction
func (nm *NonceManager) Track(address string, nonce uint64, txHash common.Hash) {
	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	now := time.Now()
	tx, exists := data.pendingTxs[nonce]
	if !exists {
		tx = &TransactionRecord{Nonce: nonce, CreatedAt: now}
		data.pendingTxs[nonce] = tx
	}
	tx.Hash = txHash
	tx.Status = TxPending
	tx.UpdatedAt = now

	nm.logger.Debug("Tracking transaction for %s with nonce %d: %s", address, nonce, txHash.Hex())
}

// MarkFinalized marks a transaction as finalized
func (nm *NonceManager) MarkFinalized(address string, nonce uint64) bool {
	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	tx, exists := data.pendingTxs[nonce]
	if !exists {
		nm.logger.Debug("No pending transaction found for %s, nonce %d", address, nonce)
		return false
	}

	tx.Status = TxFinalized
	tx.UpdatedAt = time.Now()
	delete(data.pendingTxs, nonce)
	return true
}

// MarkFailed marks a transaction as failed. If it held the highest nonce
// handed out, the nonce is returned for reuse.
func (nm *NonceManager) MarkFailed(address string, nonce uint64) bool {
	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	tx, exists := data.pendingTxs[nonce]
	if !exists {
		nm.logger.Debug("No pending transaction found for %s, nonce %d", address, nonce)
		return false
	}

	tx.Status = TxFailed
	tx.UpdatedAt = time.Now()
	delete(data.pendingTxs, nonce)

	if nonce+1 == data.currentNonce {
		data.currentNonce = nonce
		nm.logger.Debug("Reusing nonce %d for %s after transaction failure", nonce, address)
		return true
	}
	return false
}

// PendingCount returns the number of reserved or submitted transactions of an address
func (nm *NonceManager) PendingCount(address string) int {
	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	return len(data.pendingTxs)
}

// lowestPendingNonce finds the lowest nonce that is still pending
func lowestPendingNonce(data *accountNonceData) (uint64, bool) {
	var lowestNonce uint64
	foundFirst := false

	for nonce := range data.pendingTxs {
		if !foundFirst || nonce < lowestNonce {
			lowestNonce = nonce
			foundFirst = true
		}
	}

	return lowestNonce, foundFirst
}

// LowestPending returns the lowest nonce of an address still in flight
func (nm *NonceManager) LowestPending(address string) (uint64, bool) {
	data := nm.account(address)
	data.mu.Lock()
	defer data.mu.Unlock()

	return lowestPendingNonce(data)
}
