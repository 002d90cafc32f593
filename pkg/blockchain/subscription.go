package blockchain

import (
	"sync"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dnachain/dna-smoke/pkg/models"
)

// StatusStream is a live subscription to the status updates of one transaction
type StatusStream interface {
	TxHash() common.Hash
	Status() <-chan models.TxStatus
	Err() <-chan error
	// Unsubscribe releases the subscription. Safe to call more than once.
	Unsubscribe()
}

// extrinsicSubscription is the subset of the author subscription we consume
type extrinsicSubscription interface {
	Chan() <-chan types.ExtrinsicStatus
	Err() <-chan error
	Unsubscribe()
}

// mapStatus converts a node status into the lifecycle state
func mapStatus(s types.ExtrinsicStatus) models.TxStatus {
	switch {
	case s.IsFuture:
		return models.TxStatus{Kind: models.StatusFuture}
	case s.IsReady:
		return models.TxStatus{Kind: models.StatusReady}
	case s.IsBroadcast:
		return models.TxStatus{Kind: models.StatusBroadcast}
	case s.IsInBlock:
		return models.TxStatus{Kind: models.StatusInBlock, Block: common.Hash(s.AsInBlock)}
	case s.IsRetracted:
		return models.TxStatus{Kind: models.StatusRetracted, Block: common.Hash(s.AsRetracted)}
	case s.IsFinalityTimeout:
		return models.TxStatus{Kind: models.StatusFinalityTimeout, Block: common.Hash(s.AsFinalityTimeout)}
	case s.IsFinalized:
		return models.TxStatus{Kind: models.StatusFinalized, Block: common.Hash(s.AsFinalized)}
	case s.IsUsurped:
		return models.TxStatus{Kind: models.StatusUsurped, Block: common.Hash(s.AsUsurped)}
	case s.IsDropped:
		return models.TxStatus{Kind: models.StatusDropped}
	default:
		return models.TxStatus{Kind: models.StatusInvalid}
	}
}

// watchStream forwards a node subscription as lifecycle statuses
type watchStream struct {
	txHash common.Hash
	sub    extrinsicSubscription
	out    chan models.TxStatus
	done   chan struct{}
	once   sync.Once
}

var _ StatusStream = (*watchStream)(nil)

func newWatchStream(txHash common.Hash, sub extrinsicSubscription) *watchStream {
	w := &watchStream{
		txHash: txHash,
		sub:    sub,
		out:    make(chan models.TxStatus),
		done:   make(chan struct{}),
	}
	go w.forward()
	return w
}

func (w *watchStream) forward() {
	defer close(w.out)
	for {
		select {
		case s, ok := <-w.sub.Chan():
			if !ok {
				return
			}
			select {
			case w.out <- mapStatus(s):
			case <-w.done:
				return
			}
		case <-w.done:
			return
		}
	}
}

func (w *watchStream) TxHash() common.Hash            { return w.txHash }
func (w *watchStream) Status() <-chan models.TxStatus { return w.out }
func (w *watchStream) Err() <-chan error              { return w.sub.Err() }

func (w *watchStream) Unsubscribe() {
	w.once.Do(func() {
		close(w.done)
		w.sub.Unsubscribe()
	})
}
