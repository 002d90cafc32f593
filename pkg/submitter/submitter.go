package submitter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/dnachain/dna-smoke/pkg/blockchain"
	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/metrics"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// DefaultTimeout bounds the wait for a terminal status
const DefaultTimeout = 2 * time.Minute

// Node submits signed transactions and reads back their events
type Node interface {
	SubmitAndWatch(ctx context.Context, intent *models.Intent) (blockchain.StatusStream, error)
	ExtrinsicEvents(ctx context.Context, block, txHash common.Hash) ([]models.ChainEvent, error)
}

// NonceTracker is told what happened to every nonce it handed out
type NonceTracker interface {
	Track(address string, nonce uint64, txHash common.Hash)
	MarkFinalized(address string, nonce uint64) bool
	MarkFailed(address string, nonce uint64) bool
	LowestPending(address string) (uint64, bool)
}

// Submitter turns intents into exactly one outcome each
type Submitter struct {
	node    Node
	nonces  NonceTracker
	timeout time.Duration
	logger  logger.Logger
}

// New creates a submitter. A zero timeout means DefaultTimeout.
func New(node Node, nonces NonceTracker, timeout time.Duration, log logger.Logger) *Submitter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Submitter{
		node:    node,
		nonces:  nonces,
		timeout: timeout,
		logger:  log,
	}
}

// Timeout returns the per submission timeout
func (s *Submitter) Timeout() time.Duration {
	return s.timeout
}

// Submit signs and submits the intent, then follows its status stream until
// finalization, a failed terminal status, a stream error or the timeout.
func (s *Submitter) Submit(ctx context.Context, intent *models.Intent) models.Outcome {
	start := time.Now()
	outcome := s.submit(ctx, intent)

	callName := "unknown"
	if intent.Call != nil {
		callName = intent.Call.Name()
	}
	metrics.SubmissionTime.WithLabelValues(callName).Observe(time.Since(start).Seconds())
	if outcome.Success {
		metrics.Submissions.WithLabelValues(callName, "success").Inc()
		s.logger.Debug("%s finalized in block %s", intent.Label, outcome.Block.Hex())
	} else {
		metrics.Submissions.WithLabelValues(callName, "failure").Inc()
		metrics.SubmissionFailures.WithLabelValues(callName, string(outcome.Reason)).Inc()
		s.logger.Error("%s failed: %v", intent.Label, outcome.Error())
	}
	return outcome
}

func (s *Submitter) submit(ctx context.Context, intent *models.Intent) models.Outcome {
	if err := intent.Validate(); err != nil {
		return models.Failed(intent.Label, models.ReasonSubmitError, err)
	}
	address := intent.Signer.Address()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	stream, err := s.node.SubmitAndWatch(ctx, intent)
	if err != nil {
		s.markFailed(address, intent.Nonce)
		return models.Failed(intent.Label, models.ReasonSubmitError, err)
	}
	defer stream.Unsubscribe()

	txHash := stream.TxHash()
	if s.nonces != nil {
		s.nonces.Track(address, intent.Nonce, txHash)
	}
	s.logger.Debug("%s submitted: %s", intent.Label, txHash.Hex())

	for {
		select {
		case <-ctx.Done():
			if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
				s.markFailed(address, intent.Nonce)
				return models.Failed(intent.Label, models.ReasonCancelled, nil)
			}
			err := fmt.Errorf("no terminal status after %s", s.timeout)
			if lowest, ok := s.lowestPending(address); ok && lowest < intent.Nonce {
				s.logger.Notice("%s: nonce %d is queued behind pending nonce %d of %s", intent.Label, intent.Nonce, lowest, address)
				err = fmt.Errorf("%w, queued behind pending nonce %d", err, lowest)
			}
			s.markFailed(address, intent.Nonce)
			return models.Failed(intent.Label, models.ReasonTimedOut, err)

		case err, ok := <-stream.Err():
			if !ok {
				// a closed error channel carries nothing; keep following statuses
				stream = withoutErrors{stream}
				continue
			}
			s.markFailed(address, intent.Nonce)
			return models.Failed(intent.Label, models.ReasonStreamError, err)

		case status, ok := <-stream.Status():
			if !ok {
				s.markFailed(address, intent.Nonce)
				return models.Failed(intent.Label, models.ReasonStreamClosed,
					errors.New("status stream closed before a terminal status"))
			}

			switch status.Kind {
			case models.StatusFinalized:
				outcome := s.finalized(ctx, intent, status.Block, txHash)
				// a finalized transaction used its nonce whatever the result
				s.markFinalized(address, intent.Nonce)
				return outcome
			case models.StatusDropped:
				s.markFailed(address, intent.Nonce)
				return models.Failed(intent.Label, models.ReasonDropped, nil)
			case models.StatusInvalid:
				s.markFailed(address, intent.Nonce)
				return models.Failed(intent.Label, models.ReasonInvalid, nil)
			case models.StatusUsurped:
				s.markFailed(address, intent.Nonce)
				return models.Failed(intent.Label, models.ReasonUsurped,
					fmt.Errorf("replaced by %s", status.Block.Hex()))
			case models.StatusInBlock:
				s.logger.Debug("%s included in block %s", intent.Label, status.Block.Hex())
			case models.StatusRetracted, models.StatusFinalityTimeout:
				s.logger.Notice("%s: %s in block %s, waiting", intent.Label, status.Kind, status.Block.Hex())
			default:
				s.logger.Debug("%s: %s", intent.Label, status.Kind)
			}
		}
	}
}

// finalized checks the events of a finalized transaction
func (s *Submitter) finalized(ctx context.Context, intent *models.Intent, block, txHash common.Hash) models.Outcome {
	events, err := s.node.ExtrinsicEvents(ctx, block, txHash)
	if err != nil {
		return models.Failed(intent.Label, models.ReasonEventNotFound, err)
	}

	names := make(map[string]bool, len(events))
	for _, e := range events {
		names[e.Name] = true
	}
	if names[models.EventExtrinsicFailed] {
		return models.Failed(intent.Label, models.ReasonExtrinsicFailed,
			fmt.Errorf("dispatch failed in block %s", block.Hex()))
	}

	var missing []string
	for _, want := range intent.ExpectedEvents() {
		if !names[want] {
			missing = append(missing, want)
		}
	}
	if len(missing) > 0 {
		return models.Failed(intent.Label, models.ReasonEventNotFound,
			fmt.Errorf("missing %v in block %s", missing, block.Hex()))
	}

	return models.Succeeded(intent.Label, block, txHash, events)
}

func (s *Submitter) markFailed(address string, nonce uint64) {
	if s.nonces != nil {
		s.nonces.MarkFailed(address, nonce)
	}
}

func (s *Submitter) lowestPending(address string) (uint64, bool) {
	if s.nonces == nil {
		return 0, false
	}
	return s.nonces.LowestPending(address)
}

func (s *Submitter) markFinalized(address string, nonce uint64) {
	if s.nonces != nil {
		s.nonces.MarkFinalized(address, nonce)
	}
}

// SubmitAll submits the intents concurrently and waits for all of them. The
// intents must already carry distinct nonces. The returned error is the first
// failed outcome, if any.
func (s *Submitter) SubmitAll(ctx context.Context, intents []*models.Intent) ([]models.Outcome, error) {
	outcomes := make([]models.Outcome, len(intents))

	var g errgroup.Group
	for i, intent := range intents {
		g.Go(func() error {
			outcomes[i] = s.Submit(ctx, intent)
			return outcomes[i].Error()
		})
	}
	return outcomes, g.Wait()
}

// withoutErrors masks a closed error channel so select stops spinning on it
type withoutErrors struct {
	blockchain.StatusStream
}

func (withoutErrors) Err() <-chan error { return nil }
