package blockchain

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnachain/dna-smoke/pkg/logger"
)

type stubNonceSource struct {
	mu     sync.Mutex
	nonces map[string]uint64
	calls  int
	err    error
}

func (s *stubNonceSource) AccountNonce(_ context.Context, address string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return s.nonces[address], nil
}

func (s *stubNonceSource) set(address string, nonce uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nonces[address] = nonce
}

func newStubSource() *stubNonceSource {
	return &stubNonceSource{nonces: map[string]uint64{}}
}

func TestNonceManagerReserveSequential(t *testing.T) {
	src := newStubSource()
	src.set("alice", 7)
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	nonces, err := nm.Reserve(context.Background(), "alice", 3)
	require.NoError(t, err)
	assert.Equal(t, []uint64{7, 8, 9}, nonces)
	assert.Equal(t, 1, src.calls)

	// still pending, so the counter only moves forward
	next, err := nm.Next(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), next)
	assert.Equal(t, 4, nm.PendingCount("alice"))
}

func TestNonceManagerResetsWhenIdle(t *testing.T) {
	src := newStubSource()
	src.set("alice", 3)
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	n, err := nm.Next(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	nm.Track("alice", n, common.HexToHash("0x01"))
	assert.True(t, nm.MarkFinalized("alice", n))

	// another client used the account meanwhile
	src.set("alice", 9)
	n, err = nm.Next(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(9), n)
}

func TestNonceManagerChainAhead(t *testing.T) {
	src := newStubSource()
	src.set("alice", 1)
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	_, err := nm.Next(context.Background(), "alice")
	require.NoError(t, err)

	src.set("alice", 5)
	n, err := nm.Next(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
}

func TestNonceManagerMarkFailedHandsBackHighest(t *testing.T) {
	src := newStubSource()
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	nonces, err := nm.Reserve(context.Background(), "alice", 2)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0, 1}, nonces)

	// a lower nonce failing does not rewind the counter
	assert.False(t, nm.MarkFailed("alice", 0))
	assert.True(t, nm.MarkFailed("alice", 1))
	assert.False(t, nm.MarkFailed("alice", 1))

	n, err := nm.Next(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n, "idle account resets to chain")
}

func TestNonceManagerLowestPending(t *testing.T) {
	src := newStubSource()
	src.set("alice", 4)
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	_, ok := nm.LowestPending("alice")
	assert.False(t, ok)

	_, err := nm.Reserve(context.Background(), "alice", 3)
	require.NoError(t, err)
	nm.MarkFinalized("alice", 4)

	lowest, ok := nm.LowestPending("alice")
	assert.True(t, ok)
	assert.Equal(t, uint64(5), lowest)
}

func TestNonceManagerQueryError(t *testing.T) {
	src := newStubSource()
	src.err = errors.New("rpc down")
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	_, err := nm.Next(context.Background(), "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, src.err)

	_, err = nm.Reserve(context.Background(), "alice", 0)
	assert.Error(t, err)
}

func TestNonceManagerConcurrentReservations(t *testing.T) {
	src := newStubSource()
	src.set("alice", 100)
	src.set("bob", 0)
	nm := NewNonceManager(src, &logger.EmptyLogger{})

	const workers = 20
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		alice []uint64
		bob   []uint64
	)
	for i := 0; i < workers; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			ns, err := nm.Reserve(context.Background(), "alice", 2)
			require.NoError(t, err)
			mu.Lock()
			alice = append(alice, ns...)
			mu.Unlock()
		}()
		go func() {
			defer wg.Done()
			n, err := nm.Next(context.Background(), "bob")
			require.NoError(t, err)
			mu.Lock()
			bob = append(bob, n)
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(alice, func(i, j int) bool { return alice[i] < alice[j] })
	sort.Slice(bob, func(i, j int) bool { return bob[i] < bob[j] })
	require.Len(t, alice, 2*workers)
	require.Len(t, bob, workers)
	for i := range alice {
		assert.Equal(t, uint64(100+i), alice[i])
	}
	for i := range bob {
		assert.Equal(t, uint64(i), bob[i])
	}
}
