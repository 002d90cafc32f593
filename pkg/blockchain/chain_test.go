package blockchain

import (
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/centrifuge/go-substrate-rpc-client/v4/xxhash"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"

	"github.com/dnachain/dna-smoke/pkg/models"
)

func TestMapStatus(t *testing.T) {
	block := types.NewHash([]byte{0x01, 0x02})

	tests := []struct {
		name   string
		status types.ExtrinsicStatus
		want   models.TxStatus
	}{
		{"future", types.ExtrinsicStatus{IsFuture: true}, models.TxStatus{Kind: models.StatusFuture}},
		{"ready", types.ExtrinsicStatus{IsReady: true}, models.TxStatus{Kind: models.StatusReady}},
		{"broadcast", types.ExtrinsicStatus{IsBroadcast: true}, models.TxStatus{Kind: models.StatusBroadcast}},
		{"in block", types.ExtrinsicStatus{IsInBlock: true, AsInBlock: block}, models.TxStatus{Kind: models.StatusInBlock, Block: common.Hash(block)}},
		{"retracted", types.ExtrinsicStatus{IsRetracted: true, AsRetracted: block}, models.TxStatus{Kind: models.StatusRetracted, Block: common.Hash(block)}},
		{"finality timeout", types.ExtrinsicStatus{IsFinalityTimeout: true, AsFinalityTimeout: block}, models.TxStatus{Kind: models.StatusFinalityTimeout, Block: common.Hash(block)}},
		{"finalized", types.ExtrinsicStatus{IsFinalized: true, AsFinalized: block}, models.TxStatus{Kind: models.StatusFinalized, Block: common.Hash(block)}},
		{"usurped", types.ExtrinsicStatus{IsUsurped: true, AsUsurped: block}, models.TxStatus{Kind: models.StatusUsurped, Block: common.Hash(block)}},
		{"dropped", types.ExtrinsicStatus{IsDropped: true}, models.TxStatus{Kind: models.StatusDropped}},
		{"invalid", types.ExtrinsicStatus{IsInvalid: true}, models.TxStatus{Kind: models.StatusInvalid}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mapStatus(tt.status))
		})
	}
}

type fakeSubscription struct {
	ch           chan types.ExtrinsicStatus
	errs         chan error
	mu           sync.Mutex
	unsubscribed int
}

func (f *fakeSubscription) Chan() <-chan types.ExtrinsicStatus { return f.ch }
func (f *fakeSubscription) Err() <-chan error                  { return f.errs }
func (f *fakeSubscription) Unsubscribe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unsubscribed++
}

func TestWatchStream(t *testing.T) {
	sub := &fakeSubscription{ch: make(chan types.ExtrinsicStatus, 2), errs: make(chan error)}
	sub.ch <- types.ExtrinsicStatus{IsReady: true}
	sub.ch <- types.ExtrinsicStatus{IsFinalized: true}

	txHash := common.HexToHash("0xabcd")
	w := newWatchStream(txHash, sub)
	assert.Equal(t, txHash, w.TxHash())

	assert.Equal(t, models.StatusReady, (<-w.Status()).Kind)
	assert.Equal(t, models.StatusFinalized, (<-w.Status()).Kind)

	w.Unsubscribe()
	w.Unsubscribe()
	assert.Equal(t, 1, sub.unsubscribed)

	select {
	case _, ok := <-w.Status():
		assert.False(t, ok, "status channel closes after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("status channel was not closed")
	}
}

func TestWatchStreamSourceClosed(t *testing.T) {
	sub := &fakeSubscription{ch: make(chan types.ExtrinsicStatus), errs: make(chan error)}
	w := newWatchStream(common.Hash{}, sub)
	close(sub.ch)

	_, ok := <-w.Status()
	assert.False(t, ok)
	w.Unsubscribe()
	assert.Equal(t, 1, sub.unsubscribed)
}

func TestExtrinsicIndex(t *testing.T) {
	xs := []string{"0x0400", "0x280402000b50", "0x1234"}
	target := common.Hash(blake2b.Sum256(hexutil.MustDecode(xs[1])))

	idx, err := extrinsicIndex(xs, target)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), idx)

	_, err = extrinsicIndex(xs, common.HexToHash("0x01"))
	assert.Error(t, err)

	_, err = extrinsicIndex([]string{"zz"}, target)
	assert.Error(t, err)
}

func TestExtrinsicEvents(t *testing.T) {
	hashBytes := make([]any, 32)
	for i := range hashBytes {
		hashBytes[i] = types.U8(i)
	}

	events := []*parser.Event{
		{Name: "System.ExtrinsicSuccess", Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: 0}},
		{
			Name:  "Assets.Issued",
			Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: 1},
			Fields: registry.DecodedFields{
				{Name: "owner", Value: types.AccountID{1}},
				{Name: "asset", Value: registry.DecodedFields{{Value: hashBytes}}},
				{Name: "balance", Value: types.NewU128(*big.NewInt(2000000))},
			},
		},
		{Name: "System.ExtrinsicSuccess", Phase: &types.Phase{IsApplyExtrinsic: true, AsApplyExtrinsic: 1}},
		{Name: "Session.NewSession", Phase: &types.Phase{IsFinalization: true}},
	}

	got := extrinsicEvents(events, 1)
	require.Len(t, got, 2)
	assert.Equal(t, "Assets.Issued", got[0].Name)
	assert.Equal(t, "System.ExtrinsicSuccess", got[1].Name)

	asset, err := got[0].Hash(1)
	require.NoError(t, err)
	assert.Equal(t, byte(31), asset[31])

	amount, err := got[0].Amount(2)
	require.NoError(t, err)
	assert.Equal(t, int64(2000000), amount.Int64())

	owner, err := got[0].Hash(0)
	require.NoError(t, err)
	assert.Equal(t, byte(1), owner[0])
}

func TestNormalizeValue(t *testing.T) {
	assert.Equal(t, big.NewInt(7), normalizeValue(types.U32(7)))
	assert.Equal(t, big.NewInt(-2), normalizeValue(types.I16(-2)))
	assert.Equal(t, big.NewInt(9), normalizeValue(types.NewUCompactFromUInt(9)))
	assert.Equal(t, true, normalizeValue(types.Bool(true)))
	assert.Equal(t, "DNA", normalizeValue(types.Text("DNA")))
	assert.Equal(t, []byte{1, 2}, normalizeValue([]any{types.U8(1), types.U8(2)}))
	assert.Equal(t, []any{big.NewInt(1), "x"}, normalizeValue([]any{types.U32(1), types.Text("x")}))
	assert.Equal(t, struct{}{}, normalizeValue(struct{}{}))
}

// storageMeta is V14 metadata with the storage maps the client reads, each
// behind a single Blake2_128Concat hasher
func storageMeta() *types.Metadata {
	mapEntry := func(name string) types.StorageEntryMetadataV14 {
		return types.StorageEntryMetadataV14{
			Name: types.Text(name),
			Type: types.StorageEntryTypeV14{
				IsMap: true,
				AsMap: types.MapTypeV14{Hashers: []types.StorageHasherV10{{IsBlake2_128Concat: true}}},
			},
		}
	}
	pallet := func(name string, entry string) types.PalletMetadataV14 {
		return types.PalletMetadataV14{
			Name:       types.Text(name),
			HasStorage: true,
			Storage: types.StorageMetadataV14{
				Prefix: types.Text(name),
				Items:  []types.StorageEntryMetadataV14{mapEntry(entry)},
			},
		}
	}
	return &types.Metadata{
		Version: 14,
		AsMetadataV14: types.MetadataV14{Pallets: []types.PalletMetadataV14{
			pallet("System", "Account"),
			pallet("Assets", "FreeBalanceOf"),
		}},
	}
}

func blake2128Concat(data []byte) []byte {
	h, _ := blake2b.New(16, nil)
	h.Write(data)
	return append(h.Sum(nil), data...)
}

func storagePrefix(pallet, entry string) []byte {
	return append(xxhash.New128([]byte(pallet)).Sum(nil), xxhash.New128([]byte(entry)).Sum(nil)...)
}

func TestStorageKeys(t *testing.T) {
	meta := storageMeta()
	id, err := decodeAddress(signature.TestKeyringPairAlice.Address)
	require.NoError(t, err)
	asset := common.HexToHash("0xb7c0")

	key, err := accountKey(meta, id)
	require.NoError(t, err)
	assert.Equal(t, append(storagePrefix("System", "Account"), blake2128Concat(id[:])...), []byte(key))

	key, err = assetBalanceKey(meta, asset, id)
	require.NoError(t, err)
	tuple := append(append([]byte{}, id[:]...), asset[:]...)
	want := append(storagePrefix("Assets", "FreeBalanceOf"), blake2128Concat(tuple)...)
	assert.Equal(t, want, []byte(key), "account and asset are hashed together as one tuple key")
	assert.Len(t, key, 32+16+64)
}

func TestCheckMetadata(t *testing.T) {
	assert.NoError(t, checkMetadata(storageMeta()))

	err := checkMetadata(&types.Metadata{Version: 12})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "v12")
}

func TestIdentityEncoding(t *testing.T) {
	info := identityInfo{models.IdentityInfo{Display: []byte("KUSH")}}
	enc, err := codec.Encode(info)
	require.NoError(t, err)

	want := []byte{0x00, 0x05, 'K', 'U', 'S', 'H', 0, 0, 0, 0, 0, 0, 0}
	assert.Equal(t, want, enc)

	_, err = codec.Encode(identityData(make([]byte, models.MaxIdentityFieldLen+1)))
	assert.Error(t, err)
}

func TestJudgementEncoding(t *testing.T) {
	enc, err := codec.Encode(judgement(models.JudgementFeePaid))
	require.NoError(t, err)
	assert.Equal(t, append([]byte{1}, make([]byte, 16)...), enc)

	enc, err = codec.Encode(judgement(models.JudgementKnownGood))
	require.NoError(t, err)
	assert.Equal(t, []byte{3}, enc)
}

func TestCallArgs(t *testing.T) {
	alice := signature.TestKeyringPairAlice.Address

	args, err := callArgs(models.Transfer{To: alice, Amount: big.NewInt(10000)})
	require.NoError(t, err)
	require.Len(t, args, 2)
	dest := args[0].(types.MultiAddress)
	assert.True(t, dest.IsID)
	assert.Equal(t, signature.TestKeyringPairAlice.PublicKey, dest.AsID[:])

	args, err = callArgs(models.DepositAsset{Asset: common.HexToHash("0x01"), To: alice, Amount: big.NewInt(600000)})
	require.NoError(t, err)
	enc, err := codec.Encode(args[1])
	require.NoError(t, err)
	assert.Equal(t, signature.TestKeyringPairAlice.PublicKey, enc, "account ids carry no length prefix")

	info := models.IdentityInfo{Display: []byte("DHRUV")}
	args, err = callArgs(models.ProvideJudgement{Target: alice, Judgement: models.JudgementKnownGood, Info: info})
	require.NoError(t, err)
	require.Len(t, args, 4, "registrar, target, judgement and identity hash")
	encInfo, err := codec.Encode(identityInfo{info})
	require.NoError(t, err)
	assert.Equal(t, types.Hash(blake2b.Sum256(encInfo)), args[3])

	_, err = callArgs(models.Transfer{To: "not-an-address", Amount: big.NewInt(1)})
	assert.Error(t, err)

	_, err = callArgs(models.Sudo{Call: models.AddRegistrar{Account: alice}})
	assert.Error(t, err, "sudo is resolved by buildCall")
}

type fixedSigner struct {
	algorithm models.KeyAlgorithm
	signed    []byte
}

func (s *fixedSigner) Address() string                { return signature.TestKeyringPairAlice.Address }
func (s *fixedSigner) PublicKey() []byte              { return signature.TestKeyringPairAlice.PublicKey }
func (s *fixedSigner) Algorithm() models.KeyAlgorithm { return s.algorithm }
func (s *fixedSigner) Sign(msg []byte) ([]byte, error) {
	s.signed = msg
	return make([]byte, 64), nil
}

func TestSignExtrinsic(t *testing.T) {
	call := types.Call{CallIndex: types.CallIndex{SectionIndex: 5, MethodIndex: 0}, Args: []byte{1, 2, 3}}
	params := signingParams{GenesisHash: types.NewHash([]byte{9}), SpecVersion: 1, TransactionVersion: 1}

	for _, alg := range []models.KeyAlgorithm{models.Sr25519, models.Ed25519} {
		signer := &fixedSigner{algorithm: alg}
		ext, err := signExtrinsic(call, signer, 3, params)
		require.NoError(t, err)

		assert.True(t, ext.IsSigned())
		assert.Equal(t, alg == models.Sr25519, ext.Signature.Signature.IsSr25519)
		assert.Equal(t, alg == models.Ed25519, ext.Signature.Signature.IsEd25519)
		assert.Equal(t, types.NewUCompactFromUInt(3), ext.Signature.Nonce)
		assert.NotEmpty(t, signer.signed)
		assert.LessOrEqual(t, len(signer.signed), maxUnhashedPayload)

		h1, err := extrinsicHash(ext)
		require.NoError(t, err)
		enc, err := codec.Encode(ext)
		require.NoError(t, err)
		assert.Equal(t, common.Hash(blake2b.Sum256(enc)), h1)
	}

	long := types.Call{CallIndex: types.CallIndex{SectionIndex: 5}, Args: make([]byte, 400)}
	signer := &fixedSigner{algorithm: models.Sr25519}
	_, err := signExtrinsic(long, signer, 0, params)
	require.NoError(t, err)
	assert.Len(t, signer.signed, 32, "long payloads are signed by hash")
}
