package blockchain

import (
	"context"
	"fmt"
	"math/big"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/retriever"
	regstate "github.com/centrifuge/go-substrate-rpc-client/v4/registry/state"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"

	"github.com/dnachain/dna-smoke/pkg/logger"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// accountDataLength is the size of AccountData: free, reserved and two frozen balances
const accountDataLength = 4 * 16

// Client is a connection to a substrate node
type Client struct {
	URL    string
	api    *gsrpc.SubstrateAPI
	meta   *types.Metadata
	params signingParams
	events retriever.EventRetriever
	logger logger.Logger
}

// Dial connects to the node and caches what signing needs: metadata,
// genesis hash and runtime version
func Dial(ctx context.Context, url string, log logger.Logger) (*Client, error) {
	type result struct {
		api *gsrpc.SubstrateAPI
		err error
	}
	// the constructor blocks on the websocket handshake and takes no context
	ch := make(chan result, 1)
	go func() {
		api, err := gsrpc.NewSubstrateAPI(url)
		ch <- result{api, err}
	}()

	var api *gsrpc.SubstrateAPI
	select {
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("%w: failed to connect to %s: %v", models.ErrConnection, url, r.err)
		}
		api = r.api
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: failed to connect to %s: %v", models.ErrConnection, url, ctx.Err())
	}

	meta, err := api.RPC.State.GetMetadataLatest()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get metadata: %v", models.ErrConnection, err)
	}
	if err := checkMetadata(meta); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", models.ErrConnection, url, err)
	}

	genesisHash, err := api.RPC.Chain.GetBlockHash(0)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get genesis hash: %v", models.ErrConnection, err)
	}

	rv, err := api.RPC.State.GetRuntimeVersionLatest()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get runtime version: %v", models.ErrConnection, err)
	}

	events, err := retriever.NewDefaultEventRetriever(regstate.NewEventProvider(api.RPC.State), api.RPC.State)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to set up event decoding: %v", models.ErrConnection, err)
	}

	c := &Client{
		URL:  url,
		api:  api,
		meta: meta,
		params: signingParams{
			GenesisHash:        genesisHash,
			SpecVersion:        rv.SpecVersion,
			TransactionVersion: rv.TransactionVersion,
		},
		events: events,
		logger: log,
	}

	log.Info("Connected to %s (spec %s v%d, genesis %s)", url, rv.SpecName, rv.SpecVersion, common.Hash(genesisHash).Hex())
	return c, nil
}

// checkMetadata rejects runtimes older than metadata V14. Signing assumes
// MultiAddress accounts and a transaction version in the payload, and events
// are decoded from the V14 type registry.
func checkMetadata(meta *types.Metadata) error {
	if meta.Version < 14 {
		return fmt.Errorf("runtime metadata v%d is not supported, v14 or later is required", meta.Version)
	}
	return nil
}

// accountKey is the System.Account storage key of id
func accountKey(meta *types.Metadata, id accountID) (types.StorageKey, error) {
	return types.CreateStorageKey(meta, "System", "Account", id[:])
}

// assetBalanceKey is the Assets.FreeBalanceOf storage key. The map is keyed
// by the (AccountId, AssetId) tuple under a single hasher.
func assetBalanceKey(meta *types.Metadata, asset common.Hash, id accountID) (types.StorageKey, error) {
	tuple := make([]byte, 0, len(id)+len(asset))
	tuple = append(tuple, id[:]...)
	tuple = append(tuple, asset[:]...)
	return types.CreateStorageKey(meta, "Assets", "FreeBalanceOf", tuple)
}

// Close terminates the websocket connection
func (c *Client) Close() {
	if closer, ok := c.api.Client.(interface{ Close() }); ok {
		closer.Close()
	}
}

// AccountNonce returns the next index the node expects from address
func (c *Client) AccountNonce(_ context.Context, address string) (uint64, error) {
	var next uint64
	if err := c.api.Client.Call(&next, "system_accountNextIndex", address); err != nil {
		return 0, fmt.Errorf("failed to get next index of %s: %v", address, err)
	}
	return next, nil
}

// FreeBalance returns the free native balance of address
func (c *Client) FreeBalance(_ context.Context, address string) (*big.Int, error) {
	id, err := decodeAddress(address)
	if err != nil {
		return nil, err
	}

	key, err := accountKey(c.meta, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build account storage key: %v", err)
	}

	raw, err := c.api.RPC.State.GetStorageRawLatest(key)
	if err != nil {
		return nil, fmt.Errorf("failed to get account of %s: %v", address, err)
	}
	if raw == nil || len(*raw) == 0 {
		return new(big.Int), nil
	}
	if len(*raw) < accountDataLength {
		return nil, fmt.Errorf("account of %s is %d bytes, too short for account data", address, len(*raw))
	}

	// AccountData trails the nonce and reference counters, whose layout
	// changed across runtime versions
	var free types.U128
	data := (*raw)[len(*raw)-accountDataLength:]
	if err := codec.Decode(data[:16], &free); err != nil {
		return nil, fmt.Errorf("failed to decode free balance of %s: %v", address, err)
	}
	return free.Int, nil
}

// AssetBalance returns the free balance address holds of asset
func (c *Client) AssetBalance(_ context.Context, asset common.Hash, address string) (*big.Int, error) {
	id, err := decodeAddress(address)
	if err != nil {
		return nil, err
	}

	key, err := assetBalanceKey(c.meta, asset, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build asset balance storage key: %v", err)
	}

	var balance types.U128
	ok, err := c.api.RPC.State.GetStorageLatest(key, &balance)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s balance of %s: %v", asset.Hex(), address, err)
	}
	if !ok || balance.Int == nil {
		return new(big.Int), nil
	}
	return balance.Int, nil
}

// SubmitAndWatch signs the intent and submits it with a status subscription
func (c *Client) SubmitAndWatch(_ context.Context, intent *models.Intent) (StatusStream, error) {
	call, err := buildCall(c.meta, intent.Call)
	if err != nil {
		return nil, err
	}

	ext, err := signExtrinsic(call, intent.Signer, intent.Nonce, c.params)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", intent.Label, err)
	}

	txHash, err := extrinsicHash(ext)
	if err != nil {
		return nil, err
	}

	sub, err := c.api.RPC.Author.SubmitAndWatchExtrinsic(ext)
	if err != nil {
		return nil, fmt.Errorf("failed to submit %s: %v", intent.Label, err)
	}

	c.logger.Debug("Submitted %s from %s with nonce %d: %s", intent.Label, intent.Signer.Address(), intent.Nonce, txHash.Hex())
	return newWatchStream(txHash, sub), nil
}

// rpcBlock is the part of chain_getBlock we need; extrinsics stay opaque
type rpcBlock struct {
	Block struct {
		Extrinsics []string `json:"extrinsics"`
	} `json:"block"`
}

// ExtrinsicEvents returns the events emitted by the extrinsic txHash in block
func (c *Client) ExtrinsicEvents(_ context.Context, block, txHash common.Hash) ([]models.ChainEvent, error) {
	var b rpcBlock
	if err := c.api.Client.Call(&b, "chain_getBlock", block.Hex()); err != nil {
		return nil, fmt.Errorf("failed to get block %s: %v", block.Hex(), err)
	}

	index, err := extrinsicIndex(b.Block.Extrinsics, txHash)
	if err != nil {
		return nil, fmt.Errorf("block %s: %w", block.Hex(), err)
	}

	events, err := c.events.GetEvents(types.Hash(block))
	if err != nil {
		return nil, fmt.Errorf("failed to get events of block %s: %v", block.Hex(), err)
	}
	return extrinsicEvents(events, index), nil
}

// extrinsicIndex finds the position of txHash among hex encoded extrinsics
func extrinsicIndex(extrinsics []string, txHash common.Hash) (uint32, error) {
	for i, x := range extrinsics {
		enc, err := hexutil.Decode(x)
		if err != nil {
			return 0, fmt.Errorf("malformed extrinsic %d: %v", i, err)
		}
		if common.Hash(blake2b.Sum256(enc)) == txHash {
			return uint32(i), nil
		}
	}
	return 0, fmt.Errorf("extrinsic %s not found", txHash.Hex())
}
