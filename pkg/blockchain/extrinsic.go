package blockchain

import (
	"fmt"
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/scale"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types/codec"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vedhavyas/go-subkey/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/dnachain/dna-smoke/pkg/models"
)

// payloads longer than this are hashed before signing
const maxUnhashedPayload = 256

// accountID is a raw 32-byte account key, encoded without a length prefix
type accountID [32]byte

// decodeAddress turns an SS58 address into its account key
func decodeAddress(address string) (accountID, error) {
	var id accountID
	_, pub, err := subkey.SS58Decode(address)
	if err != nil {
		return id, fmt.Errorf("invalid address %s: %v", address, err)
	}
	if len(pub) != len(id) {
		return id, fmt.Errorf("invalid address %s: expected a 32-byte account, got %d bytes", address, len(pub))
	}
	copy(id[:], pub)
	return id, nil
}

func multiAddress(address string) (types.MultiAddress, error) {
	id, err := decodeAddress(address)
	if err != nil {
		return types.MultiAddress{}, err
	}
	return types.NewMultiAddressFromAccountID(id[:])
}

func u128(v *big.Int) types.U128 {
	if v == nil {
		return types.NewU128(*big.NewInt(0))
	}
	return types.NewU128(*v)
}

func ucompact(v *big.Int) types.UCompact {
	if v == nil {
		return types.NewUCompactFromUInt(0)
	}
	return types.NewUCompact(v)
}

// identityData is the Data enum of the identity pallet: None or Raw bytes
type identityData []byte

func (d identityData) Encode(encoder scale.Encoder) error {
	if len(d) == 0 {
		return encoder.PushByte(0)
	}
	if len(d) > models.MaxIdentityFieldLen {
		return fmt.Errorf("identity field of %d bytes exceeds %d", len(d), models.MaxIdentityFieldLen)
	}
	if err := encoder.PushByte(byte(len(d) + 1)); err != nil {
		return err
	}
	return encoder.Write(d)
}

// identityInfo mirrors the pallet struct field order
type identityInfo struct {
	models.IdentityInfo
}

func (i identityInfo) Encode(encoder scale.Encoder) error {
	// no additional fields
	if err := encoder.PushByte(0); err != nil {
		return err
	}
	for _, d := range []identityData{i.Display, i.Legal, i.Web, i.Riot, i.Email} {
		if err := d.Encode(encoder); err != nil {
			return err
		}
	}
	// no pgp fingerprint
	if err := encoder.PushByte(0); err != nil {
		return err
	}
	for _, d := range []identityData{i.Image, i.Twitter} {
		if err := d.Encode(encoder); err != nil {
			return err
		}
	}
	return nil
}

// identityHash is the blake2b-256 hash of the encoded identity, which a
// judgement commits to
func identityHash(info models.IdentityInfo) (types.Hash, error) {
	enc, err := codec.Encode(identityInfo{info})
	if err != nil {
		return types.Hash{}, fmt.Errorf("failed to encode identity: %v", err)
	}
	return types.Hash(blake2b.Sum256(enc)), nil
}

// judgement is the Judgement enum; FeePaid carries the fee, always zero here
type judgement models.Judgement

func (j judgement) Encode(encoder scale.Encoder) error {
	if err := encoder.PushByte(byte(j)); err != nil {
		return err
	}
	if models.Judgement(j) == models.JudgementFeePaid {
		return encoder.Encode(types.NewU128(*big.NewInt(0)))
	}
	return nil
}

// callArgs returns the positional arguments of a call in pallet order
func callArgs(call models.Call) ([]interface{}, error) {
	switch c := call.(type) {
	case models.Transfer:
		dest, err := multiAddress(c.To)
		if err != nil {
			return nil, err
		}
		return []interface{}{dest, ucompact(c.Amount)}, nil
	case models.IssueAsset:
		return []interface{}{types.NewBytes([]byte(c.Symbol)), u128(c.TotalSupply)}, nil
	case models.DepositAsset:
		to, err := decodeAddress(c.To)
		if err != nil {
			return nil, err
		}
		return []interface{}{types.Hash(c.Asset), to, u128(c.Amount)}, nil
	case models.CreateExchangePair:
		return []interface{}{types.Hash(c.Base), types.Hash(c.Quote)}, nil
	case models.CreateOrder:
		return []interface{}{
			types.Hash(c.Base), types.Hash(c.Quote), types.NewU8(uint8(c.Side)),
			u128(c.Price), u128(c.SellAmount),
		}, nil
	case models.SetIdentity:
		return []interface{}{identityInfo{c.Info}}, nil
	case models.RequestJudgement:
		return []interface{}{types.NewUCompactFromUInt(uint64(c.RegistrarIndex)), ucompact(c.MaxFee)}, nil
	case models.ProvideJudgement:
		target, err := multiAddress(c.Target)
		if err != nil {
			return nil, err
		}
		identity, err := identityHash(c.Info)
		if err != nil {
			return nil, err
		}
		return []interface{}{types.NewUCompactFromUInt(uint64(c.RegistrarIndex)), target, judgement(c.Judgement), identity}, nil
	case models.AddRegistrar:
		account, err := multiAddress(c.Account)
		if err != nil {
			return nil, err
		}
		return []interface{}{account}, nil
	}
	return nil, fmt.Errorf("unsupported call %s", call.Name())
}

// buildCall resolves the call index from metadata and encodes its arguments
func buildCall(meta *types.Metadata, call models.Call) (types.Call, error) {
	if sudo, ok := call.(models.Sudo); ok {
		inner, err := buildCall(meta, sudo.Call)
		if err != nil {
			return types.Call{}, err
		}
		return types.NewCall(meta, sudo.Name(), inner)
	}

	args, err := callArgs(call)
	if err != nil {
		return types.Call{}, err
	}
	c, err := types.NewCall(meta, call.Name(), args...)
	if err != nil {
		return types.Call{}, fmt.Errorf("failed to encode %s: %v", call.Name(), err)
	}
	return c, nil
}

// signingParams are the chain values every signature commits to
type signingParams struct {
	GenesisHash        types.Hash
	SpecVersion        types.U32
	TransactionVersion types.U32
}

// signExtrinsic builds an immortal extrinsic signed by signer with nonce
func signExtrinsic(call types.Call, signer models.Signer, nonce uint64, params signingParams) (types.Extrinsic, error) {
	ext := types.NewExtrinsic(call)

	method, err := codec.Encode(ext.Method)
	if err != nil {
		return ext, fmt.Errorf("failed to encode call: %v", err)
	}

	era := types.ExtrinsicEra{IsImmortalEra: true}
	payload := types.ExtrinsicPayloadV4{
		ExtrinsicPayloadV3: types.ExtrinsicPayloadV3{
			Method:      method,
			Era:         era,
			Nonce:       types.NewUCompactFromUInt(nonce),
			Tip:         types.NewUCompactFromUInt(0),
			SpecVersion: params.SpecVersion,
			GenesisHash: params.GenesisHash,
			BlockHash:   params.GenesisHash,
		},
		TransactionVersion: params.TransactionVersion,
	}

	data, err := codec.Encode(payload)
	if err != nil {
		return ext, fmt.Errorf("failed to encode signing payload: %v", err)
	}
	if len(data) > maxUnhashedPayload {
		h := blake2b.Sum256(data)
		data = h[:]
	}

	sig, err := signer.Sign(data)
	if err != nil {
		return ext, err
	}

	from, err := types.NewMultiAddressFromAccountID(signer.PublicKey())
	if err != nil {
		return ext, fmt.Errorf("invalid signer public key: %v", err)
	}

	var multiSig types.MultiSignature
	switch signer.Algorithm() {
	case models.Sr25519:
		multiSig = types.MultiSignature{IsSr25519: true, AsSr25519: types.NewSignature(sig)}
	case models.Ed25519:
		multiSig = types.MultiSignature{IsEd25519: true, AsEd25519: types.NewSignature(sig)}
	default:
		return ext, fmt.Errorf("unsupported key algorithm %q", signer.Algorithm())
	}

	ext.Signature = types.ExtrinsicSignatureV4{
		Signer:    from,
		Signature: multiSig,
		Era:       era,
		Nonce:     types.NewUCompactFromUInt(nonce),
		Tip:       types.NewUCompactFromUInt(0),
	}
	ext.Version |= types.ExtrinsicBitSigned
	return ext, nil
}

// extrinsicHash is the blake2b-256 hash of the encoded extrinsic
func extrinsicHash(ext types.Extrinsic) (common.Hash, error) {
	enc, err := codec.Encode(ext)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to encode extrinsic: %v", err)
	}
	return common.Hash(blake2b.Sum256(enc)), nil
}
