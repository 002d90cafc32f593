package blockchain

import (
	"math/big"

	"github.com/centrifuge/go-substrate-rpc-client/v4/registry"
	"github.com/centrifuge/go-substrate-rpc-client/v4/registry/parser"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/ethereum/go-ethereum/common"

	"github.com/dnachain/dna-smoke/pkg/models"
)

// extrinsicEvents keeps the events emitted while applying the extrinsic at index
func extrinsicEvents(events []*parser.Event, index uint32) []models.ChainEvent {
	var out []models.ChainEvent
	for _, e := range events {
		if e == nil || e.Phase == nil || !e.Phase.IsApplyExtrinsic || e.Phase.AsApplyExtrinsic != index {
			continue
		}
		out = append(out, models.ChainEvent{
			Name:   e.Name,
			Fields: normalizeFields(e.Fields),
		})
	}
	return out
}

func normalizeFields(fields registry.DecodedFields) []models.EventField {
	out := make([]models.EventField, 0, len(fields))
	for _, f := range fields {
		if f == nil {
			continue
		}
		out = append(out, models.EventField{Name: f.Name, Value: normalizeValue(f.Value)})
	}
	return out
}

// normalizeValue maps registry decoded values onto plain types
func normalizeValue(v any) any {
	switch t := v.(type) {
	case types.U8:
		return new(big.Int).SetUint64(uint64(t))
	case types.U16:
		return new(big.Int).SetUint64(uint64(t))
	case types.U32:
		return new(big.Int).SetUint64(uint64(t))
	case types.U64:
		return new(big.Int).SetUint64(uint64(t))
	case types.U128:
		if t.Int == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(t.Int)
	case types.U256:
		if t.Int == nil {
			return new(big.Int)
		}
		return new(big.Int).Set(t.Int)
	case types.I8:
		return big.NewInt(int64(t))
	case types.I16:
		return big.NewInt(int64(t))
	case types.I32:
		return big.NewInt(int64(t))
	case types.I64:
		return big.NewInt(int64(t))
	case types.UCompact:
		n := big.Int(t)
		return new(big.Int).Set(&n)
	case types.Bool:
		return bool(t)
	case types.Text:
		return string(t)
	case types.Hash:
		return common.Hash(t)
	case types.H256:
		return common.Hash(t)
	case types.AccountID:
		return common.Hash(t)
	case *types.AccountID:
		if t == nil {
			return nil
		}
		return common.Hash(*t)
	case registry.DecodedFields:
		return normalizeFields(t)
	case []any:
		if b, ok := byteArray(t); ok {
			if len(b) == common.HashLength {
				return common.BytesToHash(b)
			}
			return b
		}
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	}
	return v
}

// byteArray reports whether a decoded sequence is made of u8 only
func byteArray(vs []any) ([]byte, bool) {
	if len(vs) == 0 {
		return nil, false
	}
	b := make([]byte, len(vs))
	for i, v := range vs {
		u, ok := v.(types.U8)
		if !ok {
			return nil, false
		}
		b[i] = byte(u)
	}
	return b, true
}
