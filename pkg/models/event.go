package models

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventField is a decoded event argument. Values are normalized to plain Go
// types: []byte for byte arrays, *big.Int for integers, string, bool,
// []EventField for composites and []any for sequences.
type EventField struct {
	Name  string
	Value any
}

// ChainEvent is a decoded event emitted while executing a transaction
type ChainEvent struct {
	Name   string
	Fields []EventField
}

func (e ChainEvent) field(i int) (any, error) {
	if i < 0 || i >= len(e.Fields) {
		return nil, fmt.Errorf("event %s has no field %d", e.Name, i)
	}
	return e.Fields[i].Value, nil
}

// Hash returns the 32-byte identifier at position i
func (e ChainEvent) Hash(i int) (common.Hash, error) {
	v, err := e.field(i)
	if err != nil {
		return common.Hash{}, err
	}
	if h, ok := asHash(v); ok {
		return h, nil
	}
	return common.Hash{}, fmt.Errorf("event %s field %d is %T, not a hash", e.Name, i, v)
}

// Amount returns the integer at position i
func (e ChainEvent) Amount(i int) (*big.Int, error) {
	v, err := e.field(i)
	if err != nil {
		return nil, err
	}
	if n, ok := asInt(v); ok {
		return n, nil
	}
	return nil, fmt.Errorf("event %s field %d is %T, not an amount", e.Name, i, v)
}

func asHash(v any) (common.Hash, bool) {
	switch t := v.(type) {
	case common.Hash:
		return t, true
	case []byte:
		if len(t) == common.HashLength {
			return common.BytesToHash(t), true
		}
	case []EventField:
		// newtype wrappers such as H256 decode to a single unnamed field
		if len(t) == 1 {
			return asHash(t[0].Value)
		}
	}
	return common.Hash{}, false
}

func asInt(v any) (*big.Int, bool) {
	switch t := v.(type) {
	case *big.Int:
		return new(big.Int).Set(t), true
	case uint64:
		return new(big.Int).SetUint64(t), true
	case int64:
		return big.NewInt(t), true
	case []EventField:
		if len(t) == 1 {
			return asInt(t[0].Value)
		}
	}
	return nil, false
}

func (e ChainEvent) String() string {
	return fmt.Sprintf("%s%v", e.Name, e.Fields)
}
