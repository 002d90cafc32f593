package models

import "github.com/ethereum/go-ethereum/common"

// StatusKind is the lifecycle state of a submitted transaction
type StatusKind int

const (
	StatusFuture StatusKind = iota
	StatusReady
	StatusBroadcast
	StatusInBlock
	StatusRetracted
	StatusFinalityTimeout
	StatusFinalized
	StatusUsurped
	StatusDropped
	StatusInvalid
)

var statusNames = map[StatusKind]string{
	StatusFuture:          "Future",
	StatusReady:           "Ready",
	StatusBroadcast:       "Broadcast",
	StatusInBlock:         "InBlock",
	StatusRetracted:       "Retracted",
	StatusFinalityTimeout: "FinalityTimeout",
	StatusFinalized:       "Finalized",
	StatusUsurped:         "Usurped",
	StatusDropped:         "Dropped",
	StatusInvalid:         "Invalid",
}

func (k StatusKind) String() string {
	if name, ok := statusNames[k]; ok {
		return name
	}
	return "Unknown"
}

// TxStatus is one update from a transaction's status stream
type TxStatus struct {
	Kind StatusKind
	// Block is set for InBlock, Retracted, FinalityTimeout and Finalized
	Block common.Hash
}

// IsTerminal reports whether the status ends the stream
func (s TxStatus) IsTerminal() bool {
	switch s.Kind {
	case StatusFinalized, StatusUsurped, StatusDropped, StatusInvalid:
		return true
	}
	return false
}
