package models

import (
	"fmt"
	"strings"
)

// KeyAlgorithm identifies the signature scheme of an account
type KeyAlgorithm string

const (
	// Sr25519 is the schnorrkel scheme used by default on substrate chains
	Sr25519 KeyAlgorithm = "sr25519"
	// Ed25519 is the edwards scheme
	Ed25519 KeyAlgorithm = "ed25519"
)

// ParseKeyAlgorithm parses a key algorithm name, case-insensitively
func ParseKeyAlgorithm(s string) (KeyAlgorithm, error) {
	switch KeyAlgorithm(strings.ToLower(strings.TrimSpace(s))) {
	case Sr25519, "":
		return Sr25519, nil
	case Ed25519:
		return Ed25519, nil
	default:
		return "", fmt.Errorf("unsupported key algorithm: %s", s)
	}
}

// Signer is a resolved signing identity bound to one address
type Signer interface {
	Address() string
	PublicKey() []byte
	Algorithm() KeyAlgorithm
	Sign(msg []byte) ([]byte, error)
}

// Intent represents a single transaction to be submitted.
// An intent is consumed by exactly one submission; a failed transaction is
// resubmitted with a fresh intent and a freshly reserved nonce.
type Intent struct {
	Label  string
	Call   Call
	Signer Signer
	Nonce  uint64
	// Expect lists the events that must be present once the transaction is
	// finalized. Nil means the call's default expectations.
	Expect []string
}

// ExpectedEvents returns the events the intent waits for
func (i *Intent) ExpectedEvents() []string {
	if i.Expect != nil {
		return i.Expect
	}
	return i.Call.Events()
}

// Validate checks the intent before it is signed
func (i *Intent) Validate() error {
	if i.Call == nil {
		return fmt.Errorf("intent %q has no call", i.Label)
	}
	if i.Signer == nil {
		return fmt.Errorf("intent %q has no signer", i.Label)
	}
	if err := i.Call.Validate(); err != nil {
		return fmt.Errorf("invalid %s call: %w", i.Call.Name(), err)
	}
	return nil
}
