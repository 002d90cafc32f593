package testutil

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dnachain/dna-smoke/pkg/keyring"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// Constants for testing
const (
	DefaultTestTimeout = 5 * time.Second
	DevPhrase          = "bottom drive obey lake curtain smoke basket hold race lonely fit walk"
)

// NewSigner derives the development account with the given hard derivation,
// e.g. "Alice"
func NewSigner(t *testing.T, name string) models.Signer {
	t.Helper()
	signer, err := keyring.ResolveFromMnemonic(DevPhrase+"//"+name, models.Sr25519, 42)
	require.NoError(t, err, "Failed to derive %s", name)
	return signer
}

// CreateBigInt parses a string into a big.Int
func CreateBigInt(value string) *big.Int {
	result := new(big.Int)
	result.SetString(value, 10)
	return result
}
