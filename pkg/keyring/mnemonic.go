package keyring

import (
	"fmt"
	"strings"

	"github.com/vedhavyas/go-subkey/v2"
	"github.com/vedhavyas/go-subkey/v2/ed25519"
	"github.com/vedhavyas/go-subkey/v2/sr25519"

	"github.com/dnachain/dna-smoke/pkg/models"
)

func scheme(algorithm models.KeyAlgorithm) (subkey.Scheme, error) {
	switch algorithm {
	case models.Sr25519:
		return sr25519.Scheme{}, nil
	case models.Ed25519:
		return ed25519.Scheme{}, nil
	}
	return nil, fmt.Errorf("unsupported key algorithm %q", algorithm)
}

// ResolveFromMnemonic derives a signer from a secret phrase. The phrase may carry
// a derivation path such as "//Alice".
func ResolveFromMnemonic(phrase string, algorithm models.KeyAlgorithm, format uint16) (models.Signer, error) {
	phrase = strings.TrimSpace(phrase)
	// go-subkey falls back to the development phrase on empty input
	if phrase == "" || strings.HasPrefix(phrase, "/") {
		return nil, fmt.Errorf("%w: secret phrase is empty", models.ErrCredential)
	}

	sc, err := scheme(algorithm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	kp, err := subkey.DeriveKeyPair(sc, phrase)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid secret phrase: %v", models.ErrCredential, err)
	}
	return newKeyPairSigner(kp, algorithm, format), nil
}
