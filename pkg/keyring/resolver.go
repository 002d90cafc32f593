package keyring

import (
	"fmt"

	"github.com/dnachain/dna-smoke/pkg/config"
	"github.com/dnachain/dna-smoke/pkg/models"
)

// Resolver turns account descriptors into signers for one address format
type Resolver struct {
	Format uint16
}

// NewResolver creates a resolver producing addresses in the given SS58 format
func NewResolver(format uint16) *Resolver {
	return &Resolver{Format: format}
}

// Resolve decrypts the key file a descriptor points at
func (r *Resolver) Resolve(d config.AccountDescriptor) (models.Signer, error) {
	return ResolveFromFile(d.Path, d.Passphrase, r.Format)
}

// ResolveAll resolves every descriptor, failing on the first bad one
func (r *Resolver) ResolveAll(ds []config.AccountDescriptor) ([]models.Signer, error) {
	signers := make([]models.Signer, 0, len(ds))
	for i, d := range ds {
		s, err := r.Resolve(d)
		if err != nil {
			return nil, fmt.Errorf("account %d: %w", i, err)
		}
		signers = append(signers, s)
	}
	return signers, nil
}

// ResolveMnemonic derives a signer from a secret phrase
func (r *Resolver) ResolveMnemonic(phrase string, algorithm models.KeyAlgorithm) (models.Signer, error) {
	return ResolveFromMnemonic(phrase, algorithm, r.Format)
}
