package keyring

import (
	"fmt"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/vedhavyas/go-subkey/v2"

	"github.com/dnachain/dna-smoke/pkg/models"
)

// SigningContext is the schnorrkel context substrate signs extrinsics under
var SigningContext = []byte("substrate")

// keyPairSigner signs with a go-subkey key pair
type keyPairSigner struct {
	kp        subkey.KeyPair
	algorithm models.KeyAlgorithm
	address   string
}

var _ models.Signer = (*keyPairSigner)(nil)

func newKeyPairSigner(kp subkey.KeyPair, algorithm models.KeyAlgorithm, format uint16) *keyPairSigner {
	return &keyPairSigner{
		kp:        kp,
		algorithm: algorithm,
		address:   kp.SS58Address(format),
	}
}

func (s *keyPairSigner) Address() string                { return s.address }
func (s *keyPairSigner) PublicKey() []byte              { return s.kp.Public() }
func (s *keyPairSigner) Algorithm() models.KeyAlgorithm { return s.algorithm }

func (s *keyPairSigner) Sign(msg []byte) ([]byte, error) {
	sig, err := s.kp.Sign(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign with %s key: %v", s.algorithm, err)
	}
	return sig, nil
}

// schnorrkelSigner signs with an expanded sr25519 secret, which is what key files carry
type schnorrkelSigner struct {
	secret  *schnorrkel.SecretKey
	public  [32]byte
	address string
}

var _ models.Signer = (*schnorrkelSigner)(nil)

func newSchnorrkelSigner(key, nonce [32]byte, format uint16) (*schnorrkelSigner, error) {
	secret := schnorrkel.NewSecretKey(key, nonce)
	pub, err := secret.Public()
	if err != nil {
		return nil, fmt.Errorf("failed to derive public key: %v", err)
	}
	encoded := pub.Encode()
	return &schnorrkelSigner{
		secret:  secret,
		public:  encoded,
		address: subkey.SS58Encode(encoded[:], format),
	}, nil
}

func (s *schnorrkelSigner) Address() string                { return s.address }
func (s *schnorrkelSigner) PublicKey() []byte              { return s.public[:] }
func (s *schnorrkelSigner) Algorithm() models.KeyAlgorithm { return models.Sr25519 }

func (s *schnorrkelSigner) Sign(msg []byte) ([]byte, error) {
	sig, err := s.secret.Sign(schnorrkel.NewSigningContext(SigningContext, msg))
	if err != nil {
		return nil, fmt.Errorf("failed to sign with sr25519 key: %v", err)
	}
	encoded := sig.Encode()
	return encoded[:], nil
}
