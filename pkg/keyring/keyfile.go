package keyring

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/vedhavyas/go-subkey/v2"
	"github.com/vedhavyas/go-subkey/v2/ed25519"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"

	"github.com/dnachain/dna-smoke/pkg/models"
)

const (
	saltLength   = 32
	nonceLength  = 24
	scryptLength = saltLength + 3*4
	secretLength = 64
	publicLength = 32
	keyLength    = 32
)

var (
	pkcs8Header  = []byte{48, 83, 2, 1, 1, 48, 5, 6, 3, 43, 101, 112, 4, 34, 4, 32}
	pkcs8Divider = []byte{161, 35, 3, 33, 0}
)

// KeyFile is an encrypted account export as produced by polkadot-js
type KeyFile struct {
	Encoded  string   `json:"encoded"`
	Encoding Encoding `json:"encoding"`
	Address  string   `json:"address"`
	Meta     struct {
		Name string `json:"name"`
	} `json:"meta"`
}

// Encoding describes how the encoded payload is protected and what it contains
type Encoding struct {
	Content []string  `json:"content"`
	Type    multiWord `json:"type"`
	Version string    `json:"version"`
}

// multiWord accepts both "a" and ["a","b"]; older exports use the former
type multiWord []string

func (m *multiWord) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*m = []string{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*m = many
	return nil
}

func (m multiWord) has(word string) bool {
	for _, w := range m {
		if w == word {
			return true
		}
	}
	return false
}

// Algorithm returns the key algorithm named in the content descriptor
func (e Encoding) Algorithm() (models.KeyAlgorithm, error) {
	if len(e.Content) < 2 || e.Content[0] != "pkcs8" {
		return "", fmt.Errorf("unsupported key content %v", e.Content)
	}
	return models.ParseKeyAlgorithm(e.Content[1])
}

// ReadKeyFile reads and parses a key file without decrypting it
func ReadKeyFile(path string) (*KeyFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read key file %s: %v", models.ErrCredential, path, err)
	}
	var kf KeyFile
	if err := json.Unmarshal(raw, &kf); err != nil {
		return nil, fmt.Errorf("%w: malformed key file %s: %v", models.ErrCredential, path, err)
	}
	if kf.Encoded == "" {
		return nil, fmt.Errorf("%w: key file %s has no encoded payload", models.ErrCredential, path)
	}
	return &kf, nil
}

// ResolveFromFile decrypts a key file with the passphrase and returns its signer
func ResolveFromFile(path, passphrase string, format uint16) (models.Signer, error) {
	kf, err := ReadKeyFile(path)
	if err != nil {
		return nil, err
	}
	signer, err := kf.Signer(passphrase, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return signer, nil
}

// Signer decrypts the payload and builds a signer for the contained key
func (kf *KeyFile) Signer(passphrase string, format uint16) (models.Signer, error) {
	algorithm, err := kf.Encoding.Algorithm()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	payload, err := decodePayload(kf.Encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	pkcs8, err := kf.decrypt(payload, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	secret, public, err := unwrapPKCS8(pkcs8)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	var signer models.Signer
	switch algorithm {
	case models.Sr25519:
		var key, nonce [32]byte
		copy(key[:], divideScalarByCofactor(secret[:keyLength]))
		copy(nonce[:], secret[keyLength:])
		signer, err = newSchnorrkelSigner(key, nonce, format)
	case models.Ed25519:
		var kp subkey.KeyPair
		kp, err = subkey.DeriveKeyPair(ed25519.Scheme{}, "0x"+hex.EncodeToString(secret[:keyLength]))
		if err == nil {
			signer = newKeyPairSigner(kp, models.Ed25519, format)
		}
	default:
		err = fmt.Errorf("unsupported key algorithm %q", algorithm)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCredential, err)
	}

	if !bytes.Equal(signer.PublicKey(), public) {
		return nil, fmt.Errorf("%w: decrypted secret does not match the stored public key", models.ErrCredential)
	}
	if kf.Address != "" {
		if _, pub, err := subkey.SS58Decode(kf.Address); err == nil && !bytes.Equal(pub, public) {
			return nil, fmt.Errorf("%w: key file address %s does not match its key", models.ErrCredential, kf.Address)
		}
	}
	return signer, nil
}

func decodePayload(encoded string) ([]byte, error) {
	if b, err := base64.StdEncoding.DecodeString(encoded); err == nil {
		return b, nil
	}
	if len(encoded) > 2 && encoded[:2] == "0x" {
		if b, err := hex.DecodeString(encoded[2:]); err == nil {
			return b, nil
		}
	}
	return nil, errors.New("encoded payload is neither base64 nor hex")
}

func (kf *KeyFile) decrypt(payload []byte, passphrase string) ([]byte, error) {
	if kf.Encoding.Type.has("none") {
		return payload, nil
	}
	if !kf.Encoding.Type.has("xsalsa20-poly1305") {
		return nil, fmt.Errorf("unsupported encryption %v", kf.Encoding.Type)
	}

	var key [32]byte
	if kf.Encoding.Type.has("scrypt") {
		if len(payload) < scryptLength {
			return nil, errors.New("encoded payload is too short")
		}
		salt := payload[:saltLength]
		n := binary.LittleEndian.Uint32(payload[saltLength:])
		p := binary.LittleEndian.Uint32(payload[saltLength+4:])
		r := binary.LittleEndian.Uint32(payload[saltLength+8:])
		derived, err := scrypt.Key([]byte(passphrase), salt, int(n), int(r), int(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid scrypt parameters: %v", err)
		}
		copy(key[:], derived[:32])
		payload = payload[scryptLength:]
	} else {
		// legacy exports use the zero padded passphrase as the key
		if len(passphrase) > len(key) {
			return nil, errors.New("passphrase is too long for a legacy key file")
		}
		copy(key[:], passphrase)
	}

	if len(payload) < nonceLength+secretbox.Overhead {
		return nil, errors.New("encrypted payload is too short")
	}
	var nonce [nonceLength]byte
	copy(nonce[:], payload[:nonceLength])

	plain, ok := secretbox.Open(nil, payload[nonceLength:], &nonce, &key)
	if !ok {
		return nil, errors.New("unable to decrypt key file, wrong passphrase?")
	}
	return plain, nil
}

func unwrapPKCS8(b []byte) (secret, public []byte, err error) {
	if !bytes.HasPrefix(b, pkcs8Header) {
		return nil, nil, errors.New("invalid pkcs8 header")
	}
	offset := len(pkcs8Header)
	if len(b) < offset+secretLength+len(pkcs8Divider)+publicLength {
		return nil, nil, errors.New("pkcs8 payload is too short")
	}
	secret = b[offset : offset+secretLength]
	offset += secretLength
	if !bytes.Equal(b[offset:offset+len(pkcs8Divider)], pkcs8Divider) {
		return nil, nil, errors.New("invalid pkcs8 divider")
	}
	offset += len(pkcs8Divider)
	public = b[offset : offset+publicLength]
	return secret, public, nil
}

// divideScalarByCofactor turns an ed25519-style expanded scalar back into a
// schnorrkel scalar by shifting it right by three bits (little endian).
func divideScalarByCofactor(s []byte) []byte {
	out := make([]byte, len(s))
	var low byte
	for i := len(s) - 1; i >= 0; i-- {
		r := s[i] & 0x07
		out[i] = (s[i] >> 3) + low
		low = r << 5
	}
	return out
}
