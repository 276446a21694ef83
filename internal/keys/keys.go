// Package keys provides the primitive operations the onion codec builds on: asymmetric
// key pairs used to wrap per-layer keys, and symmetric keys used to encrypt the layers.
package keys

import (
	"crypto"
	"io"

	"github.com/pkg/errors"
)

// SymmetricKeySize is the size of every layer key (AES-256).
const SymmetricKeySize = 32

type SymmetricKey []byte

type KeyPair struct {
	Public  crypto.PublicKey
	Private crypto.PrivateKey
}

// AsymmetricSuite wraps and unwraps layer keys. CiphertextSize must be constant for
// the suite: the onion format uses it as the only boundary between the wrapped key and
// the layer ciphertext.
type AsymmetricSuite interface {
	Name() string
	GenerateKeyPair() (*KeyPair, error)
	ExportPublicKey(pub crypto.PublicKey) (string, error)
	ImportPublicKey(encoded string) (crypto.PublicKey, error)
	ExportPrivateKey(priv crypto.PrivateKey) (string, error)
	ImportPrivateKey(encoded string) (crypto.PrivateKey, error)
	Encrypt(pub crypto.PublicKey, data []byte) ([]byte, error)
	Decrypt(priv crypto.PrivateKey, data []byte) ([]byte, error)
	CiphertextSize() int
}

type SymmetricSuite interface {
	Name() string
	Encrypt(key SymmetricKey, plaintext []byte) ([]byte, error)
	Decrypt(key SymmetricKey, ciphertext []byte) ([]byte, error)
}

// KeyService is everything the onion codec needs from the crypto layer.
type KeyService interface {
	GenerateKeyPair() (*KeyPair, error)
	ExportPublicKey(pub crypto.PublicKey) (string, error)
	ImportPublicKey(encoded string) (crypto.PublicKey, error)
	ExportPrivateKey(priv crypto.PrivateKey) (string, error)
	ImportPrivateKey(encoded string) (crypto.PrivateKey, error)
	Encrypt(pub crypto.PublicKey, data []byte) ([]byte, error)
	Decrypt(priv crypto.PrivateKey, data []byte) ([]byte, error)
	CiphertextSize() int

	GenerateSymmetricKey() (SymmetricKey, error)
	ExportSymmetricKey(key SymmetricKey) []byte
	ImportSymmetricKey(raw []byte) (SymmetricKey, error)
	SymEncrypt(key SymmetricKey, plaintext []byte) ([]byte, error)
	SymDecrypt(key SymmetricKey, ciphertext []byte) ([]byte, error)
}

// Service combines one asymmetric and one symmetric suite into a KeyService.
type Service struct {
	AsymmetricSuite
	Symmetric SymmetricSuite
}

// New returns a Service for the named suites ("rsa-oaep" or "x25519-box", and
// "aes-gcm" or "aes-cbc-zero-iv").
func New(asymmetric, symmetric string) (*Service, error) {
	s := &Service{}
	switch asymmetric {
	case RSAName:
		s.AsymmetricSuite = NewRSASuite()
	case BoxName:
		s.AsymmetricSuite = NewBoxSuite()
	default:
		return nil, errors.Errorf("keys.New(): unknown asymmetric suite %q", asymmetric)
	}
	switch symmetric {
	case GCMName:
		s.Symmetric = GCMSuite{}
	case LegacyCBCName:
		s.Symmetric = LegacyCBCSuite{}
	default:
		return nil, errors.Errorf("keys.New(): unknown symmetric suite %q", symmetric)
	}
	return s, nil
}

func (s *Service) GenerateSymmetricKey() (SymmetricKey, error) {
	key := make([]byte, SymmetricKeySize)
	if _, err := io.ReadFull(randReader, key); err != nil {
		return nil, errors.Wrap(err, "failed to generate symmetric key")
	}
	return key, nil
}

func (s *Service) ExportSymmetricKey(key SymmetricKey) []byte {
	raw := make([]byte, len(key))
	copy(raw, key)
	return raw
}

func (s *Service) ImportSymmetricKey(raw []byte) (SymmetricKey, error) {
	if len(raw) != SymmetricKeySize {
		return nil, errors.Errorf("symmetric key must be %d bytes, got %d", SymmetricKeySize, len(raw))
	}
	return s.ExportSymmetricKey(raw), nil
}

func (s *Service) SymEncrypt(key SymmetricKey, plaintext []byte) ([]byte, error) {
	return s.Symmetric.Encrypt(key, plaintext)
}

func (s *Service) SymDecrypt(key SymmetricKey, ciphertext []byte) ([]byte, error) {
	return s.Symmetric.Decrypt(key, ciphertext)
}
