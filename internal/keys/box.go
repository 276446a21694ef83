package keys

import (
	"crypto"
	"encoding/base64"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/box"
)

const BoxName = "x25519-box"

type boxPrivateKey struct {
	public  *[32]byte
	private *[32]byte
}

// BoxSuite wraps layer keys in anonymous NaCl sealed boxes (X25519 + XSalsa20-Poly1305).
// Since the wrapped payload is always a SymmetricKeySize key, the ciphertext size is
// fixed at SymmetricKeySize + box.AnonymousOverhead.
type BoxSuite struct{}

func NewBoxSuite() *BoxSuite {
	return &BoxSuite{}
}

func (s *BoxSuite) Name() string { return BoxName }

func (s *BoxSuite) CiphertextSize() int {
	return SymmetricKeySize + box.AnonymousOverhead
}

func (s *BoxSuite) GenerateKeyPair() (*KeyPair, error) {
	pub, priv, err := box.GenerateKey(randReader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate X25519 key pair")
	}
	return &KeyPair{Public: pub, Private: &boxPrivateKey{public: pub, private: priv}}, nil
}

func (s *BoxSuite) ExportPublicKey(pub crypto.PublicKey) (string, error) {
	key, ok := pub.(*[32]byte)
	if !ok || key == nil {
		return "", errors.Errorf("expected X25519 public key, got %T", pub)
	}
	return base64.StdEncoding.EncodeToString(key[:]), nil
}

func (s *BoxSuite) ImportPublicKey(encoded string) (crypto.PublicKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode public key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("X25519 public key must be 32 bytes, got %d", len(raw))
	}
	key := new([32]byte)
	copy(key[:], raw)
	return key, nil
}

// ExportPrivateKey encodes public||private so that the sealed box can be opened
// without recomputing the public key.
func (s *BoxSuite) ExportPrivateKey(priv crypto.PrivateKey) (string, error) {
	key, ok := priv.(*boxPrivateKey)
	if !ok || key == nil {
		return "", errors.Errorf("expected X25519 private key, got %T", priv)
	}
	raw := make([]byte, 0, 64)
	raw = append(raw, key.public[:]...)
	raw = append(raw, key.private[:]...)
	return base64.StdEncoding.EncodeToString(raw), nil
}

func (s *BoxSuite) ImportPrivateKey(encoded string) (crypto.PrivateKey, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode private key")
	}
	if len(raw) != 64 {
		return nil, errors.Errorf("X25519 private key must be 64 bytes, got %d", len(raw))
	}
	key := &boxPrivateKey{public: new([32]byte), private: new([32]byte)}
	copy(key.public[:], raw[:32])
	copy(key.private[:], raw[32:])
	return key, nil
}

func (s *BoxSuite) Encrypt(pub crypto.PublicKey, data []byte) ([]byte, error) {
	key, ok := pub.(*[32]byte)
	if !ok || key == nil {
		return nil, errors.Errorf("expected X25519 public key, got %T", pub)
	}
	return box.SealAnonymous(nil, data, key, randReader)
}

func (s *BoxSuite) Decrypt(priv crypto.PrivateKey, data []byte) ([]byte, error) {
	key, ok := priv.(*boxPrivateKey)
	if !ok || key == nil {
		return nil, errors.Errorf("expected X25519 private key, got %T", priv)
	}
	if out, opened := box.OpenAnonymous(nil, data, key.public, key.private); !opened {
		return nil, errors.New("failed to open sealed box")
	} else {
		return out, nil
	}
}
