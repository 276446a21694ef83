package keys

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"

	"github.com/pkg/errors"
)

const (
	RSAName = "rsa-oaep"

	// RSAKeyBits fixes the ciphertext size to 256 bytes.
	RSAKeyBits = 2048
)

var randReader = rand.Reader

// RSASuite is RSA-OAEP with SHA-256. Public keys travel as base64 SPKI, private keys as
// base64 PKCS#8.
type RSASuite struct {
	bits int
}

func NewRSASuite() *RSASuite {
	return &RSASuite{bits: RSAKeyBits}
}

func (s *RSASuite) Name() string { return RSAName }

func (s *RSASuite) CiphertextSize() int {
	return (s.bits + 7) / 8
}

func (s *RSASuite) GenerateKeyPair() (*KeyPair, error) {
	priv, err := rsa.GenerateKey(randReader, s.bits)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate RSA key pair")
	}
	return &KeyPair{Public: &priv.PublicKey, Private: priv}, nil
}

func (s *RSASuite) ExportPublicKey(pub crypto.PublicKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal public key")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

func (s *RSASuite) ImportPublicKey(encoded string) (crypto.PublicKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode public key")
	}
	parsed, err := x509.ParsePKIXPublicKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse public key")
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public key is not an RSA key")
	}
	if pub.Size() != s.CiphertextSize() {
		return nil, errors.Errorf("RSA public key is %d bits, want %d", pub.N.BitLen(), s.bits)
	}
	return pub, nil
}

func (s *RSASuite) ExportPrivateKey(priv crypto.PrivateKey) (string, error) {
	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal private key")
	}
	return base64.StdEncoding.EncodeToString(der), nil
}

func (s *RSASuite) ImportPrivateKey(encoded string) (crypto.PrivateKey, error) {
	der, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode private key")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(der)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse private key")
	}
	priv, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private key is not an RSA key")
	}
	return priv, nil
}

func (s *RSASuite) Encrypt(pub crypto.PublicKey, data []byte) ([]byte, error) {
	rsaPub, ok := pub.(*rsa.PublicKey)
	if !ok {
		return nil, errors.Errorf("expected *rsa.PublicKey, got %T", pub)
	}
	return rsa.EncryptOAEP(sha256.New(), randReader, rsaPub, data, nil)
}

func (s *RSASuite) Decrypt(priv crypto.PrivateKey, data []byte) ([]byte, error) {
	rsaPriv, ok := priv.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.Errorf("expected *rsa.PrivateKey, got %T", priv)
	}
	return rsa.DecryptOAEP(sha256.New(), randReader, rsaPriv, data, nil)
}
