package keys

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suites(t *testing.T) map[string]*Service {
	t.Helper()
	out := make(map[string]*Service)
	for _, asym := range []string{RSAName, BoxName} {
		for _, sym := range []string{GCMName, LegacyCBCName} {
			s, err := New(asym, sym)
			require.NoError(t, err)
			out[asym+"/"+sym] = s
		}
	}
	return out
}

func TestNewRejectsUnknownSuites(t *testing.T) {
	_, err := New("dsa", GCMName)
	assert.Error(t, err)
	_, err = New(RSAName, "des")
	assert.Error(t, err)
}

func TestAsymmetricRoundTrip(t *testing.T) {
	for name, s := range suites(t) {
		t.Run(name, func(t *testing.T) {
			kp, err := s.GenerateKeyPair()
			require.NoError(t, err)

			pubStr, err := s.ExportPublicKey(kp.Public)
			require.NoError(t, err)
			privStr, err := s.ExportPrivateKey(kp.Private)
			require.NoError(t, err)

			pub, err := s.ImportPublicKey(pubStr)
			require.NoError(t, err)
			priv, err := s.ImportPrivateKey(privStr)
			require.NoError(t, err)

			symKey, err := s.GenerateSymmetricKey()
			require.NoError(t, err)

			ct, err := s.Encrypt(pub, s.ExportSymmetricKey(symKey))
			require.NoError(t, err)
			assert.Len(t, ct, s.CiphertextSize())

			pt, err := s.Decrypt(priv, ct)
			require.NoError(t, err)
			imported, err := s.ImportSymmetricKey(pt)
			require.NoError(t, err)
			assert.Equal(t, symKey, imported)
		})
	}
}

func TestAsymmetricWrongKeyFails(t *testing.T) {
	for _, asym := range []string{RSAName, BoxName} {
		t.Run(asym, func(t *testing.T) {
			s, err := New(asym, GCMName)
			require.NoError(t, err)
			a, err := s.GenerateKeyPair()
			require.NoError(t, err)
			b, err := s.GenerateKeyPair()
			require.NoError(t, err)

			ct, err := s.Encrypt(a.Public, make([]byte, SymmetricKeySize))
			require.NoError(t, err)
			_, err = s.Decrypt(b.Private, ct)
			assert.Error(t, err)
		})
	}
}

func TestCiphertextSizes(t *testing.T) {
	assert.Equal(t, 256, NewRSASuite().CiphertextSize())
	assert.Equal(t, 80, NewBoxSuite().CiphertextSize())
}

func TestImportSymmetricKeyChecksLength(t *testing.T) {
	s, err := New(RSAName, GCMName)
	require.NoError(t, err)
	_, err = s.ImportSymmetricKey(make([]byte, 16))
	assert.Error(t, err)
}

func TestSymmetricRoundTrip(t *testing.T) {
	for _, suite := range []SymmetricSuite{GCMSuite{}, LegacyCBCSuite{}} {
		t.Run(suite.Name(), func(t *testing.T) {
			key := bytes.Repeat([]byte{7}, SymmetricKeySize)
			for _, msg := range [][]byte{{}, []byte("0000003001hello"), bytes.Repeat([]byte("x"), 1000)} {
				ct, err := suite.Encrypt(key, msg)
				require.NoError(t, err)
				pt, err := suite.Decrypt(key, ct)
				require.NoError(t, err)
				assert.Equal(t, string(msg), string(pt))
			}
		})
	}
}

// The legacy suite uses a fixed IV, so equal plaintexts encrypt to equal ciphertexts.
func TestLegacyCBCIsDeterministic(t *testing.T) {
	key := bytes.Repeat([]byte{1}, SymmetricKeySize)
	a, err := LegacyCBCSuite{}.Encrypt(key, []byte("0000009050hello world, same prefix"))
	require.NoError(t, err)
	b, err := LegacyCBCSuite{}.Encrypt(key, []byte("0000009050hello world, different tail"))
	require.NoError(t, err)
	assert.Equal(t, a[:16], b[:16])
}

func TestGCMIsRandomized(t *testing.T) {
	key := bytes.Repeat([]byte{1}, SymmetricKeySize)
	a, err := GCMSuite{}.Encrypt(key, []byte("0000009050hello"))
	require.NoError(t, err)
	b, err := GCMSuite{}.Encrypt(key, []byte("0000009050hello"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestGCMDetectsTampering(t *testing.T) {
	key := bytes.Repeat([]byte{1}, SymmetricKeySize)
	ct, err := GCMSuite{}.Encrypt(key, []byte("0000009050hello"))
	require.NoError(t, err)
	for i := range ct {
		tampered := append([]byte(nil), ct...)
		tampered[i] ^= 0x01
		_, err = GCMSuite{}.Decrypt(key, tampered)
		assert.Error(t, err, "bit flip at byte %d went unnoticed", i)
	}
}

func TestLegacyCBCRejectsBadLengths(t *testing.T) {
	key := bytes.Repeat([]byte{1}, SymmetricKeySize)
	_, err := LegacyCBCSuite{}.Decrypt(key, nil)
	assert.Error(t, err)
	_, err = LegacyCBCSuite{}.Decrypt(key, make([]byte, 17))
	assert.Error(t, err)
}
