package onion

import (
	"crypto"
	"fmt"
	"testing"

	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type node struct {
	address    int
	publicKey  string
	privateKey crypto.PrivateKey
}

func newNodes(t *testing.T, ks keys.KeyService, addresses ...int) []node {
	t.Helper()
	nodes := make([]node, len(addresses))
	for i, addr := range addresses {
		kp, err := ks.GenerateKeyPair()
		require.NoError(t, err)
		pub, err := ks.ExportPublicKey(kp.Public)
		require.NoError(t, err)
		nodes[i] = node{address: addr, publicKey: pub, privateKey: kp.Private}
	}
	return nodes
}

func hops(nodes []node) []Hop {
	h := make([]Hop, len(nodes))
	for i, n := range nodes {
		h[i] = Hop{Address: n.address, PublicKey: n.publicKey}
	}
	return h
}

var suites = []struct{ asymmetric, symmetric string }{
	{keys.RSAName, keys.GCMName},
	{keys.RSAName, keys.LegacyCBCName},
	{keys.BoxName, keys.GCMName},
	{keys.BoxName, keys.LegacyCBCName},
}

func TestFormatAddress(t *testing.T) {
	s, err := FormatAddress(9050)
	require.NoError(t, err)
	assert.Equal(t, "0000009050", s)

	s, err = FormatAddress(0)
	require.NoError(t, err)
	assert.Equal(t, "0000000000", s)

	_, err = FormatAddress(-1)
	assert.Error(t, err)

	if strconvIntSize() == 64 {
		tooWide := int64(1e10)
		_, err = FormatAddress(int(tooWide))
		assert.Error(t, err)
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0000004001")
	require.NoError(t, err)
	assert.Equal(t, 4001, addr)

	for _, bad := range []string{"", "4001", "00000040011", "+000004001", "00000x4001", "-000004001"} {
		_, err := ParseAddress(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestLayerRoundTrip(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.asymmetric+"/"+suite.symmetric, func(t *testing.T) {
			ks, err := keys.New(suite.asymmetric, suite.symmetric)
			require.NoError(t, err)
			codec := NewCodec(ks)
			n := newNodes(t, ks, 4001)[0]

			for _, payload := range [][]byte{nil, []byte("x"), []byte("hello world"), make([]byte, 4096)} {
				layer, err := codec.EncodeLayer(n.publicKey, 3002, payload)
				require.NoError(t, err)

				nextHop, residual, err := codec.DecodeLayer(n.privateKey, layer)
				require.NoError(t, err)
				assert.Equal(t, 3002, nextHop)
				assert.Equal(t, string(payload), string(residual))
			}
		})
	}
}

func TestHeaderIsFixedSize(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.asymmetric+"/"+suite.symmetric, func(t *testing.T) {
			ks, err := keys.New(suite.asymmetric, suite.symmetric)
			require.NoError(t, err)
			codec := NewCodec(ks)
			n := newNodes(t, ks, 4001)[0]

			for _, size := range []int{0, 1, 15, 16, 17, 1000} {
				layer, err := codec.EncodeLayer(n.publicKey, 1, make([]byte, size))
				require.NoError(t, err)
				require.Greater(t, len(layer), codec.HeaderSize())

				rawKey, err := ks.Decrypt(n.privateKey, layer[:codec.HeaderSize()])
				require.NoError(t, err)
				assert.Len(t, rawKey, keys.SymmetricKeySize)
			}
		})
	}
}

func TestEncodeLayerRejectsBadInput(t *testing.T) {
	ks, err := keys.New(keys.BoxName, keys.GCMName)
	require.NoError(t, err)
	codec := NewCodec(ks)
	n := newNodes(t, ks, 4001)[0]

	_, err = codec.EncodeLayer(n.publicKey, -5, []byte("m"))
	assert.Error(t, err)

	_, err = codec.EncodeLayer("not a key", 1, []byte("m"))
	assert.Error(t, err)
}

func TestEndToEndThreeHops(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.asymmetric+"/"+suite.symmetric, func(t *testing.T) {
			ks, err := keys.New(suite.asymmetric, suite.symmetric)
			require.NoError(t, err)
			codec := NewCodec(ks)
			relays := newNodes(t, ks, 1, 2, 3)

			blob, err := codec.EncodeCircuit(hops(relays), 9050, []byte("hello"))
			require.NoError(t, err)

			wantNext := []int{2, 3, 9050}
			for i, r := range relays {
				nextHop, residual, err := codec.DecodeLayer(r.privateKey, blob)
				require.NoError(t, err, "hop %d", i)
				assert.Equal(t, wantNext[i], nextHop, "hop %d", i)
				blob = residual
			}
			assert.Equal(t, "hello", string(blob))
		})
	}
}

func TestEncodeCircuitEmpty(t *testing.T) {
	ks, err := keys.New(keys.BoxName, keys.GCMName)
	require.NoError(t, err)
	_, err = NewCodec(ks).EncodeCircuit(nil, 9050, []byte("hello"))
	assert.Error(t, err)
}

func TestPeelOutOfOrderFails(t *testing.T) {
	ks, err := keys.New(keys.RSAName, keys.GCMName)
	require.NoError(t, err)
	codec := NewCodec(ks)
	relays := newNodes(t, ks, 1, 2, 3)

	blob, err := codec.EncodeCircuit(hops(relays), 9050, []byte("hello"))
	require.NoError(t, err)

	for _, r := range relays[1:] {
		_, _, err := codec.DecodeLayer(r.privateKey, blob)
		assert.True(t, errors.Is(err, ErrDecryption), "expected ErrDecryption, got %v", err)
	}
}

func TestDecodeLayerWrongKey(t *testing.T) {
	for _, suite := range suites {
		t.Run(suite.asymmetric+"/"+suite.symmetric, func(t *testing.T) {
			ks, err := keys.New(suite.asymmetric, suite.symmetric)
			require.NoError(t, err)
			codec := NewCodec(ks)
			nodes := newNodes(t, ks, 1, 2)

			layer, err := codec.EncodeLayer(nodes[0].publicKey, 9050, []byte("hello"))
			require.NoError(t, err)

			_, _, err = codec.DecodeLayer(nodes[1].privateKey, layer)
			assert.True(t, errors.Is(err, ErrDecryption), "expected ErrDecryption, got %v", err)
		})
	}
}

func TestDecodeLayerShortBlob(t *testing.T) {
	ks, err := keys.New(keys.RSAName, keys.GCMName)
	require.NoError(t, err)
	codec := NewCodec(ks)
	n := newNodes(t, ks, 1)[0]

	for _, blob := range [][]byte{nil, make([]byte, 10), make([]byte, codec.HeaderSize()-1)} {
		_, _, err := codec.DecodeLayer(n.privateKey, blob)
		assert.True(t, errors.Is(err, ErrDecryption), "len %d: %v", len(blob), err)
	}
}

func TestDecodeLayerTamperedGCM(t *testing.T) {
	ks, err := keys.New(keys.BoxName, keys.GCMName)
	require.NoError(t, err)
	codec := NewCodec(ks)
	n := newNodes(t, ks, 1)[0]

	layer, err := codec.EncodeLayer(n.publicKey, 9050, []byte("hello"))
	require.NoError(t, err)

	for i := codec.HeaderSize(); i < len(layer); i++ {
		tampered := append([]byte(nil), layer...)
		tampered[i] ^= 0x01
		_, _, err := codec.DecodeLayer(n.privateKey, tampered)
		assert.True(t, errors.Is(err, ErrDecryption), "byte %d: %v", i, err)
	}
}

// The legacy suite has no tag: flipping a bit in the last block of a long payload only
// corrupts that block, and the layer still decodes.
func TestDecodeLayerTamperedLegacyIsUndetected(t *testing.T) {
	ks, err := keys.New(keys.RSAName, keys.LegacyCBCName)
	require.NoError(t, err)
	codec := NewCodec(ks)
	n := newNodes(t, ks, 1)[0]

	payload := make([]byte, 64)
	for i := range payload {
		payload[i] = byte('a' + i%26)
	}
	layer, err := codec.EncodeLayer(n.publicKey, 9050, payload)
	require.NoError(t, err)

	// second to last block: the flip garbles that block and toggles the same bit of
	// the final block, leaving the padding intact.
	tampered := append([]byte(nil), layer...)
	tampered[len(tampered)-32] ^= 0x01

	nextHop, residual, err := codec.DecodeLayer(n.privateKey, tampered)
	require.NoError(t, err)
	assert.Equal(t, 9050, nextHop)
	assert.NotEqual(t, string(payload), string(residual))
}

func TestLegacyLayersShareCiphertextPrefixForSameKey(t *testing.T) {
	ks, err := keys.New(keys.RSAName, keys.LegacyCBCName)
	require.NoError(t, err)

	key, err := ks.GenerateSymmetricKey()
	require.NoError(t, err)
	a, err := ks.SymEncrypt(key, []byte(fmt.Sprintf("%010d%s", 9050, "hello")))
	require.NoError(t, err)
	b, err := ks.SymEncrypt(key, []byte(fmt.Sprintf("%010d%s", 9050, "hello")))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func strconvIntSize() int {
	return 32 << (^uint(0) >> 63)
}
