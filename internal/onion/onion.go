// Package onion implements the layered wire format.
//
// A layer is asymCt || symCt. asymCt is the layer's fresh symmetric key wrapped with the
// hop's public key and is always exactly K = KeyService.CiphertextSize() bytes; there is
// no length field, so every node of a network must agree on K. symCt encrypts
// nextHop || payload, where nextHop is a 10 digit zero padded decimal address.
//
// EncodeCircuit nests layers: the payload of hop k is the whole layer of hop k+1, and
// only the last hop's payload is the message itself. Peeling hop k therefore reveals
// nothing but hop k+1's address and ciphertext.
package onion

import (
	"crypto"

	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/pkg/errors"
)

var ErrDecryption = errors.New("onion: failed to decrypt layer")

// Hop is one relay of a circuit as the sender sees it.
type Hop struct {
	Address   int
	PublicKey string
}

type Codec struct {
	keys keys.KeyService
}

func NewCodec(keyService keys.KeyService) *Codec {
	return &Codec{keys: keyService}
}

// HeaderSize is K, the size of the wrapped key at the start of every layer.
func (c *Codec) HeaderSize() int {
	return c.keys.CiphertextSize()
}

// EncodeLayer builds one layer addressed to the owner of hopPublicKey, telling it to
// forward payload to nextHop.
func (c *Codec) EncodeLayer(hopPublicKey string, nextHop int, payload []byte) ([]byte, error) {
	address, err := FormatAddress(nextHop)
	if err != nil {
		return nil, errors.Wrap(err, "onion.EncodeLayer(): invalid next hop")
	}
	pub, err := c.keys.ImportPublicKey(hopPublicKey)
	if err != nil {
		return nil, errors.Wrap(err, "onion.EncodeLayer(): failed to import hop public key")
	}

	symKey, err := c.keys.GenerateSymmetricKey()
	if err != nil {
		return nil, errors.Wrap(err, "onion.EncodeLayer(): failed to generate layer key")
	}

	plaintext := make([]byte, 0, AddressWidth+len(payload))
	plaintext = append(plaintext, address...)
	plaintext = append(plaintext, payload...)

	symCt, err := c.keys.SymEncrypt(symKey, plaintext)
	if err != nil {
		return nil, errors.Wrap(err, "onion.EncodeLayer(): failed to encrypt layer")
	}
	asymCt, err := c.keys.Encrypt(pub, c.keys.ExportSymmetricKey(symKey))
	if err != nil {
		return nil, errors.Wrap(err, "onion.EncodeLayer(): failed to wrap layer key")
	}
	if len(asymCt) != c.HeaderSize() {
		return nil, errors.Errorf("onion.EncodeLayer(): wrapped key is %d bytes, want %d", len(asymCt), c.HeaderSize())
	}

	layer := make([]byte, 0, len(asymCt)+len(symCt))
	layer = append(layer, asymCt...)
	return append(layer, symCt...), nil
}

// EncodeCircuit wraps message for finalAddress in one layer per hop. The returned blob
// is sent to hops[0].
func (c *Codec) EncodeCircuit(hops []Hop, finalAddress int, message []byte) ([]byte, error) {
	if len(hops) == 0 {
		return nil, errors.New("onion.EncodeCircuit(): empty circuit")
	}
	blob := message
	nextHop := finalAddress
	for i := len(hops) - 1; i >= 0; i-- {
		layer, err := c.EncodeLayer(hops[i].PublicKey, nextHop, blob)
		if err != nil {
			return nil, errors.Wrapf(err, "onion.EncodeCircuit(): hop %d", i)
		}
		blob = layer
		nextHop = hops[i].Address
	}
	return blob, nil
}

// DecodeLayer peels the outermost layer of blob. Every failure matches ErrDecryption.
func (c *Codec) DecodeLayer(priv crypto.PrivateKey, blob []byte) (nextHop int, residual []byte, err error) {
	k := c.HeaderSize()
	if len(blob) < k {
		return 0, nil, errors.Wrapf(ErrDecryption, "blob is %d bytes, shorter than the %d byte header", len(blob), k)
	}
	asymCt, symCt := blob[:k], blob[k:]

	rawKey, err := c.keys.Decrypt(priv, asymCt)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrDecryption, "failed to unwrap layer key: %v", err)
	}
	symKey, err := c.keys.ImportSymmetricKey(rawKey)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrDecryption, "failed to import layer key: %v", err)
	}
	plaintext, err := c.keys.SymDecrypt(symKey, symCt)
	if err != nil {
		return 0, nil, errors.Wrapf(ErrDecryption, "failed to decrypt layer: %v", err)
	}
	if len(plaintext) < AddressWidth {
		return 0, nil, errors.Wrapf(ErrDecryption, "layer plaintext is %d bytes, shorter than an address", len(plaintext))
	}
	nextHop, err = ParseAddress(string(plaintext[:AddressWidth]))
	if err != nil {
		return 0, nil, errors.Wrapf(ErrDecryption, "bad next hop: %v", err)
	}
	return nextHop, plaintext[AddressWidth:], nil
}
