package main

import (
	"encoding/base64"

	"github.com/HannahMarsh/simple-onion-routing/internal/keys"
	"github.com/HannahMarsh/simple-onion-routing/internal/onion"
)

func encodeLayer(ks keys.KeyService, publicKey string, nextHop int, payload []byte) (string, error) {
	blob, err := onion.NewCodec(ks).EncodeLayer(publicKey, nextHop, payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(blob), nil
}
