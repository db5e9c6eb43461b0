// Package keys manages the node's overlay identity key.
package keys

import (
	"crypto/rand"

	ic "github.com/libp2p/go-libp2p/core/crypto"
)

// GenerateKey creates a fresh Ed25519 private key. The public half determines
// the node's overlay peer id.
func GenerateKey() (ic.PrivKey, error) {
	priv, _, err := ic.GenerateEd25519Key(rand.Reader)
	return priv, err
}

// EncodeKey dumps a private key to its base64 text form.
func EncodeKey(priv ic.PrivKey) (string, error) {
	raw, err := ic.MarshalPrivateKey(priv)
	if err != nil {
		return "", err
	}
	return ic.ConfigEncodeKey(raw), nil
}

// DecodeKey parses a private key from its base64 text form.
func DecodeKey(s string) (ic.PrivKey, error) {
	raw, err := ic.ConfigDecodeKey(s)
	if err != nil {
		return nil, err
	}
	return ic.UnmarshalPrivateKey(raw)
}
