package keys

import (
	"path/filepath"
	"testing"
)

func TestEncodeDecodeKey(t *testing.T) {
	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	enc, err := EncodeKey(priv)
	if err != nil {
		t.Fatal(err)
	}

	dec, err := DecodeKey(enc)
	if err != nil {
		t.Fatal(err)
	}

	if !priv.Equals(dec) {
		t.Fatal("decoded key differs from the original")
	}
}

func TestSimpleKeyfileRoundTrip(t *testing.T) {
	keyfile := filepath.Join(t.TempDir(), "priv_key")

	priv, err := GenerateKey()
	if err != nil {
		t.Fatal(err)
	}

	kf := NewSimpleKeyfile(keyfile)
	if err := kf.WriteKey(priv); err != nil {
		t.Fatal(err)
	}

	read, err := kf.ReadKey()
	if err != nil {
		t.Fatal(err)
	}

	if !priv.Equals(read) {
		t.Fatal("key read from file differs from the original")
	}
}

func TestLoadOrCreateKey(t *testing.T) {
	keyfile := filepath.Join(t.TempDir(), "priv_key")

	created, err := LoadOrCreateKey(keyfile)
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadOrCreateKey(keyfile)
	if err != nil {
		t.Fatal(err)
	}

	if !created.Equals(loaded) {
		t.Fatal("a second LoadOrCreateKey should return the persisted key")
	}
}
