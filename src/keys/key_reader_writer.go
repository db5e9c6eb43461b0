package keys

import (
	"fmt"
	"io/ioutil"
	"os"
	"path"
	"strings"
	"sync"

	ic "github.com/libp2p/go-libp2p/core/crypto"
)

// SimpleKeyfile reads and writes a private key from/to an unencrypted and
// unformated file.
type SimpleKeyfile struct {
	l       sync.Mutex
	keyfile string
}

// NewSimpleKeyfile instantiates a new SimpleKeyfile with an underlying file
func NewSimpleKeyfile(keyfile string) *SimpleKeyfile {
	simpleKeyfile := &SimpleKeyfile{
		keyfile: keyfile,
	}

	return simpleKeyfile
}

// CheckFileInfo verifies that the file exists and has user permissions only.
func (k *SimpleKeyfile) CheckFileInfo() error {
	info, err := os.Stat(k.keyfile)
	if err != nil {
		return err
	}

	// get file permissions
	perm := info.Mode().Perm()

	// build 000111111 mask
	var nonUserMask os.FileMode = (1 << 6) - 1

	// get permissions for 'groups' and 'others'
	nonUserPerm := perm & nonUserMask

	if nonUserPerm != 0 {
		return fmt.Errorf("priv_key file permissions should exclude 'groups' and 'others'. Got %o", perm)
	}

	return nil
}

// ReadKey reads from the underlying file, which is expected to contain the
// base64 form of the key, as produced by WriteKey.
func (k *SimpleKeyfile) ReadKey() (ic.PrivKey, error) {
	k.l.Lock()
	defer k.l.Unlock()

	if err := k.CheckFileInfo(); err != nil {
		return nil, err
	}

	buf, err := ioutil.ReadFile(k.keyfile)
	if err != nil {
		return nil, err
	}

	return DecodeKey(strings.TrimSpace(string(buf)))
}

// WriteKey writes the base64 form of the key to the underlying file.
func (k *SimpleKeyfile) WriteKey(key ic.PrivKey) error {
	k.l.Lock()
	defer k.l.Unlock()

	enc, err := EncodeKey(key)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(path.Dir(k.keyfile), 0700); err != nil {
		return err
	}

	return ioutil.WriteFile(k.keyfile, []byte(enc), 0600)
}

// LoadOrCreateKey reads the key from keyfile, or generates and persists a new
// one when the file does not exist yet.
func LoadOrCreateKey(keyfile string) (ic.PrivKey, error) {
	simpleKeyfile := NewSimpleKeyfile(keyfile)

	if _, err := os.Stat(keyfile); err == nil {
		return simpleKeyfile.ReadKey()
	}

	priv, err := GenerateKey()
	if err != nil {
		return nil, err
	}

	if err := simpleKeyfile.WriteKey(priv); err != nil {
		return nil, err
	}

	return priv, nil
}
