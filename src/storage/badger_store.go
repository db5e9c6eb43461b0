package storage

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/google/uuid"
	"github.com/ugorji/go/codec"

	cm "github.com/InterCooperative-Network/icn-agoranet/src/common"
)

const (
	threadPrefix    = "thread"
	linkPrefix      = "link"
	linkIndexPrefix = "linkdx"
)

// BadgerStore persists threads and credential links in a Badger database, so
// a node restarted with the same datadir does not need a full resync.
type BadgerStore struct {
	db   *badger.DB
	path string
}

// NewBadgerStore opens an existing database, or creates a new one, at the
// given path.
func NewBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	store := &BadgerStore{
		db:   db,
		path: path,
	}

	return store, nil
}

// LoadOrCreateBadgerStore attempts to load a BadgerStore from path, and
// creates a fresh one when the directory does not exist yet.
func LoadOrCreateBadgerStore(path string) (*BadgerStore, error) {
	if _, err := os.Stat(path); err != nil {
		if err := os.MkdirAll(path, 0700); err != nil {
			return nil, err
		}
	}
	return NewBadgerStore(path)
}

// Path returns the database directory.
func (s *BadgerStore) Path() string {
	return s.path
}

// GetThread implements ThreadRepository.
func (s *BadgerStore) GetThread(id string) (*Thread, error) {
	var res *Thread
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(threadKey(id))
		if err != nil {
			return err
		}
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		t := new(Thread)
		if err := unmarshalValue(val, t); err != nil {
			return err
		}
		res = t
		return nil
	})
	if err == badger.ErrKeyNotFound {
		return nil, cm.NewStoreErr("Thread", cm.KeyNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CreateThread implements ThreadRepository.
func (s *BadgerStore) CreateThread(t *Thread) (*Thread, error) {
	res := *t
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt == 0 {
		res.CreatedAt = time.Now().Unix()
	}

	val, err := marshalValue(&res)
	if err != nil {
		return nil, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		key := threadKey(res.ID)
		if _, err := txn.Get(key); err == nil {
			return cm.NewStoreErr("Thread", cm.KeyAlreadyExists, res.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		return txn.Set(key, val)
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// GetLinksForThread implements CredentialLinkRepository. Link keys embed the
// link's creation order, so the prefix iteration returns them oldest first.
func (s *BadgerStore) GetLinksForThread(threadID string) ([]*CredentialLink, error) {
	res := []*CredentialLink{}
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := linkThreadPrefix(threadID)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			l := new(CredentialLink)
			if err := unmarshalValue(val, l); err != nil {
				return err
			}
			res = append(res, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// CreateCredentialLink implements CredentialLinkRepository.
func (s *BadgerStore) CreateCredentialLink(l *CredentialLink) (*CredentialLink, error) {
	res := *l
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if res.CreatedAt == 0 {
		res.CreatedAt = time.Now().Unix()
	}

	dedup := linkDedupKey(res.ThreadID, res.CredentialCID, res.LinkedBy)

	var existing *CredentialLink
	err := s.db.Update(func(txn *badger.Txn) error {
		idxKey := linkIndexKey(dedup)

		if item, err := txn.Get(idxKey); err == nil {
			linkKeyBytes, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			item, err := txn.Get(linkKeyBytes)
			if err != nil {
				return err
			}
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			found := new(CredentialLink)
			if err := unmarshalValue(val, found); err != nil {
				return err
			}
			existing = found
			return nil
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		val, err := marshalValue(&res)
		if err != nil {
			return err
		}

		key := linkKey(res.ThreadID, res.CreatedAt, res.ID)
		if err := txn.Set(key, val); err != nil {
			return err
		}
		return txn.Set(idxKey, key)
	})
	if err != nil {
		return nil, err
	}

	if existing != nil {
		return existing, cm.NewStoreErr("CredentialLink", cm.KeyAlreadyExists, dedup)
	}
	return &res, nil
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func threadKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", threadPrefix, id))
}

func linkThreadPrefix(threadID string) []byte {
	return []byte(fmt.Sprintf("%s_%s_", linkPrefix, threadID))
}

func linkKey(threadID string, createdAt int64, id string) []byte {
	return []byte(fmt.Sprintf("%s_%s_%020d_%s", linkPrefix, threadID, createdAt, id))
}

func linkIndexKey(dedup string) []byte {
	return []byte(fmt.Sprintf("%s_%s", linkIndexPrefix, dedup))
}

func marshalValue(v interface{}) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return b.Bytes(), nil
}

func unmarshalValue(data []byte, v interface{}) error {
	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)
	return dec.Decode(v)
}
